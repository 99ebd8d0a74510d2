package service

import (
	"context"
	"go-task-api/model"
	"go-task-api/repository/repotest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectService_CreateAppliesDefaults(t *testing.T) {
	svc := NewProjectService(repotest.NewProjects(), repotest.NewTasks(), nil)

	project, err := svc.CreateProject(context.Background(), "owner-1", model.CreateProjectRequest{
		Name:  "  Website relaunch ",
		Goals: []string{"ship", " ", "measure"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Website relaunch", project.Name)
	assert.Equal(t, model.DefaultProjectColor, project.Color)
	assert.Equal(t, model.DefaultProjectIcon, project.Icon)
	assert.Equal(t, model.DefaultProjectCategory, project.Category)
	assert.Equal(t, model.PriorityMedium, project.Priority)
	assert.Equal(t, []string{"ship", "measure"}, project.Goals)
	assert.Equal(t, "owner-1", project.Owner)
}

func TestProjectService_RejectsInvertedDates(t *testing.T) {
	svc := NewProjectService(repotest.NewProjects(), repotest.NewTasks(), nil)
	start := &model.FlexibleTime{Time: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)}
	end := &model.FlexibleTime{Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}

	_, err := svc.CreateProject(context.Background(), "owner-1", model.CreateProjectRequest{
		Name: "Backwards", StartDate: start, EndDate: end,
	})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestProjectService_OwnerScoping(t *testing.T) {
	svc := NewProjectService(repotest.NewProjects(), repotest.NewTasks(), nil)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "owner-1", model.CreateProjectRequest{Name: "Mine"})
	require.NoError(t, err)

	_, err = svc.GetProject(ctx, project.ID, "owner-2")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	name := "Theirs"
	_, err = svc.UpdateProject(ctx, project.ID, "owner-2", model.UpdateProjectRequest{Name: &name})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	assert.ErrorIs(t, svc.DeleteProject(ctx, project.ID, "owner-2"), ErrProjectNotFound)
}

func TestProjectService_UpdateOnlyTouchesPresentFields(t *testing.T) {
	svc := NewProjectService(repotest.NewProjects(), repotest.NewTasks(), nil)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "owner-1", model.CreateProjectRequest{
		Name: "Mine", Description: "keep me", Priority: model.PriorityHigh,
	})
	require.NoError(t, err)

	private := true
	updated, err := svc.UpdateProject(ctx, project.ID, "owner-1", model.UpdateProjectRequest{IsPrivate: &private})
	require.NoError(t, err)
	assert.True(t, updated.IsPrivate)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, model.PriorityHigh, updated.Priority)
}

func TestProjectService_DeleteDetachesTasks(t *testing.T) {
	tasks := repotest.NewTasks()
	svc := NewProjectService(repotest.NewProjects(), tasks, nil)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "owner-1", model.CreateProjectRequest{Name: "Mine"})
	require.NoError(t, err)
	task := &model.Task{Title: "t", Project: project.ID, CreatedBy: "owner-1", Assignee: model.Assignee{ID: "owner-1"}}
	require.NoError(t, tasks.CreateTask(ctx, task))

	require.NoError(t, svc.DeleteProject(ctx, project.ID, "owner-1"))

	reloaded, err := tasks.GetTaskForUser(ctx, task.ID, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Project)
}

func TestProjectService_ListProjectsIsCached(t *testing.T) {
	mr, client := newTestRedis(t)
	projects := repotest.NewProjects()
	svc := NewProjectService(projects, repotest.NewTasks(), client)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "owner-1", model.CreateProjectRequest{Name: "First"})
	require.NoError(t, err)

	list, err := svc.ListProjects(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mr.Exists("projects:owner-1"))
	assert.Equal(t, projectsCacheTTL, mr.TTL("projects:owner-1"))

	// A write behind the service's back is not visible until the entry expires.
	require.NoError(t, projects.CreateProject(ctx, &model.Project{Name: "Sneaky", Owner: "owner-1"}))
	list, err = svc.ListProjects(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// A write through the service invalidates the entry.
	_, err = svc.CreateProject(ctx, "owner-1", model.CreateProjectRequest{Name: "Third"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("projects:owner-1"))

	list, err = svc.ListProjects(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, "Third", list[0].Name)
}
