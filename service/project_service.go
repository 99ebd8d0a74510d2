package service

import (
	"context"
	"errors"
	"go-task-api/logger"
	"go-task-api/model"
	"go-task-api/repository"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrProjectNotFound  = errors.New("project not found or you don't have access to this project")
	ErrInvalidDateRange = errors.New("end date must not be before start date")
)

// ProjectService manages projects owned by a single user, caching each owner's
// project list.
type ProjectService struct {
	projectRepo repository.IProjectRepository
	taskRepo    repository.ITaskRepository
	cache       ICacheClient
}

func NewProjectService(projectRepo repository.IProjectRepository, taskRepo repository.ITaskRepository, cache ICacheClient) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		cache:       cache,
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func checkDateRange(p *model.Project) error {
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (s *ProjectService) CreateProject(ctx context.Context, ownerID string, req model.CreateProjectRequest) (*model.Project, error) {
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	project := &model.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Color:       orDefault(req.Color, model.DefaultProjectColor),
		Icon:        orDefault(req.Icon, model.DefaultProjectIcon),
		Category:    orDefault(req.Category, model.DefaultProjectCategory),
		StartDate:   req.StartDate.TimePtr(),
		EndDate:     req.EndDate.TimePtr(),
		IsPrivate:   req.IsPrivate,
		Priority:    priority,
		Goals:       cleanList(req.Goals),
		Owner:       ownerID,
	}
	if err := checkDateRange(project); err != nil {
		return nil, err
	}

	if err := s.projectRepo.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	cacheDel(ctx, s.cache, projectsCacheKey(ownerID))

	logger.Log.WithFields(logrus.Fields{
		"project_id": project.ID,
		"owner_id":   ownerID,
	}).Info("Project created")
	return project, nil
}

// ListProjects returns the owner's projects newest first, using a
// cache-aside strategy.
func (s *ProjectService) ListProjects(ctx context.Context, ownerID string) ([]*model.Project, error) {
	key := projectsCacheKey(ownerID)

	var projects []*model.Project
	if cacheGet(ctx, s.cache, key, &projects) {
		return projects, nil
	}

	projects, err := s.projectRepo.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	cacheSet(ctx, s.cache, key, projects, projectsCacheTTL)
	return projects, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id, ownerID string) (*model.Project, error) {
	project, err := s.projectRepo.GetProjectByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// UpdateProject applies the fields present in req.
func (s *ProjectService) UpdateProject(ctx context.Context, id, ownerID string, req model.UpdateProjectRequest) (*model.Project, error) {
	project, err := s.GetProject(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.Color != nil {
		project.Color = orDefault(*req.Color, model.DefaultProjectColor)
	}
	if req.Icon != nil {
		project.Icon = orDefault(*req.Icon, model.DefaultProjectIcon)
	}
	if req.Category != nil {
		project.Category = orDefault(*req.Category, model.DefaultProjectCategory)
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate.TimePtr()
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate.TimePtr()
	}
	if req.IsPrivate != nil {
		project.IsPrivate = *req.IsPrivate
	}
	if req.Priority != nil {
		project.Priority = *req.Priority
	}
	if req.Goals != nil {
		project.Goals = cleanList(*req.Goals)
	}
	if err := checkDateRange(project); err != nil {
		return nil, err
	}

	if err := s.projectRepo.ReplaceProject(ctx, project); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	cacheDel(ctx, s.cache, projectsCacheKey(ownerID))
	return project, nil
}

// DeleteProject removes the project and detaches its tasks, which keep the
// rest of their data.
func (s *ProjectService) DeleteProject(ctx context.Context, id, ownerID string) error {
	if err := s.projectRepo.DeleteProject(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	if err := s.taskRepo.ClearProject(ctx, id); err != nil {
		return err
	}
	cacheDel(ctx, s.cache, projectsCacheKey(ownerID))

	logger.Log.WithFields(logrus.Fields{
		"project_id": id,
		"owner_id":   ownerID,
	}).Info("Project deleted")
	return nil
}
