package service

import (
	"context"
	"errors"
	"go-task-api/common"
	"go-task-api/logger"
	"go-task-api/model"
	"go-task-api/repository"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrTaskNotFound        = errors.New("task not found or access denied")
	ErrTaskProjectNotFound = errors.New("project not found or access denied")
	ErrAssigneeNotFound    = errors.New("assignee not found")
	ErrInvalidProjectID    = errors.New("invalid project ID")
	ErrInvalidAssigneeID   = errors.New("invalid assignee ID")
	ErrInvalidStatus       = errors.New("invalid status. Must be pending, in-progress, or completed")
)

const (
	DefaultTaskPage  = 1
	DefaultTaskLimit = 10
	MaxTaskLimit     = 100

	// MaxTaskPage keeps (page-1)*limit within int range.
	MaxTaskPage = math.MaxInt / MaxTaskLimit
)

// TaskService manages tasks visible to their creator and their assignee.
type TaskService struct {
	taskRepo    repository.ITaskRepository
	projectRepo repository.IProjectRepository
	userRepo    repository.IUserRepository
	cache       ICacheClient
	now         func() time.Time
}

func NewTaskService(taskRepo repository.ITaskRepository, projectRepo repository.IProjectRepository,
	userRepo repository.IUserRepository, cache ICacheClient) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		cache:       cache,
		now:         time.Now,
	}
}

// invalidateStats drops cached statistics for everyone who can see the task.
func (s *TaskService) invalidateStats(ctx context.Context, userIDs ...string) {
	keys := make([]string, 0, len(userIDs))
	seen := map[string]bool{}
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, taskStatsCacheKey(id))
	}
	if len(keys) > 0 {
		cacheDel(ctx, s.cache, keys...)
	}
}

// ownedProject checks that projectID is a project of userID.
func (s *TaskService) ownedProject(ctx context.Context, projectID, userID string) error {
	if !common.IsValidID(projectID) {
		return ErrInvalidProjectID
	}
	if _, err := s.projectRepo.GetProjectByIDForOwner(ctx, projectID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskProjectNotFound
		}
		return err
	}
	return nil
}

func (s *TaskService) resolveAssignee(ctx context.Context, assigneeID string) (model.Assignee, error) {
	if !common.IsValidID(assigneeID) {
		return model.Assignee{}, ErrInvalidAssigneeID
	}
	user, err := s.userRepo.GetProfileByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Assignee{}, ErrAssigneeNotFound
		}
		return model.Assignee{}, err
	}
	return model.Assignee{ID: user.ID, Name: user.Name, Avatar: user.Avatar}, nil
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, req model.CreateTaskRequest) (*model.Task, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID != "" {
		if err := s.ownedProject(ctx, projectID, userID); err != nil {
			return nil, err
		}
	}

	assigneeID := strings.TrimSpace(req.AssigneeID)
	if assigneeID == "" {
		assigneeID = userID
	}
	assignee, err := s.resolveAssignee(ctx, assigneeID)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate.Time,
		DueTime:     strings.TrimSpace(req.DueTime),
		Project:     projectID,
		Tags:        cleanList(req.Tags),
		Category:    strings.TrimSpace(req.Category),
		Assignee:    assignee,
		CreatedBy:   userID,
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}

	if err := s.taskRepo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, userID, assignee.ID)

	logger.Log.WithFields(logrus.Fields{
		"task_id": task.ID,
		"user_id": userID,
	}).Info("Task created")
	return task, nil
}

// NormalizeTaskFilter applies paging defaults and bounds.
func NormalizeTaskFilter(f model.TaskFilter) model.TaskFilter {
	if f.Page < 1 {
		f.Page = DefaultTaskPage
	}
	if f.Page > MaxTaskPage {
		f.Page = MaxTaskPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultTaskLimit
	}
	if f.Limit > MaxTaskLimit {
		f.Limit = MaxTaskLimit
	}
	switch f.SortBy {
	case model.SortByDueDate, model.SortByCreatedAt, model.SortByUpdatedAt,
		model.SortByPriority, model.SortByStatus, model.SortByTitle:
	default:
		f.SortBy = model.SortByDueDate
	}
	return f
}

func (s *TaskService) ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, *model.TaskPagination, error) {
	filter = NormalizeTaskFilter(filter)
	tasks, total, err := s.taskRepo.ListTasksForUser(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return tasks, model.NewTaskPagination(filter.Page, filter.Limit, total), nil
}

// GetTaskStats is served from cache when possible.
func (s *TaskService) GetTaskStats(ctx context.Context, userID string) (*model.TaskStats, error) {
	key := taskStatsCacheKey(userID)

	var stats model.TaskStats
	if cacheGet(ctx, s.cache, key, &stats) {
		return &stats, nil
	}

	fresh, err := s.taskRepo.TaskStats(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	cacheSet(ctx, s.cache, key, fresh, taskStatsCacheTTL)
	return fresh, nil
}

func (s *TaskService) ListProjectTasks(ctx context.Context, userID string, filter model.ProjectTaskFilter) ([]*model.Task, error) {
	if err := s.ownedProject(ctx, filter.ProjectID, userID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListTasksByProject(ctx, filter)
}

func (s *TaskService) GetTask(ctx context.Context, id, userID string) (*model.Task, error) {
	task, err := s.taskRepo.GetTaskForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// UpdateTask applies the fields present in req. An empty projectId detaches
// the task from its project.
func (s *TaskService) UpdateTask(ctx context.Context, id, userID string, req model.UpdateTaskRequest) (*model.Task, error) {
	task, err := s.GetTask(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	previousAssignee := task.Assignee.ID

	if req.AssigneeID != nil && strings.TrimSpace(*req.AssigneeID) != "" {
		assignee, err := s.resolveAssignee(ctx, strings.TrimSpace(*req.AssigneeID))
		if err != nil {
			return nil, err
		}
		task.Assignee = assignee
	}
	if req.ProjectID != nil {
		projectID := strings.TrimSpace(*req.ProjectID)
		if projectID != "" && projectID != task.Project {
			if err := s.ownedProject(ctx, projectID, userID); err != nil {
				return nil, err
			}
		}
		task.Project = projectID
	}
	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate.Time
	}
	if req.DueTime != nil {
		task.DueTime = strings.TrimSpace(*req.DueTime)
	}
	if req.Tags != nil {
		task.Tags = cleanList(*req.Tags)
	}
	if req.Category != nil {
		task.Category = strings.TrimSpace(*req.Category)
	}

	if err := s.taskRepo.ReplaceTask(ctx, task, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	s.invalidateStats(ctx, task.CreatedBy, previousAssignee, task.Assignee.ID)
	return task, nil
}

func (s *TaskService) UpdateTaskStatus(ctx context.Context, id, userID string, status model.TaskStatus) (*model.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.UpdateTask(ctx, id, userID, model.UpdateTaskRequest{Status: &status})
}

func (s *TaskService) DeleteTask(ctx context.Context, id, userID string) error {
	task, err := s.GetTask(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.taskRepo.DeleteTaskForUser(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	s.invalidateStats(ctx, task.CreatedBy, task.Assignee.ID)

	logger.Log.WithFields(logrus.Fields{
		"task_id": id,
		"user_id": userID,
	}).Info("Task deleted")
	return nil
}
