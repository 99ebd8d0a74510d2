// Package repotest provides in-memory repositories for tests. They honour the
// same contracts as the postgres and mongo stores, including the conditional
// refresh-token rotation.
package repotest

import (
	"context"
	"errors"
	"go-task-api/common"
	"go-task-api/model"
	"go-task-api/repository"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Users is an in-memory IUserRepository.
type Users struct {
	mu    sync.Mutex
	users map[string]*model.User
	// Err, when set, is returned by every method.
	Err error
}

func NewUsers() *Users {
	return &Users{users: map[string]*model.User{}}
}

var _ repository.IUserRepository = (*Users)(nil)

func (s *Users) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email || u.UserName == user.UserName {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = common.NewID()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	c := *user
	s.users[c.ID] = &c
	return nil
}

func (s *Users) get(id string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (s *Users) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return nil, err
	}
	c := *u
	return &c, nil
}

func (s *Users) GetProfileByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return u.Sanitized(), nil
}

func (s *Users) GetUserByEmailOrUserName(_ context.Context, email, userName string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if (email != "" && u.Email == email) || (userName != "" && u.UserName == userName) {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Users) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, u := range s.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Users) UpdateRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return err
	}
	u.RefreshToken = token
	return nil
}

func (s *Users) RotateRefreshToken(_ context.Context, id, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrNoMatch
	}
	if err != nil {
		return err
	}
	if u.RefreshToken == "" || u.RefreshToken != current {
		return repository.ErrNoMatch
	}
	u.RefreshToken = next
	return nil
}

func (s *Users) ClearRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return err
	}
	u.RefreshToken = ""
	return nil
}

func (s *Users) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	u.RefreshToken = ""
	return nil
}

func (s *Users) UpdateProfile(_ context.Context, id string, name, email *string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if email != nil {
		for _, other := range s.users {
			if other.ID != id && other.Email == *email {
				return nil, repository.ErrDuplicate
			}
		}
		u.Email = *email
	}
	if name != nil {
		u.Name = *name
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Sanitized(), nil
}

func (s *Users) UpdateAvatar(_ context.Context, id, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return err
	}
	u.Avatar = avatarURL
	return nil
}

// StoredRefreshToken exposes the persisted refresh token for assertions.
func (s *Users) StoredRefreshToken(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u.RefreshToken
	}
	return ""
}

// Delete removes a user outright, as an administrator would.
func (s *Users) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// Projects is an in-memory IProjectRepository.
type Projects struct {
	mu       sync.Mutex
	projects map[string]*model.Project
}

func NewProjects() *Projects {
	return &Projects{projects: map[string]*model.Project{}}
}

var _ repository.IProjectRepository = (*Projects)(nil)

func (s *Projects) CreateProject(_ context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.ID == "" {
		project.ID = common.NewID()
	}
	now := time.Now().UTC()
	project.CreatedAt, project.UpdatedAt = now, now
	c := *project
	s.projects[c.ID] = &c
	return nil
}

func (s *Projects) ListProjectsByOwner(_ context.Context, ownerID string) ([]*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Project{}
	for _, p := range s.projects {
		if p.Owner == ownerID {
			c := *p
			out = append(out, &c)
		}
	}
	// IDs are time-ordered, so this is newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Projects) GetProjectByIDForOwner(_ context.Context, id, ownerID string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.Owner != ownerID {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Projects) ReplaceProject(_ context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[project.ID]
	if !ok || p.Owner != project.Owner {
		return repository.ErrNotFound
	}
	project.UpdatedAt = time.Now().UTC()
	c := *project
	s.projects[c.ID] = &c
	return nil
}

func (s *Projects) DeleteProject(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.Owner != ownerID {
		return repository.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

// Tasks is an in-memory ITaskRepository.
type Tasks struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
}

func NewTasks() *Tasks {
	return &Tasks{tasks: map[string]*model.Task{}}
}

var _ repository.ITaskRepository = (*Tasks)(nil)

func visible(t *model.Task, userID string) bool {
	return t.CreatedBy == userID || t.Assignee.ID == userID
}

func (s *Tasks) CreateTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = common.NewID()
	}
	now := time.Now().UTC()
	task.CreatedAt, task.UpdatedAt = now, now
	c := *task
	s.tasks[c.ID] = &c
	return nil
}

func (s *Tasks) GetTaskForUser(_ context.Context, id, userID string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !visible(t, userID) {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func matchesSearch(t *model.Task, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), search) || strings.Contains(strings.ToLower(t.Description), search) {
		return true
	}
	return slices.ContainsFunc(t.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), search)
	})
}

func sortKey(t *model.Task, field string) string {
	switch field {
	case model.SortByCreatedAt:
		return t.CreatedAt.Format(time.RFC3339Nano)
	case model.SortByUpdatedAt:
		return t.UpdatedAt.Format(time.RFC3339Nano)
	case model.SortByPriority:
		return string(t.Priority)
	case model.SortByStatus:
		return string(t.Status)
	case model.SortByTitle:
		return t.Title
	default:
		return t.DueDate.UTC().Format(time.RFC3339Nano)
	}
}

func (s *Tasks) ListTasksForUser(_ context.Context, f model.TaskFilter) ([]*model.Task, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []*model.Task{}
	for _, t := range s.tasks {
		if !visible(t, f.UserID) ||
			(f.Status != "" && t.Status != f.Status) ||
			(f.Priority != "" && t.Priority != f.Priority) ||
			(f.Category != "" && t.Category != f.Category) ||
			(f.ProjectID != "" && t.Project != f.ProjectID) ||
			!matchesSearch(t, f.Search) {
			continue
		}
		c := *t
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := sortKey(matched[i], f.SortBy), sortKey(matched[j], f.SortBy)
		if a == b {
			a, b = matched[i].ID, matched[j].ID
		}
		if f.SortDesc {
			return a > b
		}
		return a < b
	})
	total := int64(len(matched))
	start := min(f.Offset(), len(matched))
	end := min(start+f.Limit, len(matched))
	return matched[start:end], total, nil
}

func (s *Tasks) ListTasksByProject(_ context.Context, f model.ProjectTaskFilter) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Task{}
	for _, t := range s.tasks {
		if t.Project != f.ProjectID ||
			(f.Status != "" && t.Status != f.Status) ||
			(f.Priority != "" && t.Priority != f.Priority) ||
			(f.AssigneeID != "" && t.Assignee.ID != f.AssigneeID) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *Tasks) ReplaceTask(_ context.Context, task *model.Task, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[task.ID]
	if !ok || !visible(t, userID) {
		return repository.ErrNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	c := *task
	s.tasks[c.ID] = &c
	return nil
}

func (s *Tasks) DeleteTaskForUser(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !visible(t, userID) {
		return repository.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Tasks) ClearProject(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Project == projectID {
			t.Project = ""
		}
	}
	return nil
}

func (s *Tasks) TaskStats(_ context.Context, userID string, now time.Time) (*model.TaskStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &model.TaskStats{}
	byStatus := map[string]int64{}
	byPriority := map[string]int64{}
	for _, t := range s.tasks {
		if !visible(t, userID) {
			continue
		}
		stats.TotalTasks++
		byStatus[string(t.Status)]++
		byPriority[string(t.Priority)]++
		if t.Status == model.StatusCompleted {
			continue
		}
		if t.DueDate.Before(now) {
			stats.OverdueTasks++
		}
		if !t.DueDate.Before(startOfDay) && t.DueDate.Before(endOfDay) {
			stats.TasksDueToday++
		}
	}
	stats.StatusBreakdown = buckets(byStatus)
	stats.PriorityBreakdown = buckets(byPriority)
	return stats, nil
}

func buckets(counts map[string]int64) []model.StatBucket {
	out := []model.StatBucket{}
	for k, n := range counts {
		out = append(out, model.StatBucket{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
