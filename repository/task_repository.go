package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-task-api/common"
	"go-task-api/logger"
	"go-task-api/model"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ITaskRepository defines task persistence. Every user-scoped method only sees
// tasks the user created or is assigned to.
type ITaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskForUser(ctx context.Context, id, userID string) (*model.Task, error)
	ListTasksForUser(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int64, error)
	ListTasksByProject(ctx context.Context, filter model.ProjectTaskFilter) ([]*model.Task, error)
	ReplaceTask(ctx context.Context, task *model.Task, userID string) error
	DeleteTaskForUser(ctx context.Context, id, userID string) error
	// ClearProject detaches every task from a deleted project.
	ClearProject(ctx context.Context, projectID string) error
	TaskStats(ctx context.Context, userID string, now time.Time) (*model.TaskStats, error)
}

type TaskRepository struct {
	DB *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

const taskColumns = `id, title, description, priority, status, due_date, due_time, project_id, tags, category,
	assignee_id, assignee_name, assignee_avatar, created_by, created_at, updated_at`

var taskSortColumns = map[string]string{
	model.SortByDueDate:   "due_date",
	model.SortByCreatedAt: "created_at",
	model.SortByUpdatedAt: "updated_at",
	model.SortByPriority:  "priority",
	model.SortByStatus:    "status",
	model.SortByTitle:     "title",
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		t         model.Task
		dueTime   sql.NullString
		projectID sql.NullString
		avatar    sql.NullString
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.DueDate, &dueTime, &projectID,
		pq.Array(&t.Tags), &t.Category, &t.Assignee.ID, &t.Assignee.Name, &avatar, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.DueTime = dueTime.String
	t.Project = projectID.String
	t.Assignee.Avatar = avatar.String
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	defer rows.Close()
	tasks := []*model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = common.NewID()
	}
	log := logger.Log.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"created_by": task.CreatedBy,
	})
	log.Info("Executing query to create a new task")

	query := `INSERT INTO tasks (id, title, description, priority, status, due_date, due_time, project_id, tags,
		category, assignee_id, assignee_name, assignee_avatar, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, task.ID, task.Title, task.Description, task.Priority, task.Status,
		task.DueDate, nullString(task.DueTime), nullString(task.Project), pq.Array(task.Tags), task.Category,
		task.Assignee.ID, task.Assignee.Name, nullString(task.Assignee.Avatar), task.CreatedBy,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create task query")
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetTaskForUser(ctx context.Context, id, userID string) (*model.Task, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"task_id": id,
		"user_id": userID,
	})
	log.Debug("Executing query to get task for user")

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND (created_by = $2 OR assignee_id = $2)`
	task, err := scanTask(r.DB.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get task query")
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// escapeLike quotes the LIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// whereForFilter builds the WHERE clause shared by the list and count queries.
func whereForFilter(f model.TaskFilter) (string, []any) {
	args := []any{f.UserID}
	conds := []string{"(created_by = $1 OR assignee_id = $1)"}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.ProjectID != "" {
		add("project_id = $%d", f.ProjectID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%[1]d OR description ILIKE $%[1]d OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%[1]d))", n))
	}
	return strings.Join(conds, " AND "), args
}

// ListTasksForUser returns one page of matching tasks plus the total match count.
func (r *TaskRepository) ListTasksForUser(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int64, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": filter.UserID,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
	log.Info("Executing query to list tasks for user")

	where, args := whereForFilter(filter)

	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		log.WithError(err).Error("Failed to execute count tasks query")
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	column, ok := taskSortColumns[filter.SortBy]
	if !ok {
		column = taskSortColumns[model.SortByDueDate]
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	args = append(args, filter.Limit, filter.Offset())
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		taskColumns, where, column, direction, direction, len(args)-1, len(args))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute list tasks query")
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := scanTasks(rows)
	if err != nil {
		log.WithError(err).Error("Failed to scan task rows")
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListTasksByProject returns the project's tasks ordered by due date. Callers
// check project ownership first.
func (r *TaskRepository) ListTasksByProject(ctx context.Context, filter model.ProjectTaskFilter) ([]*model.Task, error) {
	log := logger.Log.WithField("project_id", filter.ProjectID)
	log.Info("Executing query to list tasks by project")

	args := []any{filter.ProjectID}
	conds := []string{"project_id = $1"}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		conds = append(conds, fmt.Sprintf("assignee_id = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY due_date ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute list tasks by project query")
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	return scanTasks(rows)
}

// ReplaceTask writes every mutable field of task while userID can still see it.
func (r *TaskRepository) ReplaceTask(ctx context.Context, task *model.Task, userID string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"task_id": task.ID,
		"user_id": userID,
	})
	log.Info("Executing query to update task")

	query := `UPDATE tasks SET title = $3, description = $4, priority = $5, status = $6, due_date = $7,
		due_time = $8, project_id = $9, tags = $10, category = $11, assignee_id = $12, assignee_name = $13,
		assignee_avatar = $14, updated_at = now()
		WHERE id = $1 AND (created_by = $2 OR assignee_id = $2) RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query, task.ID, userID, task.Title, task.Description, task.Priority,
		task.Status, task.DueDate, nullString(task.DueTime), nullString(task.Project), pq.Array(task.Tags),
		task.Category, task.Assignee.ID, task.Assignee.Name, nullString(task.Assignee.Avatar),
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		log.WithError(err).Error("Failed to execute update task query")
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *TaskRepository) DeleteTaskForUser(ctx context.Context, id, userID string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"task_id": id,
		"user_id": userID,
	})
	log.Info("Executing query to delete task")

	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND (created_by = $2 OR assignee_id = $2)`, id, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete task query")
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) ClearProject(ctx context.Context, projectID string) error {
	log := logger.Log.WithField("project_id", projectID)
	log.Info("Executing query to detach tasks from project")

	_, err := r.DB.ExecContext(ctx, `UPDATE tasks SET project_id = NULL, updated_at = now() WHERE project_id = $1`, projectID)
	if err != nil {
		log.WithError(err).Error("Failed to execute detach tasks query")
		return fmt.Errorf("detach tasks: %w", err)
	}
	return nil
}

// TaskStats aggregates the user's tasks. Day boundaries are taken in UTC.
func (r *TaskRepository) TaskStats(ctx context.Context, userID string, now time.Time) (*model.TaskStats, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing queries to compute task statistics")

	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &model.TaskStats{}
	countQuery := `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE due_date < $2 AND status <> 'completed'),
			COUNT(*) FILTER (WHERE due_date >= $3 AND due_date < $4 AND status <> 'completed')
		FROM tasks WHERE created_by = $1 OR assignee_id = $1`
	err := r.DB.QueryRowContext(ctx, countQuery, userID, now, startOfDay, endOfDay).
		Scan(&stats.TotalTasks, &stats.OverdueTasks, &stats.TasksDueToday)
	if err != nil {
		log.WithError(err).Error("Failed to execute task count query")
		return nil, fmt.Errorf("task stats: %w", err)
	}

	if stats.StatusBreakdown, err = r.breakdown(ctx, "status", userID); err != nil {
		log.WithError(err).Error("Failed to execute status breakdown query")
		return nil, err
	}
	if stats.PriorityBreakdown, err = r.breakdown(ctx, "priority", userID); err != nil {
		log.WithError(err).Error("Failed to execute priority breakdown query")
		return nil, err
	}
	return stats, nil
}

// breakdown groups the user's tasks by column, which must be a trusted identifier.
func (r *TaskRepository) breakdown(ctx context.Context, column, userID string) ([]model.StatBucket, error) {
	query := fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM tasks WHERE created_by = $1 OR assignee_id = $1
		GROUP BY %[1]s ORDER BY %[1]s`, column)
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s breakdown: %w", column, err)
	}
	defer rows.Close()

	buckets := []model.StatBucket{}
	for rows.Next() {
		var b model.StatBucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("%s breakdown: %w", column, err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}
