package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-task-api/common"
	"go-task-api/logger"
	"go-task-api/model"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// IProjectRepository defines owner-scoped project persistence.
type IProjectRepository interface {
	CreateProject(ctx context.Context, project *model.Project) error
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]*model.Project, error)
	GetProjectByIDForOwner(ctx context.Context, id, ownerID string) (*model.Project, error)
	ReplaceProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id, ownerID string) error
}

type ProjectRepository struct {
	DB *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{DB: db}
}

const projectColumns = `id, name, description, color, icon, category, start_date, end_date,
	is_private, priority, goals, owner_id, created_at, updated_at`

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		p         model.Project
		startDate sql.NullTime
		endDate   sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.Icon, &p.Category, &startDate, &endDate,
		&p.IsPrivate, &p.Priority, pq.Array(&p.Goals), &p.Owner, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.StartDate = nullTimePtr(startDate)
	p.EndDate = nullTimePtr(endDate)
	if p.Goals == nil {
		p.Goals = []string{}
	}
	return &p, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (r *ProjectRepository) CreateProject(ctx context.Context, project *model.Project) error {
	if project.ID == "" {
		project.ID = common.NewID()
	}
	log := logger.Log.WithFields(logrus.Fields{
		"project_id": project.ID,
		"owner_id":   project.Owner,
	})
	log.Info("Executing query to create a new project")

	query := `INSERT INTO projects (id, name, description, color, icon, category, start_date, end_date,
		is_private, priority, goals, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, project.ID, project.Name, project.Description, project.Color,
		project.Icon, project.Category, project.StartDate, project.EndDate, project.IsPrivate,
		project.Priority, pq.Array(project.Goals), project.Owner).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create project query")
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// ListProjectsByOwner returns the owner's projects, newest first.
func (r *ProjectRepository) ListProjectsByOwner(ctx context.Context, ownerID string) ([]*model.Project, error) {
	log := logger.Log.WithField("owner_id", ownerID)
	log.Info("Executing query to list projects by owner")

	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		log.WithError(err).Error("Failed to execute list projects query")
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan project row")
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) GetProjectByIDForOwner(ctx context.Context, id, ownerID string) (*model.Project, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"project_id": id,
		"owner_id":   ownerID,
	})
	log.Debug("Executing query to get project for owner")

	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND owner_id = $2`
	project, err := scanProject(r.DB.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get project query")
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// ReplaceProject writes every mutable field of project, scoped to its owner.
func (r *ProjectRepository) ReplaceProject(ctx context.Context, project *model.Project) error {
	log := logger.Log.WithFields(logrus.Fields{
		"project_id": project.ID,
		"owner_id":   project.Owner,
	})
	log.Info("Executing query to update project")

	query := `UPDATE projects SET name = $3, description = $4, color = $5, icon = $6, category = $7,
		start_date = $8, end_date = $9, is_private = $10, priority = $11, goals = $12, updated_at = now()
		WHERE id = $1 AND owner_id = $2 RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query, project.ID, project.Owner, project.Name, project.Description,
		project.Color, project.Icon, project.Category, project.StartDate, project.EndDate, project.IsPrivate,
		project.Priority, pq.Array(project.Goals)).Scan(&project.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		log.WithError(err).Error("Failed to execute update project query")
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) DeleteProject(ctx context.Context, id, ownerID string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"project_id": id,
		"owner_id":   ownerID,
	})
	log.Info("Executing query to delete project")

	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete project query")
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
