// file: repository/user_repository.go

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

	"github.com/sirupsen/logrus"
)

// IUserRepository is the credential store: identity records plus the single
// active refresh token each one may hold.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetProfileByID loads the record without password hash or refresh token.
	GetProfileByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmailOrUserName matches either non-empty value.
	GetUserByEmailOrUserName(ctx context.Context, email, userName string) (*model.User, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	UpdateRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken replaces current with next only while the stored
	// value still equals current. It returns ErrNoMatch otherwise.
	RotateRefreshToken(ctx context.Context, id, current, next string) error
	ClearRefreshToken(ctx context.Context, id string) error
	// UpdatePassword stores the new hash and drops the refresh token.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, name, email *string) (*model.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}

// UserRepository implements IUserRepository on postgres.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const (
	userColumns    = `id, user_name, email, name, avatar, password, refresh_token, created_at, updated_at`
	profileColumns = `id, user_name, email, name, avatar, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user         model.User
		avatar       sql.NullString
		refreshToken sql.NullString
	)
	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.Name, &avatar,
		&user.PasswordHash, &refreshToken, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Avatar = avatar.String
	user.RefreshToken = refreshToken.String
	return &user, nil
}

func scanProfile(row rowScanner) (*model.User, error) {
	var (
		user   model.User
		avatar sql.NullString
	)
	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.Name, &avatar, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Avatar = avatar.String
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateUser inserts a new identity. The ID is generated when empty.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = common.NewID()
	}
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"userName": user.UserName,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (id, user_name, email, name, avatar, password)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, user.ID, user.UserName, user.Email, user.Name,
		nullString(user.Avatar), user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("User already exists")
			return ErrDuplicate
		}
		log.WithError(err).Error("Failed to execute create user query")
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	log := logger.Log.WithField("user_id", id)
	log.Debug("Executing query to get user by ID")

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get user by ID query")
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetProfileByID(ctx context.Context, id string) (*model.User, error) {
	log := logger.Log.WithField("user_id", id)
	log.Debug("Executing query to get user profile by ID")

	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1`
	user, err := scanProfile(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get user profile query")
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmailOrUserName(ctx context.Context, email, userName string) (*model.User, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"email":    email,
		"userName": userName,
	})
	log.Debug("Executing query to get user by email or username")

	if strings.TrimSpace(email) == "" && strings.TrimSpace(userName) == "" {
		return nil, ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND user_name = $2)
		ORDER BY created_at LIMIT 1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, email, userName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get user by email or username query")
		return nil, fmt.Errorf("get user by email or username: %w", err)
	}
	return user, nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`
	if err := r.DB.QueryRowContext(ctx, query, email, exceptID).Scan(&taken); err != nil {
		logger.Log.WithError(err).WithField("email", email).Error("Failed to check email availability")
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// UpdateRefreshToken overwrites the stored refresh token without touching any
// other column.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, id, token string) error {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to store refresh token")

	query := `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`
	return r.execAffectingOne(ctx, log, ErrNotFound, query, id, token)
}

func (r *UserRepository) RotateRefreshToken(ctx context.Context, id, current, next string) error {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to rotate refresh token")

	query := `UPDATE users SET refresh_token = $3, updated_at = now() WHERE id = $1 AND refresh_token = $2`
	return r.execAffectingOne(ctx, log, ErrNoMatch, query, id, current, next)
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to clear refresh token")

	query := `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`
	return r.execAffectingOne(ctx, log, ErrNotFound, query, id)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update password")

	query := `UPDATE users SET password = $2, refresh_token = NULL, updated_at = now() WHERE id = $1`
	return r.execAffectingOne(ctx, log, ErrNotFound, query, id, passwordHash)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name, email *string) (*model.User, error) {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update user profile")

	query := `UPDATE users SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = now()
		WHERE id = $1 RETURNING ` + profileColumns
	user, err := scanProfile(r.DB.QueryRowContext(ctx, query, id, name, email))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, ErrDuplicate
		}
		log.WithError(err).Error("Failed to execute update user profile query")
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update avatar")

	query := `UPDATE users SET avatar = $2, updated_at = now() WHERE id = $1`
	return r.execAffectingOne(ctx, log, ErrNotFound, query, id, avatarURL)
}

// execAffectingOne runs an update and maps "no rows changed" to miss.
func (r *UserRepository) execAffectingOne(ctx context.Context, log *logrus.Entry, miss error, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute user update query")
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return miss
	}
	return nil
}
