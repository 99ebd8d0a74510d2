package repository

import (
	"context"
	"errors"
	"go-task-api/model"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

func TestUserRepository_CreateUser(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(sqlmock.AnyArg(), "jdoe", "jdoe@example.com", "John", sqlmock.AnyArg(), "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))

	user := &model.User{UserName: "jdoe", Email: "jdoe@example.com", Name: "John", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), user))

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, created, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUser_Duplicate(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.CreateUser(context.Background(), &model.User{UserName: "jdoe", Email: "jdoe@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_GetUserByID(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_name", "email", "name", "avatar", "password", "refresh_token", "created_at", "updated_at"}).
		AddRow("u1", "jdoe", "jdoe@example.com", "John", nil, "hash", "rt", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).WithArgs("u1").WillReturnRows(rows)

	user, err := repo.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.UserName)
	assert.Equal(t, "rt", user.RefreshToken)
	assert.Empty(t, user.Avatar)
}

func TestUserRepository_GetUserByID_NotFound(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetProfileByID_SelectsNoSecrets(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_name", "email", "name", "avatar", "created_at", "updated_at"}).
		AddRow("u1", "jdoe", "jdoe@example.com", "John", "https://cdn/a.png", now, now)
	mock.ExpectQuery(`SELECT id, user_name, email, name, avatar, created_at, updated_at FROM users`).
		WithArgs("u1").WillReturnRows(rows)

	user, err := repo.GetProfileByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	assert.Empty(t, user.RefreshToken)
	assert.Equal(t, "https://cdn/a.png", user.Avatar)
}

func TestUserRepository_RotateRefreshToken(t *testing.T) {
	query := regexp.QuoteMeta(`UPDATE users SET refresh_token = $3, updated_at = now() WHERE id = $1 AND refresh_token = $2`)

	t.Run("matching token is replaced", func(t *testing.T) {
		repo, mock := newMockUserRepo(t)
		mock.ExpectExec(query).WithArgs("u1", "old", "new").WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.RotateRefreshToken(context.Background(), "u1", "old", "new"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale token matches nothing", func(t *testing.T) {
		repo, mock := newMockUserRepo(t)
		mock.ExpectExec(query).WithArgs("u1", "stale", "new").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.RotateRefreshToken(context.Background(), "u1", "stale", "new"), ErrNoMatch)
	})

	t.Run("driver failure is wrapped", func(t *testing.T) {
		repo, mock := newMockUserRepo(t)
		boom := errors.New("connection reset")
		mock.ExpectExec(query).WillReturnError(boom)

		err := repo.RotateRefreshToken(context.Background(), "u1", "old", "new")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNoMatch)
	})
}

func TestUserRepository_ClearRefreshToken(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = NULL`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.ClearRefreshToken(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword_DropsRefreshToken(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password = $2, refresh_token = NULL`)).
		WithArgs("u1", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "u1", "new-hash"), ErrNotFound)
}

func TestUserRepository_UpdateProfile_DuplicateEmail(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	email := "taken@example.com"
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET name = COALESCE($2, name)`)).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := repo.UpdateProfile(context.Background(), "u1", nil, &email)
	assert.ErrorIs(t, err, ErrDuplicate)
}
