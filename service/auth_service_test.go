// file: service/auth_service_test.go

package service

import (
	"context"
	"errors"
	"go-task-api/model"
	"go-task-api/repository"
	"go-task-api/repository/repotest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockUserRepo lets a test fail individual store calls.
type mockUserRepo struct {
	mock.Mock
	repository.IUserRepository
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateRefreshToken(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func TestAuthService_HashAndCheckPassword(t *testing.T) {
	authService := newTestAuthService(nil)
	password := "mySecretPassword123"

	hashedPassword, err := authService.HashPassword(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hashedPassword)

	assert.True(t, authService.CheckPasswordHash(password, hashedPassword))
	assert.False(t, authService.CheckPasswordHash("notMyPassword", hashedPassword))
}

func TestAuthService_IssueThenVerifyResolvesSameIdentity(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		user := seedUser(t, users, name)

		pair, err := auth.IssueTokens(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, pair.RefreshToken, users.StoredRefreshToken(user.ID))

		resolved, err := auth.VerifyAccessToken(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
		assert.Empty(t, resolved.PasswordHash)
		assert.Empty(t, resolved.RefreshToken)
	}
}

func TestAuthService_IssueTokens_UnknownUser(t *testing.T) {
	auth := newTestAuthService(repotest.NewUsers())

	pair, err := auth.IssueTokens(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, ErrTokenGeneration)
	assert.Nil(t, pair)
}

func TestAuthService_IssueTokens_PersistFailureReturnsNoTokens(t *testing.T) {
	repo := new(mockUserRepo)
	user := &model.User{ID: "u1", Email: "u1@example.com"}
	repo.On("GetUserByID", mock.Anything, "u1").Return(user, nil).Once()
	repo.On("UpdateRefreshToken", mock.Anything, "u1", mock.AnythingOfType("string")).
		Return(errors.New("write conflict")).Once()

	auth := NewAuthService(repo, testJWTConfig, authCfgForTest())
	pair, err := auth.IssueTokens(context.Background(), "u1")

	assert.ErrorIs(t, err, ErrTokenGeneration)
	assert.Nil(t, pair)
	repo.AssertExpectations(t)
}

func TestAuthService_RotationYieldsFreshToken(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	pair, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)

	seen := map[string]bool{pair.RefreshToken: true}
	current := pair.RefreshToken
	for i := 0; i < 5; i++ {
		next, err := auth.RotateTokens(ctx, current)
		require.NoError(t, err)
		assert.False(t, seen[next.RefreshToken], "rotation %d repeated a refresh token", i)
		seen[next.RefreshToken] = true
		assert.Equal(t, next.RefreshToken, users.StoredRefreshToken(user.ID))
		current = next.RefreshToken
	}
}

func TestAuthService_SupersededTokenIsRejected(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	first, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)
	second, err := auth.RotateTokens(ctx, first.RefreshToken)
	require.NoError(t, err)

	_, err = auth.RotateTokens(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenReused)
	// the rejected attempt leaves the stored token alone
	assert.Equal(t, second.RefreshToken, users.StoredRefreshToken(user.ID))
}

func TestAuthService_LogoutThenRotateFails(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	pair, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, user.ID))
	assert.Empty(t, users.StoredRefreshToken(user.ID))

	_, err = auth.RotateTokens(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenReused)
}

func TestAuthService_ExpiredAccessTokenIsInvalid(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	issuedAt := time.Now().Add(-time.Hour)
	auth.now = func() time.Time { return issuedAt }
	pair, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)

	auth.now = time.Now
	_, err = auth.VerifyAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredential)

	users.Delete(user.ID)
	_, err = auth.VerifyAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAuthService_VerifyAccessToken_Rejections(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	pair, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := auth.VerifyAccessToken(ctx, "")
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := auth.VerifyAccessToken(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		claims := &model.AppClaims{
			UserID: user.ID,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testJWTConfig.Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testJWTConfig.AccessSecret))
		require.NoError(t, err)

		_, err = auth.VerifyAccessToken(ctx, forged)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("identity deleted", func(t *testing.T) {
		users.Delete(user.ID)
		_, err := auth.VerifyAccessToken(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})
}

func TestAuthService_RotateTokens_Rejections(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	pair, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)

	_, err = auth.RotateTokens(ctx, "")
	assert.ErrorIs(t, err, ErrMissingRefreshToken)

	_, err = auth.RotateTokens(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = auth.RotateTokens(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	users.Delete(user.ID)
	_, err = auth.RotateTokens(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenNotRecognised)
}

func TestAuthService_ConcurrentRotationHasSingleWinner(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	pair, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)

	const attempts = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*model.TokenPair
		reused  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := auth.RotateTokens(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, next)
			case errors.Is(err, ErrRefreshTokenReused):
				reused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, attempts-1, reused)
	assert.Equal(t, winners[0].RefreshToken, users.StoredRefreshToken(user.ID))
}

// Login -> rotate with RT1 -> RT1 again fails -> RT2 succeeds.
func TestAuthService_RotationScenario(t *testing.T) {
	users := repotest.NewUsers()
	auth := newTestAuthService(users)
	ctx := context.Background()
	user := seedUser(t, users, "alice")

	first, err := auth.IssueTokens(ctx, user.ID)
	require.NoError(t, err)

	second, err := auth.RotateTokens(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = auth.RotateTokens(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenReused)

	third, err := auth.RotateTokens(ctx, second.RefreshToken)
	require.NoError(t, err)

	resolved, err := auth.VerifyAccessToken(ctx, third.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}
