package service

import (
	"context"
	"go-task-api/config"
	"go-task-api/model"
	"go-task-api/repository/repotest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testJWTConfig = config.JWTConfig{
	AccessSecret:  "test-access-secret",
	RefreshSecret: "test-refresh-secret",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "go-task-api-test",
}

func newTestAuthService(users *repotest.Users) *AuthService {
	return NewAuthService(users, testJWTConfig, config.AuthConfig{BcryptCost: bcrypt.MinCost})
}

// seedUser stores a user whose password is "password123".
func seedUser(t *testing.T, users *repotest.Users, userName string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		UserName:     userName,
		Email:        userName + "@example.com",
		Name:         userName,
		PasswordHash: string(hash),
	}
	require.NoError(t, users.CreateUser(context.Background(), user))
	return user
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func authCfgForTest() config.AuthConfig {
	return config.AuthConfig{BcryptCost: bcrypt.MinCost}
}
