package app

import (
	"context"
	"encoding/json"
	"go-task-api/config"
	"go-task-api/repository/repotest"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{Driver: config.DriverPostgres},
		JWT: config.JWTConfig{
			AccessSecret: "app-access", RefreshSecret: "app-refresh",
			AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "go-task-api-test",
		},
		Cookie:    config.CookieConfig{SameSite: "lax"},
		Auth:      config.AuthConfig{BcryptCost: 4},
		RateLimit: config.RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 10},
	}
}

func testRepositories() Repositories {
	return Repositories{Users: repotest.NewUsers(), Projects: repotest.NewProjects(), Tasks: repotest.NewTasks()}
}

func TestNewWithRepositories_WiresCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	a := NewWithRepositories(testConfig(), testRepositories(), client, nil)

	body := `{"name":"Eve","email":"eve@example.com","userName":"eve","password":"password123"}`
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"userName":"eve","password":"password123"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var login struct {
		Data struct {
			AccessToken string `json:"accessToken"`
			User        struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+login.Data.AccessToken)
	rr = httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, mr.Exists("projects:"+login.Data.User.ID))

	// login cookies follow the configured SameSite mode
	cookies := httptest.NewRecorder()
	a.Router.ServeHTTP(cookies, httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"userName":"eve","password":"password123"}`)))
	for _, c := range cookies.Result().Cookies() {
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.False(t, c.Secure)
	}
}

func TestApp_ServeAndShutdown(t *testing.T) {
	a := NewWithRepositories(testConfig(), testRepositories(), nil, nil)

	var closed bool
	a.closers = append(a.closers, func(context.Context) error { closed = true; return nil })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, closed)
}
