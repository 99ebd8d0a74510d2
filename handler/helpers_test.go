package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"go-task-api/common"
	"go-task-api/config"
	"go-task-api/model"
	"go-task-api/repository/repotest"
	"go-task-api/service"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testJWTConfig = config.JWTConfig{
	AccessSecret:  "handler-access-secret",
	RefreshSecret: "handler-refresh-secret",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "go-task-api-test",
}

type testEnv struct {
	users   *repotest.Users
	auth    *service.AuthService
	handler *UserHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := repotest.NewUsers()
	auth := service.NewAuthService(users, testJWTConfig, config.AuthConfig{BcryptCost: bcrypt.MinCost})
	cookies := CookieOptions{Secure: true, SameSite: http.SameSiteStrictMode}
	return &testEnv{
		users:   users,
		auth:    auth,
		handler: NewUserHandler(service.NewUserService(users, auth, nil), auth, cookies),
	}
}

func (e *testEnv) seedUser(t *testing.T, userName string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{UserName: userName, Email: userName + "@example.com", Name: userName, PasswordHash: string(hash)}
	require.NoError(t, e.users.CreateUser(context.Background(), user))
	return user
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h func(http.ResponseWriter, *http.Request) *common.AppError, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h).ServeHTTP(rr, req)
	return rr
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}
