package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func TestValidateAndDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"Ann","email":"ann@example.com","password":"secret1"}`, ""},
		{"empty body", ``, "Request body is missing or empty"},
		{"malformed", `{"name":`, "Invalid request body"},
		{"blank name", `{"name":"   ","email":"ann@example.com","password":"secret1"}`, "name is required"},
		{"bad email", `{"name":"Ann","email":"nope","password":"secret1"}`, "Please provide a valid email address"},
		{"short password", `{"name":"Ann","email":"ann@example.com","password":"abc"}`, "password must be at least 6 characters long"},
		{"bad enum", `{"name":"Ann","email":"ann@example.com","password":"secret1","priority":"urgent"}`, "priority must be one of [low medium high]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var payload signupPayload
			appErr := ValidateAndDecode(req, &payload)
			if tt.wantErr == "" {
				assert.Nil(t, appErr)
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.Code)
			assert.Contains(t, appErr.Message, tt.wantErr)
		})
	}
}

func TestValidateAndDecode_BodyTooLarge(t *testing.T) {
	body := `{"name":"Ann","email":"ann@example.com","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 16)

	var payload signupPayload
	appErr := ValidateAndDecode(req, &payload)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.Code)
	assert.Equal(t, "Request body exceeds 16 bytes", appErr.Message)
}

func TestAppError_Send(t *testing.T) {
	rr := httptest.NewRecorder()
	NewAppError(http.StatusNotFound, "Task not found or access denied", nil).Send(rr)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"success":false,"code":404,"message":"Task not found or access denied"}`, rr.Body.String())
}

func TestRespondWithPagination(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithPagination(rr, http.StatusOK, "ok", []int{1}, map[string]int{"currentPage": 1})

	assert.JSONEq(t, `{"success":true,"message":"ok","data":[1],"pagination":{"currentPage":1}}`, rr.Body.String())
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "ids minted in sequence sort in order")
	assert.True(t, IsValidID(a))
	assert.False(t, IsValidID("not-an-id"))
	assert.False(t, IsValidID(""))
}
