package handler

import (
	"errors"
	"fmt"
	"go-task-api/common"
	"go-task-api/service"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{service.ErrRefreshTokenReused, http.StatusUnauthorized, service.ErrRefreshTokenReused.Error()},
		{fmt.Errorf("wrapped: %w", service.ErrTaskNotFound), http.StatusNotFound, service.ErrTaskNotFound.Error()},
		{service.ErrEmailTaken, http.StatusConflict, service.ErrEmailTaken.Error()},
		{service.ErrInvalidStatus, http.StatusBadRequest, service.ErrInvalidStatus.Error()},
		{service.ErrStorageDisabled, http.StatusServiceUnavailable, service.ErrStorageDisabled.Error()},
		{service.ErrInvalidAvatarKey, http.StatusBadRequest, service.ErrInvalidAvatarKey.Error()},
		{service.ErrAvatarNotUploaded, http.StatusNotFound, service.ErrAvatarNotUploaded.Error()},
		{fmt.Errorf("%w: %v", service.ErrTokenGeneration, errors.New("db down")), http.StatusInternalServerError, service.ErrTokenGeneration.Error()},
		{errors.New("boom"), http.StatusInternalServerError, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			appErr := serviceError(tt.err, "fallback")
			assert.Equal(t, tt.wantStatus, appErr.Code)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestErrorHandlingMiddleware(t *testing.T) {
	h := ErrorHandlingMiddleware(func(w http.ResponseWriter, r *http.Request) *common.AppError {
		return common.NewAppError(http.StatusNotFound, "nothing here", errors.New("internal detail"))
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"success":false,"code":404,"message":"nothing here"}`, rr.Body.String())
}
