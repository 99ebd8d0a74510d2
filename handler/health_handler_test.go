package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewHealthHandler(map[string]Pinger{
			"database": func(context.Context) error { return nil },
		})
		rr := httptest.NewRecorder()
		h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"API is healthy and running","database":"ok"}`, rr.Body.String())
	})

	t.Run("store down", func(t *testing.T) {
		h := NewHealthHandler(map[string]Pinger{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		rr := httptest.NewRecorder()
		h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"degraded","database":"ok","redis":"unavailable"}`, rr.Body.String())
	})
}
