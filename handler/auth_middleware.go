package handler

import (
	"context"
	"errors"
	"go-task-api/common"
	"go-task-api/logger"
	"go-task-api/model"
	"go-task-api/service"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const userKey contextKey = "user"

// AccessVerifier resolves an access token to the identity it was issued for.
type AccessVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*model.User, error)
}

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the user attached by one of the auth middlewares.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	headerParts := strings.SplitN(authHeader, " ", 2)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(headerParts[1])
}

func cookieToken(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// cookieOrBearer prefers the accessToken cookie over the Authorization header.
func cookieOrBearer(r *http.Request) string {
	if token := cookieToken(r, AccessTokenCookie); token != "" {
		return token
	}
	return bearerToken(r)
}

func verifyError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrMissingCredential),
		errors.Is(err, service.ErrInvalidCredential),
		errors.Is(err, service.ErrIdentityNotFound):
		return common.NewAppError(http.StatusUnauthorized, err.Error(), nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
}

func requireUser(verifier AccessVerifier, extract func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := verifier.VerifyAccessToken(r.Context(), extract(r))
			if err != nil {
				logger.Log.WithFields(logrus.Fields{
					"path":   r.URL.Path,
					"reason": err.Error(),
				}).Debug("Request rejected by auth middleware")
				verifyError(err).Send(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AuthMiddleware authenticates with the accessToken cookie, falling back to an
// Authorization: Bearer header.
func AuthMiddleware(verifier AccessVerifier) func(http.Handler) http.Handler {
	return requireUser(verifier, cookieOrBearer)
}

// OptionalAuthMiddleware never rejects. It only reads the Authorization
// header, and the user is attached only when verification fully succeeds.
func OptionalAuthMiddleware(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" {
				if user, err := verifier.VerifyAccessToken(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userFromRequest(r *http.Request) (*model.User, *common.AppError) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		return nil, common.NewAppError(http.StatusUnauthorized, service.ErrMissingCredential.Error(), nil)
	}
	return user, nil
}
