package handler

import (
	"errors"
	"go-task-api/common"
	"go-task-api/service"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

var serviceErrorStatus = []struct {
	err    error
	status int
}{
	{service.ErrMissingCredential, http.StatusUnauthorized},
	{service.ErrInvalidCredential, http.StatusUnauthorized},
	{service.ErrIdentityNotFound, http.StatusUnauthorized},
	{service.ErrMissingRefreshToken, http.StatusUnauthorized},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized},
	{service.ErrRefreshTokenNotRecognised, http.StatusUnauthorized},
	{service.ErrRefreshTokenReused, http.StatusUnauthorized},
	{service.ErrInvalidPassword, http.StatusUnauthorized},

	{service.ErrLoginIdentifierRequired, http.StatusBadRequest},
	{service.ErrNothingToUpdate, http.StatusBadRequest},
	{service.ErrBlankName, http.StatusBadRequest},
	{service.ErrSamePassword, http.StatusBadRequest},
	{service.ErrInvalidOldPassword, http.StatusBadRequest},
	{service.ErrInvalidDateRange, http.StatusBadRequest},
	{service.ErrInvalidProjectID, http.StatusBadRequest},
	{service.ErrInvalidAssigneeID, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidAvatarKey, http.StatusBadRequest},

	{service.ErrLoginUserNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrProjectNotFound, http.StatusNotFound},
	{service.ErrTaskNotFound, http.StatusNotFound},
	{service.ErrTaskProjectNotFound, http.StatusNotFound},
	{service.ErrAssigneeNotFound, http.StatusNotFound},
	{service.ErrAvatarNotUploaded, http.StatusNotFound},

	{service.ErrEmailTaken, http.StatusConflict},
	{service.ErrUserNameTaken, http.StatusConflict},
	{service.ErrEmailInUse, http.StatusConflict},

	{service.ErrStorageDisabled, http.StatusServiceUnavailable},
}

// serviceError maps a service error onto the response it should produce.
// Unknown errors become a 500 with fallback as the message.
func serviceError(err error, fallback string) *common.AppError {
	for _, e := range serviceErrorStatus {
		if errors.Is(err, e.err) {
			return common.NewAppError(e.status, e.err.Error(), nil)
		}
	}
	if errors.Is(err, service.ErrTokenGeneration) {
		return common.NewAppError(http.StatusInternalServerError, service.ErrTokenGeneration.Error(), err)
	}
	return common.NewAppError(http.StatusInternalServerError, fallback, err)
}
