package handler

import (
	"encoding/json"
	"errors"
	"go-task-api/common"
	"go-task-api/logger"
	"go-task-api/model"
	"go-task-api/service"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	users   *service.UserService
	auth    *service.AuthService
	cookies CookieOptions
}

func NewUserHandler(users *service.UserService, auth *service.AuthService, cookies CookieOptions) *UserHandler {
	return &UserHandler{users: users, auth: auth, cookies: cookies}
}

// Register godoc
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user  body      model.RegisterRequest  true  "User registration details"
// @Success      201   {object}  common.APIResponse{data=model.User}
// @Failure      400   {object}  common.AppError
// @Failure      409   {object}  common.AppError
// @Router       /api/users/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		return serviceError(err, "Could not register user")
	}

	common.Respond(w, http.StatusCreated, "User registered successfully", user)
	return nil
}

// Login godoc
// @Summary      Log in with email or username
// @Description  Sets the accessToken and refreshToken cookies and also returns both tokens.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        credentials  body      model.LoginRequest  true  "Login credentials"
// @Success      200          {object}  common.APIResponse{data=model.LoginResponse}
// @Failure      400          {object}  common.AppError
// @Failure      401          {object}  common.AppError
// @Failure      404          {object}  common.AppError
// @Router       /api/users/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	resp, err := h.users.Login(r.Context(), req)
	if err != nil {
		return serviceError(err, "Could not log in")
	}

	h.cookies.setTokens(w, &model.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		h.auth.AccessTTL(), h.auth.RefreshTTL())
	common.Respond(w, http.StatusOK, "User logged in successfully", resp)
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the stored refresh token and expires both auth cookies.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse
// @Failure      401  {object}  common.AppError
// @Router       /api/users/logout [post]
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}

	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		return serviceError(err, "Could not log out")
	}

	h.cookies.clearTokens(w)
	common.Respond(w, http.StatusOK, "User logged out successfully", struct{}{})
	return nil
}

// presentedRefreshToken reads the refreshToken cookie, then an optional JSON body.
func presentedRefreshToken(r *http.Request) (string, *common.AppError) {
	if token := cookieToken(r, RefreshTokenCookie); token != "" {
		return token, nil
	}
	if r.Body == nil {
		return "", nil
	}
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", common.DecodeError(err)
	}
	return req.RefreshToken, nil
}

// RefreshToken godoc
// @Summary      Rotate the token pair
// @Description  Exchanges the current refresh token (cookie or body) for a new access and refresh token. Each refresh token can be used once.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      model.RefreshRequest  false  "Refresh token when not sent as a cookie"
// @Success      200   {object}  common.APIResponse{data=model.TokenPair}
// @Failure      401   {object}  common.AppError
// @Failure      429   {object}  common.AppError
// @Router       /api/users/refreshToken [post]
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	presented, appErr := presentedRefreshToken(r)
	if appErr != nil {
		return appErr
	}

	pair, err := h.auth.RotateTokens(r.Context(), presented)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"remote_addr": r.RemoteAddr,
			"reason":      err.Error(),
		}).Warn("Refresh token rejected")
		return serviceError(err, "Could not refresh tokens")
	}

	h.cookies.setTokens(w, pair, h.auth.AccessTTL(), h.auth.RefreshTTL())
	common.Respond(w, http.StatusOK, "Access token refreshed", pair)
	return nil
}

// GetCurrentUser godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse{data=model.User}
// @Failure      401  {object}  common.AppError
// @Router       /api/users/me [get]
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	common.Respond(w, http.StatusOK, "Current user fetched successfully", user)
	return nil
}

// UpdateAccount godoc
// @Summary      Update name or email
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        account  body      model.UpdateAccountRequest  true  "Fields to change"
// @Success      200      {object}  common.APIResponse{data=model.User}
// @Failure      400      {object}  common.AppError
// @Failure      409      {object}  common.AppError
// @Router       /api/users/me [patch]
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	var req model.UpdateAccountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	updated, err := h.users.UpdateAccount(r.Context(), user.ID, req)
	if err != nil {
		return serviceError(err, "Could not update account")
	}
	common.Respond(w, http.StatusOK, "Account details updated successfully", updated)
	return nil
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Also revokes the stored refresh token, so other sessions must log in again.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        passwords  body      model.ChangePasswordRequest  true  "Old and new password"
// @Success      200        {object}  common.APIResponse
// @Failure      400        {object}  common.AppError
// @Router       /api/users/change-password [post]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	var req model.ChangePasswordRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	if err := h.users.ChangePassword(r.Context(), user.ID, req); err != nil {
		return serviceError(err, "Could not change password")
	}
	common.Respond(w, http.StatusOK, "Password changed successfully", struct{}{})
	return nil
}

// UploadAvatar godoc
// @Summary      Request an avatar upload URL
// @Description  Returns a presigned PUT URL and its object key. The avatar is not changed until the upload is confirmed.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse{data=model.AvatarUploadResponse}
// @Failure      503  {object}  common.AppError
// @Router       /api/users/me/avatar [post]
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}

	upload, err := h.users.RequestAvatarUpload(r.Context(), user.ID)
	if err != nil {
		return serviceError(err, "Could not prepare avatar upload")
	}
	common.Respond(w, http.StatusOK, "Avatar upload URL created", upload)
	return nil
}

// ConfirmAvatar godoc
// @Summary      Confirm an avatar upload
// @Description  Sets the avatar once the object from a presigned upload exists in the bucket.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      model.ConfirmAvatarRequest  true  "Object key returned with the upload URL"
// @Success      200   {object}  common.APIResponse{data=model.User}
// @Failure      400   {object}  common.AppError
// @Failure      404   {object}  common.AppError
// @Failure      503   {object}  common.AppError
// @Router       /api/users/me/avatar [put]
func (h *UserHandler) ConfirmAvatar(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}

	var req model.ConfirmAvatarRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	updated, err := h.users.ConfirmAvatarUpload(r.Context(), user.ID, req.Key)
	if err != nil {
		return serviceError(err, "Could not update avatar")
	}
	common.Respond(w, http.StatusOK, "Avatar updated successfully", updated)
	return nil
}

// GetUserProfile godoc
// @Summary      Public profile of a user
// @Description  Callers viewing their own profile also receive their email and timestamps.
// @Description  The viewer is identified only by an Authorization bearer token; cookies are ignored.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "User ID"
// @Success      200     {object}  common.APIResponse{data=model.PublicProfile}
// @Failure      400     {object}  common.AppError
// @Failure      404     {object}  common.AppError
// @Router       /api/users/{userId} [get]
func (h *UserHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID := r.PathValue("userId")
	if !common.IsValidID(userID) {
		return common.NewAppError(http.StatusBadRequest, "Invalid user ID", nil)
	}

	var viewerID string
	if viewer, ok := CurrentUser(r.Context()); ok {
		viewerID = viewer.ID
	}

	profile, err := h.users.GetPublicProfile(r.Context(), userID, viewerID)
	if err != nil {
		return serviceError(err, "Could not fetch user profile")
	}
	common.Respond(w, http.StatusOK, "User profile fetched successfully", profile)
	return nil
}
