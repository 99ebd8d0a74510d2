package service

import (
	"context"
	"errors"
	"fmt"
	"go-task-api/logger"
	"go-task-api/model"
	"go-task-api/repository"
	"go-task-api/storage"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrLoginIdentifierRequired = errors.New("email or username is required for login")
	ErrLoginUserNotFound       = errors.New("user not found with the provided email or username")
	ErrInvalidPassword         = errors.New("invalid password")
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailTaken              = errors.New("user already exists with this email")
	ErrUserNameTaken           = errors.New("user already exists with this username")
	ErrEmailInUse              = errors.New("email already exists")
	ErrNothingToUpdate         = errors.New("at least one field (name or email) is required to update")
	ErrBlankName               = errors.New("name cannot be empty")
	ErrSamePassword            = errors.New("new password must be different from old password")
	ErrInvalidOldPassword      = errors.New("invalid old password")
	ErrStorageDisabled         = errors.New("avatar storage is not configured")
	ErrInvalidAvatarKey        = errors.New("invalid avatar key")
	ErrAvatarNotUploaded       = errors.New("avatar has not been uploaded")
)

// IAvatarStore hands out presigned avatar uploads and confirms them.
type IAvatarStore interface {
	PresignAvatarUpload(ctx context.Context, userID string) (*storage.AvatarUpload, error)
	ConfirmAvatarUpload(ctx context.Context, userID, key string) (string, error)
}

// UserService handles registration, login and account management.
type UserService struct {
	userRepo repository.IUserRepository
	auth     *AuthService
	avatars  IAvatarStore
}

// NewUserService creates a new UserService. avatars may be nil when no bucket
// is configured.
func NewUserService(userRepo repository.IUserRepository, auth *AuthService, avatars IAvatarStore) *UserService {
	return &UserService{userRepo: userRepo, auth: auth, avatars: avatars}
}

func normalizeHandle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates a new user and returns it without authentication material.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	email := normalizeHandle(req.Email)
	userName := normalizeHandle(req.UserName)
	log := logger.Log.WithFields(logrus.Fields{
		"email":    email,
		"userName": userName,
	})

	existing, err := s.userRepo.GetUserByEmailOrUserName(ctx, email, userName)
	switch {
	case err == nil:
		if existing.Email == email {
			return nil, ErrEmailTaken
		}
		return nil, ErrUserNameTaken
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		UserName:     userName,
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	log.WithField("user_id", user.ID).Info("User registered")
	return user.Sanitized(), nil
}

// Login checks the password and issues a fresh token pair, replacing any
// refresh token the user held before.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	email := normalizeHandle(req.Email)
	userName := normalizeHandle(req.UserName)
	if email == "" && userName == "" {
		return nil, ErrLoginIdentifierRequired
	}

	user, err := s.userRepo.GetUserByEmailOrUserName(ctx, email, userName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLoginUserNotFound
		}
		return nil, err
	}

	if !s.auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Log.WithField("user_id", user.ID).Warn("Login attempt with wrong password")
		return nil, ErrInvalidPassword
	}

	pair, err := s.auth.IssueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		User:         user.Sanitized(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.GetProfileByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetPublicProfile returns what viewerID may see of userID. viewerID is empty
// for anonymous callers.
func (s *UserService) GetPublicProfile(ctx context.Context, userID, viewerID string) (*model.PublicProfile, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(viewerID != "" && viewerID == userID), nil
}

func (s *UserService) UpdateAccount(ctx context.Context, userID string, req model.UpdateAccountRequest) (*model.User, error) {
	if req.Name == nil && req.Email == nil {
		return nil, ErrNothingToUpdate
	}

	var name, email *string
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, ErrBlankName
		}
		name = &trimmed
	}
	if req.Email != nil {
		normalized := normalizeHandle(*req.Email)
		taken, err := s.userRepo.EmailTaken(ctx, normalized, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailInUse
		}
		email = &normalized
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, name, email)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword also revokes the stored refresh token, so no other session
// can rotate after the change.
func (s *UserService) ChangePassword(ctx context.Context, userID string, req model.ChangePasswordRequest) error {
	if req.OldPassword == req.NewPassword {
		return ErrSamePassword
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !s.auth.CheckPasswordHash(req.OldPassword, user.PasswordHash) {
		return ErrInvalidOldPassword
	}

	hash, err := s.auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	logger.Log.WithField("user_id", userID).Info("Password changed")
	return nil
}

// RequestAvatarUpload presigns an upload. The user's avatar is left alone
// until ConfirmAvatarUpload sees the object.
func (s *UserService) RequestAvatarUpload(ctx context.Context, userID string) (*model.AvatarUploadResponse, error) {
	if s.avatars == nil {
		return nil, ErrStorageDisabled
	}

	upload, err := s.avatars.PresignAvatarUpload(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.AvatarUploadResponse{
		Key:       upload.Key,
		UploadURL: upload.UploadURL,
		Avatar:    upload.PublicURL,
		ExpiresAt: upload.ExpiresAt,
	}, nil
}

// ConfirmAvatarUpload points the user's avatar at an uploaded object.
func (s *UserService) ConfirmAvatarUpload(ctx context.Context, userID, key string) (*model.User, error) {
	if s.avatars == nil {
		return nil, ErrStorageDisabled
	}

	url, err := s.avatars.ConfirmAvatarUpload(ctx, userID, strings.TrimSpace(key))
	switch {
	case errors.Is(err, storage.ErrForeignKey):
		return nil, ErrInvalidAvatarKey
	case errors.Is(err, storage.ErrNotUploaded):
		return nil, ErrAvatarNotUploaded
	case err != nil:
		return nil, err
	}

	if err := s.userRepo.UpdateAvatar(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	logger.Log.WithField("user_id", userID).Info("Avatar updated")
	return s.GetProfile(ctx, userID)
}
