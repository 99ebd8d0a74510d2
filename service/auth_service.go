// file: service/auth_service.go

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"go-task-api/common"
	"go-task-api/config"
	"go-task-api/logger"
	"go-task-api/model"
	"go-task-api/repository"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingCredential         = errors.New("access token is missing")
	ErrInvalidCredential         = errors.New("access token is invalid or expired")
	ErrIdentityNotFound          = errors.New("user for access token no longer exists")
	ErrMissingRefreshToken       = errors.New("refresh token is required")
	ErrInvalidRefreshToken       = errors.New("refresh token is invalid or expired")
	ErrRefreshTokenNotRecognised = errors.New("invalid refresh token")
	ErrRefreshTokenReused        = errors.New("refresh token is expired or used")
	ErrTokenGeneration           = errors.New("failed to generate tokens")
)

// AuthService issues, verifies, rotates and revokes the access/refresh token
// pair. The refresh token is stored on the user record, one per user.
type AuthService struct {
	userRepo   repository.IUserRepository
	jwt        config.JWTConfig
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(userRepo repository.IUserRepository, jwtCfg config.JWTConfig, authCfg config.AuthConfig) *AuthService {
	cost := authCfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		jwt:        jwtCfg,
		bcryptCost: cost,
		now:        time.Now,
	}
}

func (s *AuthService) AccessTTL() time.Duration  { return s.jwt.AccessTTL }
func (s *AuthService) RefreshTTL() time.Duration { return s.jwt.RefreshTTL }

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (s *AuthService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Issuer:    s.jwt.Issuer,
		Subject:   subject,
		ID:        common.NewIDAt(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// GenerateAccessToken signs a short-lived token carrying the user's identity.
func (s *AuthService) GenerateAccessToken(user *model.User) (string, error) {
	claims := &model.AppClaims{
		UserID:           user.ID,
		Email:            user.Email,
		UserName:         user.UserName,
		Name:             user.Name,
		RegisteredClaims: s.registered(user.ID, s.jwt.AccessTTL),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwt.AccessSecret))
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Failed to sign access token")
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken signs a long-lived token. Every call yields a distinct
// value because the jti is a fresh ULID.
func (s *AuthService) GenerateRefreshToken(userID string) (string, error) {
	claims := &model.AppClaims{
		UserID:           userID,
		RegisteredClaims: s.registered(userID, s.jwt.RefreshTTL),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwt.RefreshSecret))
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to sign refresh token")
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) mintPair(user *model.User) (*model.TokenPair, error) {
	access, err := s.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueTokens mints a fresh pair for userID and stores the refresh half,
// replacing any previous one. No tokens are returned unless the store write
// succeeded.
func (s *AuthService) IssueTokens(ctx context.Context, userID string) (*model.TokenPair, error) {
	log := logger.Log.WithField("user_id", userID)

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to load user for token issuance")
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		log.WithError(err).Error("Failed to persist refresh token")
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	log.Info("Issued new token pair")
	return pair, nil
}

func (s *AuthService) parse(tokenString, secret string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.jwt.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwt.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("token carries no identity")
	}
	return claims, nil
}

// ParseAccessToken checks signature and expiry only.
func (s *AuthService) ParseAccessToken(tokenString string) (*model.AppClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingCredential
	}
	claims, err := s.parse(tokenString, s.jwt.AccessSecret)
	if err != nil {
		logger.Log.WithError(err).Debug("Access token rejected")
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// VerifyAccessToken resolves a valid access token to the stored user, without
// password hash or refresh token.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetProfileByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("resolve token identity: %w", err)
	}
	return user, nil
}

// RotateTokens exchanges the current refresh token for a new pair. A token
// that is not the one currently stored is rejected as reused, and so is the
// loser of two concurrent rotations with the same token.
func (s *AuthService) RotateTokens(ctx context.Context, presented string) (*model.TokenPair, error) {
	if presented == "" {
		return nil, ErrMissingRefreshToken
	}

	claims, err := s.parse(presented, s.jwt.RefreshSecret)
	if err != nil {
		logger.Log.WithError(err).Debug("Refresh token rejected")
		return nil, ErrInvalidRefreshToken
	}
	log := logger.Log.WithField("user_id", claims.UserID)

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRefreshTokenNotRecognised
		}
		return nil, fmt.Errorf("load refresh token owner: %w", err)
	}

	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		log.Warn("Refresh token reuse detected")
		return nil, ErrRefreshTokenReused
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	if err := s.userRepo.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrNoMatch) {
			log.Warn("Refresh token was rotated concurrently")
			return nil, ErrRefreshTokenReused
		}
		log.WithError(err).Error("Failed to persist rotated refresh token")
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	log.Info("Rotated token pair")
	return pair, nil
}

// Logout drops the stored refresh token. Access tokens already handed out stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to clear refresh token")
		return fmt.Errorf("logout: %w", err)
	}
	logger.Log.WithField("user_id", userID).Info("User logged out")
	return nil
}
