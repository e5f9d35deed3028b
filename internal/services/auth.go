package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/repository"
	"github.com/PixelPioneer1807/SmartPrepAI/pkg/validator"
)

const (
	defaultBcryptCost = 12
	maxPasswordBytes  = 72
)

type AuthService struct {
	users      UserStore
	sessions   SessionStore
	tokens     TokenService
	tokenTTL   time.Duration
	bcryptCost int
	log        *zap.Logger
}

func NewAuthService(users UserStore, sessions SessionStore, tokens TokenService, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		bcryptCost: defaultBcryptCost,
		log:        log.With(zap.String("component", "auth")),
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fields := validator.FieldErrors(req)
	// bcrypt limits bytes, the struct tag counts characters.
	if _, bad := fields["password"]; !bad && len(req.Password) > maxPasswordBytes {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["password"] = fmt.Sprintf("Must be at most %d bytes", maxPasswordBytes)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	_, err := s.users.GetByUsername(ctx, req.Username)
	if err == nil {
		return nil, &ConflictError{Message: "Username already taken"}
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	_, err = s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, &ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &ValidationError{Fields: map[string]string{"password": fmt.Sprintf("Must be at most %d bytes", maxPasswordBytes)}}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		PassScore:    models.DefaultPassScore,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, &ConflictError{Message: "Username or email already registered"}
		}
		return nil, &StorageError{Op: "create user", Err: err}
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate checks the password and mints a session token.
func (s *AuthService) Authenticate(ctx context.Context, req models.LoginRequest) (*models.AuthToken, error) {
	if fields := validator.FieldErrors(req); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &UnauthorizedError{Message: "Invalid username or password"}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid username or password"}
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		now := time.Now()
		user.LastLoginAt = &now
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.AuthToken{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		User:        user,
	}, nil
}

func (s *AuthService) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := s.tokens.ParseToken(token)
	if err != nil {
		return uuid.Nil, &UnauthorizedError{Message: "Invalid or expired token"}
	}
	return userID, nil
}

// Logout drops every piece of interaction state held for the user.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.Clear(ctx, userID); err != nil {
		return &StorageError{Op: "clear session", Err: err}
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return loadUser(ctx, s.users, userID)
}

func (s *AuthService) UpdatePreferences(ctx context.Context, userID uuid.UUID, req models.UpdatePreferencesRequest) (*models.User, error) {
	if fields := validator.FieldErrors(req); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	user, err := s.users.UpdatePreferences(ctx, userID, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, &StorageError{Op: "update preferences", Err: err}
	}
	return user, nil
}
