package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/comment-widget-api/internal/config"
	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// authService is the concrete implementation of AuthService
type authService struct {
	users repository.UserRepository
	cfg   *config.AuthConfig
	log   zerolog.Logger
	now   func() time.Time
}

// newAuthService creates a new AuthService
func newAuthService(users repository.UserRepository, cfg *config.AuthConfig, log zerolog.Logger) *authService {
	return &authService{
		users: users,
		cfg:   cfg,
		log:   log.With().Str("service", "auth").Logger(),
		now:   time.Now,
	}
}

// Register creates a new owner account and returns a session token
func (s *authService) Register(ctx context.Context, emailAddr, password, name string) (*models.User, string, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	existing, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:                           uuid.New().String(),
		Email:                        emailAddr,
		PasswordHash:                 string(hash),
		Name:                         name,
		EnableNewCommentNotification: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.Info().Str("user_id", user.ID).Msg("User registered")
	return user, session, nil
}

// Login verifies credentials and returns a session token
func (s *authService) Login(ctx context.Context, emailAddr, password string) (*models.User, string, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, "", ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrBadCredentials
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, session, nil
}

// issueSession signs a dashboard session token for the user
func (s *authService) issueSession(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTimeout)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseSession validates a session token and returns the user ID
func (s *authService) ParseSession(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || claims.Subject == "" {
		return "", ErrBadCredentials
	}
	return claims.Subject, nil
}
