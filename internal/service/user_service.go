package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
)

// userService is the concrete implementation of UserService
type userService struct {
	users repository.UserRepository
}

// newUserService creates a new UserService
func newUserService(users repository.UserRepository) *userService {
	return &userService{users: users}
}

// GetByID retrieves a user profile
func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies profile changes and returns the fresh record
func (s *userService) UpdateProfile(ctx context.Context, id string, updates *models.UserUpdate) (*models.User, error) {
	err := s.users.Update(ctx, id, updates)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetByID(ctx, id)
}
