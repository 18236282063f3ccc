package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comment-widget-api/internal/cache"
	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	projectTokenCacheTTL = 30 * 24 * time.Hour
	latestFeedLimit      = 20
)

// projectService is the concrete implementation of ProjectService
type projectService struct {
	projects repository.ProjectRepository
	comments repository.CommentRepository
	store    cache.Cache
	log      zerolog.Logger
}

// newProjectService creates a new ProjectService
func newProjectService(repos *repository.Repositories, store cache.Cache, log zerolog.Logger) *projectService {
	return &projectService{
		projects: repos.Project,
		comments: repos.Comment,
		store:    store,
		log:      log.With().Str("service", "project").Logger(),
	}
}

func projectTokenCacheKey(widgetToken string) string {
	return "project_token:" + widgetToken
}

// Create inserts a new project with a fresh widget token
func (s *projectService) Create(ctx context.Context, title, ownerID string) (*models.Project, error) {
	project := &models.Project{
		ID:                 uuid.New().String(),
		Title:              title,
		OwnerID:            ownerID,
		Token:              uuid.New().String(),
		EnableNotification: true,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.store.Set(projectTokenCacheKey(project.Token), project.ID, projectTokenCacheTTL)

	s.log.Info().Str("project_id", project.ID).Str("owner_id", ownerID).Msg("Project created")
	return project, nil
}

// GetByIDAndOwner retrieves a project the owner must hold
func (s *projectService) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if project.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return project, nil
}

// ListByOwner returns the owner's projects, newest first
func (s *projectService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error) {
	projects, err := s.projects.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Update applies settings changes to an owned project
func (s *projectService) Update(ctx context.Context, id, ownerID string, updates *models.ProjectUpdate) (*models.Project, error) {
	err := s.projects.Update(ctx, id, ownerID, updates)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return s.GetByIDAndOwner(ctx, id, ownerID)
}

// RegenerateToken rotates the widget token and evicts the stale cache
// entry so old tokens stop resolving immediately.
func (s *projectService) RegenerateToken(ctx context.Context, id, ownerID string) (*models.Project, error) {
	project, err := s.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	newToken := uuid.New().String()
	err = s.projects.SetToken(ctx, id, ownerID, newToken)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rotate project token: %w", err)
	}

	s.store.Delete(projectTokenCacheKey(project.Token))
	s.store.Set(projectTokenCacheKey(newToken), id, projectTokenCacheTTL)

	project.Token = newToken
	return project, nil
}

// Delete soft-deletes an owned project; public reads then answer empty
func (s *projectService) Delete(ctx context.Context, id, ownerID string) error {
	project, err := s.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return err
	}

	err = s.projects.SoftDelete(ctx, id, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.store.Delete(projectTokenCacheKey(project.Token))
	s.log.Info().Str("project_id", id).Msg("Project deleted")
	return nil
}

// IsDeleted reports whether a project is unknown or soft-deleted
func (s *projectService) IsDeleted(ctx context.Context, id string) (bool, error) {
	deleted, err := s.projects.IsDeleted(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	return deleted, nil
}

// GetByToken resolves a project from its widget token, cache-aside
func (s *projectService) GetByToken(ctx context.Context, widgetToken string) (*models.Project, error) {
	if projectID, ok := s.store.Get(projectTokenCacheKey(widgetToken)); ok {
		project, err := s.projects.GetByID(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project: %w", err)
		}
		// Verify the cached mapping still holds after token rotation
		if project != nil && project.Token == widgetToken {
			return project, nil
		}
		s.store.Delete(projectTokenCacheKey(widgetToken))
	}

	project, err := s.projects.GetByToken(ctx, widgetToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load project by token: %w", err)
	}
	if project != nil {
		s.store.Set(projectTokenCacheKey(widgetToken), project.ID, projectTokenCacheTTL)
	}
	return project, nil
}

// FetchLatestComments returns the newest unread pending comments for the
// widget poll, optionally advancing the read marker.
func (s *projectService) FetchLatestComments(ctx context.Context, projectID string, markAsRead bool) ([]*models.LatestComment, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	comments, err := s.comments.LatestPending(ctx, projectID, project.FetchLatestCommentsAt, latestFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest comments: %w", err)
	}

	if markAsRead {
		if err := s.projects.MarkLatestFetched(ctx, projectID, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to mark feed as read: %w", err)
		}
	}
	return comments, nil
}
