package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/comment-widget-api/internal/database"
	"github.com/comment-widget-api/internal/models"
	"github.com/google/uuid"
)

// pageRepo is the concrete implementation of PageRepository
type pageRepo struct {
	db *database.DB
}

// NewPageRepo creates a new page repository
func NewPageRepo(db *database.DB) PageRepository {
	return &pageRepo{db: db}
}

// Upsert creates the page on first submission for an unseen slug and
// refreshes title/URL when supplied and different, in one statement.
func (r *pageRepo) Upsert(ctx context.Context, projectID, slug, title, url string) (*models.Page, error) {
	query := `
		INSERT INTO pages (id, project_id, slug, title, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (project_id, slug) DO UPDATE SET
			title = COALESCE(NULLIF(EXCLUDED.title, ''), pages.title),
			url = COALESCE(NULLIF(EXCLUDED.url, ''), pages.url),
			updated_at = NOW()
		RETURNING id, project_id, slug, title, url, created_at, updated_at
	`
	var page models.Page
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), projectID, slug, title, url).Scan(
		&page.ID, &page.ProjectID, &page.Slug, &page.Title, &page.URL,
		&page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBySlug retrieves a page by its project-scoped slug
func (r *pageRepo) GetBySlug(ctx context.Context, projectID, slug string) (*models.Page, error) {
	query := `SELECT id, project_id, slug, title, url, created_at, updated_at FROM pages WHERE project_id = $1 AND slug = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, projectID, slug))
}

// GetByID retrieves a page by ID
func (r *pageRepo) GetByID(ctx context.Context, id string) (*models.Page, error) {
	query := `SELECT id, project_id, slug, title, url, created_at, updated_at FROM pages WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *pageRepo) scanOne(row *sql.Row) (*models.Page, error) {
	var page models.Page
	err := row.Scan(&page.ID, &page.ProjectID, &page.Slug, &page.Title, &page.URL,
		&page.CreatedAt, &page.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}
