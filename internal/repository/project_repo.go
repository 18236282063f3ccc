package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comment-widget-api/internal/database"
	"github.com/comment-widget-api/internal/models"
)

// projectRepo is the concrete implementation of ProjectRepository
type projectRepo struct {
	db *database.DB
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db *database.DB) ProjectRepository {
	return &projectRepo{db: db}
}

const projectColumns = `id, title, owner_id, token, enable_notification, webhook, enable_webhook, fetch_latest_comments_at, deleted_at, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID, &p.Title, &p.OwnerID, &p.Token, &p.EnableNotification, &p.Webhook,
		&p.EnableWebhook, &p.FetchLatestCommentsAt, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new project
func (r *projectRepo) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, title, owner_id, token, enable_notification, webhook, enable_webhook, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		project.ID, project.Title, project.OwnerID, project.Token,
		project.EnableNotification, project.Webhook, project.EnableWebhook,
	)
	return err
}

// GetByID retrieves a non-deleted project by ID
func (r *projectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 AND deleted_at IS NULL`, projectColumns)
	return scanProject(r.db.QueryRowContext(ctx, query, id))
}

// GetByToken retrieves a non-deleted project by its widget token
func (r *projectRepo) GetByToken(ctx context.Context, token string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE token = $1 AND deleted_at IS NULL`, projectColumns)
	return scanProject(r.db.QueryRowContext(ctx, query, token))
}

// IsDeleted reports whether a project is absent or soft-deleted
func (r *projectRepo) IsDeleted(ctx context.Context, id string) (bool, error) {
	var deletedAt *time.Time
	err := r.db.QueryRowContext(ctx, `SELECT deleted_at FROM projects WHERE id = $1`, id).Scan(&deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return deletedAt != nil, nil
}

// ListByOwner returns the owner's non-deleted projects, newest first
func (r *projectRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE owner_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, projectColumns)
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// CountByOwner counts the owner's non-deleted projects
func (r *projectRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE owner_id = $1 AND deleted_at IS NULL`, ownerID).Scan(&count)
	return count, err
}

// Update applies the supplied settings to an owned project
func (r *projectRepo) Update(ctx context.Context, id, ownerID string, updates *models.ProjectUpdate) error {
	setParts := []string{}
	args := []interface{}{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf(clause, len(args)))
	}

	if updates.Title != nil {
		add("title = $%d", *updates.Title)
	}
	if updates.EnableNotification != nil {
		add("enable_notification = $%d", *updates.EnableNotification)
	}
	if updates.Webhook != nil {
		add("webhook = $%d", *updates.Webhook)
	}
	if updates.EnableWebhook != nil {
		add("enable_webhook = $%d", *updates.EnableWebhook)
	}

	if len(setParts) == 0 {
		return errors.New("no updates provided")
	}

	setClause := ""
	for i, part := range setParts {
		if i > 0 {
			setClause += ", "
		}
		setClause += part
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(`
		UPDATE projects SET %s, updated_at = NOW()
		WHERE id = $%d AND owner_id = $%d AND deleted_at IS NULL
	`, setClause, len(args)-1, len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetToken rotates the project's widget token
func (r *projectRepo) SetToken(ctx context.Context, id, ownerID, token string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET token = $3, updated_at = NOW() WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`,
		id, ownerID, token)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SoftDelete stamps the deletion time on an owned project
func (r *projectRepo) SoftDelete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`,
		id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkLatestFetched records when the unread-comment feed was last read
func (r *projectRepo) MarkLatestFetched(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET fetch_latest_comments_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return err
}

// NotificationTarget joins a project with its owner's notification settings
func (r *projectRepo) NotificationTarget(ctx context.Context, projectID string) (*models.NotificationTarget, error) {
	query := `
		SELECT pr.id, pr.title, pr.enable_notification, pr.enable_webhook, pr.webhook,
		       u.id, u.email, u.notification_email, u.enable_new_comment_notification
		FROM projects pr
		INNER JOIN users u ON pr.owner_id = u.id
		WHERE pr.id = $1 AND pr.deleted_at IS NULL
	`
	var t models.NotificationTarget
	err := r.db.QueryRowContext(ctx, query, projectID).Scan(
		&t.ProjectID, &t.ProjectTitle, &t.NotificationsEnabled, &t.WebhookEnabled, &t.WebhookURL,
		&t.OwnerID, &t.OwnerEmail, &t.NotificationEmail, &t.NewCommentOptIn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
