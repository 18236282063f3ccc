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

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("record not found")

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, page_id, content, by_nickname, by_email, parent_id, moderator_id, approved, accept_notify, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.PageID, comment.Content, comment.ByNickname, comment.ByEmail,
		comment.ParentID, comment.ModeratorID, comment.Approved, comment.AcceptNotify,
		comment.CreatedAt, comment.UpdatedAt,
	)
	return err
}

const commentColumns = `id, page_id, content, by_nickname, by_email, parent_id, moderator_id, approved, accept_notify, deleted_at, created_at, updated_at`

func scanComment(row interface{ Scan(...interface{}) error }) (*models.Comment, error) {
	var c models.Comment
	err := row.Scan(
		&c.ID, &c.PageID, &c.Content, &c.ByNickname, &c.ByEmail, &c.ParentID,
		&c.ModeratorID, &c.Approved, &c.AcceptNotify, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a non-deleted comment by ID
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM comments WHERE id = $1 AND deleted_at IS NULL`, commentColumns)
	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Approve marks a comment approved. Re-approving is a no-op.
func (r *commentRepo) Approve(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE comments SET approved = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// SoftDelete stamps the deletion time. Replies are not cascaded.
func (r *commentRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE comments SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

// SetAcceptNotify toggles reply-notification opt-in for a comment author
func (r *commentRepo) SetAcceptNotify(ctx context.Context, id string, accept bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE comments SET accept_notify = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, accept)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func buildCommentWhere(filter CommentFilter) (string, []interface{}) {
	where := `WHERE c.deleted_at IS NULL AND p.project_id = $1`
	args := []interface{}{filter.ProjectID}

	next := func() int { return len(args) + 1 }

	if filter.TopLevel {
		where += ` AND c.parent_id IS NULL`
	} else if filter.ParentID != "" {
		where += fmt.Sprintf(` AND c.parent_id = $%d`, next())
		args = append(args, filter.ParentID)
	}

	if filter.Approved != nil {
		where += fmt.Sprintf(` AND c.approved = $%d`, next())
		args = append(args, *filter.Approved)
	}

	if filter.PageSlug != "" {
		where += fmt.Sprintf(` AND p.slug = $%d`, next())
		args = append(args, filter.PageSlug)
	}

	if filter.OwnerID != "" {
		where += fmt.Sprintf(` AND pr.owner_id = $%d`, next())
		args = append(args, filter.OwnerID)
	}

	return where, args
}

// List returns comments matching the filter, newest first, joined with
// their page and moderator display columns.
func (r *commentRepo) List(ctx context.Context, filter CommentFilter) ([]*CommentRow, error) {
	where, args := buildCommentWhere(filter)

	query := fmt.Sprintf(`
		SELECT c.id, c.page_id, c.content, c.by_nickname, c.by_email, c.parent_id,
		       c.moderator_id, c.approved, c.accept_notify, c.deleted_at, c.created_at, c.updated_at,
		       p.slug, p.title, COALESCE(NULLIF(u.display_name, ''), u.name, '')
		FROM comments c
		INNER JOIN pages p ON c.page_id = p.id
		INNER JOIN projects pr ON p.project_id = pr.id
		LEFT JOIN users u ON c.moderator_id = u.id
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*CommentRow
	for rows.Next() {
		var row CommentRow
		var moderatorName sql.NullString
		err := rows.Scan(
			&row.ID, &row.PageID, &row.Content, &row.ByNickname, &row.ByEmail, &row.ParentID,
			&row.ModeratorID, &row.Approved, &row.AcceptNotify, &row.DeletedAt, &row.CreatedAt, &row.UpdatedAt,
			&row.PageSlug, &row.PageTitle, &moderatorName,
		)
		if err != nil {
			return nil, err
		}
		row.ModeratorName = moderatorName.String
		result = append(result, &row)
	}
	return result, rows.Err()
}

// Count returns the number of comments matching the filter
func (r *commentRepo) Count(ctx context.Context, filter CommentFilter) (int, error) {
	where, args := buildCommentWhere(filter)

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM comments c
		INNER JOIN pages p ON c.page_id = p.id
		INNER JOIN projects pr ON p.project_id = pr.id
		%s
	`, where)

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// OwnerOf resolves the project and owner a comment belongs to
func (r *commentRepo) OwnerOf(ctx context.Context, commentID string) (string, string, error) {
	query := `
		SELECT pr.id, pr.owner_id
		FROM comments c
		INNER JOIN pages p ON c.page_id = p.id
		INNER JOIN projects pr ON p.project_id = pr.id
		WHERE c.id = $1
	`
	var projectID, ownerID string
	err := r.db.QueryRowContext(ctx, query, commentID).Scan(&projectID, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return projectID, ownerID, nil
}

// ApprovalView loads the comment together with its page and project titles
// for the token approval page.
func (r *commentRepo) ApprovalView(ctx context.Context, commentID string) (*models.CommentApprovalView, error) {
	query := `
		SELECT c.by_nickname, c.by_email, c.content, c.approved,
		       p.title, p.slug, p.url, pr.title
		FROM comments c
		INNER JOIN pages p ON c.page_id = p.id
		INNER JOIN projects pr ON p.project_id = pr.id
		WHERE c.id = $1 AND c.deleted_at IS NULL
	`
	var view models.CommentApprovalView
	err := r.db.QueryRowContext(ctx, query, commentID).Scan(
		&view.ByNickname, &view.ByEmail, &view.Content, &view.Approved,
		&view.PageTitle, &view.PageSlug, &view.PageURL, &view.ProjectTitle,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CountApprovedBySlug counts visible approved comments on one page
func (r *commentRepo) CountApprovedBySlug(ctx context.Context, projectID, slug string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM comments c
		INNER JOIN pages p ON c.page_id = p.id
		WHERE p.project_id = $1 AND p.slug = $2 AND c.approved = TRUE AND c.deleted_at IS NULL
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, projectID, slug).Scan(&count)
	return count, err
}

// LatestPending returns the newest unmoderated visitor comments for the
// read-only widget feed.
func (r *commentRepo) LatestPending(ctx context.Context, projectID string, from *time.Time, limit int) ([]*models.LatestComment, error) {
	where := `WHERE c.deleted_at IS NULL AND c.approved = FALSE AND c.moderator_id IS NULL AND p.project_id = $1`
	args := []interface{}{projectID}

	if from != nil {
		where += fmt.Sprintf(` AND c.created_at >= $%d`, len(args)+1)
		args = append(args, *from)
	}

	query := fmt.Sprintf(`
		SELECT c.by_nickname, c.by_email, c.content, c.created_at
		FROM comments c
		INNER JOIN pages p ON c.page_id = p.id
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d
	`, where, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.LatestComment
	for rows.Next() {
		var c models.LatestComment
		if err := rows.Scan(&c.ByNickname, &c.ByEmail, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}
