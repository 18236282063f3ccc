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

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, email, password_hash, name, display_name, notification_email, enable_new_comment_notification, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.DisplayName,
		&u.NotificationEmail, &u.EnableNewCommentNotification, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, display_name, notification_email, enable_new_comment_notification, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.DisplayName,
		user.NotificationEmail, user.EnableNewCommentNotification, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Update applies the supplied profile fields
func (r *userRepo) Update(ctx context.Context, id string, updates *models.UserUpdate) error {
	setParts := ""
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		if setParts != "" {
			setParts += ", "
		}
		setParts += fmt.Sprintf("%s = $%d", column, len(args))
	}

	if updates.Name != nil {
		add("name", *updates.Name)
	}
	if updates.DisplayName != nil {
		add("display_name", *updates.DisplayName)
	}
	if updates.NotificationEmail != nil {
		add("notification_email", *updates.NotificationEmail)
	}
	if updates.EnableNewCommentNotification != nil {
		add("enable_new_comment_notification", *updates.EnableNewCommentNotification)
	}

	if setParts == "" {
		return errors.New("no updates provided")
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE id = $%d`, setParts, len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetNewCommentNotification toggles the owner-level new-comment preference
func (r *userRepo) SetNewCommentNotification(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET enable_new_comment_notification = $2, updated_at = NOW() WHERE id = $1`, id, enabled)
	if err != nil {
		return err
	}
	return requireRow(res)
}
