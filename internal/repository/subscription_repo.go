package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/comment-widget-api/internal/database"
	"github.com/comment-widget-api/internal/models"
)

// subscriptionRepo is the concrete implementation of SubscriptionRepository
type subscriptionRepo struct {
	db *database.DB
}

// NewSubscriptionRepo creates a new subscription repository
func NewSubscriptionRepo(db *database.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

// GetByUserID retrieves an owner's subscription, nil when none exists
func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	query := `SELECT id, user_id, status, ends_at, created_at, updated_at FROM subscriptions WHERE user_id = $1`
	var s models.Subscription
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.Status, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
