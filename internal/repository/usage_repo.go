package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/comment-widget-api/internal/database"
	"github.com/comment-widget-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// usageRepo is the concrete implementation of UsageRepository
type usageRepo struct {
	db *database.DB
}

// NewUsageRepo creates a new usage repository
func NewUsageRepo(db *database.DB) UsageRepository {
	return &usageRepo{db: db}
}

// Get returns the current counter value, zero when no row exists yet
func (r *usageRepo) Get(ctx context.Context, userID string, label models.UsageLabel) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count FROM usage WHERE user_id = $1 AND label = $2`, userID, label).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// Increment bumps the counter by one in a single atomic upsert
func (r *usageRepo) Increment(ctx context.Context, userID string, label models.UsageLabel) error {
	query := `
		INSERT INTO usage (id, user_id, label, count, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (user_id, label)
		DO UPDATE SET count = usage.count + 1, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), userID, label)
	return err
}

// IncrementIfBelow bumps the counter only while it is below ceiling. The
// conditional upsert runs as one statement, so concurrent callers cannot
// push the counter past the ceiling together.
func (r *usageRepo) IncrementIfBelow(ctx context.Context, userID string, label models.UsageLabel, ceiling int) (bool, error) {
	query := `
		INSERT INTO usage (id, user_id, label, count, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (user_id, label)
		DO UPDATE SET count = usage.count + 1, updated_at = NOW()
		WHERE usage.count < $4
	`
	res, err := r.db.ExecContext(ctx, query, uuid.New().String(), userID, label, ceiling)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetLabels zeroes the given counters for all owners. Called by the
// monthly reset batch.
func (r *usageRepo) ResetLabels(ctx context.Context, labels ...models.UsageLabel) error {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE usage SET count = 0, updated_at = NOW() WHERE label = ANY($1)`, pq.Array(names))
	return err
}
