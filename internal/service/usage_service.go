package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/comment-widget-api/internal/cache"
	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
	"github.com/rs/zerolog"
)

const usageCacheTTL = 30 * 24 * time.Hour

// usageService is the concrete implementation of UsageService
type usageService struct {
	usage    repository.UsageRepository
	subs     repository.SubscriptionRepository
	projects repository.ProjectRepository
	store    cache.Cache
	log      zerolog.Logger
	now      func() time.Time
}

// newUsageService creates a new UsageService
func newUsageService(repos *repository.Repositories, store cache.Cache, log zerolog.Logger) *usageService {
	return &usageService{
		usage:    repos.Usage,
		subs:     repos.Subscription,
		projects: repos.Project,
		store:    store,
		log:      log.With().Str("service", "usage").Logger(),
		now:      time.Now,
	}
}

func usageCacheKey(ownerID string, label models.UsageLabel) string {
	return fmt.Sprintf("usage:%s:%s", ownerID, label)
}

// IsEntitled reports whether the owner's subscription exempts them from
// free-tier ceilings: active, or cancelled but paid through the future.
func (s *usageService) IsEntitled(ctx context.Context, ownerID string) (bool, error) {
	sub, err := s.subs.GetByUserID(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub.IsActive(s.now()), nil
}

// CanPerform is the read-only half of the gate: entitled owners always
// pass, everyone else passes while their counter is below the ceiling.
func (s *usageService) CanPerform(ctx context.Context, ownerID string, label models.UsageLabel) (bool, error) {
	entitled, err := s.IsEntitled(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if entitled {
		return true, nil
	}

	ceiling, ok := models.FreeTierLimits[label]
	if !ok {
		return true, nil
	}

	// Site creation is counted live from project rows, not the usage table
	if label == models.UsageCreateSite {
		count, err := s.projects.CountByOwner(ctx, ownerID)
		if err != nil {
			return false, fmt.Errorf("failed to count projects: %w", err)
		}
		return count < ceiling, nil
	}

	count, err := s.currentCount(ctx, ownerID, label)
	if err != nil {
		return false, err
	}
	return count < ceiling, nil
}

// currentCount reads the counter cache-aside; behavior is identical when
// every cache lookup misses.
func (s *usageService) currentCount(ctx context.Context, ownerID string, label models.UsageLabel) (int, error) {
	key := usageCacheKey(ownerID, label)
	if cached, ok := s.store.Get(key); ok {
		if count, err := strconv.Atoi(cached); err == nil {
			return count, nil
		}
	}

	count, err := s.usage.Get(ctx, ownerID, label)
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	s.store.Set(key, strconv.Itoa(count), usageCacheTTL)
	return count, nil
}

// Increment records one performed action. It must be called only after
// the gated action succeeded, at most once per action instance. For
// non-entitled owners the bump is a single conditional statement that
// cannot push the counter past the ceiling; a lost race reports
// ErrQuotaExceeded without incrementing.
func (s *usageService) Increment(ctx context.Context, ownerID string, label models.UsageLabel) error {
	defer s.store.Delete(usageCacheKey(ownerID, label))

	entitled, err := s.IsEntitled(ctx, ownerID)
	if err != nil {
		return err
	}

	ceiling, limited := models.FreeTierLimits[label]
	if entitled || !limited || label == models.UsageCreateSite {
		if err := s.usage.Increment(ctx, ownerID, label); err != nil {
			return fmt.Errorf("failed to increment usage: %w", err)
		}
		return nil
	}

	ok, err := s.usage.IncrementIfBelow(ctx, ownerID, label, ceiling)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

// ResetMonthly zeroes the period counters for all owners. Invoked by the
// external monthly batch.
func (s *usageService) ResetMonthly(ctx context.Context) error {
	err := s.usage.ResetLabels(ctx, models.UsageApproveComment, models.UsageQuickApprove)
	if err != nil {
		return fmt.Errorf("failed to reset usage counters: %w", err)
	}
	s.log.Info().Msg("Monthly usage counters reset")
	return nil
}
