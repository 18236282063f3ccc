package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuickApproveQuotaBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	ctx := context.Background()

	// One below the ceiling of 10: allowed, and the bump lands
	env.usage.Counters["owner-1:quick_approve"] = 9

	allowed, err := env.services.Usage.CanPerform(ctx, "owner-1", models.UsageQuickApprove)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, env.services.Usage.Increment(ctx, "owner-1", models.UsageQuickApprove))
	assert.Equal(t, 10, env.usage.Counters["owner-1:quick_approve"])

	// At the ceiling: blocked, and the conditional bump refuses
	allowed, err = env.services.Usage.CanPerform(ctx, "owner-1", models.UsageQuickApprove)
	require.NoError(t, err)
	assert.False(t, allowed)

	err = env.services.Usage.Increment(ctx, "owner-1", models.UsageQuickApprove)
	assert.ErrorIs(t, err, service.ErrQuotaExceeded)
	assert.Equal(t, 10, env.usage.Counters["owner-1:quick_approve"], "a refused bump must not move the counter")
}

func TestEntitledOwnerBypassesCeilings(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	env.subs.Subscriptions["owner-1"] = &models.Subscription{
		UserID: "owner-1",
		Status: models.SubscriptionStatusActive,
	}
	env.usage.Counters["owner-1:approve_comment"] = 5000

	ctx := context.Background()
	allowed, err := env.services.Usage.CanPerform(ctx, "owner-1", models.UsageApproveComment)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, env.services.Usage.Increment(ctx, "owner-1", models.UsageApproveComment))
	assert.Equal(t, 5001, env.usage.Counters["owner-1:approve_comment"])
}

func TestCancelledSubscriptionEntitlement(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	env.usage.Counters["owner-1:quick_approve"] = 10

	ctx := context.Background()

	future := time.Now().Add(30 * 24 * time.Hour)
	env.subs.Subscriptions["owner-1"] = &models.Subscription{
		UserID: "owner-1",
		Status: models.SubscriptionStatusCancelled,
		EndsAt: &future,
	}
	allowed, err := env.services.Usage.CanPerform(ctx, "owner-1", models.UsageQuickApprove)
	require.NoError(t, err)
	assert.True(t, allowed, "cancelled but paid through a future date still counts")

	past := time.Now().Add(-time.Hour)
	env.subs.Subscriptions["owner-1"].EndsAt = &past
	allowed, err = env.services.Usage.CanPerform(ctx, "owner-1", models.UsageQuickApprove)
	require.NoError(t, err)
	assert.False(t, allowed, "a lapsed cancellation falls back to the free tier")
}

func TestCreateSiteCountsLiveProjects(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner-1@example.com")
	env.seedProject("proj-1", "owner-1")
	env.seedProject("proj-2", "owner-1")

	ctx := context.Background()
	allowed, err := env.services.Usage.CanPerform(ctx, "owner-1", models.UsageCreateSite)
	require.NoError(t, err)
	assert.True(t, allowed)

	env.seedProject("proj-3", "owner-1")
	allowed, err = env.services.Usage.CanPerform(ctx, "owner-1", models.UsageCreateSite)
	require.NoError(t, err)
	assert.False(t, allowed, "three live projects exhaust the free tier")

	// Soft-deleting one frees a slot: the ceiling tracks live rows
	require.NoError(t, env.services.Project.Delete(ctx, "proj-3", "owner-1"))
	allowed, err = env.services.Usage.CanPerform(ctx, "owner-1", models.UsageCreateSite)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestResetMonthlyZeroesPeriodCounters(t *testing.T) {
	env := newTestEnv(t)
	env.usage.Counters["owner-1:approve_comment"] = 42
	env.usage.Counters["owner-1:quick_approve"] = 7
	env.usage.Counters["owner-2:quick_approve"] = 3

	require.NoError(t, env.services.Usage.ResetMonthly(context.Background()))

	assert.Equal(t, 0, env.usage.Counters["owner-1:approve_comment"])
	assert.Equal(t, 0, env.usage.Counters["owner-1:quick_approve"])
	assert.Equal(t, 0, env.usage.Counters["owner-2:quick_approve"])
}
