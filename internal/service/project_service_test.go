package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/comment-widget-api/internal/cache"
	"github.com/comment-widget-api/internal/mocks"
	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCachedEnv builds services over a real in-memory cache so the
// token-resolution cache path is exercised, not just the miss path.
func newCachedEnv(t *testing.T) *testEnv {
	t.Helper()

	repos, comments, pages, projects, users, usage, subs := mocks.NewMockRepositories()
	mail := mocks.NewMockSender()
	transport := mocks.NewMockTransport()

	services := service.NewServices(repos, cache.New(time.Minute), mail, transport, testConfig(), zerolog.Nop())

	return &testEnv{
		services:  services,
		comments:  comments,
		pages:     pages,
		projects:  projects,
		users:     users,
		usage:     usage,
		subs:      subs,
		mail:      mail,
		transport: transport,
	}
}

func TestProjectCreateAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	ctx := context.Background()

	project, err := env.services.Project.Create(ctx, "My Blog", "owner-1")
	require.NoError(t, err)
	assert.NotEmpty(t, project.ID)
	assert.NotEmpty(t, project.Token)
	assert.True(t, project.EnableNotification, "notifications default on")

	got, err := env.services.Project.GetByIDAndOwner(ctx, project.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)

	_, err = env.services.Project.GetByIDAndOwner(ctx, project.ID, "someone-else")
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.services.Project.GetByIDAndOwner(ctx, "ghost", "owner-1")
	assert.ErrorIs(t, err, service.ErrProjectNotFound)
}

func TestTokenRotationInvalidatesOldToken(t *testing.T) {
	env := newCachedEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	ctx := context.Background()

	project, err := env.services.Project.Create(ctx, "My Blog", "owner-1")
	require.NoError(t, err)
	oldToken := project.Token

	// Warm the cache through a lookup
	resolved, err := env.services.Project.GetByToken(ctx, oldToken)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, project.ID, resolved.ID)

	rotated, err := env.services.Project.RegenerateToken(ctx, project.ID, "owner-1")
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, rotated.Token)

	// The old token stops resolving immediately, cached or not
	stale, err := env.services.Project.GetByToken(ctx, oldToken)
	require.NoError(t, err)
	assert.Nil(t, stale)

	fresh, err := env.services.Project.GetByToken(ctx, rotated.Token)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, project.ID, fresh.ID)
}

func TestDeletedProjectReadsAsDeleted(t *testing.T) {
	env := newCachedEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	ctx := context.Background()

	project, err := env.services.Project.Create(ctx, "Doomed", "owner-1")
	require.NoError(t, err)

	deleted, err := env.services.Project.IsDeleted(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, env.services.Project.Delete(ctx, project.ID, "owner-1"))

	deleted, err = env.services.Project.IsDeleted(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// The widget token dies with the project
	resolved, err := env.services.Project.GetByToken(ctx, project.Token)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// Unknown ids also read as deleted
	deleted, err = env.services.Project.IsDeleted(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestFetchLatestComments(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	env.seedProject("proj-1", "owner-1")
	env.seedPage("page-1", "proj-1", "/p")

	base := time.Now().Add(-time.Hour)
	env.seedComment("c-old", "page-1", false, nil, base)
	env.seedComment("c-new", "page-1", false, nil, base.Add(30*time.Minute))
	env.seedComment("c-approved", "page-1", true, nil, base.Add(40*time.Minute))

	ctx := context.Background()

	// First poll sees all pending comments and advances the marker
	latest, err := env.services.Project.FetchLatestComments(ctx, "proj-1", true)
	require.NoError(t, err)
	assert.Len(t, latest, 2, "only pending comments appear in the feed")

	// Second poll starts after the marker
	latest, err = env.services.Project.FetchLatestComments(ctx, "proj-1", true)
	require.NoError(t, err)
	assert.Empty(t, latest)

	env.seedComment("c-newer", "page-1", false, nil, time.Now().Add(time.Minute))
	latest, err = env.services.Project.FetchLatestComments(ctx, "proj-1", false)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

func TestProjectUpdateSettings(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	env.seedProject("proj-1", "owner-1")
	ctx := context.Background()

	title := "Renamed"
	webhook := "https://hooks.example.com/x"
	enableWebhook := true
	updated, err := env.services.Project.Update(ctx, "proj-1", "owner-1", &models.ProjectUpdate{
		Title:         &title,
		Webhook:       &webhook,
		EnableWebhook: &enableWebhook,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, webhook, updated.Webhook)
	assert.True(t, updated.EnableWebhook)
	assert.True(t, updated.EnableNotification, "untouched fields keep their value")
}
