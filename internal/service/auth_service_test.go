package service_test

import (
	"context"
	"testing"

	"github.com/comment-widget-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, session, err := env.services.Auth.Register(ctx, "Alice@Example.com", "s3cret-pass", "Alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email, "emails are normalized")
	assert.NotEmpty(t, session)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.True(t, user.EnableNewCommentNotification, "new owners are opted into notifications")

	// The session token resolves back to the user
	userID, err := env.services.Auth.ParseSession(session)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// Login with the same credentials
	loggedIn, session2, err := env.services.Auth.Login(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, session2)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.services.Auth.Register(ctx, "alice@example.com", "s3cret-pass", "Alice")
	require.NoError(t, err)

	_, _, err = env.services.Auth.Register(ctx, "alice@example.com", "other-pass", "Imposter")
	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.services.Auth.Register(ctx, "alice@example.com", "s3cret-pass", "Alice")
	require.NoError(t, err)

	_, _, err = env.services.Auth.Login(ctx, "alice@example.com", "wrong-pass")
	assert.ErrorIs(t, err, service.ErrBadCredentials)

	_, _, err = env.services.Auth.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, service.ErrBadCredentials)
}

func TestParseSessionRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.Auth.ParseSession("not-a-token")
	assert.ErrorIs(t, err, service.ErrBadCredentials)
}
