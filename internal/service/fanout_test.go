package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/comment-widget-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutDeliversBothChannels(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	project := env.seedProject("proj-1", "owner-1")
	project.EnableWebhook = true
	project.Webhook = "https://hooks.example.com/comments"

	_, err := env.services.Comment.Add(context.Background(), &service.AddCommentRequest{
		ProjectID: "proj-1",
		PageSlug:  "/post",
		Content:   "nice article",
		Nickname:  "alice",
		PageTitle: "Post Title",
	})
	require.NoError(t, err)
	env.services.Hook.Wait()

	sent := env.mail.SentMails()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner@example.com", sent[0].To)
	assert.Contains(t, sent[0].HTML, "/open/approve?token=")
	assert.Contains(t, sent[0].HTML, "/api/open/unsubscribe?token=")

	posted := env.transport.PostedHooks()
	require.Len(t, posted, 1)
	assert.Equal(t, "https://hooks.example.com/comments", posted[0].URL)

	var event struct {
		Type string `json:"type"`
		Data struct {
			ByNickname   string `json:"by_nickname"`
			Content      string `json:"content"`
			PageID       string `json:"page_id"`
			ProjectTitle string `json:"project_title"`
			ApproveLink  string `json:"approve_link"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(posted[0].Body, &event))
	assert.Equal(t, "new_comment", event.Type)
	assert.Equal(t, "alice", event.Data.ByNickname)
	assert.Equal(t, "nice article", event.Data.Content)
	assert.Equal(t, "/post", event.Data.PageID, "the envelope carries the page slug")
	assert.NotEmpty(t, event.Data.ApproveLink)
}

func TestFanoutChannelsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	project := env.seedProject("proj-1", "owner-1")
	project.EnableWebhook = true
	project.Webhook = "https://hooks.example.com/comments"
	env.transport.PostError = errors.New("connection refused")

	comment, err := env.services.Comment.Add(context.Background(), &service.AddCommentRequest{
		ProjectID: "proj-1",
		PageSlug:  "/post",
		Content:   "hello",
		Nickname:  "bob",
	})
	require.NoError(t, err, "a dead webhook endpoint must not fail the comment write")
	require.NotNil(t, comment)
	env.services.Hook.Wait()

	// The email branch is unaffected by the webhook failure
	assert.Len(t, env.mail.SentMails(), 1)
	assert.Empty(t, env.transport.PostedHooks())
}

func TestFanoutSkipsModeratorComments(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	project := env.seedProject("proj-1", "owner-1")
	project.EnableWebhook = true
	project.Webhook = "https://hooks.example.com/comments"
	env.seedPage("page-1", "proj-1", "/p")
	env.seedComment("c-1", "page-1", true, nil, time.Now())

	_, err := env.services.Comment.AddModeratorReply(context.Background(), "c-1", "moderator speaking", "owner-1")
	require.NoError(t, err)
	env.services.Hook.Wait()

	// The parent author never opted into reply notifications, so neither
	// channel fires.
	assert.Empty(t, env.mail.SentMails())
	assert.Empty(t, env.transport.PostedHooks())
}

func TestFanoutRespectsOwnerOptOut(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedOwner("owner-1", "owner@example.com")
	owner.EnableNewCommentNotification = false
	env.seedProject("proj-1", "owner-1")

	_, err := env.services.Comment.Add(context.Background(), &service.AddCommentRequest{
		ProjectID: "proj-1", PageSlug: "/p", Content: "hi",
	})
	require.NoError(t, err)
	env.services.Hook.Wait()

	assert.Empty(t, env.mail.SentMails())
}

func TestFanoutUsesNotificationEmailOverride(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedOwner("owner-1", "owner@example.com")
	owner.NotificationEmail = "inbox@other.example.com"
	env.seedProject("proj-1", "owner-1")

	_, err := env.services.Comment.Add(context.Background(), &service.AddCommentRequest{
		ProjectID: "proj-1", PageSlug: "/p", Content: "hi",
	})
	require.NoError(t, err)
	env.services.Hook.Wait()

	sent := env.mail.SentMails()
	require.Len(t, sent, 1)
	assert.Equal(t, "inbox@other.example.com", sent[0].To)
}

func TestReplyNotifiesOptedInParent(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	env.seedProject("proj-1", "owner-1")
	env.seedPage("page-1", "proj-1", "/p")
	parent := env.seedComment("c-parent", "page-1", true, nil, time.Now())
	parent.ByEmail = "visitor@example.com"
	parent.AcceptNotify = true

	_, err := env.services.Comment.AddModeratorReply(context.Background(), "c-parent", "thanks for reading", "owner-1")
	require.NoError(t, err)
	env.services.Hook.Wait()

	sent := env.mail.SentMails()
	require.Len(t, sent, 1)
	assert.Equal(t, "visitor@example.com", sent[0].To)
	assert.Contains(t, sent[0].HTML, "/api/open/unsubscribe?token=")
}

func TestUnsubscribeOwnerThenCommentFallback(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	env.seedProject("proj-1", "owner-1")
	env.seedPage("page-1", "proj-1", "/p")
	comment := env.seedComment("c-1", "page-1", true, nil, time.Now())
	comment.AcceptNotify = true

	ctx := context.Background()

	// Owner-level subject disables the account preference
	require.NoError(t, env.services.Notification.Unsubscribe(ctx, "owner-1"))
	assert.False(t, env.users.Users["owner-1"].EnableNewCommentNotification)

	// Comment-level subject clears the per-comment opt-in
	require.NoError(t, env.services.Notification.Unsubscribe(ctx, "c-1"))
	assert.False(t, env.comments.Comments["c-1"].AcceptNotify)

	// Unknown subject is neither
	assert.ErrorIs(t, env.services.Notification.Unsubscribe(ctx, "ghost"), service.ErrUserNotFound)
}

func TestConfirmReplyNotification(t *testing.T) {
	env := newTestEnv(t)
	env.seedOwner("owner-1", "owner@example.com")
	env.seedProject("proj-1", "owner-1")
	env.seedPage("page-1", "proj-1", "/p")
	env.seedComment("c-1", "page-1", false, nil, time.Now())

	ctx := context.Background()
	require.NoError(t, env.services.Comment.ConfirmReplyNotification(ctx, "c-1"))
	assert.True(t, env.comments.Comments["c-1"].AcceptNotify)

	assert.ErrorIs(t, env.services.Comment.ConfirmReplyNotification(ctx, "ghost"), service.ErrCommentNotFound)
}
