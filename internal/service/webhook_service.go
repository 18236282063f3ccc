package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
	"github.com/comment-widget-api/internal/token"
	"github.com/comment-widget-api/internal/webhook"
	"github.com/rs/zerolog"
)

// HookEventNewComment is the only webhook event type currently emitted
const HookEventNewComment = "new_comment"

// HookEvent is the fixed envelope POSTed to webhook targets
type HookEvent struct {
	Type string            `json:"type"`
	Data NewCommentPayload `json:"data"`
}

// NewCommentPayload describes a freshly submitted comment. PageID carries
// the page slug, which is what webhook consumers key on.
type NewCommentPayload struct {
	ByNickname   string `json:"by_nickname"`
	ByEmail      string `json:"by_email"`
	Content      string `json:"content"`
	PageID       string `json:"page_id"`
	PageTitle    string `json:"page_title"`
	ProjectTitle string `json:"project_title"`
	ApproveLink  string `json:"approve_link"`
}

// webhookService is the webhook branch of the fanout
type webhookService struct {
	projects  repository.ProjectRepository
	comments  repository.CommentRepository
	tokens    *token.Service
	transport webhook.Transport
	siteURL   string
	log       zerolog.Logger
}

// newWebhookService creates a new WebhookService
func newWebhookService(repos *repository.Repositories, tokens *token.Service, transport webhook.Transport, siteURL string, log zerolog.Logger) *webhookService {
	return &webhookService{
		projects:  repos.Project,
		comments:  repos.Comment,
		tokens:    tokens,
		transport: transport,
		siteURL:   siteURL,
		log:       log.With().Str("service", "webhook").Logger(),
	}
}

// NotifyNewComment POSTs the new-comment event to the project's webhook
// target if webhook delivery is enabled. Moderator comments are skipped.
func (s *webhookService) NotifyNewComment(ctx context.Context, comment *models.Comment, projectID string) error {
	if comment.IsModerator() {
		return nil
	}

	target, err := s.projects.NotificationTarget(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve webhook target: %w", err)
	}
	if !target.WebhookEnabled || target.WebhookURL == "" {
		return nil
	}

	view, err := s.comments.ApprovalView(ctx, comment.ID)
	if err != nil {
		return fmt.Errorf("failed to load comment details: %w", err)
	}

	approveToken, err := s.tokens.IssueApproveToken(ctx, comment.ID)
	if err != nil {
		return fmt.Errorf("failed to issue approve token: %w", err)
	}

	event := HookEvent{
		Type: HookEventNewComment,
		Data: NewCommentPayload{
			ByNickname:   comment.ByNickname,
			ByEmail:      comment.ByEmail,
			Content:      comment.Content,
			PageID:       view.PageSlug,
			PageTitle:    view.PageTitle,
			ProjectTitle: view.ProjectTitle,
			ApproveLink:  fmt.Sprintf("%s/open/approve?token=%s", s.siteURL, approveToken),
		},
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode webhook event: %w", err)
	}

	if err := s.transport.Post(ctx, target.WebhookURL, body); err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}

	s.log.Info().Str("comment_id", comment.ID).Str("url", target.WebhookURL).Msg("Webhook delivered")
	return nil
}
