package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/comment-widget-api/internal/email"
	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
	"github.com/comment-widget-api/internal/token"
	"github.com/rs/zerolog"
)

// notificationService is the email branch of the fanout
type notificationService struct {
	projects repository.ProjectRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	pages    repository.PageRepository
	tokens   *token.Service
	mail     email.Sender
	siteURL  string
	log      zerolog.Logger
}

// newNotificationService creates a new NotificationService
func newNotificationService(repos *repository.Repositories, tokens *token.Service, mail email.Sender, siteURL string, log zerolog.Logger) *notificationService {
	return &notificationService{
		projects: repos.Project,
		comments: repos.Comment,
		users:    repos.User,
		pages:    repos.Page,
		tokens:   tokens,
		mail:     mail,
		siteURL:  siteURL,
		log:      log.With().Str("service", "notification").Logger(),
	}
}

// NotifyNewComment emails the project owner about a pending visitor
// comment, with an approve capability link. Moderator comments and
// owners who opted out are skipped silently.
func (s *notificationService) NotifyNewComment(ctx context.Context, comment *models.Comment, projectID string) error {
	if comment.IsModerator() {
		return nil
	}

	target, err := s.projects.NotificationTarget(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve notification target: %w", err)
	}
	if !target.NotificationsEnabled || !target.NewCommentOptIn {
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
	unsubscribeToken, err := s.tokens.IssueUnsubscribeToken(target.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to issue unsubscribe token: %w", err)
	}

	pageTitle := view.PageTitle
	if pageTitle == "" {
		pageTitle = view.PageSlug
	}

	subject, html, err := email.RenderNewComment(email.NewCommentData{
		ProjectTitle:   target.ProjectTitle,
		PageTitle:      pageTitle,
		CommenterName:  comment.ByNickname,
		Content:        comment.Content,
		ApproveURL:     fmt.Sprintf("%s/open/approve?token=%s", s.siteURL, approveToken),
		DashboardURL:   fmt.Sprintf("%s/dashboard", s.siteURL),
		UnsubscribeURL: fmt.Sprintf("%s/api/open/unsubscribe?token=%s", s.siteURL, unsubscribeToken),
	})
	if err != nil {
		return err
	}

	to := target.EmailAddress()
	if err := s.mail.Send(ctx, to, subject, html); err != nil {
		return fmt.Errorf("failed to send new comment notification: %w", err)
	}

	s.log.Info().Str("comment_id", comment.ID).Str("to", to).Msg("New comment notification sent")
	return nil
}

// NotifyReply emails the parent comment's author about a reply, gated on
// the author having opted into reply notifications.
func (s *notificationService) NotifyReply(ctx context.Context, parent, reply *models.Comment) error {
	if parent.ByEmail == "" || !parent.AcceptNotify {
		return nil
	}

	page, err := s.pages.GetByID(ctx, parent.PageID)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	if page == nil {
		return nil
	}

	unsubscribeToken, err := s.tokens.IssueUnsubscribeToken(parent.ID)
	if err != nil {
		return fmt.Errorf("failed to issue unsubscribe token: %w", err)
	}

	pageTitle := page.Title
	if pageTitle == "" {
		pageTitle = page.Slug
	}
	pageURL := page.URL
	if pageURL == "" {
		pageURL = s.siteURL
	}

	subject, html, err := email.RenderReply(email.ReplyData{
		PageTitle:       pageTitle,
		OriginalContent: parent.Content,
		ReplyContent:    reply.Content,
		ReplierName:     reply.ByNickname,
		PageURL:         pageURL,
		UnsubscribeURL:  fmt.Sprintf("%s/api/open/unsubscribe?token=%s", s.siteURL, unsubscribeToken),
	})
	if err != nil {
		return err
	}

	if err := s.mail.Send(ctx, parent.ByEmail, subject, html); err != nil {
		return fmt.Errorf("failed to send reply notification: %w", err)
	}

	s.log.Info().Str("comment_id", reply.ID).Str("to", parent.ByEmail).Msg("Reply notification sent")
	return nil
}

// SendConfirmNotify emails a visitor the link that confirms their
// reply-notification subscription for one comment.
func (s *notificationService) SendConfirmNotify(ctx context.Context, to, pageTitle, commentID string) error {
	confirmToken, err := s.tokens.IssueAcceptNotifyToken(commentID)
	if err != nil {
		return fmt.Errorf("failed to issue confirm token: %w", err)
	}

	subject, html, err := email.RenderConfirmNotify(email.ConfirmNotifyData{
		PageTitle:  pageTitle,
		ConfirmURL: fmt.Sprintf("%s/api/open/confirm?token=%s", s.siteURL, confirmToken),
	})
	if err != nil {
		return err
	}

	if err := s.mail.Send(ctx, to, subject, html); err != nil {
		return fmt.Errorf("failed to send confirm notification: %w", err)
	}
	return nil
}

// Unsubscribe turns off the new-comment subscription named by a verified
// unsubscribe token. The subject is either an owner (disable the
// owner-level preference) or a comment (clear its reply opt-in).
func (s *notificationService) Unsubscribe(ctx context.Context, subjectID string) error {
	err := s.users.SetNewCommentNotification(ctx, subjectID, false)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to unsubscribe user: %w", err)
	}

	err = s.comments.SetAcceptNotify(ctx, subjectID, false)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to unsubscribe comment: %w", err)
	}
	return nil
}
