package service

import (
	"context"

	"github.com/comment-widget-api/internal/cache"
	"github.com/comment-widget-api/internal/config"
	"github.com/comment-widget-api/internal/email"
	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
	"github.com/comment-widget-api/internal/token"
	"github.com/comment-widget-api/internal/webhook"
	"github.com/rs/zerolog"
)

// AddCommentRequest carries an inbound visitor comment submission
type AddCommentRequest struct {
	ProjectID    string
	PageSlug     string
	Content      string
	Nickname     string
	Email        string
	ParentID     string
	PageTitle    string
	PageURL      string
	AcceptNotify bool
}

// ListOptions narrows a comment tree listing
type ListOptions struct {
	PageSlug       string
	Page           int
	PageSize       int
	Approved       *bool
	OwnerID        string
	TimezoneOffset int
}

// CommentService owns comment creation, tree assembly and the moderation
// state machine.
type CommentService interface {
	Add(ctx context.Context, req *AddCommentRequest) (*models.Comment, error)
	AddModeratorReply(ctx context.Context, parentID, content, moderatorID string) (*models.Comment, error)
	Approve(ctx context.Context, commentID string) error
	SoftDelete(ctx context.Context, commentID string) error
	List(ctx context.Context, projectID string, opts ListOptions) (*models.CommentWrapper, error)
	OwnerOf(ctx context.Context, commentID string) (projectID, ownerID string, err error)
	ApprovalView(ctx context.Context, commentID string) (*models.CommentApprovalView, error)
	CountApproved(ctx context.Context, projectID string, slugs []string) (map[string]int, error)
	ConfirmReplyNotification(ctx context.Context, commentID string) error
}

// UsageService gates quota-limited actions and tracks their counters
type UsageService interface {
	IsEntitled(ctx context.Context, ownerID string) (bool, error)
	CanPerform(ctx context.Context, ownerID string, label models.UsageLabel) (bool, error)
	Increment(ctx context.Context, ownerID string, label models.UsageLabel) error
	ResetMonthly(ctx context.Context) error
}

// ProjectService resolves and manages projects and their settings
type ProjectService interface {
	Create(ctx context.Context, title, ownerID string) (*models.Project, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error)
	Update(ctx context.Context, id, ownerID string, updates *models.ProjectUpdate) (*models.Project, error)
	RegenerateToken(ctx context.Context, id, ownerID string) (*models.Project, error)
	Delete(ctx context.Context, id, ownerID string) error
	IsDeleted(ctx context.Context, id string) (bool, error)
	GetByToken(ctx context.Context, widgetToken string) (*models.Project, error)
	FetchLatestComments(ctx context.Context, projectID string, markAsRead bool) ([]*models.LatestComment, error)
}

// NotificationService is the email branch of the fanout plus the
// subscription toggles reached through capability links.
type NotificationService interface {
	NotifyNewComment(ctx context.Context, comment *models.Comment, projectID string) error
	NotifyReply(ctx context.Context, parent, reply *models.Comment) error
	SendConfirmNotify(ctx context.Context, to, pageTitle, commentID string) error
	Unsubscribe(ctx context.Context, subjectID string) error
}

// WebhookService is the webhook branch of the fanout
type WebhookService interface {
	NotifyNewComment(ctx context.Context, comment *models.Comment, projectID string) error
}

// HookService dispatches moderation events to all delivery channels.
// Dispatch is fire-and-forget with respect to the triggering request.
type HookService interface {
	NewComment(comment *models.Comment, projectID string)
	Reply(parent, reply *models.Comment)
	Wait()
}

// AuthService handles registration, login and session tokens
type AuthService interface {
	Register(ctx context.Context, emailAddr, password, name string) (*models.User, string, error)
	Login(ctx context.Context, emailAddr, password string) (*models.User, string, error)
	ParseSession(tokenString string) (string, error)
}

// UserService handles owner profiles
type UserService interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, updates *models.UserUpdate) (*models.User, error)
}

// Services holds all service interfaces
type Services struct {
	Comment      CommentService
	Usage        UsageService
	Project      ProjectService
	Notification NotificationService
	Webhook      WebhookService
	Hook         HookService
	Auth         AuthService
	User         UserService
	Tokens       *token.Service
}

// NewServices creates all services and wires the comment store to the
// notification fanout.
func NewServices(
	repos *repository.Repositories,
	store cache.Cache,
	mail email.Sender,
	transport webhook.Transport,
	cfg *config.Config,
	log zerolog.Logger,
) *Services {
	tokens := token.NewService(cfg.Auth.JWTSecret, repos.Comment)

	notificationSvc := newNotificationService(repos, tokens, mail, cfg.Site.URL, log)
	webhookSvc := newWebhookService(repos, tokens, transport, cfg.Site.URL, log)
	hookSvc := newHookService(notificationSvc, webhookSvc, cfg.Webhook.Timeout, log)
	commentSvc := newCommentService(repos, log)
	usageSvc := newUsageService(repos, store, log)
	projectSvc := newProjectService(repos, store, log)
	authSvc := newAuthService(repos.User, &cfg.Auth, log)
	userSvc := newUserService(repos.User)

	// Wire up the comment store to the fanout
	commentSvc.SetHooks(hookSvc)

	return &Services{
		Comment:      commentSvc,
		Usage:        usageSvc,
		Project:      projectSvc,
		Notification: notificationSvc,
		Webhook:      webhookSvc,
		Hook:         hookSvc,
		Auth:         authSvc,
		User:         userSvc,
		Tokens:       tokens,
	}
}
