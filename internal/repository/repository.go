package repository

import (
	"context"
	"time"

	"github.com/comment-widget-api/internal/database"
	"github.com/comment-widget-api/internal/models"
)

// CommentFilter narrows comment listings. ProjectID is required. TopLevel
// and ParentID are mutually exclusive parent scopes; leaving both unset
// lists comments at any depth.
type CommentFilter struct {
	ProjectID string
	PageSlug  string
	OwnerID   string
	Approved  *bool
	TopLevel  bool
	ParentID  string
	Limit     int
	Offset    int
}

// CommentRow is a comment joined with the page and moderator columns the
// listing needs, so tree assembly stays a single query per level.
type CommentRow struct {
	models.Comment
	PageSlug      string
	PageTitle     string
	ModeratorName string
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	Approve(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	SetAcceptNotify(ctx context.Context, id string, accept bool) error
	List(ctx context.Context, filter CommentFilter) ([]*CommentRow, error)
	Count(ctx context.Context, filter CommentFilter) (int, error)
	// OwnerOf resolves the comment -> page -> project chain
	OwnerOf(ctx context.Context, commentID string) (projectID, ownerID string, err error)
	ApprovalView(ctx context.Context, commentID string) (*models.CommentApprovalView, error)
	CountApprovedBySlug(ctx context.Context, projectID, slug string) (int, error)
	LatestPending(ctx context.Context, projectID string, from *time.Time, limit int) ([]*models.LatestComment, error)
}

// PageRepository defines the interface for page data operations
type PageRepository interface {
	// Upsert creates the page on first sight of a (project, slug) pair and
	// refreshes title/URL on later submissions when supplied and changed.
	Upsert(ctx context.Context, projectID, slug, title, url string) (*models.Page, error)
	GetBySlug(ctx context.Context, projectID, slug string) (*models.Page, error)
	GetByID(ctx context.Context, id string) (*models.Page, error)
}

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetByToken(ctx context.Context, token string) (*models.Project, error)
	IsDeleted(ctx context.Context, id string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Update(ctx context.Context, id, ownerID string, updates *models.ProjectUpdate) error
	SetToken(ctx context.Context, id, ownerID, token string) error
	SoftDelete(ctx context.Context, id, ownerID string) error
	MarkLatestFetched(ctx context.Context, id string, at time.Time) error
	// NotificationTarget joins the project with its owner's preferences
	NotificationTarget(ctx context.Context, projectID string) (*models.NotificationTarget, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, updates *models.UserUpdate) error
	SetNewCommentNotification(ctx context.Context, id string, enabled bool) error
}

// UsageRepository defines the interface for usage counter operations
type UsageRepository interface {
	Get(ctx context.Context, userID string, label models.UsageLabel) (int, error)
	// Increment bumps the counter by one in a single atomic upsert
	Increment(ctx context.Context, userID string, label models.UsageLabel) error
	// IncrementIfBelow bumps the counter only while it is below ceiling,
	// in one conditional statement; returns whether it incremented.
	IncrementIfBelow(ctx context.Context, userID string, label models.UsageLabel, ceiling int) (bool, error)
	ResetLabels(ctx context.Context, labels ...models.UsageLabel) error
}

// SubscriptionRepository defines the interface for entitlement reads
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Subscription, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Comment      CommentRepository
	Page         PageRepository
	Project      ProjectRepository
	User         UserRepository
	Usage        UsageRepository
	Subscription SubscriptionRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Comment:      NewCommentRepo(db),
		Page:         NewPageRepo(db),
		Project:      NewProjectRepo(db),
		User:         NewUserRepo(db),
		Usage:        NewUsageRepo(db),
		Subscription: NewSubscriptionRepo(db),
	}
}
