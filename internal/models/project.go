package models

import (
	"time"
)

// Project owns pages and their comments. The token is a rotating shared
// secret that read-only widgets use to poll the newest unread comments.
type Project struct {
	ID                    string     `json:"id" db:"id"`
	Title                 string     `json:"title" db:"title"`
	OwnerID               string     `json:"owner_id" db:"owner_id"`
	Token                 string     `json:"token" db:"token"`
	EnableNotification    bool       `json:"enable_notification" db:"enable_notification"`
	Webhook               string     `json:"webhook,omitempty" db:"webhook"`
	EnableWebhook         bool       `json:"enable_webhook" db:"enable_webhook"`
	FetchLatestCommentsAt *time.Time `json:"fetch_latest_comments_at,omitempty" db:"fetch_latest_comments_at"`
	DeletedAt             *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// ProjectUpdate carries the settable project fields; nil means unchanged
type ProjectUpdate struct {
	Title              *string `json:"title,omitempty"`
	EnableNotification *bool   `json:"enable_notification,omitempty"`
	Webhook            *string `json:"webhook,omitempty"`
	EnableWebhook      *bool   `json:"enable_webhook,omitempty"`
}

// NotificationTarget is what the fanout needs to know about a project and
// its owner: whether each channel is on and where it points.
type NotificationTarget struct {
	ProjectID            string
	ProjectTitle         string
	OwnerID              string
	OwnerEmail           string
	NotificationEmail    string
	NotificationsEnabled bool
	NewCommentOptIn      bool
	WebhookEnabled       bool
	WebhookURL           string
}

// EmailAddress returns the address notification mail should go to,
// falling back to the owner's account email.
func (t *NotificationTarget) EmailAddress() string {
	if t.NotificationEmail != "" {
		return t.NotificationEmail
	}
	return t.OwnerEmail
}

// Page groups comments under a project by a human-assigned slug. Pages are
// created lazily on first comment submission for an unseen slug.
type Page struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	Slug      string    `json:"slug" db:"slug"`
	Title     string    `json:"title,omitempty" db:"title"`
	URL       string    `json:"url,omitempty" db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LatestComment is one entry of the unread-comment feed polled by widgets
// holding the project token.
type LatestComment struct {
	ByNickname string    `json:"by_nickname"`
	ByEmail    string    `json:"by_email,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
