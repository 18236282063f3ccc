package models

import (
	"time"
)

// User is a registered project owner
type User struct {
	ID                           string    `json:"id" db:"id"`
	Email                        string    `json:"email" db:"email"`
	PasswordHash                 string    `json:"-" db:"password_hash"`
	Name                         string    `json:"name" db:"name"`
	DisplayName                  string    `json:"display_name,omitempty" db:"display_name"`
	NotificationEmail            string    `json:"notification_email,omitempty" db:"notification_email"`
	EnableNewCommentNotification bool      `json:"enable_new_comment_notification" db:"enable_new_comment_notification"`
	CreatedAt                    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at" db:"updated_at"`
}

// ModeratorName returns the name replies are signed with
func (u *User) ModeratorName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return "Moderator"
}

// UserUpdate carries the settable profile fields; nil means unchanged
type UserUpdate struct {
	Name                         *string `json:"name,omitempty"`
	DisplayName                  *string `json:"display_name,omitempty"`
	NotificationEmail            *string `json:"notification_email,omitempty"`
	EnableNewCommentNotification *bool   `json:"enable_new_comment_notification,omitempty"`
}
