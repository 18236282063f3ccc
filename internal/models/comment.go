package models

import (
	"time"
)

// Comment represents a single comment on a page. A comment is created
// pending unless it was authored by a project moderator, in which case
// ModeratorID is set and the comment is approved at creation.
type Comment struct {
	ID           string     `json:"id" db:"id"`
	PageID       string     `json:"page_id" db:"page_id"`
	Content      string     `json:"content" db:"content"`
	ByNickname   string     `json:"by_nickname" db:"by_nickname"`
	ByEmail      string     `json:"by_email,omitempty" db:"by_email"`
	ParentID     *string    `json:"parent_id,omitempty" db:"parent_id"`
	ModeratorID  *string    `json:"moderator_id,omitempty" db:"moderator_id"`
	Approved     bool       `json:"approved" db:"approved"`
	AcceptNotify bool       `json:"accept_notify" db:"accept_notify"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsModerator reports whether the comment was authored by a project owner
// acting as moderator. Moderator comments bypass the pending state and
// never trigger notification fanout.
func (c *Comment) IsModerator() bool {
	return c.ModeratorID != nil
}

// CommentItem is a comment decorated for rendering: parsed content,
// display timestamp, eager reply subtree and page metadata.
type CommentItem struct {
	Comment
	ParsedContent   string           `json:"parsed_content"`
	ParsedCreatedAt string           `json:"parsed_created_at"`
	Replies         *CommentWrapper  `json:"replies"`
	Page            CommentPageInfo  `json:"page"`
	Moderator       *CommentModerator `json:"moderator,omitempty"`
}

// CommentPageInfo is the page metadata attached to each listed comment
type CommentPageInfo struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title,omitempty"`
}

// CommentModerator carries the display identity of a moderator author
type CommentModerator struct {
	DisplayName string `json:"display_name,omitempty"`
}

// CommentWrapper is the pagination envelope returned by comment listings
type CommentWrapper struct {
	Data         []*CommentItem `json:"data"`
	CommentCount int            `json:"commentCount"`
	PageSize     int            `json:"pageSize"`
	PageCount    int            `json:"pageCount"`
}

// EmptyCommentWrapper returns a well-formed empty listing. Deleted and
// unknown projects answer public reads with this instead of an error.
func EmptyCommentWrapper(pageSize int) *CommentWrapper {
	return &CommentWrapper{
		Data:         []*CommentItem{},
		CommentCount: 0,
		PageSize:     pageSize,
		PageCount:    0,
	}
}

// CommentApprovalView is the payload shown on the token approval page
type CommentApprovalView struct {
	ByNickname string `json:"by_nickname"`
	ByEmail    string `json:"by_email,omitempty"`
	Content    string `json:"content"`
	Approved   bool   `json:"approved"`
	PageTitle  string `json:"page_title,omitempty"`
	PageSlug   string `json:"page_slug"`
	PageURL    string `json:"page_url,omitempty"`
	ProjectTitle string `json:"project_title"`
}
