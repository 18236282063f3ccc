package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// NewCommentData fills the new-comment notification template
type NewCommentData struct {
	ProjectTitle   string
	PageTitle      string
	CommenterName  string
	Content        string
	ApproveURL     string
	DashboardURL   string
	UnsubscribeURL string
}

// ReplyData fills the reply notification template
type ReplyData struct {
	PageTitle       string
	OriginalContent string
	ReplyContent    string
	ReplierName     string
	PageURL         string
	UnsubscribeURL  string
}

// ConfirmNotifyData fills the confirm-reply-notification template
type ConfirmNotifyData struct {
	PageTitle  string
	ConfirmURL string
}

var newCommentTmpl = template.Must(template.New("new_comment").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>New Comment on {{.ProjectTitle}}</h2>
  <p>A new comment has been posted on your page "<strong>{{.PageTitle}}</strong>":</p>
  <div style="background: #f5f5f5; padding: 15px; border-left: 4px solid #007cba; margin: 20px 0;">
    <p><strong>{{.CommenterName}}</strong> wrote:</p>
    <p>{{.Content}}</p>
  </div>
  <div style="margin: 30px 0;">
    <a href="{{.ApproveURL}}" style="display: inline-block; background: #007cba; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin-right: 10px;">Approve Comment</a>
    <a href="{{.DashboardURL}}" style="display: inline-block; background: #666; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">View Dashboard</a>
  </div>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
  <p style="color: #666; font-size: 12px;">
    Don't want to receive these notifications? <a href="{{.UnsubscribeURL}}">Unsubscribe</a>
  </p>
</div>
`))

var replyTmpl = template.Must(template.New("reply").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>New Reply to Your Comment</h2>
  <p>Someone has replied to your comment on "{{.PageTitle}}":</p>
  <div style="background: #f9f9f9; padding: 15px; border-left: 4px solid #ccc; margin: 20px 0;">
    <p><strong>Your comment:</strong></p>
    <p>{{.OriginalContent}}</p>
  </div>
  <div style="background: #f5f5f5; padding: 15px; border-left: 4px solid #007cba; margin: 20px 0;">
    <p><strong>{{.ReplierName}}</strong> replied:</p>
    <p>{{.ReplyContent}}</p>
  </div>
  <div style="margin: 30px 0; text-align: center;">
    <a href="{{.PageURL}}" style="display: inline-block; background: #007cba; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">View Conversation</a>
  </div>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
  <p style="color: #666; font-size: 12px;">
    Don't want to receive these notifications? <a href="{{.UnsubscribeURL}}">Unsubscribe</a>
  </p>
</div>
`))

var confirmNotifyTmpl = template.Must(template.New("confirm_notify").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Confirm Reply Notifications</h2>
  <p>You have requested to receive notifications when someone replies to your comment on "{{.PageTitle}}".</p>
  <p>To confirm this subscription, please click the button below:</p>
  <div style="margin: 30px 0; text-align: center;">
    <a href="{{.ConfirmURL}}" style="display: inline-block; background: #007cba; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Confirm Reply Notifications</a>
  </div>
  <p style="color: #666; font-size: 14px;">If you didn't request this, you can safely ignore this email.</p>
</div>
`))

// RenderNewComment renders the new-comment notification body
func RenderNewComment(data NewCommentData) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := newCommentTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render new comment email: %w", err)
	}
	return fmt.Sprintf("New comment on %s", data.ProjectTitle), buf.String(), nil
}

// RenderReply renders the reply notification body
func RenderReply(data ReplyData) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := replyTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render reply email: %w", err)
	}
	return fmt.Sprintf("New reply on %s", data.PageTitle), buf.String(), nil
}

// RenderConfirmNotify renders the confirm-reply-notification body
func RenderConfirmNotify(data ConfirmNotifyData) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := confirmNotifyTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render confirm email: %w", err)
	}
	return fmt.Sprintf("Confirm reply notifications for %s", data.PageTitle), buf.String(), nil
}
