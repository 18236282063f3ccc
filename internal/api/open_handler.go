package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/service"
	"github.com/comment-widget-api/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// OpenHandler handles the unauthenticated endpoints reached by the
// embedded widget and by capability links in notification emails.
type OpenHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewOpenHandler creates a new OpenHandler
func NewOpenHandler(services *service.Services, log zerolog.Logger) *OpenHandler {
	return &OpenHandler{
		services: services,
		log:      log.With().Str("handler", "open").Logger(),
	}
}

// timezoneOffset reads the widget's minute offset header
func timezoneOffset(c *gin.Context) int {
	offset, err := strconv.Atoi(c.GetHeader("X-Timezone-Offset"))
	if err != nil {
		return 0
	}
	return offset
}

// GetComments handles GET /api/open/comments
// Returns the approved comment tree for one page. Unknown and deleted
// projects answer with a well-formed empty envelope, not an error, so a
// stale widget embed cannot distinguish them from a quiet page.
func (h *OpenHandler) GetComments(c *gin.Context) {
	ctx := c.Request.Context()

	projectID := c.Query("appId")
	pageSlug := c.Query("pageId")
	if projectID == "" || pageSlug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appId and pageId are required"})
		return
	}

	pageNum, _ := strconv.Atoi(c.Query("page"))

	deleted, err := h.services.Project.IsDeleted(ctx, projectID)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to check project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	if deleted {
		c.JSON(http.StatusOK, gin.H{"data": models.EmptyCommentWrapper(10)})
		return
	}

	approved := true
	wrapper, err := h.services.Comment.List(ctx, projectID, service.ListOptions{
		PageSlug:       pageSlug,
		Page:           pageNum,
		Approved:       &approved,
		TimezoneOffset: timezoneOffset(c),
	})
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to list comments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": wrapper})
}

// PostComment handles POST /api/open/comments
// Creates a pending comment. Notification fanout is dispatched after the
// write commits and cannot affect this response.
func (h *OpenHandler) PostComment(c *gin.Context) {
	ctx := c.Request.Context()

	var req struct {
		AppID        string `json:"appId" binding:"required"`
		PageID       string `json:"pageId" binding:"required"`
		Content      string `json:"content" binding:"required"`
		Nickname     string `json:"nickname" binding:"required"`
		Email        string `json:"email"`
		ParentID     string `json:"parentId"`
		PageTitle    string `json:"pageTitle"`
		PageURL      string `json:"pageUrl"`
		AcceptNotify bool   `json:"acceptNotify"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appId, pageId, content and nickname are required"})
		return
	}

	deleted, err := h.services.Project.IsDeleted(ctx, req.AppID)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", req.AppID).Msg("Failed to check project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create comment"})
		return
	}
	if deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	comment, err := h.services.Comment.Add(ctx, &service.AddCommentRequest{
		ProjectID:    req.AppID,
		PageSlug:     req.PageID,
		Content:      req.Content,
		Nickname:     req.Nickname,
		Email:        req.Email,
		ParentID:     req.ParentID,
		PageTitle:    req.PageTitle,
		PageURL:      req.PageURL,
		AcceptNotify: req.AcceptNotify,
	})
	if errors.Is(err, service.ErrParentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "parent comment not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("project_id", req.AppID).Msg("Failed to create comment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create comment"})
		return
	}

	// Reply notifications are double-opt-in: the author confirms via an
	// emailed capability link before accept_notify is set.
	if req.AcceptNotify && req.Email != "" {
		pageTitle := req.PageTitle
		if pageTitle == "" {
			pageTitle = req.PageID
		}
		if err := h.services.Notification.SendConfirmNotify(ctx, req.Email, pageTitle, comment.ID); err != nil {
			h.log.Error().Err(err).Str("comment_id", comment.ID).Msg("Failed to send confirm email")
		}
	}

	c.JSON(http.StatusCreated, gin.H{"data": comment})
}

// ApproveByToken handles GET /api/open/approve
// The plain approval link from notification emails.
func (h *OpenHandler) ApproveByToken(c *gin.Context) {
	ctx := c.Request.Context()

	claims, err := h.services.Tokens.VerifyApproveToken(c.Query("token"))
	if err != nil {
		c.String(http.StatusForbidden, "The approval link is invalid or has expired.")
		return
	}

	if err := h.services.Comment.Approve(ctx, claims.CommentID); err != nil {
		h.log.Error().Err(err).Str("comment_id", claims.CommentID).Msg("Failed to approve comment")
		c.String(http.StatusInternalServerError, "Something went wrong, please try again.")
		return
	}

	c.String(http.StatusOK, "Comment approved.")
}

// QuickApprove handles POST /api/open/approve
// Approves straight from the email, optionally appending a moderator
// reply. Quick approvals are quota limited for free-tier owners.
func (h *OpenHandler) QuickApprove(c *gin.Context) {
	ctx := c.Request.Context()

	claims, err := h.services.Tokens.VerifyApproveToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "the approval link is invalid or has expired"})
		return
	}

	var req struct {
		ReplyContent string `json:"replyContent"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	allowed, err := h.services.Usage.CanPerform(ctx, claims.OwnerID, models.UsageQuickApprove)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", claims.OwnerID).Msg("Failed to check quota")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve comment"})
		return
	}
	if !allowed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "you have reached the monthly Quick Approve limit, please upgrade your plan",
		})
		return
	}

	if err := h.services.Comment.Approve(ctx, claims.CommentID); err != nil {
		h.log.Error().Err(err).Str("comment_id", claims.CommentID).Msg("Failed to approve comment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve comment"})
		return
	}

	if req.ReplyContent != "" {
		_, err := h.services.Comment.AddModeratorReply(ctx, claims.CommentID, req.ReplyContent, claims.OwnerID)
		if err != nil {
			h.log.Error().Err(err).Str("comment_id", claims.CommentID).Msg("Failed to append moderator reply")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "comment approved but reply failed"})
			return
		}
	}

	// The approval already happened; a lost quota race only means the
	// counter stays where it is.
	if err := h.services.Usage.Increment(ctx, claims.OwnerID, models.UsageQuickApprove); err != nil {
		h.log.Warn().Err(err).Str("owner_id", claims.OwnerID).Msg("Quick approve counter not incremented")
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment approved"})
}

// GetApprovalView handles GET /api/open/approve/comment
// Loads the payload the approval page renders before the moderator acts.
func (h *OpenHandler) GetApprovalView(c *gin.Context) {
	ctx := c.Request.Context()

	claims, err := h.services.Tokens.VerifyApproveToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "the approval link is invalid or has expired"})
		return
	}

	view, err := h.services.Comment.ApprovalView(ctx, claims.CommentID)
	if errors.Is(err, service.ErrCommentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("comment_id", claims.CommentID).Msg("Failed to load approval view")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

// Unsubscribe handles GET /api/open/unsubscribe
func (h *OpenHandler) Unsubscribe(c *gin.Context) {
	ctx := c.Request.Context()

	claims, err := h.services.Tokens.VerifyUnsubscribeToken(c.Query("token"))
	if err != nil {
		c.String(http.StatusBadRequest, "The unsubscribe link is invalid or has expired.")
		return
	}
	if claims.SubscriptionType != token.SubscriptionNewComment {
		c.String(http.StatusBadRequest, "Unknown subscription type.")
		return
	}

	err = h.services.Notification.Unsubscribe(ctx, claims.SubjectID)
	if errors.Is(err, service.ErrUserNotFound) {
		c.String(http.StatusNotFound, "Subscription not found.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("subject_id", claims.SubjectID).Msg("Failed to unsubscribe")
		c.String(http.StatusInternalServerError, "Something went wrong, please try again.")
		return
	}

	c.String(http.StatusOK, "You have been unsubscribed.")
}

// ConfirmNotify handles GET /api/open/confirm
// Completes the double opt-in for reply notifications on one comment.
func (h *OpenHandler) ConfirmNotify(c *gin.Context) {
	ctx := c.Request.Context()

	claims, err := h.services.Tokens.VerifyAcceptNotifyToken(c.Query("token"))
	if err != nil {
		c.String(http.StatusBadRequest, "The confirmation link is invalid or has expired.")
		return
	}

	err = h.services.Comment.ConfirmReplyNotification(ctx, claims.CommentID)
	if errors.Is(err, service.ErrCommentNotFound) {
		c.String(http.StatusNotFound, "Comment not found.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("comment_id", claims.CommentID).Msg("Failed to confirm notification")
		c.String(http.StatusInternalServerError, "Something went wrong, please try again.")
		return
	}

	c.String(http.StatusOK, "Reply notifications enabled.")
}

// CountComments handles GET /api/open/project/:projectId/comments/count
func (h *OpenHandler) CountComments(c *gin.Context) {
	ctx := c.Request.Context()

	projectID := c.Param("projectId")
	slugs := strings.Split(c.Query("pageIds"), ",")
	if len(slugs) == 1 && slugs[0] == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageIds is required"})
		return
	}

	deleted, err := h.services.Project.IsDeleted(ctx, projectID)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to check project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count comments"})
		return
	}
	if deleted {
		c.JSON(http.StatusOK, gin.H{"data": map[string]int{}})
		return
	}

	counts, err := h.services.Comment.CountApproved(ctx, projectID, slugs)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to count comments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": counts})
}

// LatestComments handles GET /api/open/project/:projectId/comments/latest
// A read-only poll authenticated by the project's shared token.
func (h *OpenHandler) LatestComments(c *gin.Context) {
	ctx := c.Request.Context()

	projectID := c.Param("projectId")
	widgetToken := c.Query("token")
	if widgetToken == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "token is required"})
		return
	}

	project, err := h.services.Project.GetByToken(ctx, widgetToken)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to resolve project token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	if project == nil || project.ID != projectID {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid project token"})
		return
	}

	comments, err := h.services.Project.FetchLatestComments(ctx, projectID, true)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to fetch latest comments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comments})
}
