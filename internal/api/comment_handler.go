package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const dashboardPageSize = 20

// CommentHandler handles the dashboard moderation endpoints
type CommentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// requireOwnership checks the comment belongs to one of the caller's
// projects. Writes the error response itself and reports success.
func (h *CommentHandler) requireOwnership(c *gin.Context, commentID string) bool {
	_, ownerID, err := h.services.Comment.OwnerOf(c.Request.Context(), commentID)
	if errors.Is(err, service.ErrCommentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return false
	}
	if err != nil {
		h.log.Error().Err(err).Str("comment_id", commentID).Msg("Failed to resolve comment owner")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comment"})
		return false
	}
	if ownerID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}

// List handles GET /api/comment
// Lists comments for one of the caller's projects, optionally narrowed to
// one page or one approval state.
func (h *CommentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId is required"})
		return
	}
	if _, err := h.services.Project.GetByIDAndOwner(ctx, projectID, userID); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to load project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list comments"})
		return
	}

	pageNum, _ := strconv.Atoi(c.Query("page"))

	var approved *bool
	switch c.Query("approved") {
	case "true":
		v := true
		approved = &v
	case "false":
		v := false
		approved = &v
	}

	wrapper, err := h.services.Comment.List(ctx, projectID, service.ListOptions{
		PageSlug:       c.Query("pageId"),
		Page:           pageNum,
		PageSize:       dashboardPageSize,
		Approved:       approved,
		OwnerID:        userID,
		TimezoneOffset: timezoneOffset(c),
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list comments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": wrapper})
}

// Approve handles POST /api/comment/:id/approve
// Approval from the dashboard counts against the approve_comment quota.
func (h *CommentHandler) Approve(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)
	commentID := c.Param("id")

	if !h.requireOwnership(c, commentID) {
		return
	}

	allowed, err := h.services.Usage.CanPerform(ctx, userID, models.UsageApproveComment)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to check quota")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve comment"})
		return
	}
	if !allowed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "you have reached the monthly approval limit, please upgrade your plan",
		})
		return
	}

	if err := h.services.Comment.Approve(ctx, commentID); err != nil {
		h.log.Error().Err(err).Str("comment_id", commentID).Msg("Failed to approve comment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve comment"})
		return
	}

	if err := h.services.Usage.Increment(ctx, userID, models.UsageApproveComment); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("Approval counter not incremented")
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment approved"})
}

// Reply handles POST /api/comment/:id/reply
func (h *CommentHandler) Reply(c *gin.Context) {
	ctx := c.Request.Context()
	commentID := c.Param("id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	if !h.requireOwnership(c, commentID) {
		return
	}

	reply, err := h.services.Comment.AddModeratorReply(ctx, commentID, req.Content, currentUserID(c))
	if errors.Is(err, service.ErrParentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("comment_id", commentID).Msg("Failed to create reply")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reply"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": reply})
}

// Delete handles DELETE /api/comment/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	commentID := c.Param("id")

	if !h.requireOwnership(c, commentID) {
		return
	}

	if err := h.services.Comment.SoftDelete(ctx, commentID); err != nil {
		h.log.Error().Err(err).Str("comment_id", commentID).Msg("Failed to delete comment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
