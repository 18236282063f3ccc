package api

import (
	"errors"
	"net/http"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ProjectHandler handles the dashboard project endpoints
type ProjectHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(services *service.Services, log zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		services: services,
		log:      log.With().Str("handler", "project").Logger(),
	}
}

// respondProjectError maps the common project error cases
func (h *ProjectHandler) respondProjectError(c *gin.Context, err error, action string) {
	if errors.Is(err, service.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if errors.Is(err, service.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	h.log.Error().Err(err).Msg("Failed to " + action)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.services.Project.ListByOwner(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondProjectError(c, err, "list projects")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": projects})
}

// Create handles POST /api/projects
// Site creation is quota limited for free-tier owners.
func (h *ProjectHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	allowed, err := h.services.Usage.CanPerform(ctx, userID, models.UsageCreateSite)
	if err != nil {
		h.respondProjectError(c, err, "create project")
		return
	}
	if !allowed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "you have reached the site limit, please upgrade your plan",
		})
		return
	}

	project, err := h.services.Project.Create(ctx, req.Title, userID)
	if err != nil {
		h.respondProjectError(c, err, "create project")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": project})
}

// Get handles GET /api/project/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.services.Project.GetByIDAndOwner(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.respondProjectError(c, err, "load project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": project})
}

// Update handles PUT /api/project/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var updates models.ProjectUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	project, err := h.services.Project.Update(c.Request.Context(), c.Param("id"), currentUserID(c), &updates)
	if err != nil {
		h.respondProjectError(c, err, "update project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": project})
}

// Delete handles DELETE /api/project/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.services.Project.Delete(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		h.respondProjectError(c, err, "delete project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// RegenerateToken handles POST /api/project/:id/token
func (h *ProjectHandler) RegenerateToken(c *gin.Context) {
	project, err := h.services.Project.RegenerateToken(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.respondProjectError(c, err, "rotate project token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": project})
}
