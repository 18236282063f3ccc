package api

import (
	"net/http"
	"time"

	"github.com/comment-widget-api/internal/config"
	"github.com/comment-widget-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	openHandler := NewOpenHandler(services, log)
	authHandler := NewAuthHandler(services, log)
	commentHandler := NewCommentHandler(services, log)
	projectHandler := NewProjectHandler(services, log)
	userHandler := NewUserHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)

	api := router.Group("/api")
	{
		// Open endpoints reached by the embedded widget and email links
		open := api.Group("/open")
		{
			open.GET("/comments", openHandler.GetComments)
			open.POST("/comments", openHandler.PostComment)
			open.GET("/approve", openHandler.ApproveByToken)
			open.POST("/approve", openHandler.QuickApprove)
			open.GET("/approve/comment", openHandler.GetApprovalView)
			open.GET("/unsubscribe", openHandler.Unsubscribe)
			open.GET("/confirm", openHandler.ConfirmNotify)
			open.GET("/project/:projectId/comments/count", openHandler.CountComments)
			open.GET("/project/:projectId/comments/latest", openHandler.LatestComments)
		}

		// Auth endpoints
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Dashboard endpoints require a session token
		dashboard := api.Group("")
		dashboard.Use(authMiddleware(services.Auth))
		{
			dashboard.GET("/comment", commentHandler.List)
			dashboard.POST("/comment/:id/approve", commentHandler.Approve)
			dashboard.POST("/comment/:id/reply", commentHandler.Reply)
			dashboard.DELETE("/comment/:id", commentHandler.Delete)

			dashboard.GET("/projects", projectHandler.List)
			dashboard.POST("/projects", projectHandler.Create)
			dashboard.GET("/project/:id", projectHandler.Get)
			dashboard.PUT("/project/:id", projectHandler.Update)
			dashboard.DELETE("/project/:id", projectHandler.Delete)
			dashboard.POST("/project/:id/token", projectHandler.RegenerateToken)

			dashboard.GET("/user", userHandler.Get)
			dashboard.PUT("/user", userHandler.Update)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "comment-widget-api",
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS. The widget is embedded on arbitrary sites,
// so open endpoints must answer cross-origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Timezone-Offset")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
