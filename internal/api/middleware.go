package api

import (
	"net/http"
	"strings"

	"github.com/comment-widget-api/internal/service"
	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// authMiddleware validates the Bearer session token and stores the user
// id on the request context.
func authMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		userID, err := auth.ParseSession(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// currentUserID returns the authenticated user id set by authMiddleware
func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
