package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"converse-service/internal/models"
)

// SessionVerifier resolves a session token to the authenticated user.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (models.UserRef, error)
}

// AuthMiddleware validates the Authorization header against the identity
// provider and stores the caller's identity on the request context.
func AuthMiddleware(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		user, err := verifier.VerifySession(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.UserRef, bool) {
	val, ok := c.Get("user")
	if !ok {
		return models.UserRef{}, false
	}
	user, ok := val.(models.UserRef)
	return user, ok
}
