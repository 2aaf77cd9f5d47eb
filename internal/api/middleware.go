package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/window-warmer/internal/identity"
	"github.com/jimdaga/window-warmer/internal/throttle"
)

// RequireAuth resolves the request's bearer token through the identity
// collaborator and stores the verified user on the context.
func RequireAuth(ident *identity.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		bearer, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || bearer == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		id, err := ident.Resolve(c.Request.Context(), bearer)
		if err != nil {
			// Never echo collaborator errors to the caller.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		c.Set("user_id", id.UserID)
		c.Set("user_email", id.Email)
		c.Set("bearer", bearer)

		c.Next()
	}
}

// Throttle applies the best-effort per-user request counter. It is coarse
// by design and fails open; it never guards anything security-sensitive.
func Throttle(counter *throttle.Counter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil {
			c.Next()
			return
		}
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}
		if !counter.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
