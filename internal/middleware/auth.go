package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuthMiddleware protects a route group with a static Bearer token.
// When token is empty the group is open if allowWhenUnset is true and
// closed otherwise.
func BearerAuthMiddleware(realm, token string, allowWhenUnset bool) gin.HandlerFunc {
	challenge := `Bearer realm="` + realm + `"`

	return func(c *gin.Context) {
		if token == "" {
			if allowWhenUnset {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "unavailable",
				"message": realm + " access is not configured",
			})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer token required",
			})
			return
		}

		providedToken := strings.TrimPrefix(authHeader, "Bearer ")

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(providedToken), []byte(token)) != 1 {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid token",
			})
			return
		}

		c.Next()
	}
}

// MetricsAuthMiddleware protects the metrics endpoint; open when no token is configured
func MetricsAuthMiddleware(token string) gin.HandlerFunc {
	return BearerAuthMiddleware("Metrics", token, true)
}

// RequireAdminToken protects the admin API; closed when no token is configured
func RequireAdminToken(token string) gin.HandlerFunc {
	return BearerAuthMiddleware("Admin", token, false)
}
