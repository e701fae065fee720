package middleware

import (
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionUserID = "user_id"
)

// SessionIdentity copies the logged-in user ID from the shared session cookie
// into the gin context. Anonymous requests pass through untouched.
func SessionIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if userID := parseUserID(session.Get(SessionUserID)); userID > 0 {
			c.Set(SessionUserID, userID)
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user ID or 0 for anonymous requests
func GetUserID(c *gin.Context) int64 {
	if v, ok := c.Get(SessionUserID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// The session is written by the content application, so the stored type
// depends on its serializer.
func parseUserID(v any) int64 {
	switch id := v.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case uint:
		return int64(id) //nolint:gosec // user IDs fit in int64
	case float64:
		return int64(id)
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
