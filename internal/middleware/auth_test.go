package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const (
	testToken = "test-secret-token-123"
)

func newBearerRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		mw         gin.HandlerFunc
		header     string
		wantStatus int
		wantBody   string
	}{
		{"metrics open when unset", MetricsAuthMiddleware(""), "", http.StatusOK, "ok"},
		{"admin closed when unset", RequireAdminToken(""), "Bearer anything", http.StatusServiceUnavailable, "not configured"},
		{"valid token", RequireAdminToken(testToken), "Bearer " + testToken, http.StatusOK, "ok"},
		{"missing header", RequireAdminToken(testToken), "", http.StatusUnauthorized, "Bearer token required"},
		{"wrong scheme", RequireAdminToken(testToken), "Basic " + testToken, http.StatusUnauthorized, "Bearer token required"},
		{"wrong token", MetricsAuthMiddleware(testToken), "Bearer nope", http.StatusUnauthorized, "Invalid token"},
		{"case sensitive", RequireAdminToken(testToken), "Bearer TEST-SECRET-TOKEN-123", http.StatusUnauthorized, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newBearerRouter(tt.mw)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer realm=")
			}
		})
	}
}
