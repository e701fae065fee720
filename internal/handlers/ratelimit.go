package handlers

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateLimitResetter clears the counters and cooldowns of an IP
type RateLimitResetter interface {
	Reset(ctx context.Context, ip string) error
}

type RateLimitHandler struct {
	limiter RateLimitResetter
}

func NewRateLimitHandler(limiter RateLimitResetter) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter}
}

type resetRequest struct {
	IP string `json:"ip" binding:"required"`
}

// Reset lifts a cooldown early, e.g. after support verified a customer
func (h *RateLimitHandler) Reset(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "rate_limit_disabled"})
		return
	}

	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil || net.ParseIP(req.IP) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_ip"})
		return
	}

	if err := h.limiter.Reset(c.Request.Context(), req.IP); err != nil {
		log.Printf("[RateLimit] failed to reset %s: %v", req.IP, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset rate limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ip": req.IP, "reset": true})
}
