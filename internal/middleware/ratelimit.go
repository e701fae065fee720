package middleware

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/services"

	"github.com/gin-gonic/gin"
)

// RateLimitKind names the gated action a limit applies to
type RateLimitKind string

const (
	RateLimitCode     RateLimitKind = "code"
	RateLimitDownload RateLimitKind = "download"
)

const rateLimitKeyPrefix = "asset_rate_limit"

// RateLimitConfig holds the per-kind ceilings shared by every IP
type RateLimitConfig struct {
	Window   time.Duration
	Cooldown time.Duration
	Limits   map[RateLimitKind]int
}

// BlockLogger receives an entry for every request the limiter rejects
type BlockLogger interface {
	Log(ctx context.Context, entry services.AttemptEntry)
}

// AssetRateLimiter bounds code and download attempts per client IP. A client
// that exceeds a ceiling is locked out for the full cooldown, not just until
// the window rolls over.
type AssetRateLimiter struct {
	counter core.CounterStore
	audit   BlockLogger
	metrics core.Recorder
	config  RateLimitConfig
}

// Decision is the outcome of one Check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func NewAssetRateLimiter(
	counter core.CounterStore,
	audit BlockLogger,
	m core.Recorder,
	cfg RateLimitConfig,
) *AssetRateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	return &AssetRateLimiter{
		counter: counter,
		audit:   audit,
		metrics: m,
		config:  cfg,
	}
}

// RateLimitKey returns the counter key for kind and ip
func RateLimitKey(kind RateLimitKind, ip string) string {
	return fmt.Sprintf("%s:%s:%s", rateLimitKeyPrefix, kind, ip)
}

func (l *AssetRateLimiter) limit(kind RateLimitKind) int {
	if n, ok := l.config.Limits[kind]; ok && n > 0 {
		return n
	}
	return 5
}

// Check counts one attempt of kind from ip and decides whether it may proceed.
func (l *AssetRateLimiter) Check(ctx context.Context, kind RateLimitKind, ip string) (Decision, error) {
	key := RateLimitKey(kind, ip)
	ceiling := l.limit(kind)

	remaining, err := l.counter.Cooldown(ctx, key)
	if err != nil {
		return Decision{Allowed: true, Limit: ceiling, Remaining: ceiling}, err
	}
	if remaining > 0 {
		return Decision{Limit: ceiling, RetryAfter: remaining}, nil
	}

	count, err := l.counter.Increment(ctx, key, l.config.Window)
	if err != nil {
		return Decision{Allowed: true, Limit: ceiling, Remaining: ceiling}, err
	}

	if count > int64(ceiling) {
		if err := l.counter.SetCooldown(ctx, key, l.config.Cooldown); err != nil {
			log.Printf("[RateLimit] failed to set cooldown for %s: %v", key, err)
		}
		return Decision{Limit: ceiling, RetryAfter: l.config.Cooldown}, nil
	}

	return Decision{Allowed: true, Limit: ceiling, Remaining: ceiling - int(count)}, nil
}

// Handle returns gin middleware gating requests of kind
func (l *AssetRateLimiter) Handle(kind RateLimitKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		decision, err := l.Check(c.Request.Context(), kind, ip)
		if err != nil {
			// Counter store trouble must not take downloads offline
			log.Printf("[RateLimit] counter store error for %s, allowing request: %v", ip, err)
			c.Next()
			return
		}

		if !decision.Allowed {
			l.metrics.RecordRateLimitBlocked(string(kind))
			l.logBlocked(c, kind, ip, decision)

			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many attempts. Please try again later.",
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Next()
	}
}

// Reset clears counters and cooldowns of every kind for ip
func (l *AssetRateLimiter) Reset(ctx context.Context, ip string) error {
	for _, kind := range []RateLimitKind{RateLimitCode, RateLimitDownload} {
		if err := l.counter.Reset(ctx, RateLimitKey(kind, ip)); err != nil {
			return fmt.Errorf("reset %s limit: %w", kind, err)
		}
	}
	return nil
}

func (l *AssetRateLimiter) logBlocked(c *gin.Context, kind RateLimitKind, ip string, d Decision) {
	if l.audit == nil {
		return
	}

	action := models.ActionCodeAttempt
	if kind == RateLimitDownload {
		action = models.ActionDownloadRequest
	}
	assetID, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	l.audit.Log(c.Request.Context(), services.AttemptEntry{
		AssetID:   assetID,
		UserID:    GetUserID(c),
		IPAddress: ip,
		UserAgent: c.Request.UserAgent(),
		Action:    action,
		Result:    models.ResultBlocked,
		Details: models.AuditDetails{
			"reason":      "rate_limited",
			"kind":        string(kind),
			"retry_after": retryAfterSeconds(d.RetryAfter),
		},
	})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
