package bootstrap

import (
	"log"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/middleware"
	"github.com/go-authgate/assetgate/internal/ratelimit"
	"github.com/go-authgate/assetgate/internal/services"

	"github.com/redis/go-redis/v9"
)

// initializeRateLimiter builds the per-IP limiter. Returns nil when rate
// limiting is disabled.
func initializeRateLimiter(
	cfg *config.Config,
	redisClient *redis.Client,
	cooldowns core.Cache[int64],
	auditService *services.DownloadAuditService,
	m core.Recorder,
) (*middleware.AssetRateLimiter, error) {
	if !cfg.EnableRateLimit {
		log.Println("Rate limiting disabled")
		return nil, nil //nolint:nilnil // limiter not needed in this configuration
	}

	var counter core.CounterStore
	switch {
	case cfg.RateLimitStore == config.RateLimitStoreRedis && redisClient != nil:
		redisCounter, err := ratelimit.NewRedisCounterStore(redisClient, cooldowns, cfg.RateLimitWindow)
		if err != nil {
			return nil, err
		}
		counter = redisCounter
		log.Printf("Rate limiting enabled (store: redis, window: %s)", cfg.RateLimitWindow)
	default:
		counter = ratelimit.NewMemoryCounterStore(cooldowns, cfg.RateLimitWindow)
		log.Printf("Rate limiting enabled (store: memory, window: %s, single instance only)", cfg.RateLimitWindow)
	}

	return middleware.NewAssetRateLimiter(counter, auditService, m, middleware.RateLimitConfig{
		Window:   cfg.RateLimitWindow,
		Cooldown: cfg.RateLimitCooldown,
		Limits: map[middleware.RateLimitKind]int{
			middleware.RateLimitCode:     cfg.CodeRateLimit,
			middleware.RateLimitDownload: cfg.DownloadRateLimit,
		},
	}), nil
}
