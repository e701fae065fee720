package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-authgate/assetgate/internal/cache"
	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/metrics"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return prometheusMetrics
}

// initializeMetricsCache initializes the gauge cache; nil when gauges are off
func initializeMetricsCache(ctx context.Context, cfg *config.Config) (core.Cache[int64], error) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return nil, nil //nolint:nilnil // gauge cache not needed in this configuration
	}
	return initializeCache[int64](ctx, cfg, "Metrics", "assetgate:metrics:")
}

// initializeCache builds a cache of the configured CACHE_TYPE
func initializeCache[T any](
	ctx context.Context,
	cfg *config.Config,
	name, keyPrefix string,
) (core.Cache[T], error) {
	// Create timeout context for cache initialization
	ctx, cancel := context.WithTimeout(ctx, cfg.CacheInitTimeout)
	defer cancel()

	switch cfg.CacheType {
	case config.CacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[T](
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			keyPrefix,
			cfg.CacheClientTTL,
			cfg.CacheSizePerCon,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis-aside %s cache: %w", name, err)
		}
		if err := c.Health(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("redis-aside %s cache unreachable: %w", name, err)
		}
		log.Printf(
			"%s cache: redis-aside (addr=%s, db=%d, client_ttl=%s, cache_size_per_conn=%dMB)",
			name,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.CacheClientTTL,
			cfg.CacheSizePerCon,
		)
		return c, nil

	case config.CacheTypeRedis:
		c, err := cache.NewRueidisCache[T](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			keyPrefix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis %s cache: %w", name, err)
		}
		log.Printf("%s cache: redis (addr=%s, db=%d)", name, cfg.RedisAddr, cfg.RedisDB)
		return c, nil

	default: // memory
		log.Printf("%s cache: memory (single instance only)", name)
		return cache.NewMemoryCache[T](), nil
	}
}
