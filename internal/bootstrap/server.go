package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/metrics"
	"github.com/go-authgate/assetgate/internal/services"
	"github.com/go-authgate/assetgate/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
)

// createHTTPServer creates the HTTP server instance. WriteTimeout bounds a
// whole streamed download.
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, cfg *config.Config, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		log.Println("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
			return err
		}
		log.Println("Redis connection closed")
		return nil
	})
}

// addAuditServiceShutdownJob flushes buffered audit entries, then closes
// the database they are written to.
func addAuditServiceShutdownJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.DownloadAuditService,
	db *store.Store,
) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AuditShutdownTimeout)
		defer cancel()

		flushErr := auditService.Shutdown(ctx)
		if flushErr != nil {
			log.Printf("Error shutting down audit service: %v", flushErr)
		}

		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
			return err
		}
		log.Println("Database connection closed")
		return flushErr
	})
}

// retentionDays converts the retention period to whole days, at least one
func retentionDays(retention time.Duration) int {
	days := int(retention / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

// cleanupAuditLogs runs one retention pass
func cleanupAuditLogs(
	ctx context.Context,
	cfg *config.Config,
	auditService *services.DownloadAuditService,
) {
	deleted, err := auditService.CleanupOldLogs(ctx, retentionDays(cfg.AuditLogRetention))
	if err != nil {
		log.Printf("Failed to cleanup old audit logs: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Cleaned up %d old audit logs", deleted)
	}
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.DownloadAuditService,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		// Run cleanup immediately on startup
		cleanupAuditLogs(ctx, cfg, auditService)

		for {
			select {
			case <-ticker.C:
				cleanupAuditLogs(ctx, cfg, auditService)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// sweepExpiredTokens removes download tokens past their expiry
func sweepExpiredTokens(ctx context.Context, tokenService *services.DownloadTokenService) {
	deleted, err := tokenService.CleanupExpiredTokens(ctx)
	if err != nil {
		log.Printf("Failed to cleanup expired download tokens: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Cleaned up %d expired download tokens", deleted)
	}
}

// addTokenCleanupJob adds the periodic download token sweep
func addTokenCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	tokenService *services.DownloadTokenService,
) {
	if cfg.TokenCleanupInterval <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.TokenCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sweepExpiredTokens(ctx, tokenService)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	prometheusMetrics core.Recorder,
	metricsCache core.Cache[int64],
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled || metricsCache == nil {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		// Create cache wrapper
		cacheWrapper := metrics.NewCacheWrapper(db, metricsCache)

		// Update immediately on startup
		cacheWrapper.UpdateGauges(ctx, prometheusMetrics, cfg.MetricsGaugeUpdateInterval)

		for {
			select {
			case <-ticker.C:
				cacheWrapper.UpdateGauges(ctx, prometheusMetrics, cfg.MetricsGaugeUpdateInterval)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addCacheCleanupJob closes every cache on shutdown
func addCacheCleanupJob(m *graceful.Manager, closers []func() error) {
	if len(closers) == 0 {
		return
	}

	m.AddShutdownJob(func() error {
		for _, closer := range closers {
			if err := closer(); err != nil {
				log.Printf("Error closing cache: %v", err)
			}
		}
		log.Println("Caches closed")
		return nil
	})
}
