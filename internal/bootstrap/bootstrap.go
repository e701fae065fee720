package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/middleware"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/services"
	"github.com/go-authgate/assetgate/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      core.Recorder
	MetricsCache         core.Cache[int64]
	CooldownCache        core.Cache[int64]
	AssetCache           core.Cache[models.Asset]
	RateLimitRedisClient *redis.Client
	ObjectStore          core.ObjectStore
	Catalog              core.AssetCatalog

	// Services
	AuditService *services.DownloadAuditService
	CodeService  *services.AssetCodeService
	TokenService *services.DownloadTokenService
	RateLimiter  *middleware.AssetRateLimiter
	cacheClosers []func() error

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(ctx context.Context, cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	validateAllConfiguration(cfg)

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		app.close()
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		app.close()
		return err
	}

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, caches, Redis and storage
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	// Database
	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)
	app.MetricsCache, err = initializeMetricsCache(ctx, app.Config)
	if err != nil {
		return err
	}
	if app.MetricsCache != nil {
		app.cacheClosers = append(app.cacheClosers, app.MetricsCache.Close)
	}

	// Caches for cooldown markers and asset lookups
	app.CooldownCache, err = initializeCache[int64](ctx, app.Config, "Cooldown", "assetgate:cooldown:")
	if err != nil {
		return err
	}
	app.cacheClosers = append(app.cacheClosers, app.CooldownCache.Close)

	app.AssetCache, err = initializeCache[models.Asset](ctx, app.Config, "Asset", "assetgate:assets:")
	if err != nil {
		return err
	}
	app.cacheClosers = append(app.cacheClosers, app.AssetCache.Close)

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config)
	if err != nil {
		return err
	}

	// Object storage and asset catalog
	app.ObjectStore, err = initializeObjectStore(ctx, app.Config)
	if err != nil {
		return err
	}
	app.Catalog, err = initializeCatalog(app.Config, app.DB, app.AssetCache)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services and the rate limiter
func (app *Application) initializeBusinessLayer() error {
	app.AuditService, app.CodeService, app.TokenService = initializeServices(
		app.Config,
		app.DB,
		app.Catalog,
		app.MetricsRecorder,
	)

	var err error
	app.RateLimiter, err = initializeRateLimiter(
		app.Config,
		app.RateLimitRedisClient,
		app.CooldownCache,
		app.AuditService,
		app.MetricsRecorder,
	)
	return err
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	app.HandlerSet = initializeHandlers(app)
	app.Router = setupRouter(app.Config, app.DB, app.HandlerSet, app.MetricsRecorder, app.RateLimiter)
	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Add jobs
	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Config, app.Server)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient)
	addAuditServiceShutdownJob(m, app.Config, app.AuditService, app.DB)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addTokenCleanupJob(m, app.Config, app.TokenService)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.MetricsCache)
	addCacheCleanupJob(m, app.cacheClosers)

	// Wait for graceful shutdown
	<-m.Done()
}

// close releases whatever was opened before a startup failure
func (app *Application) close() {
	for _, closer := range app.cacheClosers {
		_ = closer()
	}
	if app.RateLimitRedisClient != nil {
		_ = app.RateLimitRedisClient.Close()
	}
	if app.DB != nil {
		_ = app.DB.Close()
	}
}
