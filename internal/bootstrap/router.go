package bootstrap

import (
	"log"
	"net/http"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/metrics"
	"github.com/go-authgate/assetgate/internal/middleware"
	"github.com/go-authgate/assetgate/internal/store"
	"github.com/go-authgate/assetgate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h handlerSet,
	prometheusMetrics core.Recorder,
	limiter *middleware.AssetRateLimiter,
) *gin.Engine {
	// Setup Gin mode
	setupGinMode(cfg)
	r := gin.New()

	// Only listed proxies may supply the client address; every per-IP
	// limit and token binding reads it.
	setupTrustedProxies(r, cfg)

	// Setup middleware
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	// Setup session middleware
	setupSessionMiddleware(r, cfg)

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	// Setup metrics endpoint
	setupMetricsEndpoint(r, cfg)

	// Setup all routes
	setupAllRoutes(r, cfg, h, newRateLimitMiddlewares(limiter))

	// Log server startup info
	logServerStartup(cfg)

	return r
}

// rateLimitMiddlewares holds the per-kind limiter handlers
type rateLimitMiddlewares struct {
	code     gin.HandlerFunc
	download gin.HandlerFunc
}

// newRateLimitMiddlewares returns pass-through handlers when limiting is off
func newRateLimitMiddlewares(limiter *middleware.AssetRateLimiter) rateLimitMiddlewares {
	if limiter == nil {
		noop := func(c *gin.Context) { c.Next() }
		return rateLimitMiddlewares{code: noop, download: noop}
	}
	return rateLimitMiddlewares{
		code:     limiter.Handle(middleware.RateLimitCode),
		download: limiter.Handle(middleware.RateLimitDownload),
	}
}

// setupTrustedProxies restricts which peers may set forwarding headers
func setupTrustedProxies(r *gin.Engine, cfg *config.Config) {
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatalf("Invalid trusted proxies: %v", err)
	}
	if len(cfg.TrustedProxies) == 0 {
		log.Printf("Trusted proxies: none (client IP is the connection address)")
		return
	}
	log.Printf("Trusted proxies: %v", cfg.TrustedProxies)
}

// setupSessionMiddleware configures session handling middleware. The
// session only carries the signed-in user id set by the storefront.
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(cfg.SessionName, sessionStore))
	r.Use(middleware.SessionIdentity())
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	cfg *config.Config,
	h handlerSet,
	rateLimiters rateLimitMiddlewares,
) {
	// Public download routes
	assets := r.Group("/assets")
	{
		assets.POST("/:id/redeem", rateLimiters.code, h.download.Redeem)
		assets.POST("/:id/download", rateLimiters.download, h.download.DirectDownload)
	}

	download := r.Group("/download")
	{
		download.GET("/:token", rateLimiters.download, h.download.Download)
		download.GET("/:token/status", h.download.Status)
	}

	// Admin API (bearer token)
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdminToken(cfg.AdminToken))
	{
		admin.POST("/assets/:id/codes", h.codes.GenerateCodes)
		admin.GET("/assets/:id/codes/export", h.codes.ExportCodes)
		admin.DELETE("/assets/:id/codes", h.codes.DeleteCodes)

		admin.GET("/audit", h.audit.ListAuditLogs)
		admin.GET("/audit/flagged", h.audit.ListFlaggedLogs)
		admin.GET("/audit/suspicious-ips", h.audit.ListSuspiciousIPs)
		admin.POST("/audit/flag", h.audit.FlagIP)
		admin.GET("/audit/stats", h.audit.GetAuditLogStats)
		admin.GET("/audit/export", h.audit.ExportAuditLogs)

		admin.POST("/ratelimit/reset", h.rateLimit.Reset)
	}
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("AssetGate download server starting on %s", cfg.ServerAddr)
	log.Printf("Download links: %s/download/<token>", cfg.BaseURL)
	log.Printf("Storage: %s, delivery: %s, catalog: %s",
		cfg.StorageDriver, cfg.DownloadDelivery, cfg.AssetCatalog)
	if cfg.AdminToken == "" {
		log.Printf("Admin API disabled (ADMIN_TOKEN not set)")
	}
}
