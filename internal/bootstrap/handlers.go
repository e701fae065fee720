package bootstrap

import (
	"github.com/go-authgate/assetgate/internal/handlers"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	download  *handlers.DownloadHandler
	codes     *handlers.CodeAdminHandler
	audit     *handlers.AuditHandler
	rateLimit *handlers.RateLimitHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(app *Application) handlerSet {
	// A nil *AssetRateLimiter must stay a nil interface
	var resetter handlers.RateLimitResetter
	if app.RateLimiter != nil {
		resetter = app.RateLimiter
	}

	return handlerSet{
		download: handlers.NewDownloadHandler(
			app.CodeService,
			app.TokenService,
			app.AuditService,
			app.Catalog,
			app.ObjectStore,
			app.Config,
			app.MetricsRecorder,
		),
		codes:     handlers.NewCodeAdminHandler(app.CodeService, app.AuditService, app.Catalog),
		audit:     handlers.NewAuditHandler(app.AuditService),
		rateLimit: handlers.NewRateLimitHandler(resetter),
	}
}
