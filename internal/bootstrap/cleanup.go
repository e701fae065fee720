package bootstrap

import (
	"context"
	"log"

	"github.com/go-authgate/assetgate/internal/catalog"
	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/metrics"
)

// RunCleanup performs one token sweep and one audit retention pass, then
// exits. Meant for cron in deployments that run several servers.
func RunCleanup(ctx context.Context, cfg *config.Config) error {
	validateAllConfiguration(cfg)

	db, err := initializeDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	auditService, _, tokenService := initializeServices(
		cfg,
		db,
		catalog.NewDatabaseCatalog(db),
		metrics.NewNoopMetrics(),
	)

	sweepExpiredTokens(ctx, tokenService)
	if cfg.EnableAuditLogging && cfg.AuditLogRetention > 0 {
		cleanupAuditLogs(ctx, cfg, auditService)
	}

	if err := auditService.Shutdown(ctx); err != nil {
		return err
	}
	log.Println("Cleanup finished")
	return nil
}
