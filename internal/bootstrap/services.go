package bootstrap

import (
	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/services"
	"github.com/go-authgate/assetgate/internal/store"
)

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	assets core.AssetCatalog,
	prometheusMetrics core.Recorder,
) (*services.DownloadAuditService, *services.AssetCodeService, *services.DownloadTokenService) {
	auditService := services.NewDownloadAuditService(db, cfg, prometheusMetrics)
	codeService := services.NewAssetCodeService(db, cfg, prometheusMetrics)
	tokenService := services.NewDownloadTokenService(db, assets, cfg, prometheusMetrics)

	return auditService, codeService, tokenService
}
