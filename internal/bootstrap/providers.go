package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-authgate/assetgate/internal/catalog"
	"github.com/go-authgate/assetgate/internal/client"
	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/storage"
	"github.com/go-authgate/assetgate/internal/store"
)

// initializeObjectStore opens the configured object storage backend
func initializeObjectStore(ctx context.Context, cfg *config.Config) (core.ObjectStore, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		log.Printf("Object storage: s3 (bucket=%s, region=%s, delivery=%s)",
			cfg.S3Bucket, cfg.S3Region, cfg.DownloadDelivery)
		return s3Store, nil

	default:
		localStore, err := storage.NewLocalStore(cfg.StorageLocalRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		log.Printf("Object storage: local (root=%s)", localStore.Root())
		return localStore, nil
	}
}

// initializeCatalog resolves assets from the database or an external API,
// behind the asset cache either way.
func initializeCatalog(
	cfg *config.Config,
	db *store.Store,
	assetCache core.Cache[models.Asset],
) (core.AssetCatalog, error) {
	var source core.AssetCatalog

	switch cfg.AssetCatalog {
	case config.AssetCatalogHTTPAPI:
		retryClient, err := client.CreateRetryClient(client.RetryOptions{
			AuthMode:           cfg.AssetAPIAuthMode,
			AuthSecret:         cfg.AssetAPIAuthSecret,
			AuthHeader:         cfg.AssetAPIAuthHeader,
			Timeout:            cfg.AssetAPITimeout,
			InsecureSkipVerify: cfg.AssetAPIInsecureSkipVerify,
			MaxRetries:         cfg.AssetAPIMaxRetries,
			RetryDelay:         cfg.AssetAPIRetryDelay,
			MaxRetryDelay:      cfg.AssetAPIMaxRetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create asset API client: %w", err)
		}
		log.Printf("Asset catalog: http_api (%s)", cfg.AssetAPIURL)
		source = catalog.NewHTTPCatalog(cfg.AssetAPIURL, retryClient)

	default:
		log.Println("Asset catalog: database")
		source = catalog.NewDatabaseCatalog(db)
	}

	if assetCache == nil || cfg.AssetCacheTTL <= 0 {
		return source, nil
	}
	return catalog.NewCachedCatalog(source, assetCache, cfg.AssetCacheTTL), nil
}
