package core

import (
	"context"

	"github.com/go-authgate/assetgate/internal/models"
)

// AssetCatalog resolves asset IDs to their metadata
type AssetCatalog interface {
	GetAsset(ctx context.Context, id int64) (*models.Asset, error)
}
