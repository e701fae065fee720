package catalog

import (
	"context"
	"errors"

	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/store"
)

var _ core.AssetCatalog = (*DatabaseCatalog)(nil)

// DatabaseCatalog reads assets from the local assets table.
type DatabaseCatalog struct {
	store *store.Store
}

func NewDatabaseCatalog(s *store.Store) *DatabaseCatalog {
	return &DatabaseCatalog{store: s}
}

func (c *DatabaseCatalog) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	asset, err := c.store.GetAsset(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}
