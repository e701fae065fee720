package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
)

var _ core.AssetCatalog = (*CachedCatalog)(nil)

const assetCacheKeyPrefix = "asset:"

// CachedCatalog wraps another catalog with cache-aside lookups.
// Misses and upstream errors are never cached.
type CachedCatalog struct {
	next  core.AssetCatalog
	cache core.Cache[models.Asset]
	ttl   time.Duration
}

func NewCachedCatalog(
	next core.AssetCatalog,
	cache core.Cache[models.Asset],
	ttl time.Duration,
) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache, ttl: ttl}
}

func cacheKey(id int64) string {
	return assetCacheKeyPrefix + strconv.FormatInt(id, 10)
}

func (c *CachedCatalog) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	asset, err := c.cache.GetWithFetch(
		ctx,
		cacheKey(id),
		c.ttl,
		func(ctx context.Context, _ string) (models.Asset, error) {
			a, err := c.next.GetAsset(ctx, id)
			if err != nil {
				return models.Asset{}, err
			}
			return *a, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// Invalidate drops the cached entry for id.
func (c *CachedCatalog) Invalidate(ctx context.Context, id int64) error {
	if err := c.cache.Delete(ctx, cacheKey(id)); err != nil {
		return fmt.Errorf("invalidate asset %d: %w", id, err)
	}
	return nil
}
