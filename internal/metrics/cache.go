package metrics

import (
	"context"
	"time"

	"github.com/go-authgate/assetgate/internal/core"
)

// CacheWrapper provides a read-through cache for gauge values so that
// several instances do not all hit the database on every refresh.
type CacheWrapper struct {
	store core.MetricsStore
	cache core.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store core.MetricsStore, cache core.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{store: store, cache: cache}
}

// GetActiveTokensCount returns the number of redeemable download tokens.
func (m *CacheWrapper) GetActiveTokensCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return m.cache.GetWithFetch(ctx, "tokens:active", ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return m.store.CountActiveDownloadTokens(ctx)
		},
	)
}

// GetUnusedCodesCount returns the number of codes never redeemed.
func (m *CacheWrapper) GetUnusedCodesCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return m.cache.GetWithFetch(ctx, "codes:unused", ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return m.store.CountUnusedCodes(ctx)
		},
	)
}

// UpdateGauges refreshes every gauge from the cached counts. Query
// failures are counted and leave the previous gauge value in place.
func (m *CacheWrapper) UpdateGauges(ctx context.Context, rec core.Recorder, ttl time.Duration) {
	if n, err := m.GetActiveTokensCount(ctx, ttl); err != nil {
		rec.RecordDatabaseQueryError("count_active_tokens")
	} else {
		rec.SetActiveTokensCount(int(n))
	}

	if n, err := m.GetUnusedCodesCount(ctx, ttl); err != nil {
		rec.RecordDatabaseQueryError("count_unused_codes")
	} else {
		rec.SetUnusedCodesCount(int(n))
	}
}
