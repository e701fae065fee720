package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-authgate/assetgate/internal/cache"
	"github.com/go-authgate/assetgate/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCacheWrapper_CacheHit(t *testing.T) {
	ctx := context.Background()
	memCache := cache.NewMemoryCache[int64]()
	ctrl := gomock.NewController(t)
	// No expectations: any store call fails the test
	mockStore := mocks.NewMockMetricsStore(ctrl)

	wrapper := NewCacheWrapper(mockStore, memCache)
	require.NoError(t, memCache.Set(ctx, "tokens:active", 42, time.Minute))

	count, err := wrapper.GetActiveTokensCount(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestCacheWrapper_CacheMiss(t *testing.T) {
	ctx := context.Background()
	memCache := cache.NewMemoryCache[int64]()
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockMetricsStore(ctrl)
	mockStore.EXPECT().CountUnusedCodes(gomock.Any()).Return(int64(100), nil).Times(1)

	wrapper := NewCacheWrapper(mockStore, memCache)

	count, err := wrapper.GetUnusedCodesCount(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)

	// Second call is served from cache
	count, err = wrapper.GetUnusedCodesCount(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)
}

func TestCacheWrapper_DBError(t *testing.T) {
	ctx := context.Background()
	memCache := cache.NewMemoryCache[int64]()
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockMetricsStore(ctrl)
	dbErr := errors.New("connection refused")
	mockStore.EXPECT().CountActiveDownloadTokens(gomock.Any()).Return(int64(0), dbErr)

	wrapper := NewCacheWrapper(mockStore, memCache)

	_, err := wrapper.GetActiveTokensCount(ctx, time.Minute)
	assert.ErrorIs(t, err, dbErr)

	_, err = memCache.Get(ctx, "tokens:active")
	assert.ErrorIs(t, err, cache.ErrCacheMiss, "errors are not cached")
}

func TestCacheWrapper_UpdateGauges(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockMetricsStore(ctrl)
	rec := mocks.NewMockRecorder(ctrl)

	mockStore.EXPECT().CountActiveDownloadTokens(gomock.Any()).Return(int64(7), nil)
	mockStore.EXPECT().CountUnusedCodes(gomock.Any()).Return(int64(0), errors.New("timeout"))
	rec.EXPECT().SetActiveTokensCount(7)
	rec.EXPECT().RecordDatabaseQueryError("count_unused_codes")

	wrapper := NewCacheWrapper(mockStore, cache.NewMemoryCache[int64]())
	wrapper.UpdateGauges(ctx, rec, time.Minute)
}
