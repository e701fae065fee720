package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-authgate/assetgate/internal/cache"
	"github.com/go-authgate/assetgate/internal/client"
	"github.com/go-authgate/assetgate/internal/mocks"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestHTTPCatalog(t *testing.T, url string, authMode, secret string) *HTTPCatalog {
	t.Helper()
	rc, err := client.CreateRetryClient(client.RetryOptions{
		AuthMode:   authMode,
		AuthSecret: secret,
		AuthHeader: "X-API-Secret",
		Timeout:    5 * time.Second,
		MaxRetries: 0, // predictable test behavior
	})
	require.NoError(t, err)
	return NewHTTPCatalog(url, rc)
}

func TestHTTPCatalog_GetAsset_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assets/42", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "s3cret", r.Header.Get("X-API-Secret"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(APIAssetResponse{
			ID:         42,
			Title:      "Workbook",
			StorageKey: "courses/42/workbook.pdf",
			Filename:   "Workbook.pdf",
		})
	}))
	defer server.Close()

	c := newTestHTTPCatalog(t, server.URL, "simple", "s3cret")
	asset, err := c.GetAsset(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), asset.ID)
	assert.Equal(t, "courses/42/workbook.pdf", asset.StorageKey)
	assert.Equal(t, "Workbook.pdf", asset.DownloadName())
	assert.False(t, asset.IsFree)
}

func TestHTTPCatalog_GetAsset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"message":"nope"}`, wantErr: ErrAssetNotFound},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: ErrCatalogUnavailable},
		{name: "bad json", status: http.StatusOK, body: "not-json", wantErr: ErrInvalidResponse},
		{name: "id mismatch", status: http.StatusOK, body: `{"id":7,"storage_key":"a.pdf"}`, wantErr: ErrInvalidResponse},
		{name: "missing key", status: http.StatusOK, body: `{"id":42}`, wantErr: ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestHTTPCatalog(t, server.URL, "none", "")
			_, err := c.GetAsset(context.Background(), 42)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDatabaseCatalog(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer s.Close()

	asset := &models.Asset{Title: "Guide", StorageKey: "guide.pdf", IsFree: true}
	require.NoError(t, s.CreateAsset(ctx, asset))

	c := NewDatabaseCatalog(s)
	got, err := c.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "guide.pdf", got.StorageKey)

	_, err = c.GetAsset(ctx, asset.ID+1)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestCachedCatalog_FetchesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockAssetCatalog(ctrl)
	upstream.EXPECT().
		GetAsset(gomock.Any(), int64(5)).
		Return(&models.Asset{ID: 5, StorageKey: "five.zip"}, nil).
		Times(1)

	c := NewCachedCatalog(upstream, cache.NewMemoryCache[models.Asset](), time.Minute)
	for range 3 {
		got, err := c.GetAsset(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, "five.zip", got.StorageKey)
	}
}

func TestCachedCatalog_DoesNotCacheErrors(t *testing.T) {
	var calls atomic.Int32
	upstream := catalogFunc(func(ctx context.Context, id int64) (*models.Asset, error) {
		if calls.Add(1) == 1 {
			return nil, ErrAssetNotFound
		}
		return &models.Asset{ID: id, StorageKey: "late.zip"}, nil
	})

	c := NewCachedCatalog(upstream, cache.NewMemoryCache[models.Asset](), time.Minute)
	_, err := c.GetAsset(context.Background(), 9)
	assert.True(t, errors.Is(err, ErrAssetNotFound))

	got, err := c.GetAsset(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "late.zip", got.StorageKey)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedCatalog_Invalidate(t *testing.T) {
	var calls atomic.Int32
	upstream := catalogFunc(func(ctx context.Context, id int64) (*models.Asset, error) {
		calls.Add(1)
		return &models.Asset{ID: id, StorageKey: "x.zip"}, nil
	})

	c := NewCachedCatalog(upstream, cache.NewMemoryCache[models.Asset](), time.Minute)
	_, err := c.GetAsset(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(context.Background(), 1))
	_, err = c.GetAsset(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

type catalogFunc func(ctx context.Context, id int64) (*models.Asset, error)

func (f catalogFunc) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	return f(ctx, id)
}
