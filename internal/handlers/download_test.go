package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/mocks"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRedeemAndDownload(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Sample Pack", "packs/sample pack.zip", false)
	env.writeObject(t, asset.StorageKey, "zip-bytes")
	code := env.generateCode(t, asset.ID)

	w := env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": code}, withUser("5"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	assert.EqualValues(t, 2, body["downloads_remaining"])
	url, _ := body["download_url"].(string)
	assert.True(t, strings.HasPrefix(url, "http://assets.test/download/"))
	token := tokenFromURL(t, url)

	w = env.do(http.MethodGet, "/download/"+token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "zip-bytes", w.Body.String())
	assert.Equal(t, "no-store, no-cache, must-revalidate, private", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
	assert.Equal(t, `attachment; filename="sample pack.zip"`, w.Header().Get("Content-Disposition"))

	// Tokens are single use
	w = env.do(http.MethodGet, "/download/"+token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found", decodeJSON(t, w)["message"])

	w = env.do(http.MethodGet, "/download/"+token+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["consumed"])

	flushAudit(t, env)
	logs, _, err := env.store.GetAuditLogsPaginated(context.Background(), store.NewPaginationParams(1, 50),
		store.AuditLogFilters{Action: models.ActionDownloadComplete})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, int64(5), *logs[0].UserID)
}

func TestDownload_NonASCIIFilename(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Résumé", "docs/résumé.pdf", true)
	env.writeObject(t, asset.StorageKey, "pdf-bytes")

	w := env.do(http.MethodPost, "/assets/1/download", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := tokenFromURL(t, decodeJSON(t, w)["download_url"].(string))

	w = env.do(http.MethodGet, "/download/"+token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t,
		`attachment; filename="r_sum_.pdf"; filename*=UTF-8''r%C3%A9sum%C3%A9.pdf`,
		w.Header().Get("Content-Disposition"))
}

func TestRedeem_UniformFailures(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Pack", "pack.zip", false)
	code := env.generateCode(t, asset.ID)
	env.createAsset(t, "Other", "other.zip", false)

	tests := []struct {
		name   string
		target string
		body   any
	}{
		{"unknown code", "/assets/1/redeem", map[string]string{"code": "DL001-00000000-00"}},
		{"wrong asset", "/assets/2/redeem", map[string]string{"code": code}},
		{"garbage", "/assets/1/redeem", map[string]string{"code": "hello"}},
		{"empty body", "/assets/1/redeem", nil},
		{"bad asset id", "/assets/abc/redeem", map[string]string{"code": code}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]any{"message": "Invalid or expired code"}, decodeJSON(t, w))
		})
	}

	logs, page, err := env.audit.GetLogs(context.Background(), store.NewPaginationParams(1, 50),
		store.AuditLogFilters{Result: models.ResultFailed})
	require.NoError(t, err)
	assert.Equal(t, int64(len(tests)), page.Total)
	for _, l := range logs {
		if c, ok := l.Details["code"].(string); ok {
			assert.True(t, strings.HasSuffix(c, "****"), "code must be masked, got %q", c)
		}
	}
}

func TestRedeem_ExhaustedCodeLooksUnknown(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Pack", "pack.zip", false)
	code := env.generateCode(t, asset.ID)

	for i := range 3 {
		w := env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": code}, withUser("5"))
		require.Equal(t, http.StatusOK, w.Code, "redemption %d", i+1)
		assert.EqualValues(t, 2-i, decodeJSON(t, w)["downloads_remaining"])
	}

	exhausted := env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": code}, withUser("5"))
	unknown := env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": "DL001-00000000-00"})
	assert.Equal(t, unknown.Code, exhausted.Code)
	assert.Equal(t, unknown.Body.String(), exhausted.Body.String())
}

func TestDownload_Rejections(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Pack", "pack.zip", true)
	env.writeObject(t, asset.StorageKey, "data")

	token, err := env.tokens.GenerateToken(context.Background(), asset.ID, 0, testClientIP)
	require.NoError(t, err)

	t.Run("other ip", func(t *testing.T) {
		w := env.do(http.MethodGet, "/download/"+token, nil, withIP("198.51.100.9"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := env.do(http.MethodGet, "/download/not-a-token", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "File not found", decodeJSON(t, w)["message"])
	})

	t.Run("unknown status", func(t *testing.T) {
		w := env.do(http.MethodGet, "/download/not-a-token/status", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	// Rejections above must not have burnt the token
	w := env.do(http.MethodGet, "/download/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDownload_UnsafeStorageKey(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Escape", "../../etc/passwd", true)

	token, err := env.tokens.GenerateToken(context.Background(), asset.ID, 0, testClientIP)
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/download/"+token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	logs, _, err := env.audit.GetLogs(context.Background(), store.NewPaginationParams(1, 10),
		store.AuditLogFilters{Action: models.ActionDownloadRequest})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "unsafe_storage_key", logs[0].Details["reason"])
}

func TestDownload_MissingObjectKeepsToken(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Missing", "missing.zip", true)

	token, err := env.tokens.GenerateToken(context.Background(), asset.ID, 0, testClientIP)
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/download/"+token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/download/"+token+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeJSON(t, w)["consumed"])

	// Once the file shows up the same token works
	env.writeObject(t, asset.StorageKey, "late")
	w = env.do(http.MethodGet, "/download/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "late", w.Body.String())
}

type presigningStore struct {
	*mocks.MockObjectStore
	*mocks.MockPresigner
}

func TestDownload_RedirectDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	objects := &presigningStore{
		MockObjectStore: mocks.NewMockObjectStore(ctrl),
		MockPresigner:   mocks.NewMockPresigner(ctrl),
	}

	cfg := testConfig()
	cfg.DownloadDelivery = config.DeliveryRedirect
	env := setupTestEnv(t, cfg, objects)
	asset := env.createAsset(t, "Remote", "remote/pack.zip", true)

	objects.MockObjectStore.EXPECT().Exists(gomock.Any(), "remote/pack.zip").Return(true, nil)
	objects.MockPresigner.EXPECT().
		PresignGet(gomock.Any(), "remote/pack.zip", "pack.zip", time.Minute).
		Return("https://bucket.example/remote/pack.zip?X-Amz-Signature=abc", nil)

	token, err := env.tokens.GenerateToken(context.Background(), asset.ID, 0, testClientIP)
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/download/"+token, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://bucket.example/remote/pack.zip?X-Amz-Signature=abc", w.Header().Get("Location"))
	assert.Equal(t, "no-store, no-cache, must-revalidate, private", w.Header().Get("Cache-Control"))

	consumed, err := env.tokens.IsTokenConsumed(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, consumed)
}

func TestDownload_RedirectStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	objects := &presigningStore{
		MockObjectStore: mocks.NewMockObjectStore(ctrl),
		MockPresigner:   mocks.NewMockPresigner(ctrl),
	}

	cfg := testConfig()
	cfg.DownloadDelivery = config.DeliveryRedirect
	env := setupTestEnv(t, cfg, objects)
	asset := env.createAsset(t, "Remote", "remote/pack.zip", true)

	objects.MockObjectStore.EXPECT().Exists(gomock.Any(), gomock.Any()).
		Return(false, errors.New("connection reset"))

	token, err := env.tokens.GenerateToken(context.Background(), asset.ID, 0, testClientIP)
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/download/"+token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found", decodeJSON(t, w)["message"])
}

func TestDirectDownload(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	free := env.createAsset(t, "Free", "free.zip", true)
	paid := env.createAsset(t, "Paid", "paid.zip", false)
	require.Equal(t, int64(1), free.ID)
	require.Equal(t, int64(2), paid.ID)

	t.Run("free asset needs no code", func(t *testing.T) {
		w := env.do(http.MethodPost, "/assets/1/download", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decodeJSON(t, w)["download_url"], "/download/")
	})

	t.Run("paid asset anonymous", func(t *testing.T) {
		w := env.do(http.MethodPost, "/assets/2/download", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Redemption code required", decodeJSON(t, w)["message"])
	})

	t.Run("unknown asset", func(t *testing.T) {
		w := env.do(http.MethodPost, "/assets/99/download", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("redeemer spends remaining downloads", func(t *testing.T) {
		code := env.generateCode(t, paid.ID)
		w := env.do(http.MethodPost, "/assets/2/redeem", map[string]string{"code": code}, withUser("8"))
		require.Equal(t, http.StatusOK, w.Code)

		for i := range 2 {
			w = env.do(http.MethodPost, "/assets/2/download", nil, withUser("8"))
			require.Equal(t, http.StatusOK, w.Code, "re-download %d", i+1)
		}

		w = env.do(http.MethodPost, "/assets/2/download", nil, withUser("8"))
		assert.Equal(t, http.StatusForbidden, w.Code)

		// A different user holds no redemption
		w = env.do(http.MethodPost, "/assets/2/download", nil, withUser("9"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

// breakTokenStore makes token issuance fail until the returned func restores it
func breakTokenStore(t *testing.T, env *testEnv) func() {
	t.Helper()
	require.NoError(t, env.store.DB().Migrator().DropTable(&models.DownloadToken{}))
	return func() {
		require.NoError(t, env.store.DB().AutoMigrate(&models.DownloadToken{}))
	}
}

func TestRedeem_TokenFailureRefundsUnit(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Pack", "pack.zip", false)
	code := env.generateCode(t, asset.ID)

	restore := breakTokenStore(t, env)
	w := env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": code}, withUser("5"))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Download temporarily unavailable", decodeJSON(t, w)["message"])

	codes, err := env.store.ListCodesByAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, 0, codes[0].DownloadCount)
	restore()

	// All three downloads are still available to the redeemer
	for i := range 3 {
		w = env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": code}, withUser("5"))
		require.Equal(t, http.StatusOK, w.Code, "redemption %d", i+1)
		assert.EqualValues(t, 2-i, decodeJSON(t, w)["downloads_remaining"])
	}
	w = env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": code}, withUser("5"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectDownload_TokenFailureRefundsUnit(t *testing.T) {
	env := setupTestEnv(t, testConfig(), nil)
	asset := env.createAsset(t, "Pack", "pack.zip", false)
	code := env.generateCode(t, asset.ID)

	w := env.do(http.MethodPost, "/assets/1/redeem", map[string]string{"code": code}, withUser("8"))
	require.Equal(t, http.StatusOK, w.Code)

	restore := breakTokenStore(t, env)
	w = env.do(http.MethodPost, "/assets/1/download", nil, withUser("8"))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	restore()

	codes, err := env.store.ListCodesByAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, 1, codes[0].DownloadCount)

	for i := range 2 {
		w = env.do(http.MethodPost, "/assets/1/download", nil, withUser("8"))
		require.Equal(t, http.StatusOK, w.Code, "re-download %d", i+1)
	}
	w = env.do(http.MethodPost, "/assets/1/download", nil, withUser("8"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
