package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/assetgate/internal/catalog"
	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/metrics"
	"github.com/go-authgate/assetgate/internal/middleware"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/services"
	"github.com/go-authgate/assetgate/internal/storage"
	"github.com/go-authgate/assetgate/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// ─── Test infrastructure ─────────────────────────────────────────────────────

const testClientIP = "192.0.2.1"

type testEnv struct {
	router  *gin.Engine
	store   *store.Store
	config  *config.Config
	codes   *services.AssetCodeService
	tokens  *services.DownloadTokenService
	audit   *services.DownloadAuditService
	objects core.ObjectStore
	root    string
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:             "http://assets.test",
		CodeHashSecret:      "test-code-secret",
		DownloadTokenSecret: "test-token-secret",
		RedownloadWindow:    72 * time.Hour,
		DefaultMaxDownloads: 3,
		MaxCodesPerBatch:    100,
		TokenExpiry:         5 * time.Minute,
		EnableAuditLogging:  true,
		AuditLogBufferSize:  100,
		SuspiciousThreshold: 10,
		SuspiciousWindow:    time.Hour,
		DownloadDelivery:    config.DeliveryStream,
	}
}

// setupTestEnv wires the handlers against SQLite and a temp-dir object
// store. objects replaces the local store when non-nil.
func setupTestEnv(t *testing.T, cfg *config.Config, objects core.ObjectStore) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	root := t.TempDir()
	if objects == nil {
		local, err := storage.NewLocalStore(root)
		require.NoError(t, err)
		objects = local
	}

	m := metrics.NewNoopMetrics()
	assets := catalog.NewDatabaseCatalog(s)
	codeSvc := services.NewAssetCodeService(s, cfg, m)
	tokenSvc := services.NewDownloadTokenService(s, assets, cfg, m)
	auditSvc := services.NewDownloadAuditService(s, cfg, m)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = auditSvc.Shutdown(ctx)
	})

	download := NewDownloadHandler(codeSvc, tokenSvc, auditSvc, assets, objects, cfg, m)
	codesAdmin := NewCodeAdminHandler(codeSvc, auditSvc, assets)
	auditAdmin := NewAuditHandler(auditSvc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Stand-in for the session middleware
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			if id, ok := parseID(uid); ok {
				c.Set(middleware.SessionUserID, id)
			}
		}
		c.Next()
	})
	r.POST("/assets/:id/redeem", download.Redeem)
	r.POST("/assets/:id/download", download.DirectDownload)
	r.GET("/download/:token", download.Download)
	r.GET("/download/:token/status", download.Status)

	admin := r.Group("/admin")
	admin.POST("/assets/:id/codes", codesAdmin.GenerateCodes)
	admin.GET("/assets/:id/codes/export", codesAdmin.ExportCodes)
	admin.DELETE("/assets/:id/codes", codesAdmin.DeleteCodes)
	admin.GET("/audit", auditAdmin.ListAuditLogs)
	admin.GET("/audit/flagged", auditAdmin.ListFlaggedLogs)
	admin.GET("/audit/suspicious-ips", auditAdmin.ListSuspiciousIPs)
	admin.GET("/audit/stats", auditAdmin.GetAuditLogStats)
	admin.GET("/audit/export", auditAdmin.ExportAuditLogs)
	admin.POST("/audit/flag", auditAdmin.FlagIP)

	return &testEnv{
		router:  r,
		store:   s,
		config:  cfg,
		codes:   codeSvc,
		tokens:  tokenSvc,
		audit:   auditSvc,
		objects: objects,
		root:    root,
	}
}

func (e *testEnv) createAsset(t *testing.T, title, key string, free bool) *models.Asset {
	t.Helper()
	asset := &models.Asset{Title: title, StorageKey: key, IsFree: free}
	require.NoError(t, e.store.CreateAsset(context.Background(), asset))
	return asset
}

func (e *testEnv) writeObject(t *testing.T, key, content string) {
	t.Helper()
	full := filepath.Join(e.root, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
}

func (e *testEnv) generateCode(t *testing.T, assetID int64) string {
	t.Helper()
	codes, err := e.codes.GenerateCodes(context.Background(), assetID, 1)
	require.NoError(t, err)
	return codes[0].Code
}

type requestOption func(*http.Request)

func withUser(id string) requestOption {
	return func(r *http.Request) { r.Header.Set("X-Test-User", id) }
}

func withIP(ip string) requestOption {
	return func(r *http.Request) { r.RemoteAddr = ip + ":40000" }
}

func (e *testEnv) do(method, target string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = testClientIP + ":40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// tokenFromURL extracts the token from a download_url
func tokenFromURL(t *testing.T, url string) string {
	t.Helper()
	_, token, ok := strings.Cut(url, "/download/")
	require.True(t, ok, "unexpected download url %q", url)
	return token
}

func flushAudit(t *testing.T, e *testEnv) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.audit.Shutdown(ctx))
}
