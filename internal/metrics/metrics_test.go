package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	m := Init(true)
	require.NotNil(t, m)

	metrics, ok := m.(*Metrics)
	require.True(t, ok, "Init(true) should return *Metrics")
	assert.NotNil(t, metrics.CodesGeneratedTotal)
	assert.NotNil(t, metrics.TokensIssuedTotal)
	assert.NotNil(t, metrics.RateLimitBlockedTotal)
	assert.NotNil(t, metrics.HTTPRequestsTotal)

	assert.Same(t, metrics, Init(true), "collectors are registered once")
}

func TestInitNoop(t *testing.T) {
	m := Init(false)
	_, ok := m.(*NoopMetrics)
	assert.True(t, ok, "Init(false) should return *NoopMetrics")

	// Must not panic
	m.RecordCodesGenerated(3)
	m.RecordDownload("stream", true, 10)
}

func TestRecordCodeLifecycle(t *testing.T) {
	m := Init(true).(*Metrics)
	m.SetUnusedCodesCount(0)

	m.RecordCodesGenerated(5)
	assert.InDelta(t, 5, testutil.ToFloat64(m.CodesUnused), 0)

	before := testutil.ToFloat64(m.CodeRedemptionsTotal.WithLabelValues("first_use"))
	m.RecordCodeRedemption("first_use", 20*time.Millisecond)
	assert.InDelta(t, before+1, testutil.ToFloat64(m.CodeRedemptionsTotal.WithLabelValues("first_use")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.CodesUnused), 0)

	m.RecordCodeRedemption("rejected", time.Millisecond)
	assert.InDelta(t, 4, testutil.ToFloat64(m.CodesUnused), 0, "rejections leave the gauge alone")
}

func TestRecordTokenLifecycle(t *testing.T) {
	m := Init(true).(*Metrics)
	m.SetActiveTokensCount(0)

	m.RecordTokenIssued("redeem")
	m.RecordTokenIssued("direct")
	assert.InDelta(t, 2, testutil.ToFloat64(m.TokensActive), 0)

	m.RecordTokenConsumed(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokensActive), 0)

	replays := testutil.ToFloat64(m.TokensConsumedTotal.WithLabelValues("replay"))
	m.RecordTokenConsumed(false)
	assert.InDelta(t, replays+1, testutil.ToFloat64(m.TokensConsumedTotal.WithLabelValues("replay")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokensActive), 0)
}

func TestRecordDownloadAndAbuse(t *testing.T) {
	m := Init(true).(*Metrics)

	bytesBefore := testutil.ToFloat64(m.DownloadBytesTotal)
	m.RecordDownload("stream", true, 1024)
	m.RecordDownload("redirect", false, 0)
	assert.InDelta(t, bytesBefore+1024, testutil.ToFloat64(m.DownloadBytesTotal), 0)

	blocked := testutil.ToFloat64(m.RateLimitBlockedTotal.WithLabelValues("code"))
	m.RecordRateLimitBlocked("code")
	assert.InDelta(t, blocked+1, testutil.ToFloat64(m.RateLimitBlockedTotal.WithLabelValues("code")), 0)

	m.RecordSuspiciousAttempt("code_attempt")
	m.RecordTokenValidation("invalid")
	m.RecordDatabaseQueryError("count_unused_codes")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := Init(true).(*Metrics)

	r := gin.New()
	r.Use(HTTPMetricsMiddleware(m))
	r.GET("/download/:token", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/download/:token", "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/secret-token", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	after := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/download/:token", "404"))
	assert.InDelta(t, before+1, after, 0, "requests are labelled by route pattern")
}

func TestHTTPMetricsMiddleware_Noop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware(NewNoopMetrics()))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
