package metrics

import (
	"sync"

	"github.com/go-authgate/assetgate/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements core.Recorder at compile time
var _ core.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Redemption code metrics
	CodesGeneratedTotal    prometheus.Counter
	CodeRedemptionsTotal   *prometheus.CounterVec
	CodeRedemptionDuration prometheus.Histogram
	CodesUnused            prometheus.Gauge

	// Download token metrics
	TokensIssuedTotal    *prometheus.CounterVec
	TokenValidationTotal *prometheus.CounterVec
	TokensConsumedTotal  *prometheus.CounterVec
	TokensActive         prometheus.Gauge
	DownloadsTotal       *prometheus.CounterVec
	DownloadBytesTotal   prometheus.Counter

	// Abuse metrics
	RateLimitBlockedTotal   *prometheus.CounterVec
	SuspiciousAttemptsTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag.
// If enabled=false, returns NoopMetrics (zero overhead).
// Uses sync.Once so Prometheus collectors are only registered once.
func Init(enabled bool) core.Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		CodesGeneratedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "asset_codes_generated_total",
				Help: "Total number of redemption codes generated",
			},
		),
		CodeRedemptionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_code_redemptions_total",
				Help: "Total number of redemption attempts",
			},
			[]string{"result"}, // first_use, redownload, rejected
		),
		CodeRedemptionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "asset_code_redemption_duration_seconds",
				Help:    "Time taken to verify and redeem a code",
				Buckets: prometheus.DefBuckets,
			},
		),
		CodesUnused: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "asset_codes_unused",
				Help: "Current number of codes never redeemed",
			},
		),

		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "download_tokens_issued_total",
				Help: "Total number of download tokens issued",
			},
			[]string{"source"}, // redeem, direct
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "download_token_validation_total",
				Help: "Total number of download token validations",
			},
			[]string{"result"}, // valid, invalid
		),
		TokensConsumedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "download_tokens_consumed_total",
				Help: "Total number of download token consumption attempts",
			},
			[]string{"result"}, // success, replay
		),
		TokensActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "download_tokens_active",
				Help: "Current number of unconsumed, unexpired download tokens",
			},
		),
		DownloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "downloads_total",
				Help: "Total number of file deliveries",
			},
			[]string{"delivery", "result"}, // delivery: stream, redirect
		),
		DownloadBytesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "download_bytes_total",
				Help: "Total number of bytes streamed to clients",
			},
		),

		RateLimitBlockedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_rate_limit_blocked_total",
				Help: "Total number of requests rejected by the asset rate limiter",
			},
			[]string{"action"}, // code, download
		),
		SuspiciousAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_suspicious_attempts_total",
				Help: "Total number of audit entries flagged suspicious at write time",
			},
			[]string{"action"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001, 0.005, 0.010, 0.025, 0.050, 0.100,
					0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_active_tokens, count_unused_codes
		),
	}
}
