package metrics

import (
	"strconv"
	"time"

	"github.com/go-authgate/assetgate/internal/core"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m core.Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		method := c.Request.Method
		// Route pattern keeps download tokens out of label values
		path := normalizePath(c.FullPath())
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func resultLabel(success bool) string {
	if success {
		return resultSuccess
	}
	return resultError
}

// RecordCodesGenerated records a batch of generated codes
func (m *Metrics) RecordCodesGenerated(count int) {
	m.CodesGeneratedTotal.Add(float64(count))
	m.CodesUnused.Add(float64(count))
}

// RecordCodeRedemption records the outcome of a redemption attempt
func (m *Metrics) RecordCodeRedemption(result string, duration time.Duration) {
	m.CodeRedemptionsTotal.WithLabelValues(result).Inc()
	m.CodeRedemptionDuration.Observe(duration.Seconds())
	if result == "first_use" {
		m.CodesUnused.Dec()
	}
}

func (m *Metrics) RecordTokenIssued(source string) {
	m.TokensIssuedTotal.WithLabelValues(source).Inc()
	m.TokensActive.Inc()
}

func (m *Metrics) RecordTokenValidation(result string) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
}

// RecordTokenConsumed records a consume attempt; failures are replays
func (m *Metrics) RecordTokenConsumed(success bool) {
	if success {
		m.TokensConsumedTotal.WithLabelValues(resultSuccess).Inc()
		m.TokensActive.Dec()
		return
	}
	m.TokensConsumedTotal.WithLabelValues("replay").Inc()
}

func (m *Metrics) RecordDownload(delivery string, success bool, bytes int64) {
	m.DownloadsTotal.WithLabelValues(delivery, resultLabel(success)).Inc()
	if bytes > 0 {
		m.DownloadBytesTotal.Add(float64(bytes))
	}
}

func (m *Metrics) RecordRateLimitBlocked(action string) {
	m.RateLimitBlockedTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordSuspiciousAttempt(action string) {
	m.SuspiciousAttemptsTotal.WithLabelValues(action).Inc()
}

// SetActiveTokensCount sets the current count of active tokens (for periodic updates)
func (m *Metrics) SetActiveTokensCount(count int) {
	m.TokensActive.Set(float64(count))
}

// SetUnusedCodesCount sets the current count of unused codes (for periodic updates)
func (m *Metrics) SetUnusedCodesCount(count int) {
	m.CodesUnused.Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
