package core

import (
	"context"
	"time"
)

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Redemption codes
	RecordCodesGenerated(count int)
	RecordCodeRedemption(result string, duration time.Duration) // first_use, redownload, rejected

	// Download tokens
	RecordTokenIssued(source string) // redeem, direct
	RecordTokenValidation(result string)
	RecordTokenConsumed(success bool)
	RecordDownload(delivery string, success bool, bytes int64)

	// Abuse detection
	RecordRateLimitBlocked(action string)
	RecordSuspiciousAttempt(action string)

	// Gauge Setters (for periodic updates)
	SetActiveTokensCount(count int)
	SetUnusedCodesCount(count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the gauge CacheWrapper.
type MetricsStore interface {
	CountActiveDownloadTokens(ctx context.Context) (int64, error)
	CountUnusedCodes(ctx context.Context) (int64, error)
}
