package metrics

import (
	"time"

	"github.com/go-authgate/assetgate/internal/core"
)

// NoopMetrics is a no-operation implementation of core.Recorder
type NoopMetrics struct{}

var _ core.Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() core.Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordCodesGenerated(count int)                             {}
func (n *NoopMetrics) RecordCodeRedemption(result string, duration time.Duration) {}
func (n *NoopMetrics) RecordTokenIssued(source string)                            {}
func (n *NoopMetrics) RecordTokenValidation(result string)                        {}
func (n *NoopMetrics) RecordTokenConsumed(success bool)                           {}
func (n *NoopMetrics) RecordDownload(delivery string, success bool, bytes int64)  {}
func (n *NoopMetrics) RecordRateLimitBlocked(action string)                       {}
func (n *NoopMetrics) RecordSuspiciousAttempt(action string)                      {}
func (n *NoopMetrics) SetActiveTokensCount(count int)                             {}
func (n *NoopMetrics) SetUnusedCodesCount(count int)                              {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string)                  {}
