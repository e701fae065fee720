package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/store"
	"github.com/go-authgate/assetgate/internal/util"

	"github.com/google/uuid"
)

const (
	auditBatchSize      = 100
	defaultFlagWindow   = 60 * time.Minute
	defaultSuspectHours = 24
)

// AttemptEntry represents the data needed to create an audit log entry
type AttemptEntry struct {
	AssetID   int64
	UserID    int64 // 0 for anonymous
	IPAddress string
	UserAgent string
	Action    models.AuditAction
	Result    models.AuditResult
	Details   models.AuditDetails
}

// DownloadAuditService records gated actions and flags suspicious origins
type DownloadAuditService struct {
	store      *store.Store
	metrics    core.Recorder
	enabled    bool
	bufferSize int
	threshold  int64
	window     time.Duration
	now        func() time.Time

	// Async logging channel
	logChan chan *models.DownloadAuditLog

	// Batch buffer
	batchBuffer []*models.DownloadAuditLog
	batchMutex  sync.Mutex
	batchTicker *time.Ticker

	// Graceful shutdown
	wg         sync.WaitGroup
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

func NewDownloadAuditService(
	s *store.Store,
	cfg *config.Config,
	m core.Recorder,
) *DownloadAuditService {
	bufferSize := cfg.AuditLogBufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	window := cfg.SuspiciousWindow
	if window <= 0 {
		window = defaultFlagWindow
	}

	service := &DownloadAuditService{
		store:       s,
		metrics:     m,
		enabled:     cfg.EnableAuditLogging,
		bufferSize:  bufferSize,
		threshold:   int64(cfg.SuspiciousThreshold),
		window:      window,
		now:         time.Now,
		logChan:     make(chan *models.DownloadAuditLog, bufferSize),
		batchBuffer: make([]*models.DownloadAuditLog, 0, auditBatchSize),
		batchTicker: time.NewTicker(1 * time.Second),
		shutdownCh:  make(chan struct{}),
	}

	if service.enabled {
		service.wg.Add(1)
		go service.worker()
		log.Printf("Audit service started with buffer size %d", bufferSize)
	} else {
		service.batchTicker.Stop()
		log.Println("Audit service is disabled")
	}

	return service
}

func (s *DownloadAuditService) worker() {
	defer s.wg.Done()

	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)

		case <-s.batchTicker.C:
			s.flushBatch()

		case <-s.shutdownCh:
			// Drain whatever was queued before the signal
			for {
				select {
				case entry := <-s.logChan:
					s.addToBatch(entry)
				default:
					s.flushBatch()
					return
				}
			}
		}
	}
}

func (s *DownloadAuditService) addToBatch(entry *models.DownloadAuditLog) {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()

	s.batchBuffer = append(s.batchBuffer, entry)
	if len(s.batchBuffer) >= auditBatchSize {
		s.flushBatchUnsafe()
	}
}

func (s *DownloadAuditService) flushBatch() {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()
	s.flushBatchUnsafe()
}

// flushBatchUnsafe flushes the batch buffer without locking (caller must hold lock)
func (s *DownloadAuditService) flushBatchUnsafe() {
	if len(s.batchBuffer) == 0 {
		return
	}

	toWrite := make([]*models.DownloadAuditLog, len(s.batchBuffer))
	copy(toWrite, s.batchBuffer)
	s.batchBuffer = s.batchBuffer[:0]

	if err := s.store.CreateAuditLogBatch(context.Background(), toWrite); err != nil {
		s.metrics.RecordDatabaseQueryError("create_audit_log_batch")
		log.Printf("Failed to write audit log batch: %v", err)
	}
}

// LogAttempt writes an entry synchronously. The suspicious flag is decided
// from the failed attempts already on record for the IP.
func (s *DownloadAuditService) LogAttempt(
	ctx context.Context,
	entry AttemptEntry,
) (*models.DownloadAuditLog, error) {
	if !s.enabled {
		return nil, nil //nolint:nilnil // disabled audit logging records nothing
	}

	auditLog := s.build(ctx, entry)
	if err := s.store.CreateAuditLog(ctx, auditLog); err != nil {
		s.metrics.RecordDatabaseQueryError("create_audit_log")
		return nil, err
	}
	return auditLog, nil
}

// Log records an entry asynchronously. Meant for success events where losing
// an entry under overload is acceptable.
func (s *DownloadAuditService) Log(ctx context.Context, entry AttemptEntry) {
	if !s.enabled {
		return
	}

	auditLog := s.build(ctx, entry)

	// Try to send to channel (non-blocking)
	select {
	case s.logChan <- auditLog:
	default:
		log.Printf("WARNING: Audit log buffer full, dropping event: %s", entry.Action)
	}
}

func (s *DownloadAuditService) build(ctx context.Context, entry AttemptEntry) *models.DownloadAuditLog {
	if entry.IPAddress == "" {
		entry.IPAddress = util.GetIPFromContext(ctx)
	}

	suspicious := false
	if entry.Result == models.ResultFailed && s.threshold > 0 {
		failed, err := s.store.CountFailedAttemptsSince(ctx, entry.IPAddress, s.now().Add(-s.window))
		if err != nil {
			log.Printf("Failed to count failed attempts for suspicious check: %v", err)
		} else if failed >= s.threshold {
			suspicious = true
			s.metrics.RecordSuspiciousAttempt(string(entry.Action))
		}
	}

	userAgent := util.TruncateUTF8(strings.ToValidUTF8(entry.UserAgent, ""), 500)

	return &models.DownloadAuditLog{
		ID:           uuid.New().String(),
		AssetID:      entry.AssetID,
		UserID:       userIDPtr(entry.UserID),
		IPAddress:    entry.IPAddress,
		UserAgent:    userAgent,
		Action:       entry.Action,
		Result:       entry.Result,
		Details:      maskSensitiveDetails(entry.Details),
		IsSuspicious: suspicious,
		CreatedAt:    s.now(),
	}
}

// GetFailedAttempts counts failed entries from ip in the last minutes
func (s *DownloadAuditService) GetFailedAttempts(ctx context.Context, ip string, minutes int) (int64, error) {
	return s.store.CountFailedAttemptsSince(ctx, ip, s.now().Add(-time.Duration(minutes)*time.Minute))
}

// FlagSuspiciousActivity marks the last hour of an IP's entries as suspicious
// and records reason on each of them.
func (s *DownloadAuditService) FlagSuspiciousActivity(
	ctx context.Context,
	ip, reason string,
) (int64, error) {
	now := s.now()
	return s.store.FlagAuditLogs(ctx, ip, now.Add(-defaultFlagWindow), models.AuditDetails{
		"flag_reason": reason,
		"flagged_at":  now.UTC().Format(time.RFC3339),
	})
}

// GetLogs retrieves audit logs with pagination and filtering
func (s *DownloadAuditService) GetLogs(
	ctx context.Context,
	params store.PaginationParams,
	filters store.AuditLogFilters,
) ([]models.DownloadAuditLog, store.PaginationResult, error) {
	return s.store.GetAuditLogsPaginated(ctx, params, filters)
}

func (s *DownloadAuditService) GetFlaggedLogs(
	ctx context.Context,
	params store.PaginationParams,
) ([]models.DownloadAuditLog, store.PaginationResult, error) {
	flagged := true
	return s.store.GetAuditLogsPaginated(ctx, params, store.AuditLogFilters{IsSuspicious: &flagged})
}

// GetSuspiciousIPs lists IPs with suspicious entries in the last withinHours,
// busiest first.
func (s *DownloadAuditService) GetSuspiciousIPs(
	ctx context.Context,
	withinHours int,
) ([]models.SuspiciousIP, error) {
	if withinHours <= 0 {
		withinHours = defaultSuspectHours
	}
	return s.store.GetSuspiciousIPs(ctx, s.now().Add(-time.Duration(withinHours)*time.Hour))
}

func (s *DownloadAuditService) GetStats(
	ctx context.Context,
	start, end time.Time,
) (models.AuditLogStats, error) {
	return s.store.GetAuditLogStats(ctx, start, end)
}

// ExportLogs returns up to limit filtered entries for CSV export
func (s *DownloadAuditService) ExportLogs(
	ctx context.Context,
	filters store.AuditLogFilters,
	limit int,
) ([]models.DownloadAuditLog, error) {
	return s.store.GetAuditLogsForExport(ctx, filters, limit)
}

// CleanupOldLogs deletes entries older than retentionDays
func (s *DownloadAuditService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, fmt.Errorf("retention must be at least one day, got %d", retentionDays)
	}
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	return s.store.DeleteOldAuditLogs(ctx, cutoff)
}

// Shutdown gracefully shuts down the audit service
func (s *DownloadAuditService) Shutdown(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	s.stopOnce.Do(func() {
		s.batchTicker.Stop()
		close(s.shutdownCh)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Audit service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// maskSensitiveDetails keeps a short prefix of codes and tokens and redacts secrets
func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return details
	}

	masked := make(models.AuditDetails, len(details))
	for key, value := range details {
		if isSensitiveField(key) {
			masked[key] = "***REDACTED***"
			continue
		}

		if isPartialMaskField(key) {
			if str, ok := value.(string); ok {
				masked[key] = maskCredential(str)
				continue
			}
		}

		masked[key] = value
	}

	return masked
}

func maskCredential(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:4] + "****"
}

func isSensitiveField(key string) bool {
	key = strings.ToLower(key)
	for _, field := range []string{"password", "secret", "salt", "hash"} {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}

func isPartialMaskField(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "code") || strings.Contains(key, "token")
}
