package store

import (
	"context"
	"time"

	"github.com/go-authgate/assetgate/internal/models"

	"gorm.io/gorm"
)

func (s *Store) CreateAuditLog(ctx context.Context, log *models.DownloadAuditLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

// CreateAuditLogBatch writes several entries in a single statement
func (s *Store) CreateAuditLogBatch(ctx context.Context, logs []*models.DownloadAuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// CountFailedAttemptsSince counts failed entries for an IP after since
func (s *Store) CountFailedAttemptsSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.DownloadAuditLog{}).
		Where("ip_address = ? AND result = ? AND created_at >= ?", ip, models.ResultFailed, since).
		Count(&count).Error
	return count, err
}

// FlagAuditLogs marks every entry of ip created after since as suspicious
// and merges note into each entry's details.
func (s *Store) FlagAuditLogs(
	ctx context.Context,
	ip string,
	since time.Time,
	note models.AuditDetails,
) (int64, error) {
	var flagged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var logs []models.DownloadAuditLog
		if err := tx.Where("ip_address = ? AND created_at >= ?", ip, since).
			Find(&logs).Error; err != nil {
			return err
		}
		for i := range logs {
			details := logs[i].Details
			if details == nil {
				details = models.AuditDetails{}
			}
			for k, v := range note {
				details[k] = v
			}
			if err := tx.Model(&models.DownloadAuditLog{}).
				Where("id = ?", logs[i].ID).
				Updates(map[string]any{
					"is_suspicious": true,
					"details":       details,
				}).Error; err != nil {
				return err
			}
		}
		flagged = int64(len(logs))
		return nil
	})
	return flagged, err
}

func (s *Store) applyAuditFilters(q *gorm.DB, filters AuditLogFilters) *gorm.DB {
	if filters.IPAddress != "" {
		q = q.Where("ip_address = ?", filters.IPAddress)
	}
	if filters.Action != "" {
		q = q.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		q = q.Where("result = ?", filters.Result)
	}
	if filters.IsSuspicious != nil {
		q = q.Where("is_suspicious = ?", *filters.IsSuspicious)
	}
	if filters.AssetID != 0 {
		q = q.Where("asset_id = ?", filters.AssetID)
	}
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}
	if !filters.StartTime.IsZero() {
		q = q.Where("created_at >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		q = q.Where("created_at <= ?", filters.EndTime)
	}
	return q
}

// GetAuditLogsPaginated returns filtered entries, newest first
func (s *Store) GetAuditLogsPaginated(
	ctx context.Context,
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.DownloadAuditLog, PaginationResult, error) {
	query := func() *gorm.DB {
		return s.applyAuditFilters(s.db.WithContext(ctx).Model(&models.DownloadAuditLog{}), filters)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var logs []models.DownloadAuditLog
	if err := query().Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&logs).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return logs, CalculatePagination(total, params.Page, params.PageSize), nil
}

// GetAuditLogsForExport returns every filtered entry, newest first, up to limit
func (s *Store) GetAuditLogsForExport(
	ctx context.Context,
	filters AuditLogFilters,
	limit int,
) ([]models.DownloadAuditLog, error) {
	var logs []models.DownloadAuditLog
	err := s.applyAuditFilters(s.db.WithContext(ctx), filters).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetSuspiciousIPs groups suspicious entries since the given time by IP,
// busiest first.
func (s *Store) GetSuspiciousIPs(ctx context.Context, since time.Time) ([]models.SuspiciousIP, error) {
	type row struct {
		IPAddress    string
		AttemptCount int64
		LastSeen     string
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.DownloadAuditLog{}).
		Select("ip_address, COUNT(*) AS attempt_count, MAX(created_at) AS last_seen").
		Where("is_suspicious = ? AND created_at >= ?", true, since).
		Group("ip_address").
		Order("attempt_count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]models.SuspiciousIP, 0, len(rows))
	for _, r := range rows {
		result = append(result, models.SuspiciousIP{
			IPAddress:    r.IPAddress,
			AttemptCount: r.AttemptCount,
			LastSeen:     parseAggregateTime(r.LastSeen),
		})
	}
	return result, nil
}

// parseAggregateTime reads MAX(created_at), which SQLite returns as text
func parseAggregateTime(v string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetAuditLogStats aggregates entries created between start and end
func (s *Store) GetAuditLogStats(ctx context.Context, start, end time.Time) (models.AuditLogStats, error) {
	stats := models.AuditLogStats{
		EventsByAction: make(map[models.AuditAction]int64),
		EventsByResult: make(map[models.AuditResult]int64),
	}
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&models.DownloadAuditLog{}).
			Where("created_at >= ? AND created_at <= ?", start, end)
	}

	if err := base().Count(&stats.TotalEvents).Error; err != nil {
		return stats, err
	}

	var byAction []struct {
		Action models.AuditAction
		Count  int64
	}
	if err := base().Select("action, COUNT(*) AS count").Group("action").
		Scan(&byAction).Error; err != nil {
		return stats, err
	}
	for _, r := range byAction {
		stats.EventsByAction[r.Action] = r.Count
	}

	var byResult []struct {
		Result models.AuditResult
		Count  int64
	}
	if err := base().Select("result, COUNT(*) AS count").Group("result").
		Scan(&byResult).Error; err != nil {
		return stats, err
	}
	for _, r := range byResult {
		stats.EventsByResult[r.Result] = r.Count
	}

	if err := base().Where("is_suspicious = ?", true).
		Count(&stats.SuspiciousEvents).Error; err != nil {
		return stats, err
	}

	if err := base().Distinct("ip_address").
		Count(&stats.UniqueIPs).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

// DeleteOldAuditLogs removes entries created before cutoff
func (s *Store) DeleteOldAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.DownloadAuditLog{})
	return result.RowsAffected, result.Error
}
