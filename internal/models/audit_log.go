package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction is the kind of gated action an audit entry records
type AuditAction string

const (
	ActionCodeAttempt      AuditAction = "code_attempt"
	ActionCodeSuccess      AuditAction = "code_success"
	ActionDownloadRequest  AuditAction = "download_request"
	ActionDownloadComplete AuditAction = "download_complete"
	ActionCodeGeneration   AuditAction = "code_generation"
	ActionCodeExport       AuditAction = "code_export"
)

// AuditResult is the outcome of a gated action
type AuditResult string

const (
	ResultSuccess AuditResult = "success"
	ResultFailed  AuditResult = "failed"
	ResultBlocked AuditResult = "blocked"
)

// IsValid reports whether a is one of the known actions
func (a AuditAction) IsValid() bool {
	switch a {
	case ActionCodeAttempt, ActionCodeSuccess, ActionDownloadRequest,
		ActionDownloadComplete, ActionCodeGeneration, ActionCodeExport:
		return true
	}
	return false
}

// IsValid reports whether r is one of the known results
func (r AuditResult) IsValid() bool {
	return r == ResultSuccess || r == ResultFailed || r == ResultBlocked
}

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL, which is valid here
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *AuditDetails) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal AuditDetails value: %v", value)
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}

	*a = result
	return nil
}

// DownloadAuditLog is one append-only record of a code or download attempt.
// Only IsSuspicious and Details may change after insert (manual flagging).
type DownloadAuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	AssetID   int64  `gorm:"index"                  json:"asset_id"`
	UserID    *int64 `gorm:"index"                  json:"user_id,omitempty"`
	IPAddress string `gorm:"type:varchar(45);index" json:"ip_address"` // Support IPv6
	UserAgent string `gorm:"type:varchar(500)"      json:"user_agent,omitempty"`

	Action       AuditAction  `gorm:"type:varchar(30);index;not null" json:"action"`
	Result       AuditResult  `gorm:"type:varchar(20);index;not null" json:"result"`
	Details      AuditDetails `gorm:"type:json"                       json:"details,omitempty"`
	IsSuspicious bool         `gorm:"index;not null;default:false"    json:"is_suspicious"`

	// No UpdatedAt - entries are immutable apart from flagging
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (DownloadAuditLog) TableName() string {
	return "download_audit_logs"
}

// SuspiciousIP is an aggregate row of the suspicious IP report
type SuspiciousIP struct {
	IPAddress    string    `json:"ip_address"`
	AttemptCount int64     `json:"attempt_count"`
	LastSeen     time.Time `json:"last_seen"`
}

// AuditLogStats summarises audit activity over a time range
type AuditLogStats struct {
	TotalEvents      int64                 `json:"total_events"`
	EventsByAction   map[AuditAction]int64 `json:"events_by_action"`
	EventsByResult   map[AuditResult]int64 `json:"events_by_result"`
	SuspiciousEvents int64                 `json:"suspicious_events"`
	UniqueIPs        int64                 `json:"unique_ips"`
}
