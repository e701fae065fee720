package store

import (
	"time"

	"github.com/go-authgate/assetgate/internal/models"
)

// AuditLogFilters contains filter criteria for querying download audit logs
type AuditLogFilters struct {
	IPAddress    string             `json:"ip_address,omitempty"`
	Action       models.AuditAction `json:"action,omitempty"`
	Result       models.AuditResult `json:"result,omitempty"`
	IsSuspicious *bool              `json:"is_suspicious,omitempty"`
	AssetID      int64              `json:"asset_id,omitempty"`
	UserID       *int64             `json:"user_id,omitempty"`
	StartTime    time.Time          `json:"start_time,omitzero"`
	EndTime      time.Time          `json:"end_time,omitzero"`
}
