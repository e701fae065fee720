package models

import (
	"time"
)

type RedemptionCode struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"                      json:"id"`
	AssetID        int64      `gorm:"not null;index:idx_code_lookup,priority:1"     json:"asset_id"`
	Code           string     `gorm:"-"                                             json:"-"` // Plaintext, in-memory only
	CodeHash       string     `gorm:"uniqueIndex;not null"                          json:"-"` // PBKDF2 hash of the code
	CodeSalt       string     `gorm:"not null"                                      json:"-"` // Random per-row salt
	CodePrefix     string     `gorm:"type:varchar(8);not null;index:idx_code_lookup,priority:2" json:"code_prefix"`
	RedeemerUserID *int64     `gorm:"index"                                         json:"redeemer_user_id,omitempty"`
	IsUsed         bool       `gorm:"not null;default:false"                        json:"is_used"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"` // Set on first use; end of the re-download window
	DownloadCount  int        `gorm:"not null;default:0"                            json:"download_count"`
	MaxDownloads   int        `gorm:"not null;default:3"                            json:"max_downloads"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsWindowExpired reports whether the re-download window has closed.
// Codes that were never used have no window.
func (r *RedemptionCode) IsWindowExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// RemainingDownloads returns how many more downloads the code allows
func (r *RedemptionCode) RemainingDownloads() int {
	if remaining := r.MaxDownloads - r.DownloadCount; remaining > 0 {
		return remaining
	}
	return 0
}

// MaskedCode returns the lookup prefix followed by a mask, safe for exports
func (r *RedemptionCode) MaskedCode() string {
	return r.CodePrefix + "****"
}
