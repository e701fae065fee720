package models

import (
	"time"
)

type DownloadToken struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	TokenHash  string     `gorm:"type:varchar(64);uniqueIndex;not null"` // SHA-256 of the full token
	AssetID    int64      `gorm:"not null;index"`
	UserID     *int64     `gorm:"index"`
	IPAddress  string     `gorm:"type:varchar(45)"`
	Nonce      string     `gorm:"type:varchar(32);uniqueIndex;not null"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	ConsumedAt *time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (t *DownloadToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// IsConsumed returns true once the token has been used for a download
func (t *DownloadToken) IsConsumed() bool {
	return t.ConsumedAt != nil
}

// IsUsable returns true if the token is neither consumed nor expired
func (t *DownloadToken) IsUsable() bool {
	return !t.IsConsumed() && !t.IsExpired()
}
