package models

import (
	"path"
	"time"
)

// Asset is a downloadable file known to the catalog
type Asset struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"    json:"id"`
	Title      string    `gorm:"type:varchar(255);not null"  json:"title"`
	StorageKey string    `gorm:"type:varchar(1024);not null" json:"storage_key"`
	Filename   string    `gorm:"type:varchar(255)"           json:"filename,omitempty"`
	IsFree     bool      `gorm:"not null;default:false"      json:"is_free"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DownloadName returns the filename offered to the client. It falls back
// to the last element of the storage key.
func (a *Asset) DownloadName() string {
	if a.Filename != "" {
		return a.Filename
	}
	return path.Base(a.StorageKey)
}
