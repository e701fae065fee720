package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrCodeBatchEmpty is returned when a batch insert is asked to write nothing
	ErrCodeBatchEmpty = errors.New("no redemption codes to create")
)
