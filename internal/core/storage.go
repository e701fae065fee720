package core

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ObjectStore is the opaque backend holding downloadable files.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	// Open returns a reader for key; the caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Driver() string
}

// Presigner is implemented by object stores able to hand out time-limited
// direct URLs instead of streaming through the service.
type Presigner interface {
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}
