package core

import (
	"context"
	"time"
)

// CounterStore is a fixed-window attempt counter with cooldown markers.
// Implementations must make Increment atomic across concurrent callers.
type CounterStore interface {
	// Increment adds one attempt to key and returns the count within the
	// current window. The window starts with the first attempt.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// Get returns the current window count without incrementing it.
	Get(ctx context.Context, key string) (int64, error)

	// SetCooldown blocks key for ttl regardless of the window.
	SetCooldown(ctx context.Context, key string, ttl time.Duration) error

	// Cooldown returns the time left on key's cooldown, or 0 if none.
	Cooldown(ctx context.Context, key string) (time.Duration, error)

	// Reset clears both the counter and any cooldown for key.
	Reset(ctx context.Context, key string) error
}
