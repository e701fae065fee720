package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-authgate/assetgate/internal/cache"
	"github.com/go-authgate/assetgate/internal/core"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const cooldownSuffix = ":cooldown"

// Compile-time interface check.
var _ core.CounterStore = (*LimiterCounterStore)(nil)

// LimiterCounterStore counts attempts with a ulule/limiter store and keeps
// cooldown deadlines in a core.Cache. The limiter rate is unbounded so the
// store acts as a plain fixed-window counter; policy lives in the caller.
type LimiterCounterStore struct {
	store     limiter.Store
	cooldowns core.Cache[int64]
	window    time.Duration
	now       func() time.Time
}

// NewLimiterCounterStore wraps an existing limiter store. window is used by
// Get for keys that have not been incremented yet.
func NewLimiterCounterStore(
	store limiter.Store,
	cooldowns core.Cache[int64],
	window time.Duration,
) *LimiterCounterStore {
	return &LimiterCounterStore{
		store:     store,
		cooldowns: cooldowns,
		window:    window,
		now:       time.Now,
	}
}

// NewMemoryCounterStore keeps counters in process memory (single instance only).
func NewMemoryCounterStore(cooldowns core.Cache[int64], window time.Duration) *LimiterCounterStore {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "asset_rate_limit",
		CleanUpInterval: 5 * time.Minute,
	})
	return NewLimiterCounterStore(store, cooldowns, window)
}

// NewRedisCounterStore shares counters between instances through Redis.
func NewRedisCounterStore(
	client *redis.Client,
	cooldowns core.Cache[int64],
	window time.Duration,
) (*LimiterCounterStore, error) {
	store, err := limiterRedis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "asset_rate_limit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis limiter store: %w", err)
	}
	return NewLimiterCounterStore(store, cooldowns, window), nil
}

func (s *LimiterCounterStore) rate(window time.Duration) limiter.Rate {
	return limiter.Rate{Period: window, Limit: math.MaxInt64}
}

// count recovers the attempt count from a limiter context
func count(lctx limiter.Context) int64 {
	return lctx.Limit - lctx.Remaining
}

func (s *LimiterCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	lctx, err := s.store.Increment(ctx, key, 1, s.rate(window))
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return count(lctx), nil
}

func (s *LimiterCounterStore) Get(ctx context.Context, key string) (int64, error) {
	lctx, err := s.store.Peek(ctx, key, s.rate(s.window))
	if err != nil {
		return 0, fmt.Errorf("peek %s: %w", key, err)
	}
	return count(lctx), nil
}

func (s *LimiterCounterStore) SetCooldown(ctx context.Context, key string, ttl time.Duration) error {
	deadline := s.now().Add(ttl).UnixNano()
	return s.cooldowns.Set(ctx, key+cooldownSuffix, deadline, ttl)
}

func (s *LimiterCounterStore) Cooldown(ctx context.Context, key string) (time.Duration, error) {
	deadline, err := s.cooldowns.Get(ctx, key+cooldownSuffix)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return 0, nil
		}
		return 0, err
	}
	remaining := time.Unix(0, deadline).Sub(s.now())
	if remaining <= 0 {
		return 0, nil
	}
	return remaining, nil
}

func (s *LimiterCounterStore) Reset(ctx context.Context, key string) error {
	if _, err := s.store.Reset(ctx, key, s.rate(s.window)); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return s.cooldowns.Delete(ctx, key+cooldownSuffix)
}
