package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable marks a backend that cannot be reached. It is
// distinguishable from a miss so callers can decide to fail open and
// compute without caching.
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Store abstracts the key/value backend with per-key TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key beginning with prefix and returns the
	// number of keys removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}
