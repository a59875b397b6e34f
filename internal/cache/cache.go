// Package cache implements the cache-aside data access layer: read paths
// call GetOrCompute, write paths call InvalidatePrefix. The layer is
// deliberately weakly consistent; see the note on GetOrCompute.
package cache

import (
	"context"
	"log/slog"
	"time"

	"perflab/internal/metrics"
)

// Outcome labels a cache lookup for metrics and response shaping.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
	// OutcomeBypass means the store was unavailable and the caller computed
	// the value directly without caching it.
	OutcomeBypass Outcome = "bypass"
)

type Recorder interface {
	RecordCounter(name string, labels ...string)
}

type Cache struct {
	store    Store
	recorder Recorder
	logger   *slog.Logger
}

func New(store Store, recorder Recorder, logger *slog.Logger) *Cache {
	return &Cache{
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// GetOrCompute returns the cached value for key if present and unexpired,
// otherwise invokes compute, stores the result under key with ttl, and
// returns it. A compute failure propagates unchanged and nothing is
// stored. A store read failure surfaces ErrStoreUnavailable without
// invoking compute; the lookup is recorded as a bypass and falling open
// is the caller's policy.
//
// No lock spans the read-compute-store sequence, so an InvalidatePrefix
// that runs while compute is in flight can lose to the subsequent Set and
// leave stale data cached until the TTL expires. That staleness window is
// the behavior this harness exists to make observable; do not serialize
// it away.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, Outcome, error) {
	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.recorder.RecordCounter(metrics.CacheRequestsTotal, kindOf(key), string(OutcomeBypass))
		return nil, OutcomeBypass, err
	}
	if found {
		c.recorder.RecordCounter(metrics.CacheRequestsTotal, kindOf(key), string(OutcomeHit))
		return value, OutcomeHit, nil
	}

	c.recorder.RecordCounter(metrics.CacheRequestsTotal, kindOf(key), string(OutcomeMiss))

	value, err = compute(ctx)
	if err != nil {
		return nil, OutcomeMiss, err
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		// The value is good even if it could not be cached.
		c.logger.Warn("failed to store computed value",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	return value, OutcomeMiss, nil
}

// InvalidatePrefix deletes every stored key beginning with prefix. Write
// paths call it with the resource-kind prefix, coarsely evicting all
// cached queries for that kind.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	removed, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return removed, err
	}
	c.recorder.RecordCounter(metrics.CacheInvalidationsTotal, kindOf(prefix))
	return removed, nil
}
