// Package cache stores resolved results under deterministic query keys with
// a fixed time-to-live. Expiry is judged on read: an expired entry is
// deleted and treated as a miss, never returned stale.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"catastro/internal/cadastre/metrics"
	"catastro/internal/cadastre/models"
	"catastro/pkg/platform/sentinel"
	"catastro/pkg/requestcontext"
)

const (
	// DefaultTTL bounds how long a successful resolution is served from cache.
	DefaultTTL = 24 * time.Hour
	// DefaultErrorTTL bounds how long a failed resolution is served from
	// cache, so repeated failing queries do not hammer the registry.
	DefaultErrorTTL = 5 * time.Minute
)

// Entry is the persisted form of a cached value.
type Entry[T any] struct {
	Data      T     `json:"data"`
	ExpiresAt int64 `json:"expiresAt"` // epoch milliseconds
}

func (e Entry[T]) expired(now time.Time) bool {
	return now.UnixMilli() > e.ExpiresAt
}

// Policy decides whether a fetched value is stored and for how long.
type Policy[T any] func(value T) (ttl time.Duration, store bool)

// ResultPolicy caches successes for ttl and failures for errorTTL. Input
// validation rejections are never cached; they cost no registry call.
func ResultPolicy(ttl, errorTTL time.Duration) Policy[models.CadastralResult] {
	return func(r models.CadastralResult) (time.Duration, bool) {
		switch {
		case r.ErrorKind == models.ErrorKindValidation:
			return 0, false
		case r.Failed():
			return errorTTL, errorTTL > 0
		default:
			return ttl, ttl > 0
		}
	}
}

// CandidatesPolicy caches non-empty candidate lists for ttl and empty ones
// for errorTTL.
func CandidatesPolicy(ttl, errorTTL time.Duration) Policy[[]models.Candidate] {
	return func(c []models.Candidate) (time.Duration, bool) {
		if len(c) == 0 {
			return errorTTL, errorTTL > 0
		}
		return ttl, ttl > 0
	}
}

type settings struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*settings)

// WithLogger sets the logger used for storage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records lookups and quota clears.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// Cache is a read-through cache over a Store. Concurrent misses for the same
// key may both fetch; the last write wins.
type Cache[T any] struct {
	store  Store
	policy Policy[T]
	settings
}

// ResultCache caches single cadastral results.
type ResultCache = Cache[models.CadastralResult]

// CandidateCache caches ranked proximity candidates.
type CandidateCache = Cache[[]models.Candidate]

// New builds a cache over store with policy.
func New[T any](store Store, policy Policy[T], opts ...Option) *Cache[T] {
	c := &Cache[T]{
		store:  store,
		policy: policy,
		settings: settings{
			logger: slog.New(slog.DiscardHandler),
		},
	}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

// NewResultCache builds a ResultCache with the given TTLs.
func NewResultCache(store Store, ttl, errorTTL time.Duration, opts ...Option) *ResultCache {
	return New(store, ResultPolicy(ttl, errorTTL), opts...)
}

// NewCandidateCache builds a CandidateCache with the given TTLs.
func NewCandidateCache(store Store, ttl, errorTTL time.Duration, opts ...Option) *CandidateCache {
	return New(store, CandidatesPolicy(ttl, errorTTL), opts...)
}

// GetOrFetch returns the cached value for key, or calls fetch and stores its
// result. hit reports whether fetch was skipped. Storage failures are logged
// and never surface to the caller. A value fetched after ctx ended is
// returned but not stored.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) T) (value T, hit bool) {
	if cached, ok := c.Lookup(ctx, key); ok {
		return cached, true
	}
	value = fetch(ctx)
	if err := ctx.Err(); err != nil {
		c.logger.DebugContext(ctx, "request ended before fetch completed, not caching", "key", key, "error", err)
		return value, false
	}
	c.Put(ctx, key, value)
	return value, false
}

// Lookup returns the live entry for key. Expired and undecodable entries are
// deleted and reported as misses.
func (c *Cache[T]) Lookup(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		c.metrics.IncrementCacheLookup("miss")
		return zero, false
	}

	var entry Entry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable cache entry", "key", key, "error", err)
		c.drop(ctx, key)
		c.metrics.IncrementCacheLookup("corrupt")
		return zero, false
	}
	if entry.expired(requestcontext.Now(ctx)) {
		c.drop(ctx, key)
		c.metrics.IncrementCacheLookup("expired")
		return zero, false
	}
	c.metrics.IncrementCacheLookup("hit")
	return entry.Data, true
}

// Put stores value under key when the policy allows it. On a quota failure
// the namespace is cleared and the write retried exactly once.
func (c *Cache[T]) Put(ctx context.Context, key string, value T) {
	ttl, ok := c.policy(value)
	if !ok {
		return
	}
	raw, err := json.Marshal(Entry[T]{
		Data:      value,
		ExpiresAt: requestcontext.Now(ctx).Add(ttl).UnixMilli(),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "cache entry not encodable", "key", key, "error", err)
		return
	}

	err = c.store.Set(ctx, key, raw, ttl)
	if errors.Is(err, ErrQuotaExceeded) {
		c.metrics.IncrementQuotaClear()
		removed, clearErr := c.store.Clear(ctx, Namespace)
		if clearErr != nil {
			c.logger.WarnContext(ctx, "cache clear after quota failure failed", "error", clearErr)
			return
		}
		c.logger.WarnContext(ctx, "cache quota exceeded, namespace cleared", "removed", removed)
		err = c.store.Set(ctx, key, raw, ttl)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// Invalidate removes one key.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	return nil
}

// Ping checks the backing store when it supports health checks.
func (c *Cache[T]) Ping(ctx context.Context) error {
	if p, ok := c.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Clear removes every entry in the namespace.
func (c *Cache[T]) Clear(ctx context.Context) (int, error) {
	return c.store.Clear(ctx, Namespace)
}

// Sweep deletes expired and undecodable entries and reports how many were
// removed. Reads already ignore expired entries; Sweep only reclaims space.
func (c *Cache[T]) Sweep(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, Namespace)
	if err != nil {
		return 0, err
	}
	now := requestcontext.Now(ctx)
	removed := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		raw, err := c.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var probe struct {
			ExpiresAt int64 `json:"expiresAt"`
		}
		if json.Unmarshal(raw, &probe) == nil && now.UnixMilli() <= probe.ExpiresAt {
			continue
		}
		if err := c.store.Delete(ctx, key); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (c *Cache[T]) drop(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		c.logger.WarnContext(ctx, "cache delete failed", "key", key, "error", err)
	}
}
