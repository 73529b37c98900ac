package cache

import (
	"context"
	"errors"
	"time"
)

// ErrQuotaExceeded is returned by a Store whose backing storage is full.
// The cache reacts by clearing its namespace and retrying the write once.
var ErrQuotaExceeded = errors.New("cache storage quota exceeded")

// Store is the key-value substrate the cache persists entries in.
// Implementations must tolerate concurrent writers to the same key
// (last writer wins). Get returns sentinel.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Clear removes every key starting with prefix and reports how many
	// were removed.
	Clear(ctx context.Context, prefix string) (int, error)
}
