// Package store provides the key-value backends behind the result cache:
// in-process memory, Redis and PostgreSQL.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"catastro/internal/cadastre/cache"
	"catastro/pkg/platform/sentinel"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryStore keeps entries in a map. MaxEntries emulates a storage quota:
// a write of a new key beyond it fails with cache.ErrQuotaExceeded.
type InMemoryStore struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithMaxEntries caps the number of stored keys. Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(s *InMemoryStore) {
		if n >= 0 {
			s.maxEntries = n
		}
	}
}

// WithClock overrides the time source used for backend expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns sentinel.ErrNotFound for missing or backend-expired keys.
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	if !ok || s.expired(item) {
		return nil, sentinel.ErrNotFound
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a copy of value. A zero ttl never expires in the backend.
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists && s.maxEntries > 0 && len(s.items) >= s.maxEntries {
		return cache.ErrQuotaExceeded
	}
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = item
	return nil
}

// Delete removes key; deleting a missing key is not an error.
func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Keys lists keys with prefix in lexical order.
func (s *InMemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every key with prefix.
func (s *InMemoryStore) Clear(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored keys, expired or not.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *InMemoryStore) expired(item memoryItem) bool {
	return !item.expiresAt.IsZero() && s.now().After(item.expiresAt)
}
