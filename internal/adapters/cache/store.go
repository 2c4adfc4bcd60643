// Package cache holds last-known-good snapshots of ledger state. Entries
// carry a capture timestamp; staleness is derived from capture time and the
// store's TTL. The cache never invents data: a miss always defers to the
// ledger gateway, and an explicit invalidation drops the entry entirely.
package cache

import (
	"sync"
	"time"

	"github.com/okian/agon/pkg/metrics"
)

const defaultTTL = 30 * time.Second

type entry[V any] struct {
	value      V
	capturedAt time.Time
}

// Store is a keyed snapshot cache for one kind of ledger record. It is the
// only shared mutable structure between the query path and the controller
// besides the limiter, guarded by a single mutex per store.
type Store[V any] struct {
	mu   sync.RWMutex
	data map[string]entry[V]
	ttl  time.Duration
	kind string
	now  func() time.Time
}

// New creates a snapshot store with configuration options.
func New[V any](opts ...Option[V]) *Store[V] {
	s := &Store[V]{
		data: make(map[string]entry[V]),
		ttl:  defaultTTL,
		kind: "snapshot",
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached value for key and whether it is stale. ok is
// false on a miss.
func (s *Store[V]) Get(key string) (value V, stale bool, ok bool) {
	s.mu.RLock()
	e, found := s.data[key]
	s.mu.RUnlock()

	if !found {
		metrics.RecordCacheMiss(s.kind)
		var zero V
		return zero, false, false
	}
	stale = s.now().Sub(e.capturedAt) > s.ttl
	if stale {
		metrics.RecordCacheStaleServe(s.kind)
	} else {
		metrics.RecordCacheHit(s.kind)
	}
	return e.value, stale, true
}

// Put stores value under key, stamping capture time now.
func (s *Store[V]) Put(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry[V]{value: value, capturedAt: s.now()}
}

// Invalidate drops the entry for key.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		metrics.RecordCacheInvalidation()
	}
}

// InvalidateAll drops every entry. Operational escape hatch and the
// controller's post-transition hook.
func (s *Store[V]) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) > 0 {
		metrics.RecordCacheInvalidation()
	}
	s.data = make(map[string]entry[V])
}

// Len returns the number of cached entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
