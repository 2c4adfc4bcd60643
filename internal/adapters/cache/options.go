package cache

import "time"

// Option applies a configuration option to the Store.
type Option[V any] func(*Store[V])

// WithTTL sets the staleness bound for every entry in the store. The TTL
// should exceed the upstream rate-limit interval so the cache, not the
// limiter, is normally the hit path.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(s *Store[V]) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithKind labels the store for metrics.
func WithKind[V any](kind string) Option[V] {
	return func(s *Store[V]) {
		if kind != "" {
			s.kind = kind
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *Store[V]) {
		if now != nil {
			s.now = now
		}
	}
}
