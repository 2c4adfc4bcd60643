// Package ratelimit bounds upstream ledger traffic by enforcing a minimum
// interval between calls per logical operation.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/okian/agon/pkg/metrics"
)

// Limiter gates upstream calls per operation key.
type Limiter interface {
	// Allow reports whether the operation may go upstream now. It returns
	// true and records the invocation only when the configured interval has
	// elapsed since the last allowed call for key; otherwise it returns
	// false with no side effect. Callers receiving false must serve a
	// cached or degraded response, never block.
	Allow(ctx context.Context, key string) bool

	// Keys returns the number of operation keys currently tracked.
	Keys() int
}

const defaultInterval = 5 * time.Second

// IntervalLimiter implements Limiter with a per-key last-call map.
type IntervalLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

// NewIntervalLimiter creates a limiter with configuration options.
func NewIntervalLimiter(opts ...Option) *IntervalLimiter {
	l := &IntervalLimiter{
		last:     make(map[string]time.Time),
		interval: defaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow implements Limiter.
func (l *IntervalLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if prev, ok := l.last[key]; ok && now.Sub(prev) < l.interval {
		metrics.RecordRateLimited(key)
		return false
	}
	l.last[key] = now
	return true
}

// Keys implements Limiter.
func (l *IntervalLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
