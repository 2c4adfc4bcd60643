package ratelimit

import "time"

// Option applies a configuration option to the IntervalLimiter.
type Option func(*IntervalLimiter)

// WithInterval sets the minimum interval between allowed calls per key.
func WithInterval(d time.Duration) Option {
	return func(l *IntervalLimiter) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *IntervalLimiter) {
		if now != nil {
			l.now = now
		}
	}
}
