package service

import (
	"time"

	"github.com/okian/agon/internal/domain/ratelimit"
	"github.com/okian/agon/internal/domain/scoring"
	"github.com/okian/agon/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFee sets the per-conversation entry fee in micro-units. Used as a
// fallback when the authority reports no fee.
func WithFee(fee int64) Option {
	return func(s *Service) {
		if fee >= 0 {
			s.fee = fee
		}
	}
}

// WithQuota sets the per-epoch conversation quota.
func WithQuota(quota int) Option {
	return func(s *Service) {
		if quota > 0 {
			s.quota = quota
		}
	}
}

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the evaluation queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheTTL sets how long cached projections stay fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRefreshInterval sets the minimum spacing between authoritative
// refreshes per operation key.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshGap = d
		}
	}
}

// WithScoringLatencyRange sets the simulated evaluator latency range.
func WithScoringLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency > 0 && maxLatency > minLatency {
			s.scoringMin = minLatency
			s.scoringMax = maxLatency
		}
	}
}

// WithLimiter injects a refresh limiter, mainly for tests.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithScorer injects the conversation scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
