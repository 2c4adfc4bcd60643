package ledgersim

import (
	"time"

	"github.com/okian/agon/pkg/logger"
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithOperatorToken requires the token on every mutating call. Empty
// leaves writes open, which is only sensible in tests.
func WithOperatorToken(token string) Option {
	return func(s *Simulator) {
		s.operatorToken = token
	}
}

// WithEpochDuration overrides the weekly epoch length.
func WithEpochDuration(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.epochDuration = d
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger overrides the simulator logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}
