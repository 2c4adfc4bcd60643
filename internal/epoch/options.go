package epoch

import (
	"time"

	"github.com/okian/agon/pkg/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithInvalidator wires a cache invalidator invoked after a successful
// advance.
func WithInvalidator(inv Invalidator) Option {
	return func(c *Controller) {
		c.cache = inv
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger overrides the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}
