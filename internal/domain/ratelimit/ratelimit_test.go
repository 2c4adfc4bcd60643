package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/agon/internal/domain/ratelimit"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIntervalLimiter(t *testing.T) {
	Convey("Given a limiter with a 5s interval and a fake clock", t, func() {
		now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		l := ratelimit.NewIntervalLimiter(
			ratelimit.WithInterval(5*time.Second),
			ratelimit.WithClock(clock),
		)
		ctx := context.Background()

		Convey("When the first call arrives for a key", func() {
			allowed := l.Allow(ctx, "epoch_state")

			Convey("Then it should pass and be recorded", func() {
				So(allowed, ShouldBeTrue)
				So(l.Keys(), ShouldEqual, 1)
			})
		})

		Convey("When a second call arrives 1s later", func() {
			So(l.Allow(ctx, "epoch_state"), ShouldBeTrue)
			now = now.Add(time.Second)

			Convey("Then it should be suppressed without side effect", func() {
				So(l.Allow(ctx, "epoch_state"), ShouldBeFalse)

				// The suppressed call must not reset the window: 4s later
				// (5s after the allowed call) the key opens again.
				now = now.Add(4 * time.Second)
				So(l.Allow(ctx, "epoch_state"), ShouldBeTrue)
			})
		})

		Convey("When a third call arrives 6s after the first", func() {
			So(l.Allow(ctx, "epoch_state"), ShouldBeTrue)
			now = now.Add(6 * time.Second)

			Convey("Then it should pass again", func() {
				So(l.Allow(ctx, "epoch_state"), ShouldBeTrue)
			})
		})

		Convey("When different keys are used", func() {
			So(l.Allow(ctx, "epoch_state"), ShouldBeTrue)

			Convey("Then keys are limited independently", func() {
				So(l.Allow(ctx, "participant:0xabc"), ShouldBeTrue)
				So(l.Allow(ctx, "participant:0xabc"), ShouldBeFalse)
				So(l.Keys(), ShouldEqual, 2)
			})
		})
	})
}
