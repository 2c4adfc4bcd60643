package config_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/okian/agon/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.LedgerEndpoints, convey.ShouldResemble, []string{"http://127.0.0.1:9091"})
			convey.So(cfg.RetryAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.FeeAmount, convey.ShouldEqual, 10_000)
			convey.So(cfg.WeeklyQuota, convey.ShouldEqual, 3)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.ScoringLatencyMinMS, convey.ShouldEqual, 80)
			convey.So(cfg.ScoringLatencyMaxMS, convey.ShouldEqual, 150)
		})

		convey.Convey("Then duration helpers should convert millisecond fields", func() {
			convey.So(cfg.RetryBackoff(), convey.ShouldEqual, time.Second)
			convey.So(cfg.RateLimitInterval(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.EpochPollInterval(), convey.ShouldEqual, time.Minute)
		})
	})
}
