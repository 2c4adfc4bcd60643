package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/agon/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RetryAttempts, convey.ShouldEqual, 3)
				convey.So(cfg.RateLimitIntervalMS, convey.ShouldEqual, 5000)
				convey.So(cfg.CacheTTLMS, convey.ShouldEqual, 30_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("AGON_ADDR", ":8080")
			_ = os.Setenv("AGON_FEE_AMOUNT", "20000")
			_ = os.Setenv("AGON_WEEKLY_QUOTA", "5")
			_ = os.Setenv("AGON_WORKER_COUNT", "4")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.FeeAmount, convey.ShouldEqual, 20_000)
				convey.So(cfg.WeeklyQuota, convey.ShouldEqual, 5)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":7070"
ledger_endpoints:
  - "http://ledger-a:9091"
  - "http://ledger-b:9091"
retry_attempts: 5
retry_backoff_ms: 500
fee_amount: 15000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("AGON_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LedgerEndpoints, convey.ShouldResemble, []string{"http://ledger-a:9091", "http://ledger-b:9091"})
				convey.So(cfg.RetryAttempts, convey.ShouldEqual, 5)
				convey.So(cfg.RetryBackoffMS, convey.ShouldEqual, 500)
				convey.So(cfg.FeeAmount, convey.ShouldEqual, 15_000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":7070"
retry_attempts: 5
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("AGON_CONFIG", tmpFile)
			_ = os.Setenv("AGON_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RetryAttempts, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("AGON_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("AGON_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with zero retry attempts", func() {
			_ = os.Setenv("AGON_RETRY_ATTEMPTS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with inverted scoring latency bounds", func() {
			_ = os.Setenv("AGON_SCORING_LATENCY_MIN_MS", "200")
			_ = os.Setenv("AGON_SCORING_LATENCY_MAX_MS", "100")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"AGON_CONFIG",
		"AGON_ADDR",
		"AGON_FEE_AMOUNT",
		"AGON_WEEKLY_QUOTA",
		"AGON_WORKER_COUNT",
		"AGON_RETRY_ATTEMPTS",
		"AGON_SCORING_LATENCY_MIN_MS",
		"AGON_SCORING_LATENCY_MAX_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "agon-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
