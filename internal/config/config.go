// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// LedgerEndpoints lists the authority RPC base URLs in rotation order.
	LedgerEndpoints []string `koanf:"ledger_endpoints"`

	// RetryAttempts bounds read attempts against the ledger per call.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBackoffMS is the pause between ledger read attempts.
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// RateLimitIntervalMS is the minimum spacing between authoritative
	// refreshes for one operation key.
	RateLimitIntervalMS int `koanf:"rate_limit_interval_ms"`

	// CacheTTLMS sets how long a cached projection stays fresh.
	CacheTTLMS int `koanf:"cache_ttl_ms"`

	// FeeAmount is the per-conversation entry fee in micro-units.
	FeeAmount int64 `koanf:"fee_amount"`

	// WeeklyQuota caps conversations per user per epoch.
	WeeklyQuota int `koanf:"weekly_quota"`

	// EvalQueueSize bounds the in-memory evaluation queue.
	EvalQueueSize int `koanf:"eval_queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// EpochPollIntervalMS is the scheduler cadence for epoch advancement.
	EpochPollIntervalMS int `koanf:"epoch_poll_interval_ms"`

	// ScoringLatencyMinMS and ScoringLatencyMaxMS simulate evaluator latency bounds.
	ScoringLatencyMinMS int `koanf:"scoring_latency_min_ms"`
	ScoringLatencyMaxMS int `koanf:"scoring_latency_max_ms"`

	// AdminToken authorizes the admin HTTP surface. Empty disables it.
	AdminToken string `koanf:"admin_token"`

	// OperatorToken authorizes mutating ledger calls.
	OperatorToken string `koanf:"operator_token"`
}

// New creates a Config using defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		LedgerEndpoints:     []string{"http://127.0.0.1:9091"},
		RetryAttempts:       3,
		RetryBackoffMS:      1000,
		RateLimitIntervalMS: 5000,
		CacheTTLMS:          30_000,
		FeeAmount:           10_000,
		WeeklyQuota:         3,
		EvalQueueSize:       10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		EpochPollIntervalMS: 60_000,
		ScoringLatencyMinMS: 80,
		ScoringLatencyMaxMS: 150,
	}
}

// RetryBackoff returns the backoff as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// RateLimitInterval returns the refresh spacing as a duration.
func (c *Config) RateLimitInterval() time.Duration {
	return time.Duration(c.RateLimitIntervalMS) * time.Millisecond
}

// CacheTTL returns the cache freshness window as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}

// EpochPollInterval returns the scheduler cadence as a duration.
func (c *Config) EpochPollInterval() time.Duration {
	return time.Duration(c.EpochPollIntervalMS) * time.Millisecond
}
