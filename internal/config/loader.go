package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if AGON_CONFIG is set
//  3. env (prefix AGON_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("AGON_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: AGON_ADDR, AGON_FEE_AMOUNT, ...
	// Map env keys like AGON_FEE_AMOUNT -> fee_amount (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("AGON_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "agon_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if len(cfg.LedgerEndpoints) == 0 {
		return fmt.Errorf("%w: at least one ledger endpoint is required", ErrInvalidConfig)
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("%w: retry_attempts must be at least 1", ErrInvalidConfig)
	}
	if cfg.FeeAmount < 0 {
		return fmt.Errorf("%w: fee_amount must not be negative", ErrInvalidConfig)
	}
	if cfg.WeeklyQuota < 1 {
		return fmt.Errorf("%w: weekly_quota must be at least 1", ErrInvalidConfig)
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	}
	if cfg.ScoringLatencyMinMS > cfg.ScoringLatencyMaxMS {
		return fmt.Errorf("%w: scoring latency bounds are inverted", ErrInvalidConfig)
	}
	return nil
}
