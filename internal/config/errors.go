package config

import (
	"errors"
)

// Sentinel kinds for configuration failures; callers branch with errors.Is.
var (
	// ErrInvalidConfig marks a loaded configuration that fails validation,
	// such as an empty ledger endpoint list or an inverted latency range.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig marks a failure to read or parse the config sources.
	ErrLoadConfig = errors.New("load config failed")
)
