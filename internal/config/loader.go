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
//  2. file (YAML) if SLUICE_CONFIG is set
//  3. env (prefix SLUICE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SLUICE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadFile, err)
		}
	}

	// Environment variables: SLUICE_ADDR, SLUICE_BATCH_SIZE, ...
	// Map env keys like SLUICE_BATCH_SIZE -> batch_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SLUICE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "sluice_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadEnv, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnmarshal, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalid)
	case c.KeyField == "":
		return fmt.Errorf("%w: key_field must not be empty", ErrInvalid)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalid)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max_attempts must be positive", ErrInvalid)
	case c.RetryBaseDelayMS < 1:
		return fmt.Errorf("%w: retry_base_delay_ms must be positive", ErrInvalid)
	case c.BatchConcurrency < 1:
		return fmt.Errorf("%w: batch_concurrency must be positive", ErrInvalid)
	}
	switch c.Sink {
	case SinkMemory:
	case SinkDynamoDB:
		if c.Table == "" {
			return fmt.Errorf("%w: table is required for the dynamodb sink", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown sink %q", ErrInvalid, c.Sink)
	}
	return nil
}
