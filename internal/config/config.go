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
)

// Sink kinds selectable via configuration.
const (
	SinkMemory   = "memory"
	SinkDynamoDB = "dynamodb"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// Region selects the AWS region for the blob source and sink clients.
	Region string `koanf:"region"`

	// Endpoint overrides the AWS endpoint, for local stacks. Empty means
	// the real service endpoints.
	Endpoint string `koanf:"endpoint"`

	// Sink selects the sink implementation: memory or dynamodb.
	Sink string `koanf:"sink"`

	// Table names the DynamoDB table records are written to.
	Table string `koanf:"table"`

	// KeyField names the record field used as the partition key.
	KeyField string `koanf:"key_field"`

	// BatchSize bounds how many records one sink call may carry.
	// The platform limit for DynamoDB BatchWriteItem is 25.
	BatchSize int `koanf:"batch_size"`

	// MaxAttempts bounds retries of throttled items, first attempt included.
	MaxAttempts int `koanf:"max_attempts"`

	// RetryBaseDelayMS is the first backoff delay; it doubles per attempt.
	RetryBaseDelayMS int `koanf:"retry_base_delay_ms"`

	// BatchConcurrency bounds how many batches are in flight at once.
	BatchConcurrency int `koanf:"batch_concurrency"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9090",
		Region:           "us-east-1",
		Sink:             SinkDynamoDB,
		Table:            "records",
		KeyField:         "id",
		BatchSize:        25,
		MaxAttempts:      3,
		RetryBaseDelayMS: 100,
		BatchConcurrency: runtime.NumCPU(),
	}
}
