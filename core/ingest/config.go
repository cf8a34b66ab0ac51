package ingest

import (
	"time"

	"feed-processor/core/retry"
)

// Config holds the pipeline tunables.
type Config struct {
	// BatchSize is the number of ids per state lookup and per publish/commit chunk.
	BatchSize int `mapstructure:"batch_size" default:"100"`
	// Workers bounds the chunks in flight per phase.
	Workers int `mapstructure:"workers" default:"4"`
	// RunTimeoutSeconds is the deadline of a whole run.
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds" default:"600"`
	// PublishTimeoutSeconds bounds one publish attempt.
	PublishTimeoutSeconds int `mapstructure:"publish_timeout_seconds" default:"10"`
	// StoreRetry is the policy for transient state store failures.
	StoreRetry retry.Config `mapstructure:"store_retry"`
	// PublishRetry is the policy for transient publish failures.
	PublishRetry retry.Config `mapstructure:"publish_retry"`
}

// Options converts the configuration into engine options.
func (c Config) Options() Options {
	return Options{
		BatchSize:      c.BatchSize,
		Workers:        c.Workers,
		RunTimeout:     time.Duration(c.RunTimeoutSeconds) * time.Second,
		PublishTimeout: time.Duration(c.PublishTimeoutSeconds) * time.Second,
		StoreRetry:     retry.FromConfig(c.StoreRetry),
		PublishRetry:   retry.FromConfig(c.PublishRetry),
	}
}
