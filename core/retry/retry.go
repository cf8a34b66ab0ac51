package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
)

// Config holds the tunables of a retry policy.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `mapstructure:"max_attempts" default:"5"`
	// InitialIntervalMS is the delay before the second attempt, in milliseconds.
	InitialIntervalMS int `mapstructure:"initial_interval_ms" default:"500"`
	// MaxIntervalMS caps the delay between attempts, in milliseconds.
	MaxIntervalMS int `mapstructure:"max_interval_ms" default:"10000"`
	// Multiplier grows the delay after every attempt.
	Multiplier float64 `mapstructure:"multiplier" default:"2"`
	// Jitter is the randomization factor applied to each delay (0 disables it).
	Jitter float64 `mapstructure:"jitter" default:"0.25"`
}

// Policy decides how often and how fast an operation is retried.
// The zero value runs an operation once.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64

	// OnRetry, if set, is called before sleeping for the next attempt.
	OnRetry func(err error, next time.Duration)
}

// FromConfig builds a policy from configuration values.
func FromConfig(cfg Config) Policy {
	return Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: time.Duration(cfg.InitialIntervalMS) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.MaxIntervalMS) * time.Millisecond,
		Multiplier:      cfg.Multiplier,
		Jitter:          cfg.Jitter,
	}
}

// Once returns a policy that never retries.
func Once() Policy {
	return Policy{MaxAttempts: 1}
}

// WithNotify returns a copy of p that calls fn between attempts.
func (p Policy) WithNotify(fn func(err error, next time.Duration)) Policy {
	p.OnRetry = fn
	return p
}

// BackOff returns the delay generator for the policy.
func (p Policy) BackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.Jitter
	b.Reset()
	return b
}

func (p Policy) attempts() uint {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return uint(p.MaxAttempts)
}

// Do runs op until it succeeds, returns an error retryable rejects, the attempts are
// exhausted or ctx is done. The last error is returned.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.BackOff()),
		backoff.WithMaxTries(p.attempts()),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	res, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err != nil && retryable != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	}
	return res, err
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, retryable func(error) bool, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, retryable, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// On returns a retryable predicate matching any of the marks.
func On(marks ...error) func(error) bool {
	return func(err error) bool {
		return errors.IsAny(err, marks...)
	}
}
