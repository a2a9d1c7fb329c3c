// Package resilience provides fault tolerance helpers for the network
// clients (speech-to-text and synthesis).
package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	defaultMaxRetries   = 3
	defaultBaseDelay    = 300 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultJitterFactor = 0.2
)

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	// IsRetryable decides whether an attempt's error is worth another
	// try. Nil retries everything.
	IsRetryable func(error) bool
}

// DefaultRetryConfig returns settings suited to short speech-service
// calls: the wake loop is waiting, so give up fast.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   defaultMaxRetries,
		BaseDelay:    defaultBaseDelay,
		MaxDelay:     defaultMaxDelay,
		JitterFactor: defaultJitterFactor,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.JitterFactor <= 0 {
		c.JitterFactor = defaultJitterFactor
	}
	return c
}

// Retry executes fn with exponential backoff until it succeeds, the
// retry budget runs out, or ctx is cancelled. Returns the last error.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if cfg.IsRetryable != nil && !cfg.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(cfg, attempt)):
		}
	}
	return lastErr
}

// backoffDelay computes the delay for an attempt: exponential growth
// capped at MaxDelay, with proportional jitter to avoid thundering
// retries against a struggling service.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << uint(attempt)
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Float64() * cfg.JitterFactor * float64(delay))
	return delay + jitter
}
