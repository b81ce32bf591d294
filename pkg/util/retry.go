package util

import (
	"context"
	"time"
)

// RetryConfig bounds a retry loop. Backoff doubles per attempt up to MaxBackoff.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetry is used for idempotent store operations guarded by the
// optimistic-concurrency check.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 20 * time.Millisecond,
	MaxBackoff:     250 * time.Millisecond,
}

// Retry runs op until it succeeds, the error is not retryable, the attempt
// budget is exhausted, or the context is done. The last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, op func(context.Context) error, retryable func(error) bool) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 10 * time.Millisecond
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return err
}
