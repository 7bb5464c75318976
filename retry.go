package renewer

import (
	"context"
	"fmt"
	"time"

	"github.com/ddns-tools/renewer/internal/backoff"
)

// RetryExhaustedError wraps the last underlying error after the retry budget
// is spent, tagged with the total number of attempts made.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last underlying error.
func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// retryPolicy wraps a fallible operation with bounded
// exponential-backoff-with-jitter retry. The policy itself is oblivious to
// what the operation does; the retryable classifier supplied by the caller
// decides which failures are worth another attempt.
type retryPolicy struct {
	cfg       RetryConfig
	retryable func(error) bool
	onRetry   func(stage string, attempt int, delay time.Duration, err error)
	sleep     func(ctx context.Context, d time.Duration) error
}

func newRetryPolicy(cfg RetryConfig, retryable func(error) bool, onRetry func(stage string, attempt int, delay time.Duration, err error)) *retryPolicy {
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	return &retryPolicy{
		cfg:       cfg,
		retryable: retryable,
		onRetry:   onRetry,
		sleep:     backoff.Sleep,
	}
}

// Do attempts op once plus up to MaxRetries more times. Failures the
// classifier marks non-retryable are returned as-is immediately; exhaustion
// returns a *RetryExhaustedError wrapping the last failure. Attempt state is
// local to this call and never shared across operations.
func (p *retryPolicy) Do(ctx context.Context, stage string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
		if attempt >= p.cfg.MaxRetries {
			return &RetryExhaustedError{Attempts: attempt + 1, Err: lastErr}
		}

		delay := backoff.Delay(p.cfg.BaseDelay, p.cfg.MaxDelay, p.cfg.ExponentialBase, attempt)
		if p.cfg.Jitter {
			delay = backoff.FullJitter(delay)
		}
		if p.onRetry != nil {
			p.onRetry(stage, attempt+1, delay, lastErr)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
}
