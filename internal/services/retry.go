package services

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryPolicy wraps upstream calls with exponential backoff that honors
// a server-supplied Retry-After delay. Attempts are bounded; the last
// error is returned once they are exhausted.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration

	// OnRetry is invoked before each retry sleep, for logging and
	// metrics only. It never affects control flow; panics are contained.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy is tuned for single-page fetches and one-off calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          10 * time.Second,
	}
}

// BulkRetryPolicy is tuned for long pagination runs, where giving up
// mid-collection is more expensive than waiting out another backoff.
func BulkRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        5,
		InitialDelay:      500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
	}
}

// Do executes op, retrying retryable failures (see [IsRetryable]) until
// it succeeds or MaxRetries attempts have been made. Non-retryable
// errors propagate after the first occurrence.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		delay := p.delayFor(attempt, lastErr)
		p.notify(attempt, delay, lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// delayFor computes the backoff for a given attempt. A server-supplied
// Retry-After overrides the computed delay when it is longer, plus a
// small margin so the retry lands after the window reopens.
func (p RetryPolicy) delayFor(attempt int, err error) time.Duration {
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if retryAfter := RetryAfterOf(err); retryAfter > 0 {
		if server := retryAfter + 100*time.Millisecond; server > delay {
			delay = server
		}
	}

	return delay
}

func (p RetryPolicy) notify(attempt int, delay time.Duration, err error) {
	if p.OnRetry == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	p.OnRetry(attempt, delay, err)
}
