package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          10 * time.Millisecond,
	}
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("Do", func(t *testing.T) {
		t.Run("succeeds without retrying", func(t *testing.T) {
			calls := 0
			err := fastPolicy(3).Do(ctx, func() error {
				calls++
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calls != 1 {
				t.Errorf("expected 1 call, got %d", calls)
			}
		})

		t.Run("retries retryable errors until success", func(t *testing.T) {
			calls := 0
			err := fastPolicy(3).Do(ctx, func() error {
				calls++
				if calls < 3 {
					return &APIError{StatusCode: 429}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calls != 3 {
				t.Errorf("expected 3 calls, got %d", calls)
			}
		})

		t.Run("returns non-retryable errors immediately", func(t *testing.T) {
			calls := 0
			want := &APIError{StatusCode: 404}
			err := fastPolicy(3).Do(ctx, func() error {
				calls++
				return want
			})
			if !errors.Is(err, want) {
				t.Errorf("expected original error, got %v", err)
			}
			if calls != 1 {
				t.Errorf("expected 1 call, got %d", calls)
			}
		})

		t.Run("exhausts the attempt budget", func(t *testing.T) {
			calls := 0
			err := fastPolicy(3).Do(ctx, func() error {
				calls++
				return &APIError{StatusCode: 503}
			})
			if err == nil {
				t.Fatal("expected error after exhausting attempts")
			}
			if calls != 3 {
				t.Errorf("expected 3 calls, got %d", calls)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Errorf("expected wrapped APIError, got %v", err)
			}
		})

		t.Run("treats zero max retries as one attempt", func(t *testing.T) {
			calls := 0
			_ = RetryPolicy{InitialDelay: time.Millisecond, BackoffMultiplier: 2.0}.Do(ctx, func() error {
				calls++
				return &APIError{StatusCode: 429}
			})
			if calls != 1 {
				t.Errorf("expected 1 call, got %d", calls)
			}
		})

		t.Run("stops when the context is cancelled", func(t *testing.T) {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			calls := 0
			err := fastPolicy(5).Do(cancelled, func() error {
				calls++
				return &APIError{StatusCode: 429}
			})
			if err == nil {
				t.Fatal("expected cancellation error")
			}
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled in chain, got %v", err)
			}
			if calls != 0 {
				t.Errorf("expected no calls after cancellation, got %d", calls)
			}
		})
	})

	t.Run("delayFor", func(t *testing.T) {
		policy := RetryPolicy{
			InitialDelay:      500 * time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxDelay:          10 * time.Second,
		}

		t.Run("grows exponentially", func(t *testing.T) {
			cases := []struct {
				attempt int
				want    time.Duration
			}{
				{1, 500 * time.Millisecond},
				{2, time.Second},
				{3, 2 * time.Second},
				{4, 4 * time.Second},
			}
			for _, tc := range cases {
				if got := policy.delayFor(tc.attempt, errors.New("x")); got != tc.want {
					t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
				}
			}
		})

		t.Run("caps at max delay", func(t *testing.T) {
			if got := policy.delayFor(10, errors.New("x")); got != 10*time.Second {
				t.Errorf("expected cap at 10s, got %v", got)
			}
		})

		t.Run("honors a longer Retry-After with margin", func(t *testing.T) {
			err := &APIError{StatusCode: 429, RetryAfter: 5 * time.Second}
			want := 5*time.Second + 100*time.Millisecond
			if got := policy.delayFor(1, err); got != want {
				t.Errorf("expected %v, got %v", want, got)
			}
		})

		t.Run("keeps computed backoff when it exceeds Retry-After", func(t *testing.T) {
			err := &APIError{StatusCode: 429, RetryAfter: time.Millisecond}
			if got := policy.delayFor(4, err); got != 4*time.Second {
				t.Errorf("expected 4s backoff, got %v", got)
			}
		})
	})

	t.Run("OnRetry", func(t *testing.T) {
		t.Run("observes each retry", func(t *testing.T) {
			var attempts []int
			policy := fastPolicy(3)
			policy.OnRetry = func(attempt int, delay time.Duration, err error) {
				attempts = append(attempts, attempt)
			}

			_ = policy.Do(ctx, func() error {
				return &APIError{StatusCode: 429}
			})

			if len(attempts) != 2 {
				t.Fatalf("expected 2 notifications, got %d", len(attempts))
			}
			if attempts[0] != 1 || attempts[1] != 2 {
				t.Errorf("unexpected attempt numbers: %v", attempts)
			}
		})

		t.Run("contains panics from the observer", func(t *testing.T) {
			policy := fastPolicy(2)
			policy.OnRetry = func(int, time.Duration, error) {
				panic("observer bug")
			}

			calls := 0
			_ = policy.Do(ctx, func() error {
				calls++
				return &APIError{StatusCode: 429}
			})
			if calls != 2 {
				t.Errorf("expected retries to continue past observer panic, got %d calls", calls)
			}
		})
	})
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"unavailable", &APIError{StatusCode: 503}, true},
		{"retry-after on other status", &APIError{StatusCode: 500, RetryAfter: time.Second}, true},
		{"client error", &APIError{StatusCode: 400}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
