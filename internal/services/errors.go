package services

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// APIError is a non-2xx response from the streaming service.
//
// RetryAfter carries the server-supplied Retry-After delay when the
// response included one, zero otherwise.
type APIError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
}

// Retryable reports whether the error is worth retrying: rate limiting,
// temporary unavailability, or any response carrying a Retry-After.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode == 503 || e.RetryAfter > 0
}

// IsRetryable classifies an error for the retry policy. Connection
// errors and timeouts are retryable; API errors delegate to
// [APIError.Retryable]; everything else propagates immediately.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// RetryAfterOf extracts the server-supplied retry delay from an error
// chain, or zero when none is present.
func RetryAfterOf(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
