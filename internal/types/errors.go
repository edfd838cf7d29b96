package types

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// RetryableError marks an error as transient: network timeouts, 429s, and
// 5xx responses. Callers decide retry policy with errors.As.
type RetryableError struct {
	Err error
	// RetryAfterSeconds is set when the server indicated a reset time
	// (HTTP 429 Retry-After). Zero means use the caller's backoff.
	RetryAfterSeconds int
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps an existing error as retryable.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// NewRateLimitedError wraps a 429 with the server-indicated reset delay.
func NewRateLimitedError(err error, retryAfterSeconds int) error {
	return &RetryableError{Err: err, RetryAfterSeconds: retryAfterSeconds}
}

// IsRetryable reports whether err (or anything it wraps) is transient.
// Context deadline expiry and network errors count as retryable even when
// not explicitly wrapped.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}

// RetryableStatus reports whether an HTTP status code warrants a retry.
func RetryableStatus(code int) bool {
	return code == 429 || code >= 500
}
