package types

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"retryable", NewRetryableError(errors.New("503")), true},
		{"wrapped retryable", fmt.Errorf("call failed: %w", NewRetryableError(errors.New("503"))), true},
		{"rate limited", NewRateLimitedError(errors.New("429"), 10), true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("timed out: %w", context.DeadlineExceeded), true},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryAfterSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("provider: %w", NewRateLimitedError(errors.New("429"), 42))

	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatal("expected RetryableError extractable")
	}
	if re.RetryAfterSeconds != 42 {
		t.Errorf("expected retry-after 42, got %d", re.RetryAfterSeconds)
	}
}

func TestRetryableError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewRetryableError(inner)

	if !errors.Is(err, inner) {
		t.Error("retryable wrapper must unwrap to the inner error")
	}
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}

	for _, tt := range tests {
		if got := RetryableStatus(tt.code); got != tt.want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
