package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "explicit transient error",
			err:      NewTransientError(errors.New("test"), "transient"),
			expected: true,
		},
		{
			name:     "explicit permanent error",
			err:      NewPermanentError(errors.New("test"), "permanent"),
			expected: false,
		},
		{
			name:     "rate limit 429",
			err:      fmt.Errorf("API error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 500",
			err:      fmt.Errorf("HTTP 500: internal server error"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      fmt.Errorf("503 service unavailable"),
			expected: true,
		},
		{
			name:     "timeout error",
			err:      fmt.Errorf("context deadline exceeded"),
			expected: true,
		},
		{
			name:     "connection refused",
			err:      fmt.Errorf("dial tcp 127.0.0.1:443: connect: connection refused"),
			expected: true,
		},
		{
			name:     "syscall connection reset",
			err:      syscall.ECONNRESET,
			expected: true,
		},
		{
			name:     "unauthorized 401",
			err:      fmt.Errorf("HTTP 401: unauthorized"),
			expected: false,
		},
		{
			name:     "not found 404",
			err:      fmt.Errorf("HTTP 404: not found"),
			expected: false,
		},
		{
			name:     "bad request 400",
			err:      fmt.Errorf("HTTP 400: bad request"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsTransient(tt.err)
			if result != tt.expected {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "explicit permanent error",
			err:      NewPermanentError(errors.New("test"), "permanent"),
			expected: true,
		},
		{
			name:     "explicit transient error",
			err:      NewTransientError(errors.New("test"), "transient"),
			expected: false,
		},
		{
			name:     "unauthorized 401",
			err:      fmt.Errorf("HTTP 401: unauthorized"),
			expected: true,
		},
		{
			name:     "forbidden 403",
			err:      fmt.Errorf("HTTP 403: forbidden"),
			expected: true,
		},
		{
			name:     "tool not found",
			err:      fmt.Errorf("tool not found: microsoft_docs_search"),
			expected: true,
		},
		{
			name:     "plain failure",
			err:      fmt.Errorf("something odd happened"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsPermanent(tt.err)
			if result != tt.expected {
				t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"nil", nil, ErrorTypePermanent},
		{"degraded", NewDegradedError(errors.New("x"), "msg", "fallback"), ErrorTypeDegraded},
		{"transient", NewTransientError(errors.New("x"), "msg"), ErrorTypeTransient},
		{"permanent", NewPermanentError(errors.New("x"), "msg"), ErrorTypePermanent},
		{"unclassified defaults to permanent", errors.New("mystery"), ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorType(tt.err); got != tt.expected {
				t.Errorf("GetErrorType(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFormatForUser(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "custom message wins",
			err:      NewTransientError(errors.New("raw"), "Search is busy, retrying shortly."),
			contains: "Search is busy",
		},
		{
			name:     "rate limit",
			err:      fmt.Errorf("API error 429: slow down"),
			contains: "rate limit",
		},
		{
			name:     "auth failure",
			err:      fmt.Errorf("HTTP 401: unauthorized"),
			contains: "API key",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("context deadline exceeded"),
			contains: "timed out",
		},
		{
			name:     "unknown passes through",
			err:      errors.New("weird oddity"),
			contains: "weird oddity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatForUser(tt.err)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FormatForUser(%v) = %q, want substring %q", tt.err, got, tt.contains)
			}
		})
	}
}

func TestBackoffDelayHonorsRetryAfter(t *testing.T) {
	config := DefaultRetryConfig()
	err := &TransientError{Err: errors.New("429"), RetryAfter: 7}

	if got := backoffDelay(0, config, err); got != 7*time.Second {
		t.Fatalf("expected Retry-After to win, got %v", got)
	}

	plain := NewTransientError(errors.New("503"), "")
	delay := backoffDelay(1, config, plain)
	if delay <= 0 || delay > config.MaxDelay {
		t.Fatalf("computed backoff out of range: %v", delay)
	}
}

func TestRetryWithResultStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := RetryWithResult(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) (string, error) {
		calls++
		return "", NewPermanentError(errors.New("401"), "no key")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("permanent error should not be retried, got %d calls", calls)
	}
}

func TestRetryWithResultRecovers(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("503"), "")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("expected recovery on third call, got %q after %d calls", got, calls)
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test-upstream", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	failing := func(ctx context.Context) error { return errors.New("boom") }
	succeeding := func(ctx context.Context) error { return nil }

	ctx := context.Background()
	_ = cb.Execute(ctx, failing)
	_ = cb.Execute(ctx, failing)

	if cb.State() != StateOpen {
		t.Fatalf("expected open state after threshold, got %v", cb.State())
	}

	if err := cb.Allow(); !IsDegraded(err) {
		t.Fatalf("expected degraded error while open, got %v", err)
	}

	time.Sleep(15 * time.Millisecond)

	if err := cb.Execute(ctx, succeeding); err != nil {
		t.Fatalf("half-open probe should pass: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after recovery, got %v", cb.State())
	}
}

func TestShouldRetry(t *testing.T) {
	if ShouldRetry(nil, 0, 3) {
		t.Fatalf("nil error should not retry")
	}
	if ShouldRetry(NewTransientError(errors.New("x"), ""), 3, 3) {
		t.Fatalf("exhausted attempts should not retry")
	}
	if !ShouldRetry(NewTransientError(errors.New("x"), ""), 1, 3) {
		t.Fatalf("transient mid-flight should retry")
	}
}
