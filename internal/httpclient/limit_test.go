package httpclient

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
	"time"

	iterrors "github.com/leroylim/it-guru-assistant-chatbot/internal/errors"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

func TestReadAllWithLimitWithinLimit(t *testing.T) {
	payload := []byte("hello")
	got, err := ReadAllWithLimit(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}

func TestReadAllWithLimitTooLarge(t *testing.T) {
	payload := []byte("hello")
	_, err := ReadAllWithLimit(bytes.NewReader(payload), 2)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsResponseTooLarge(err) {
		t.Fatalf("expected ResponseTooLargeError, got %v", err)
	}
}

func TestReadAllWithLimitUnlimited(t *testing.T) {
	payload := []byte("hello")
	got, err := ReadAllWithLimit(bytes.NewReader(payload), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}

func TestNewAppliesDefaultTimeout(t *testing.T) {
	client := New(0, logging.Nop())
	if client.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", client.Timeout)
	}
}

type stubRoundTripper struct {
	status int
	err    error
	calls  int
}

func (s *stubRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{StatusCode: s.status, Body: http.NoBody}, nil
}

func TestCircuitBreakerRoundTripperOpensOnRepeatedFailures(t *testing.T) {
	stub := &stubRoundTripper{err: errors.New("connection reset")}
	rt := WrapTransportWithCircuitBreaker(stub, "test-upstream", iterrors.CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	for i := 0; i < 2; i++ {
		if _, err := rt.RoundTrip(req); err == nil {
			t.Fatalf("expected transport error")
		}
	}

	_, err := rt.RoundTrip(req)
	if err == nil {
		t.Fatal("expected breaker rejection")
	}
	if !iterrors.IsDegraded(err) {
		t.Fatalf("expected degraded error from open breaker, got %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected open circuit to skip upstream, got %d calls", stub.calls)
	}
}

func TestCircuitBreakerRoundTripperMarksServerErrors(t *testing.T) {
	stub := &stubRoundTripper{status: http.StatusBadGateway}
	rt := WrapTransportWithCircuitBreaker(stub, "test-upstream", iterrors.CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("5xx responses should be returned, not converted: %v", err)
	}

	if _, err := rt.RoundTrip(req); !iterrors.IsDegraded(err) {
		t.Fatalf("expected breaker to open on 5xx, got %v", err)
	}
}
