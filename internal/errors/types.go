package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

// ErrorType classifies errors for retry and degradation decisions.
type ErrorType int

const (
	// ErrorTypeTransient - retry-able errors
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent - non-retry-able errors
	ErrorTypePermanent
	// ErrorTypeDegraded - can continue with reduced functionality
	ErrorTypeDegraded
)

// TransientError represents an error that can be retried.
type TransientError struct {
	Err           error
	RetryAfter    int    // Seconds to wait before retry (from Retry-After header)
	StatusCode    int    // HTTP status code if applicable
	SuggestedWait int    // Suggested wait time in seconds
	Message       string // User-facing message
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError represents an error that should not be retried.
type PermanentError struct {
	Err        error
	StatusCode int    // HTTP status code if applicable
	Message    string // User-facing message
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// DegradedError represents an error where service can continue with reduced
// functionality, typically by substituting fallback content.
type DegradedError struct {
	Err             error
	FallbackContent string // Alternative content to return
	Message         string // User-facing message
}

func (e *DegradedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("degraded error: %v", e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// IsTransient checks if an error is retry-able.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	if isNetworkError(err) {
		return true
	}

	if statusCode := extractHTTPStatusCode(err); statusCode > 0 {
		return isTransientHTTPStatus(statusCode)
	}

	if isSyscallError(err) {
		return true
	}

	return false
}

// IsPermanent checks if an error is non-retry-able.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return true
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return false
	}

	if statusCode := extractHTTPStatusCode(err); statusCode > 0 {
		return isPermanentHTTPStatus(statusCode)
	}

	permanentPatterns := []string{
		"not found",
		"permission denied",
		"invalid",
		"unauthorized",
		"forbidden",
		"bad request",
		"tool not found",
	}

	lowerErr := strings.ToLower(err.Error())
	for _, pattern := range permanentPatterns {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}

	return false
}

// IsDegraded checks if an error allows degraded service.
func IsDegraded(err error) bool {
	var degradedErr *DegradedError
	return errors.As(err, &degradedErr)
}

// GetErrorType classifies an error.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	if IsDegraded(err) {
		return ErrorTypeDegraded
	}

	if IsTransient(err) {
		return ErrorTypeTransient
	}

	if IsPermanent(err) {
		return ErrorTypePermanent
	}

	// Default to permanent to avoid infinite retries.
	return ErrorTypePermanent
}

// FormatForUser converts technical errors into messages safe to show inline
// in an answer stream.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) && transientErr.Message != "" {
		return transientErr.Message
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) && permanentErr.Message != "" {
		return permanentErr.Message
	}

	var degradedErr *DegradedError
	if errors.As(err, &degradedErr) && degradedErr.Message != "" {
		return degradedErr.Message
	}

	errStr := err.Error()
	lowerErr := strings.ToLower(errStr)

	if strings.Contains(lowerErr, "connection refused") {
		return "The remote service refused the connection. Please check the endpoint configuration and try again."
	}

	if strings.Contains(lowerErr, "rate limit") || strings.Contains(lowerErr, "429") {
		return "API rate limit reached. Please wait a moment and try again, or switch to a less busy model."
	}

	if strings.Contains(lowerErr, "timeout") || strings.Contains(lowerErr, "deadline exceeded") {
		return "The request timed out. The upstream service may be slow right now; please retry."
	}

	if strings.Contains(lowerErr, "network") || strings.Contains(lowerErr, "dns") {
		return "Network connectivity issue. Please check your internet connection and try again."
	}

	if strings.Contains(lowerErr, "unauthorized") || strings.Contains(lowerErr, "401") {
		return "Authentication failed. Please check your API key configuration."
	}

	if strings.Contains(lowerErr, "permission denied") || strings.Contains(lowerErr, "403") {
		return "Permission denied. Your API key does not have access to this resource."
	}

	if strings.Contains(lowerErr, "not found") || strings.Contains(lowerErr, "404") {
		return "The requested resource was not found. The upstream API may have changed."
	}

	if strings.Contains(lowerErr, "bad request") || strings.Contains(lowerErr, "400") {
		return "The upstream service rejected the request. Please try rephrasing your question."
	}

	if strings.Contains(lowerErr, "500") || strings.Contains(lowerErr, "502") ||
		strings.Contains(lowerErr, "503") || strings.Contains(lowerErr, "internal server error") {
		return "The upstream service is temporarily unavailable. Please try again shortly."
	}

	return errStr
}

// Helper functions

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"timeout",
		"deadline exceeded",
		"network",
		"dns",
		"connection reset",
		"broken pipe",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

func isSyscallError(err error) bool {
	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return true
		}
	}
	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}
	return false
}

func isPermanentHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusBadRequest, // 400
		http.StatusUnauthorized,        // 401
		http.StatusForbidden,           // 403
		http.StatusNotFound,            // 404
		http.StatusMethodNotAllowed,    // 405
		http.StatusConflict,            // 409
		http.StatusGone,                // 410
		http.StatusUnprocessableEntity: // 422
		return true
	}
	return false
}

var statusCodePattern = regexp.MustCompile(`\b(400|401|403|404|405|409|410|422|429|500|502|503|504)\b`)

// extractHTTPStatusCode pulls a known status code out of error strings such
// as "API error 429: ..." or "HTTP 500: internal server error".
func extractHTTPStatusCode(err error) int {
	match := statusCodePattern.FindString(err.Error())
	if match == "" {
		return 0
	}
	code, convErr := strconv.Atoi(match)
	if convErr != nil {
		return 0
	}
	return code
}

// Helper constructors

// NewTransientError creates a new transient error with a user-facing message.
func NewTransientError(err error, message string) *TransientError {
	return &TransientError{
		Err:     err,
		Message: message,
	}
}

// NewPermanentError creates a new permanent error with a user-facing message.
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{
		Err:     err,
		Message: message,
	}
}

// NewDegradedError creates a new degraded error with fallback content.
func NewDegradedError(err error, message, fallback string) *DegradedError {
	return &DegradedError{
		Err:             err,
		Message:         message,
		FallbackContent: fallback,
	}
}
