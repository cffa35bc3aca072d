package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	iterrors "github.com/leroylim/it-guru-assistant-chatbot/internal/errors"
)

// HTTPStatusError carries a non-2xx completion endpoint response before
// taxonomy classification.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// wrapRequestError classifies transport-level failures from http.Client.Do.
func wrapRequestError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return iterrors.NewTransientError(err, "The request timed out. The upstream service may be slow right now; please retry.")
	}
	return iterrors.NewTransientError(err, iterrors.FormatForUser(err))
}

// mapHTTPError converts a non-2xx status into the transient/permanent
// taxonomy, honoring Retry-After on 429 responses.
func mapHTTPError(statusCode int, body []byte, header http.Header) error {
	statusErr := &HTTPStatusError{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       string(body),
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(header)
		return &iterrors.TransientError{
			Err:        statusErr,
			StatusCode: statusCode,
			RetryAfter: retryAfter,
			Message:    "API rate limit reached. Please wait a moment and try again, or switch to a less busy model.",
		}
	case statusCode >= http.StatusInternalServerError:
		return &iterrors.TransientError{
			Err:        statusErr,
			StatusCode: statusCode,
			Message:    "The upstream service is temporarily unavailable. Please try again shortly.",
		}
	case statusCode == http.StatusUnauthorized:
		return &iterrors.PermanentError{
			Err:        statusErr,
			StatusCode: statusCode,
			Message:    "Authentication failed. Please check your API key configuration.",
		}
	case statusCode == http.StatusForbidden:
		return &iterrors.PermanentError{
			Err:        statusErr,
			StatusCode: statusCode,
			Message:    "Permission denied. Your API key does not have access to this model.",
		}
	case statusCode == http.StatusNotFound:
		return &iterrors.PermanentError{
			Err:        statusErr,
			StatusCode: statusCode,
			Message:    "Model or endpoint not found. Please verify the model name.",
		}
	default:
		message := "The upstream service rejected the request."
		if detail := extractErrorDetail(body); detail != "" {
			message = fmt.Sprintf("The upstream service rejected the request: %s", detail)
		}
		return &iterrors.PermanentError{
			Err:        statusErr,
			StatusCode: statusCode,
			Message:    message,
		}
	}
}

func parseRetryAfter(header http.Header) int {
	if header == nil {
		return 0
	}
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

// extractErrorDetail pulls a short human-readable detail out of an error
// body without attempting full schema parsing.
func extractErrorDetail(body []byte) string {
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return ""
	}
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	return detail
}
