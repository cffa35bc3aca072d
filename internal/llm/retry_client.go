package llm

import (
	"context"
	"time"

	iterrors "github.com/leroylim/it-guru-assistant-chatbot/internal/errors"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

// retryClient wraps an LLM client with retry logic and circuit breaker
type retryClient struct {
	underlying     Client
	retryConfig    iterrors.RetryConfig
	circuitBreaker *iterrors.CircuitBreaker
	logger         logging.Logger
}

var _ Client = (*retryClient)(nil)

// NewRetryClient wraps an LLM client with retry and circuit breaker logic.
func NewRetryClient(client Client, retryConfig iterrors.RetryConfig, circuitBreaker *iterrors.CircuitBreaker) Client {
	return &retryClient{
		underlying:     client,
		retryConfig:    retryConfig,
		circuitBreaker: circuitBreaker,
		logger:         logging.NewComponentLogger("llm-retry"),
	}
}

// Complete executes LLM completion with retry logic.
func (c *retryClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	startTime := time.Now()

	resp, err := iterrors.RetryWithResultAndLog(ctx, c.retryConfig, func(ctx context.Context) (*CompletionResponse, error) {
		return iterrors.ExecuteFunc(c.circuitBreaker, ctx, func(ctx context.Context) (*CompletionResponse, error) {
			return c.underlying.Complete(ctx, req)
		})
	}, c.logger)

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("LLM request failed after retries (took %v): %v", duration, err)
		return nil, err
	}

	if duration > 5*time.Second {
		c.logger.Debug("LLM request succeeded after %v", duration)
	}

	return resp, nil
}

// StreamComplete proxies streaming requests to the underlying client.
// Unlike Complete, streaming requests are not retried: callbacks may already
// have delivered partial output, and replaying would duplicate it. The
// circuit breaker still observes the outcome.
func (c *retryClient) StreamComplete(ctx context.Context, req CompletionRequest, callbacks StreamCallbacks) (*CompletionResponse, error) {
	startTime := time.Now()

	resp, err := iterrors.ExecuteFunc(c.circuitBreaker, ctx, func(ctx context.Context) (*CompletionResponse, error) {
		return c.underlying.StreamComplete(ctx, req, callbacks)
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("LLM streaming request failed (took %v): %v", duration, err)
		return nil, err
	}

	if duration > 5*time.Second {
		c.logger.Debug("LLM streaming request succeeded after %v", duration)
	}

	return resp, nil
}

// Model returns the underlying model name.
func (c *retryClient) Model() string {
	return c.underlying.Model()
}
