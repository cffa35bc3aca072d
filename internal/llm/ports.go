package llm

import (
	"context"

	"github.com/google/uuid"
)

// newRequestID produces a fresh identifier for correlating request logs.
func newRequestID() string {
	return uuid.NewString()[:8]
}

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one call to the completion endpoint.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// Metadata is carried through for request-id logging.
	Metadata map[string]any
}

// TokenUsage reports token accounting from the completion endpoint.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the aggregated result of a completion call.
type CompletionResponse struct {
	Content    string
	StopReason string
	Usage      TokenUsage
	Metadata   map[string]any
}

// ContentDelta is one incremental piece of streamed answer text.
type ContentDelta struct {
	Delta string
	Final bool
}

// StreamCallbacks receive incremental events during a streaming completion.
type StreamCallbacks struct {
	OnContentDelta func(ContentDelta)
}

// Client is the completion contract the pipeline depends on. StreamComplete
// must deliver every non-empty delta in order and return the aggregated
// response; both methods honor ctx cancellation.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	StreamComplete(ctx context.Context, req CompletionRequest, callbacks StreamCallbacks) (*CompletionResponse, error)
	Model() string
}

// Config configures an HTTP-based completion client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    int // seconds
	Headers    map[string]string
	MaxRetries int
}
