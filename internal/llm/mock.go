package llm

import (
	"context"
	"sync"
)

// MockClient implements Client for testing. Responses are served in order;
// once exhausted, the last response repeats.
type MockClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	calls     []CompletionRequest
	next      int
}

// MockResponse is one scripted reply for a MockClient.
type MockResponse struct {
	Content string
	Err     error
}

func NewMockClient(model string, responses ...MockResponse) *MockClient {
	if model == "" {
		model = "mock-model"
	}
	return &MockClient{model: model, responses: responses}
}

// Enqueue appends scripted responses.
func (m *MockClient) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// Calls returns a copy of every request received so far.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) take(req CompletionRequest) MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.responses) == 0 {
		return MockResponse{Content: "mock response"}
	}
	resp := m.responses[m.next]
	if m.next < len(m.responses)-1 {
		m.next++
	}
	return resp
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := m.take(req)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &CompletionResponse{
		Content:    resp.Content,
		StopReason: "stop",
		Usage:      TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *MockClient) StreamComplete(ctx context.Context, req CompletionRequest, callbacks StreamCallbacks) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := m.take(req)
	if resp.Err != nil {
		return nil, resp.Err
	}
	if callbacks.OnContentDelta != nil {
		if resp.Content != "" {
			callbacks.OnContentDelta(ContentDelta{Delta: resp.Content})
		}
		callbacks.OnContentDelta(ContentDelta{Final: true})
	}
	return &CompletionResponse{
		Content:    resp.Content,
		StopReason: "stop",
		Usage:      TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *MockClient) Model() string {
	return m.model
}
