package llm

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iterrors "github.com/leroylim/it-guru-assistant-chatbot/internal/errors"
)

func newIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to create loopback listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = ln
	server.Start()
	t.Cleanup(server.Close)

	return server
}

func TestOpenAIClientCompleteSuccess(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "value", r.Header.Get("X-Custom"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-model", payload["model"])
		assert.Equal(t, false, payload["stream"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{
					"message":       map[string]any{"content": "hello"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     3,
				"completion_tokens": 4,
				"total_tokens":      7,
			},
		})
	}))

	client, err := NewOpenAIClient("test-model", Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Headers: map[string]string{"X-Custom": "value"},
	})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages:  []Message{{Role: "user", Content: "hi"}},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestOpenAIClientCompleteHTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		permanent bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, transient: true},
		{name: "server error", status: http.StatusBadGateway, body: `upstream died`, transient: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`, permanent: true},
		{name: "model not found", status: http.StatusNotFound, body: `{"error":{"message":"no such model"}}`, permanent: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			client, err := NewOpenAIClient("test-model", Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
			require.Error(t, err)
			assert.Equal(t, tc.transient, iterrors.IsTransient(err))
			assert.Equal(t, tc.permanent, iterrors.IsPermanent(err))
		})
	}
}

func TestOpenAIClientCompleteEmbeddedError(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"context length exceeded"},"choices":[]}`))
	}))

	client, err := NewOpenAIClient("test-model", Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context length exceeded")
}

func TestOpenAIClientStreamComplete(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, true, payload["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`,
			``,
			`data: {"choices":[{"delta":{"content":"lo"}}]}`,
			`data: not-json`,
			`data: {"choices":[{"delta":{"content":" world"},"finish_reason":"stop"}],"usage":{"prompt_tokens":2,"completion_tokens":3,"total_tokens":5}}`,
			`data: [DONE]`,
		}
		for _, chunk := range chunks {
			_, _ = w.Write([]byte(chunk + "\n"))
		}
	}))

	client, err := NewOpenAIClient("test-model", Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	var deltas []string
	sawFinal := false
	resp, err := client.StreamComplete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, StreamCallbacks{
		OnContentDelta: func(d ContentDelta) {
			if d.Final {
				sawFinal = true
				return
			}
			deltas = append(deltas, d.Delta)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo", " world"}, deltas)
	assert.True(t, sawFinal)
	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestOpenAIClientStreamCompleteHTTPError(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`overloaded`))
	}))

	client, err := NewOpenAIClient("test-model", Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.StreamComplete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, StreamCallbacks{})
	require.Error(t, err)
	assert.True(t, iterrors.IsTransient(err))
}

func TestOpenAIClientContextCancellation(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"slow"},"finish_reason":"stop"}],"usage":{}}`))
	}))

	client, err := NewOpenAIClient("test-model", Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Complete(ctx, CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, iterrors.IsTransient(err))
}
