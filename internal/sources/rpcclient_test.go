package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

func TestParseEventStreamAccumulatesLatestResult(t *testing.T) {
	t.Parallel()

	stream := strings.Join([]string{
		`: comment line`,
		`data: {"jsonrpc":"2.0","id":1,"result":{"tools":[{"name":"old"}]}}`,
		``,
		`data: not json at all`,
		`data: {"jsonrpc":"2.0","id":1,"result":{"tools":[{"name":"microsoft_docs_search"}]}}`,
		`data: [DONE]`,
	}, "\n")

	resp, err := parseEventStream(strings.NewReader(stream))
	require.NoError(t, err)
	require.NotNil(t, resp.Result)

	var listed toolsListResult
	require.NoError(t, json.Unmarshal(resp.Result, &listed))
	require.Len(t, listed.Tools, 1)
	assert.Equal(t, "microsoft_docs_search", listed.Tools[0].Name)
}

func TestParseEventStreamBareContentPayload(t *testing.T) {
	t.Parallel()

	stream := `data: {"content":"some markdown body"}` + "\n"

	resp, err := parseEventStream(strings.NewReader(stream))
	require.NoError(t, err)
	require.NotNil(t, resp.Result)

	var result toolCallResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	var text string
	require.NoError(t, json.Unmarshal(result.Content, &text))
	assert.Equal(t, "some markdown body", text)
}

func TestRPCClientCallToolRefreshesOnceOn404(t *testing.T) {
	t.Parallel()

	var listCalls, callCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Method {
		case methodToolsList:
			listCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"result": map[string]any{"tools": []map[string]any{{"name": "search_documentation"}}},
			})
		case methodToolsCall:
			callCalls++
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newRPCClient(server.URL, transportPlain, "test-rpc", logging.Nop())
	require.True(t, client.ensureTools(context.Background()))
	require.Equal(t, 1, listCalls)

	result := client.callTool(context.Background(), "search_documentation", map[string]any{"search_phrase": "vpc"})
	assert.Nil(t, result)
	assert.Equal(t, 1, callCalls)
	// Exactly one refresh after the 404, not a retry of the call.
	assert.Equal(t, 2, listCalls)
}

func TestRPCClientCallToolSurfacesRPCErrorAsNil(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Method == methodToolsList {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"result": map[string]any{"tools": []map[string]any{{"name": "t"}}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]any{"code": -32602, "message": "invalid params"},
		})
	}))
	defer server.Close()

	client := newRPCClient(server.URL, transportPlain, "test-rpc", logging.Nop())
	require.True(t, client.ensureTools(context.Background()))
	assert.Nil(t, client.callTool(context.Background(), "t", nil))
}

func TestRPCClientUnreachableServer(t *testing.T) {
	t.Parallel()

	client := newRPCClient("http://127.0.0.1:1", transportPlain, "test-rpc", logging.Nop())
	assert.False(t, client.ensureTools(context.Background()))
	assert.Nil(t, client.callTool(context.Background(), "t", nil))
}

func TestRPCClientBreakerStopsRepeatedFailures(t *testing.T) {
	t.Parallel()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newRPCClient(server.URL, transportPlain, "test-rpc-breaker", logging.Nop())
	for i := 0; i < 8; i++ {
		require.False(t, client.refreshTools(context.Background()))
	}
	// Five consecutive 5xx responses open the breaker; the remaining calls
	// never reach the server.
	assert.Equal(t, 5, hits)
}

func TestMakeExcerptStripsHTMLAndTruncates(t *testing.T) {
	t.Parallel()

	excerpt := makeExcerpt("<p>Use <b>VPC peering</b> to connect networks.</p>")
	assert.Equal(t, "Use VPC peering to connect networks....", excerpt)

	long := makeExcerpt(strings.Repeat("a", 300))
	assert.Equal(t, strings.Repeat("a", 200)+"...", long)

	assert.Equal(t, "", makeExcerpt("   "))
}
