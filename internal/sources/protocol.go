package sources

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 specification: https://www.jsonrpc.org/specification

const jsonrpcVersion = "2.0"

// Fixed request IDs matching the two calls the clients make per exchange.
const (
	idToolsList = 1
	idToolsCall = 2
)

const (
	methodToolsList = "tools/list"
	methodToolsCall = "tools/call"
)

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

func newToolsListRequest() rpcRequest {
	return rpcRequest{JSONRPC: jsonrpcVersion, ID: idToolsList, Method: methodToolsList}
}

func newToolsCallRequest(tool string, arguments map[string]any) rpcRequest {
	return rpcRequest{
		JSONRPC: jsonrpcVersion,
		ID:      idToolsCall,
		Method:  methodToolsCall,
		Params: map[string]any{
			"name":      tool,
			"arguments": arguments,
		},
	}
}

// toolInfo is the subset of a tool descriptor the clients care about.
type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type toolsListResult struct {
	Tools []toolInfo `json:"tools"`
}

// toolCallResult is the loosely-typed payload of a tools/call. Content is
// either a list of objects or a bare string depending on the server.
type toolCallResult struct {
	Content json.RawMessage `json:"content"`
}

// contentItem is one entry of a structured tool result. Servers disagree on
// field names, so the excerpt and URL each have fallbacks.
type contentItem struct {
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Description string `json:"description"`
	Summary     string `json:"summary"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	Link        string `json:"link"`
}

func (c contentItem) excerptText() string {
	for _, candidate := range []string{c.Excerpt, c.Description, c.Summary, c.Text} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func (c contentItem) urlText() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Link
}
