package sources

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/httpclient"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

// transport selects how JSON-RPC responses come back from the endpoint.
type transport int

const (
	// transportPlain is plain HTTP request/response JSON.
	transportPlain transport = iota
	// transportSSE delivers the response as a text/event-stream that must be
	// reassembled line by line.
	transportSSE
)

const (
	defaultRPCTimeout   = 15 * time.Second
	maxRPCResponseBytes = 4 << 20
)

// rpcClient speaks JSON-RPC tools/list and tools/call against one endpoint
// and caches the advertised tool list. The cache is private to the client;
// concurrent refreshes may duplicate work but stay consistent under mu.
type rpcClient struct {
	endpoint   string
	transport  transport
	httpClient *http.Client
	logger     logging.Logger

	mu          sync.Mutex
	tools       []toolInfo
	lastRefresh time.Time
}

// newRPCClient builds a JSON-RPC client whose HTTP transport is guarded by a
// circuit breaker named after the owning source, so a repeatedly failing
// endpoint stops being hammered while the pipeline degrades to empty results.
func newRPCClient(endpoint string, tr transport, breakerName string, logger logging.Logger) *rpcClient {
	logger = logging.OrNop(logger)
	return &rpcClient{
		endpoint:   endpoint,
		transport:  tr,
		httpClient: httpclient.NewWithCircuitBreaker(defaultRPCTimeout, logger, breakerName),
		logger:     logger,
	}
}

// ensureTools lazily populates the tool cache. Returns false when the server
// could not be reached; callers then skip the tool call.
func (c *rpcClient) ensureTools(ctx context.Context) bool {
	c.mu.Lock()
	cached := len(c.tools) > 0 && !c.lastRefresh.IsZero()
	c.mu.Unlock()
	if cached {
		return true
	}
	return c.refreshTools(ctx)
}

func (c *rpcClient) refreshTools(ctx context.Context) bool {
	resp, status, err := c.post(ctx, newToolsListRequest())
	if err != nil {
		c.logger.Warn("tools/list against %s failed: %v", c.endpoint, err)
		return false
	}
	if status != http.StatusOK || resp == nil || resp.Result == nil {
		c.logger.Warn("tools/list against %s returned status %d", c.endpoint, status)
		return false
	}

	var listed toolsListResult
	if err := json.Unmarshal(resp.Result, &listed); err != nil {
		c.logger.Warn("tools/list against %s returned malformed result: %v", c.endpoint, err)
		return false
	}

	c.mu.Lock()
	c.tools = listed.Tools
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	c.logger.Debug("refreshed %d tools from %s", len(listed.Tools), c.endpoint)
	return true
}

// callTool invokes one tool. A 400/404 is treated as a schema mismatch: the
// tool cache is refreshed once and an empty result returned so the caller
// degrades gracefully.
func (c *rpcClient) callTool(ctx context.Context, tool string, arguments map[string]any) *toolCallResult {
	resp, status, err := c.post(ctx, newToolsCallRequest(tool, arguments))
	if err != nil {
		c.logger.Warn("tools/call %s against %s failed: %v", tool, c.endpoint, err)
		return nil
	}

	switch {
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		c.logger.Info("tools/call %s returned %d, refreshing tool cache", tool, status)
		c.refreshTools(ctx)
		return nil
	case status != http.StatusOK:
		c.logger.Warn("tools/call %s against %s returned status %d", tool, c.endpoint, status)
		return nil
	}

	if resp == nil {
		return nil
	}
	if resp.Error != nil {
		c.logger.Warn("tools/call %s failed: %v", tool, resp.Error)
		return nil
	}
	if resp.Result == nil {
		return nil
	}

	var result toolCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		c.logger.Warn("tools/call %s returned malformed result: %v", tool, err)
		return nil
	}
	return &result
}

func (c *rpcClient) post(ctx context.Context, rpcReq rpcRequest) (*rpcResponse, int, error) {
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.transport == transportSSE {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}

	var parsed *rpcResponse
	if c.transport == transportSSE {
		parsed, err = parseEventStream(resp.Body)
	} else {
		parsed, err = parsePlainResponse(resp.Body)
	}
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return parsed, resp.StatusCode, nil
}

func parsePlainResponse(body io.Reader) (*rpcResponse, error) {
	raw, err := httpclient.ReadAllWithLimit(body, maxRPCResponseBytes)
	if err != nil {
		return nil, err
	}
	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// parseEventStream reassembles a JSON-RPC response from an SSE body. Each
// data: line is decoded independently; the latest payload carrying a result
// wins. Payloads that are bare result objects (no envelope) are accepted too.
func parseEventStream(body io.Reader) (*rpcResponse, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	resp := &rpcResponse{JSONRPC: jsonrpcVersion}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var envelope rpcResponse
		if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
			continue
		}
		if envelope.Result != nil {
			resp.Result = envelope.Result
			resp.Error = envelope.Error
			resp.ID = envelope.ID
			continue
		}
		if envelope.Error != nil {
			resp.Error = envelope.Error
			continue
		}

		// Some servers emit the result object directly without the envelope.
		var bare map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &bare); err != nil {
			continue
		}
		if _, ok := bare["content"]; ok {
			resp.Result = json.RawMessage(payload)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
