package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/httpclient"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
)

const (
	mslearnEndpoint       = "https://learn.microsoft.com/api/mcp"
	mslearnSearchEndpoint = "https://learn.microsoft.com/api/search"
	mslearnSearchTool     = "microsoft_docs_search"
)

// MicrosoftLearnSource searches Microsoft Learn documentation. The primary
// path is the Learn JSON-RPC endpoint over SSE; when it yields nothing the
// client falls back to the public keyword-search REST API.
type MicrosoftLearnSource struct {
	rpc       *rpcClient
	searchURL string
	fallback  *http.Client
	logger    logging.Logger
	metrics   *observability.MetricsCollector
}

// MicrosoftLearnOption customizes a MicrosoftLearnSource.
type MicrosoftLearnOption func(*MicrosoftLearnSource)

// WithMicrosoftEndpoints overrides both upstream URLs, primarily for tests.
func WithMicrosoftEndpoints(rpcEndpoint, searchEndpoint string) MicrosoftLearnOption {
	return func(s *MicrosoftLearnSource) {
		s.rpc = newRPCClient(rpcEndpoint, transportSSE, "mslearn-rpc", s.logger)
		s.searchURL = searchEndpoint
	}
}

// WithMicrosoftMetrics attaches a metrics collector.
func WithMicrosoftMetrics(metrics *observability.MetricsCollector) MicrosoftLearnOption {
	return func(s *MicrosoftLearnSource) { s.metrics = metrics }
}

func NewMicrosoftLearnSource(logger logging.Logger, opts ...MicrosoftLearnOption) *MicrosoftLearnSource {
	logger = logging.OrNop(logger)
	s := &MicrosoftLearnSource{
		rpc:       newRPCClient(mslearnEndpoint, transportSSE, "mslearn-rpc", logger),
		searchURL: mslearnSearchEndpoint,
		fallback:  httpclient.NewWithCircuitBreaker(defaultRPCTimeout, logger, "mslearn-rest"),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Source = (*MicrosoftLearnSource)(nil)

// SearchContent searches Microsoft Learn. Failures degrade to no results.
func (s *MicrosoftLearnSource) SearchContent(ctx context.Context, query string, maxResults int) []Result {
	started := time.Now()

	results := s.searchViaRPC(ctx, query, maxResults)
	if len(results) == 0 {
		results = s.searchViaREST(ctx, query, maxResults)
	}

	status := "ok"
	if len(results) == 0 {
		status = "empty"
	}
	s.metrics.RecordSourceSearch(ctx, "microsoft_learn", status, time.Since(started), len(results))
	return results
}

func (s *MicrosoftLearnSource) searchViaRPC(ctx context.Context, query string, maxResults int) []Result {
	if !s.rpc.ensureTools(ctx) {
		return nil
	}

	call := s.rpc.callTool(ctx, mslearnSearchTool, map[string]any{"query": query})
	if call == nil || call.Content == nil {
		return nil
	}

	var items []contentItem
	if err := json.Unmarshal(call.Content, &items); err == nil {
		results := make([]Result, 0, maxResults)
		for _, item := range items {
			if len(results) >= maxResults {
				break
			}
			title := item.Title
			if title == "" {
				title = "Microsoft Learn: " + query
			}
			results = append(results, Result{
				Title:       title,
				Excerpt:     makeExcerpt(item.excerptText()),
				URL:         item.urlText(),
				SourceLabel: LabelMicrosoftLearn,
			})
		}
		return results
	}

	// Some responses carry a single markdown string instead of items.
	var text string
	if err := json.Unmarshal(call.Content, &text); err == nil && text != "" {
		return []Result{{
			Title:       "Microsoft Learn: " + query,
			Excerpt:     makeExcerpt(text),
			URL:         "https://learn.microsoft.com/search?query=" + url.QueryEscape(query),
			SourceLabel: LabelMicrosoftLearn,
		}}
	}
	return nil
}

func (s *MicrosoftLearnSource) searchViaREST(ctx context.Context, query string, maxResults int) []Result {
	params := url.Values{}
	params.Set("search", query)
	params.Set("locale", "en-us")
	params.Set("facet", "category")
	params.Set("top", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}

	resp, err := s.fallback.Do(req)
	if err != nil {
		s.logger.Warn("microsoft learn fallback search failed: %v", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("microsoft learn fallback search returned status %d", resp.StatusCode)
		return nil
	}

	var payload struct {
		Results []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Summary     string `json:"summary"`
			URL         string `json:"url"`
			Path        string `json:"path"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Warn("microsoft learn fallback search returned malformed body: %v", err)
		return nil
	}

	results := make([]Result, 0, maxResults)
	for _, item := range payload.Results {
		if len(results) >= maxResults {
			break
		}
		title := item.Title
		if title == "" {
			title = "Microsoft Learn: " + query
		}
		excerpt := item.Description
		if excerpt == "" {
			excerpt = item.Summary
		}
		link := item.URL
		if link == "" {
			link = "https://learn.microsoft.com" + item.Path
		}
		results = append(results, Result{
			Title:       title,
			Excerpt:     makeExcerpt(excerpt),
			URL:         link,
			SourceLabel: LabelMicrosoftLearn,
		})
	}
	return results
}
