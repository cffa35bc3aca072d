package sources

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
)

const (
	awsEndpoint      = "https://knowledge-mcp.global.api.aws"
	awsSearchTool    = "search_documentation"
	awsRecommendTool = "recommend"
	awsReadTool      = "read_documentation"
)

var awsDocsURLPattern = regexp.MustCompile(`https?://docs\.aws\.amazon\.com[^\s]+`)

// AWSDocsSource searches AWS documentation through the AWS Knowledge
// JSON-RPC endpoint (plain HTTP request/response). Queries that embed a docs
// URL are answered with recommendations for that page instead.
type AWSDocsSource struct {
	rpc     *rpcClient
	logger  logging.Logger
	metrics *observability.MetricsCollector
}

// AWSDocsOption customizes an AWSDocsSource.
type AWSDocsOption func(*AWSDocsSource)

// WithAWSEndpoint overrides the upstream URL, primarily for tests.
func WithAWSEndpoint(endpoint string) AWSDocsOption {
	return func(s *AWSDocsSource) {
		s.rpc = newRPCClient(endpoint, transportPlain, "awsdocs-rpc", s.logger)
	}
}

// WithAWSMetrics attaches a metrics collector.
func WithAWSMetrics(metrics *observability.MetricsCollector) AWSDocsOption {
	return func(s *AWSDocsSource) { s.metrics = metrics }
}

func NewAWSDocsSource(logger logging.Logger, opts ...AWSDocsOption) *AWSDocsSource {
	logger = logging.OrNop(logger)
	s := &AWSDocsSource{
		rpc:    newRPCClient(awsEndpoint, transportPlain, "awsdocs-rpc", logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Source = (*AWSDocsSource)(nil)

// SearchContent searches AWS documentation. Failures degrade to no results.
func (s *AWSDocsSource) SearchContent(ctx context.Context, query string, maxResults int) []Result {
	started := time.Now()
	results := s.search(ctx, query, maxResults)

	status := "ok"
	if len(results) == 0 {
		status = "empty"
	}
	s.metrics.RecordSourceSearch(ctx, "aws_docs", status, time.Since(started), len(results))
	return results
}

func (s *AWSDocsSource) search(ctx context.Context, query string, maxResults int) []Result {
	if !s.rpc.ensureTools(ctx) {
		return nil
	}

	if strings.Contains(strings.ToLower(query), "docs.aws.amazon.com") {
		if docsURL := awsDocsURLPattern.FindString(query); docsURL != "" {
			if recs := s.recommend(ctx, docsURL, maxResults); len(recs) > 0 {
				return recs
			}
		}
	}

	call := s.rpc.callTool(ctx, awsSearchTool, map[string]any{
		"search_phrase": query,
		"limit":         maxResults,
	})
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
				title = "AWS Documentation: " + query
			}
			results = append(results, Result{
				Title:       title,
				Excerpt:     makeExcerpt(item.excerptText()),
				URL:         item.urlText(),
				SourceLabel: LabelAWSDocs,
			})
		}
		return results
	}

	var text string
	if err := json.Unmarshal(call.Content, &text); err == nil && text != "" {
		return []Result{{
			Title:       "AWS Documentation: " + query,
			Excerpt:     makeExcerpt(text),
			URL:         "https://docs.aws.amazon.com/search/doc-search.html?searchPath=documentation&searchQuery=" + url.QueryEscape(query),
			SourceLabel: LabelAWSDocs,
		}}
	}
	return nil
}

// recommend fetches related content for an AWS documentation page.
func (s *AWSDocsSource) recommend(ctx context.Context, docsURL string, maxResults int) []Result {
	call := s.rpc.callTool(ctx, awsRecommendTool, map[string]any{"url": docsURL})
	if call == nil || call.Content == nil {
		return nil
	}

	var items []contentItem
	if err := json.Unmarshal(call.Content, &items); err != nil {
		return nil
	}

	results := make([]Result, 0, maxResults)
	for _, item := range items {
		if len(results) >= maxResults {
			break
		}
		title := item.Title
		if title == "" {
			title = "AWS Documentation"
		}
		results = append(results, Result{
			Title:       title,
			Excerpt:     makeExcerpt(item.excerptText()),
			URL:         item.urlText(),
			SourceLabel: LabelAWSDocs,
		})
	}
	return results
}

// ReadDocumentation fetches one AWS documentation page as markdown. Returns
// an empty string on any failure.
func (s *AWSDocsSource) ReadDocumentation(ctx context.Context, docsURL string) string {
	call := s.rpc.callTool(ctx, awsReadTool, map[string]any{"url": docsURL})
	if call == nil || call.Content == nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(call.Content, &text); err != nil {
		return ""
	}
	return text
}
