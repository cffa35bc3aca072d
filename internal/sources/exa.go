package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/config"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/httpclient"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/llm"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/prompts"
)

const exaEndpoint = "https://api.exa.ai/search"

// Query categories used to bias Exa searches toward trusted domains.
const (
	categoryCybersecurity = "cybersecurity"
	categoryCloudDevops   = "cloud_devops"
	categoryProgramming   = "programming"
	categoryBusinessTech  = "business_tech"
	categoryResearch      = "research_academic"
	categoryITGeneral     = "it_general"
)

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{categoryCybersecurity, []string{"security", "vulnerability", "cve", "threat", "malware", "hack", "breach", "attack", "exploit", "phishing"}},
	{categoryCloudDevops, []string{"aws", "azure", "gcp", "cloud", "docker", "kubernetes", "devops", "container", "serverless"}},
	{categoryProgramming, []string{"python", "javascript", "java", "code", "programming", "development", "api", "framework", "library"}},
	{categoryBusinessTech, []string{"business", "strategy", "market", "startup", "investment", "trends", "future"}},
	{categoryResearch, []string{"research", "study", "paper", "academic", "analysis", "methodology"}},
}

var securityFallbackWords = []string{"cve", "vulnerability", "security", "exploit"}

// enhancementComplexityWords trigger the LLM query enhancement path.
var enhancementComplexityWords = []string{"best", "compare", "difference", "how", "why", "when", "latest", "new", "emerging"}

var fallbackEnhancements = map[string]string{
	categoryCybersecurity: "cybersecurity security threat vulnerability attack",
	categoryCloudDevops:   "cloud devops infrastructure deployment automation",
	categoryProgramming:   "programming development code software framework",
	categoryBusinessTech:  "technology business industry trends innovation",
	categoryResearch:      "research study analysis methodology findings",
	categoryITGeneral:     "IT technology infrastructure systems network",
}

// ExaSource performs real-time web search through the Exa REST API with
// domain biasing, query enhancement, and a recency floor.
type ExaSource struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     logging.Logger
	metrics    *observability.MetricsCollector
	policy     config.DomainPolicy
	startDate  string
	startDays  int
	enhancer   llm.Client
	now        func() time.Time
}

// ExaOption customizes an ExaSource.
type ExaOption func(*ExaSource)

// WithExaEndpoint overrides the upstream URL, primarily for tests.
func WithExaEndpoint(endpoint string) ExaOption {
	return func(s *ExaSource) { s.endpoint = endpoint }
}

// WithExaEnhancer enables LLM-backed query enhancement for complex queries.
func WithExaEnhancer(client llm.Client) ExaOption {
	return func(s *ExaSource) { s.enhancer = client }
}

// WithExaRecency sets the crawl-date floor: days > 0 takes a rolling window,
// otherwise the absolute date is used.
func WithExaRecency(startDate string, startDays int) ExaOption {
	return func(s *ExaSource) {
		s.startDate = startDate
		s.startDays = startDays
	}
}

// WithExaMetrics attaches a metrics collector.
func WithExaMetrics(metrics *observability.MetricsCollector) ExaOption {
	return func(s *ExaSource) { s.metrics = metrics }
}

// WithExaClock overrides time for rolling-window tests.
func WithExaClock(now func() time.Time) ExaOption {
	return func(s *ExaSource) { s.now = now }
}

func NewExaSource(apiKey string, policy config.DomainPolicy, logger logging.Logger, opts ...ExaOption) *ExaSource {
	logger = logging.OrNop(logger)
	s := &ExaSource{
		apiKey:     apiKey,
		endpoint:   exaEndpoint,
		httpClient: httpclient.NewWithCircuitBreaker(defaultRPCTimeout, logger, "exa-search"),
		logger:     logger,
		policy:     policy,
		startDate:  "2024-01-01",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Source = (*ExaSource)(nil)

// SearchContent searches the web through Exa. On zero results with domain
// filters, one retry without filters runs automatically. On transport errors
// a security-flavored query still gets an NVD advisory pointer.
func (s *ExaSource) SearchContent(ctx context.Context, query string, maxResults int) []Result {
	started := time.Now()

	if s.apiKey == "" {
		s.logger.Warn("exa search skipped: no API key configured")
		return nil
	}

	lower := strings.ToLower(query)
	category := categorizeQuery(lower)
	domains := s.searchDomains(category, lower)
	enhanced := s.enhanceQuery(ctx, query, category)
	startDate := s.startCrawlDate()

	results, err := s.doSearch(ctx, enhanced, maxResults, domains, startDate)
	if err != nil {
		s.logger.Warn("exa search failed: %v", err)
		s.metrics.RecordSourceSearch(ctx, "exa", "error", time.Since(started), 0)
		return securityFallbackResults(lower)
	}

	// Domain filters can over-restrict; retry once unrestricted.
	if len(results) == 0 && len(domains) > 0 {
		results, err = s.doSearch(ctx, enhanced, maxResults, nil, startDate)
		if err != nil {
			s.logger.Warn("exa unrestricted retry failed: %v", err)
			s.metrics.RecordSourceSearch(ctx, "exa", "error", time.Since(started), 0)
			return securityFallbackResults(lower)
		}
	}

	status := "ok"
	if len(results) == 0 {
		status = "empty"
	}
	s.metrics.RecordSourceSearch(ctx, "exa", status, time.Since(started), len(results))
	return results
}

func (s *ExaSource) doSearch(ctx context.Context, query string, maxResults int, domains []string, startDate string) ([]Result, error) {
	payload := map[string]any{
		"query":            query,
		"num_results":      maxResults,
		"start_crawl_date": startDate,
	}
	if len(domains) > 0 {
		payload["include_domains"] = domains
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exa api error: status %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Title string `json:"title"`
			Text  string `json:"text"`
			URL   string `json:"url"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		title := item.Title
		if title == "" {
			title = "No title"
		}
		excerpt := item.Text
		if excerpt == "" {
			excerpt = "No excerpt available"
		}
		results = append(results, Result{
			Title:       title,
			Excerpt:     makeExcerpt(excerpt),
			URL:         item.URL,
			SourceLabel: LabelExaSearch,
		})
	}
	return results, nil
}

func categorizeQuery(lower string) string {
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.category
			}
		}
	}
	return categoryITGeneral
}

// searchDomains combines the core IT domains, the category's domains, and
// vendor boosts for vendors named in the query. Order is preserved and
// duplicates dropped.
func (s *ExaSource) searchDomains(category string, lower string) []string {
	seen := make(map[string]struct{})
	var domains []string
	add := func(list []string) {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			domains = append(domains, d)
		}
	}

	add(s.policy.DomainCategories[categoryITGeneral])
	if category != categoryITGeneral {
		add(s.policy.DomainCategories[category])
	}
	for vendor, vendorDomains := range s.policy.VendorMap {
		if strings.Contains(lower, vendor) {
			add(vendorDomains)
		}
	}
	return domains
}

// enhanceQuery expands the query with search keywords. Complex queries go
// through the LLM when one is configured; everything else uses the
// deterministic per-category expansion.
func (s *ExaSource) enhanceQuery(ctx context.Context, query, category string) string {
	if s.enhancer != nil && needsLLMEnhancement(query) {
		resp, err := s.enhancer.Complete(ctx, llm.CompletionRequest{
			Messages:    []llm.Message{{Role: "user", Content: prompts.EnhanceSearchQuery(query, category)}},
			MaxTokens:   100,
			Temperature: 0.3,
		})
		if err == nil {
			if enhanced := strings.TrimSpace(resp.Content); enhanced != "" {
				return enhanced
			}
		} else {
			s.logger.Debug("query enhancement fell back to keywords: %v", err)
		}
	}
	return enhanceFallback(query, category)
}

func enhanceFallback(query, category string) string {
	suffix, ok := fallbackEnhancements[category]
	if !ok {
		suffix = "technology"
	}
	return query + " " + suffix
}

func needsLLMEnhancement(query string) bool {
	if len(strings.Fields(query)) > 6 {
		return true
	}
	if strings.Contains(query, "?") {
		return true
	}
	lower := strings.ToLower(query)
	for _, word := range enhancementComplexityWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func (s *ExaSource) startCrawlDate() string {
	if s.startDays > 0 {
		return s.now().UTC().AddDate(0, 0, -s.startDays).Format("2006-01-02")
	}
	return s.startDate
}

// securityFallbackResults points security queries at the NVD when the search
// backend is unreachable.
func securityFallbackResults(lower string) []Result {
	for _, word := range securityFallbackWords {
		if strings.Contains(lower, word) {
			return []Result{{
				Title:       "NIST National Vulnerability Database",
				Excerpt:     "Search the NVD for the latest CVE information and vulnerability details.",
				URL:         "https://nvd.nist.gov/vuln/search",
				SourceLabel: LabelNVD,
			}}
		}
	}
	return nil
}
