package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/config"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/llm"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

type exaCapture struct {
	Query          string   `json:"query"`
	NumResults     int      `json:"num_results"`
	IncludeDomains []string `json:"include_domains"`
	StartCrawlDate string   `json:"start_crawl_date"`
}

func TestExaSearchDomainsAndResults(t *testing.T) {
	t.Parallel()

	var captured exaCapture
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer exa-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "New CVE in OpenSSL", "text": "Details of the flaw.", "url": "https://thehackernews.com/openssl"},
			},
		})
	}))
	defer server.Close()

	source := NewExaSource("exa-key", config.DefaultDomainPolicy(), logging.Nop(),
		WithExaEndpoint(server.URL),
		WithExaRecency("2024-06-01", 0))

	results := source.SearchContent(context.Background(), "openssl cve", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "New CVE in OpenSSL", results[0].Title)
	assert.Equal(t, LabelExaSearch, results[0].SourceLabel)

	// Simple query: deterministic enhancement, no LLM configured anyway.
	assert.Equal(t, "openssl cve cybersecurity security threat vulnerability attack", captured.Query)
	assert.Equal(t, 3, captured.NumResults)
	assert.Equal(t, "2024-06-01", captured.StartCrawlDate)
	assert.Contains(t, captured.IncludeDomains, "thehackernews.com")
	assert.Contains(t, captured.IncludeDomains, "techcrunch.com") // core IT domains always included
}

func TestExaVendorBoost(t *testing.T) {
	t.Parallel()

	var captured exaCapture
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			{"title": "t", "text": "x", "url": "https://fortinet.com/advisory"},
		}})
	}))
	defer server.Close()

	source := NewExaSource("exa-key", config.DefaultDomainPolicy(), logging.Nop(),
		WithExaEndpoint(server.URL))

	source.SearchContent(context.Background(), "fortinet firewall bug", 3)
	assert.Contains(t, captured.IncludeDomains, "docs.fortinet.com")
}

func TestExaRetriesWithoutDomainsOnEmpty(t *testing.T) {
	t.Parallel()

	var requests []exaCapture
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var captured exaCapture
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		requests = append(requests, captured)

		if len(captured.IncludeDomains) > 0 {
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			{"title": "Found without filters", "text": "x", "url": "https://example.com"},
		}})
	}))
	defer server.Close()

	source := NewExaSource("exa-key", config.DefaultDomainPolicy(), logging.Nop(),
		WithExaEndpoint(server.URL))

	results := source.SearchContent(context.Background(), "obscure appliance firmware", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "Found without filters", results[0].Title)
	require.Len(t, requests, 2)
	assert.NotEmpty(t, requests[0].IncludeDomains)
	assert.Empty(t, requests[1].IncludeDomains)
}

func TestExaSecurityFallbackOnError(t *testing.T) {
	t.Parallel()

	source := NewExaSource("exa-key", config.DefaultDomainPolicy(), logging.Nop(),
		WithExaEndpoint("http://127.0.0.1:1"))

	results := source.SearchContent(context.Background(), "latest cve for nginx", 3)
	require.Len(t, results, 1)
	assert.Equal(t, LabelNVD, results[0].SourceLabel)
	assert.Equal(t, "https://nvd.nist.gov/vuln/search", results[0].URL)

	// Non-security query gets nothing on error.
	assert.Empty(t, source.SearchContent(context.Background(), "kubernetes ingress", 3))
}

func TestExaNoAPIKeySkipsSearch(t *testing.T) {
	t.Parallel()

	source := NewExaSource("", config.DefaultDomainPolicy(), logging.Nop())
	assert.Empty(t, source.SearchContent(context.Background(), "anything", 3))
}

func TestExaRollingRecencyWindow(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	var captured exaCapture
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			{"title": "t", "text": "x", "url": "u"},
		}})
	}))
	defer server.Close()

	source := NewExaSource("exa-key", config.DefaultDomainPolicy(), logging.Nop(),
		WithExaEndpoint(server.URL),
		WithExaRecency("2024-01-01", 30),
		WithExaClock(func() time.Time { return fixed }))

	source.SearchContent(context.Background(), "zero day", 3)
	assert.Equal(t, "2025-02-13", captured.StartCrawlDate)
}

func TestExaLLMEnhancementForComplexQueries(t *testing.T) {
	t.Parallel()

	var captured exaCapture
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			{"title": "t", "text": "x", "url": "u"},
		}})
	}))
	defer server.Close()

	enhancer := llm.NewMockClient("m", llm.MockResponse{Content: "enhanced keywords from model"})
	source := NewExaSource("exa-key", config.DefaultDomainPolicy(), logging.Nop(),
		WithExaEndpoint(server.URL),
		WithExaEnhancer(enhancer))

	source.SearchContent(context.Background(), "what is the best way to harden kubernetes clusters?", 3)
	assert.Equal(t, "enhanced keywords from model", captured.Query)
	require.Len(t, enhancer.Calls(), 1)

	// Short declarative query skips the LLM.
	source.SearchContent(context.Background(), "nginx tls config", 3)
	assert.Equal(t, "nginx tls config IT technology infrastructure systems network", captured.Query)
	assert.Len(t, enhancer.Calls(), 1)
}

func TestCategorizeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{"new malware campaign", categoryCybersecurity},
		{"kubernetes operator patterns", categoryCloudDevops},
		{"python asyncio pitfalls", categoryProgramming},
		{"startup funding trends", categoryBusinessTech},
		{"academic paper on distributed consensus", categoryResearch},
		{"printer offline again", categoryITGeneral},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, categorizeQuery(tc.query), "query: %s", tc.query)
	}
}
