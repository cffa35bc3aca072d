package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

const catalogJSON = `{"data":[
	{"id":"meta-llama/llama-3.1-8b-instruct:free","name":"Llama 3.1 8B (free)","pricing":{"prompt":"0"}},
	{"id":"google/gemini-2.5-flash-lite","name":"Gemini Flash Lite","pricing":{"prompt":"0.0000001"}},
	{"id":"anthropic/claude-sonnet","name":"Claude Sonnet","pricing":{"prompt":"0.015"}},
	{"id":"","name":"ghost entry","pricing":{"prompt":"0"}}
]}`

func newCatalogServer(t *testing.T, hits *int, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestModelsFetchesAndClassifies(t *testing.T) {
	t.Parallel()

	var hits int
	srv := newCatalogServer(t, &hits, catalogJSON, http.StatusOK)
	svc := NewService(logging.Nop(), WithEndpoint(srv.URL))

	catalog := svc.Models(context.Background())

	require.Len(t, catalog.Models, 3, "empty ids are dropped")
	assert.False(t, catalog.Fallback)

	tiered := catalog.Tiered()
	assert.Equal(t, []string{"meta-llama/llama-3.1-8b-instruct:free"}, tiered[TierFree])
	assert.Equal(t, []string{"google/gemini-2.5-flash-lite"}, tiered[TierBudget])
	assert.Equal(t, []string{"anthropic/claude-sonnet"}, tiered[TierPremium])
}

func TestModelsCachesWithinTTL(t *testing.T) {
	t.Parallel()

	var hits int
	srv := newCatalogServer(t, &hits, catalogJSON, http.StatusOK)
	svc := NewService(logging.Nop(), WithEndpoint(srv.URL))

	first := svc.Models(context.Background())
	second := svc.Models(context.Background())

	assert.Equal(t, 1, hits)
	assert.Same(t, first, second)
}

func TestModelsRefetchesAfterTTL(t *testing.T) {
	t.Parallel()

	var hits int
	srv := newCatalogServer(t, &hits, catalogJSON, http.StatusOK)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(logging.Nop(),
		WithEndpoint(srv.URL),
		WithCacheTTL(10*time.Minute),
		WithClock(func() time.Time { return current }))

	svc.Models(context.Background())
	current = current.Add(11 * time.Minute)
	svc.Models(context.Background())

	assert.Equal(t, 2, hits)
}

func TestModelsFallsBackOnFetchFailure(t *testing.T) {
	t.Parallel()

	var hits int
	srv := newCatalogServer(t, &hits, "nope", http.StatusBadGateway)
	svc := NewService(logging.Nop(), WithEndpoint(srv.URL))

	catalog := svc.Models(context.Background())

	assert.True(t, catalog.Fallback)
	assert.Contains(t, catalog.IDs(), "google/gemini-2.5-flash-lite")
	assert.Contains(t, catalog.IDs(), "meta-llama/llama-3.1-8b-instruct:free")

	// Failures are not cached.
	svc.Models(context.Background())
	assert.Equal(t, 2, hits)
}

func TestModelsServesStaleCacheOnFailure(t *testing.T) {
	t.Parallel()

	var hits int
	status := http.StatusOK
	body := catalogJSON
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(logging.Nop(),
		WithEndpoint(srv.URL),
		WithCacheTTL(time.Minute),
		WithClock(func() time.Time { return current }))

	fresh := svc.Models(context.Background())
	require.False(t, fresh.Fallback)

	status = http.StatusInternalServerError
	body = "boom"
	current = current.Add(2 * time.Minute)

	stale := svc.Models(context.Background())
	assert.False(t, stale.Fallback, "stale cache beats the static fallback")
	assert.Len(t, stale.Models, 3)
	assert.Equal(t, 2, hits)
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	var hits int
	srv := newCatalogServer(t, &hits, catalogJSON, http.StatusOK)
	svc := NewService(logging.Nop(), WithEndpoint(srv.URL))

	svc.Models(context.Background())
	svc.Invalidate()
	svc.Models(context.Background())

	assert.Equal(t, 2, hits)
}

func TestClassifyTier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TierFree, classifyTier(0))
	assert.Equal(t, TierBudget, classifyTier(0.009999))
	assert.Equal(t, TierPremium, classifyTier(0.01))
	assert.Equal(t, TierPremium, classifyTier(1.5))
}
