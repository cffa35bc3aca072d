// Package catalog fetches the OpenRouter model list and groups it by
// pricing tier for the model picker.
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/httpclient"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

const (
	defaultEndpoint = "https://openrouter.ai/api/v1/models"
	defaultCacheTTL = time.Hour
	fetchTimeout    = 15 * time.Second

	maxCatalogBytes = 8 << 20

	// budgetPromptThreshold splits budget from premium on prompt price per
	// token.
	budgetPromptThreshold = 0.01
)

// Tier names a pricing bucket.
type Tier string

const (
	TierFree    Tier = "Free"
	TierBudget  Tier = "Budget"
	TierPremium Tier = "Premium"
)

// Model is one catalog entry.
type Model struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	PromptPrice float64 `json:"prompt_price"`
	Tier        Tier    `json:"tier"`
}

// Catalog is a grouped, sorted model listing.
type Catalog struct {
	Models    []Model   `json:"models"`
	FetchedAt time.Time `json:"fetched_at"`
	// Fallback is set when the listing is the static default rather than a
	// live fetch.
	Fallback bool `json:"fallback,omitempty"`
}

// Tiered returns IDs grouped by tier, each group sorted.
func (c *Catalog) Tiered() map[Tier][]string {
	out := map[Tier][]string{}
	for _, m := range c.Models {
		out[m.Tier] = append(out[m.Tier], m.ID)
	}
	for tier := range out {
		sort.Strings(out[tier])
	}
	return out
}

// IDs returns every model id, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

// fallbackModels is served when the live catalog cannot be fetched.
var fallbackModels = []Model{
	{ID: "google/gemini-2.5-flash-lite", Tier: TierBudget},
	{ID: "meta-llama/llama-3.1-8b-instruct:free", Tier: TierFree},
}

// Service fetches and caches the catalog.
type Service struct {
	endpoint   string
	httpClient *http.Client
	cacheTTL   time.Duration
	logger     logging.Logger
	now        func() time.Time

	mu     sync.Mutex
	cached *Catalog
}

// Option customizes a Service.
type Option func(*Service)

func WithEndpoint(endpoint string) Option {
	return func(s *Service) { s.endpoint = endpoint }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(logger logging.Logger, opts ...Option) *Service {
	logger = logging.OrNop(logger)
	s := &Service{
		endpoint:   defaultEndpoint,
		httpClient: httpclient.NewWithCircuitBreaker(fetchTimeout, logger, "openrouter-catalog"),
		cacheTTL:   defaultCacheTTL,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Models returns the catalog, serving the cache while fresh. A failed fetch
// falls back to the static list and is not cached, so the next call retries.
func (s *Service) Models(ctx context.Context) *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cached.FetchedAt) < s.cacheTTL {
		return s.cached
	}

	catalog, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("model catalog fetch failed: %v", err)
		if s.cached != nil {
			return s.cached
		}
		return &Catalog{Models: fallbackModels, FetchedAt: s.now(), Fallback: true}
	}

	s.cached = catalog
	return catalog
}

// Invalidate drops the cache so the next Models call refetches.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

type catalogResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Pricing struct {
			Prompt string `json:"prompt"`
		} `json:"pricing"`
	} `json:"data"`
}

func (s *Service) fetch(ctx context.Context) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := httpclient.ReadAllWithLimit(resp.Body, maxCatalogBytes)
	if err != nil {
		return nil, err
	}

	var parsed catalogResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	models := make([]Model, 0, len(parsed.Data))
	for _, entry := range parsed.Data {
		if entry.ID == "" {
			continue
		}
		price, _ := strconv.ParseFloat(entry.Pricing.Prompt, 64)
		models = append(models, Model{
			ID:          entry.ID,
			Name:        entry.Name,
			PromptPrice: price,
			Tier:        classifyTier(price),
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	return &Catalog{Models: models, FetchedAt: s.now()}, nil
}

func classifyTier(promptPrice float64) Tier {
	switch {
	case promptPrice == 0:
		return TierFree
	case promptPrice < budgetPromptThreshold:
		return TierBudget
	default:
		return TierPremium
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "model catalog: unexpected status " + strconv.Itoa(e.code)
}
