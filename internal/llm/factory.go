package llm

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	iterrors "github.com/leroylim/it-guru-assistant-chatbot/internal/errors"
)

const (
	defaultLLMCacheSize = 64
	defaultLLMCacheTTL  = 30 * time.Minute

	// OpenRouter uses these headers for app attribution and ranking.
	refererHeader = "https://github.com/leroylim/it-guru-assistant-chatbot"
	titleHeader   = "IT Guru Assistant"
)

// Factory creates and caches completion clients keyed by model name.
type Factory struct {
	cache                *lru.Cache[string, cacheEntry]
	cacheTTL             time.Duration
	mu                   sync.RWMutex
	enableRetry          bool
	retryConfig          iterrors.RetryConfig
	circuitBreakerConfig iterrors.CircuitBreakerConfig
}

type cacheEntry struct {
	client    Client
	expiresAt time.Time
}

func NewFactory() *Factory {
	return &Factory{
		cache:                newClientCache(defaultLLMCacheSize),
		cacheTTL:             defaultLLMCacheTTL,
		enableRetry:          true,
		retryConfig:          iterrors.DefaultRetryConfig(),
		circuitBreakerConfig: iterrors.DefaultCircuitBreakerConfig(),
	}
}

// NewFactoryWithRetryConfig creates a factory with custom retry configuration.
func NewFactoryWithRetryConfig(retryConfig iterrors.RetryConfig, circuitBreakerConfig iterrors.CircuitBreakerConfig) *Factory {
	return &Factory{
		cache:                newClientCache(defaultLLMCacheSize),
		cacheTTL:             defaultLLMCacheTTL,
		enableRetry:          true,
		retryConfig:          retryConfig,
		circuitBreakerConfig: circuitBreakerConfig,
	}
}

// SetCacheOptions configures the client cache.
// A size <= 0 disables caching. A TTL <= 0 disables expiration.
func (f *Factory) SetCacheOptions(size int, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = newClientCache(size)
	f.cacheTTL = ttl
}

// DisableRetry disables retry logic for all clients created by this factory.
func (f *Factory) DisableRetry() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enableRetry = false
}

func newClientCache(size int) *lru.Cache[string, cacheEntry] {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil
	}
	return cache
}

// GetClient creates or retrieves a cached completion client for the model.
func (f *Factory) GetClient(model string, config Config) (Client, error) {
	return f.getClient(model, config, true)
}

// GetIsolatedClient creates a new non-cached client instance. Useful when
// per-session state needs to be isolated from the shared cache.
func (f *Factory) GetIsolatedClient(model string, config Config) (Client, error) {
	return f.getClient(model, config, false)
}

func (f *Factory) getClient(model string, config Config, useCache bool) (Client, error) {
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	cacheKey := fmt.Sprintf("%s@%s", model, config.BaseURL)
	now := time.Now()

	f.mu.RLock()
	enableRetry := f.enableRetry
	retryConfig := f.retryConfig
	circuitBreakerConfig := f.circuitBreakerConfig
	cache := f.cache
	cacheTTL := f.cacheTTL
	f.mu.RUnlock()

	if useCache && cache != nil {
		if entry, ok := cache.Get(cacheKey); ok {
			if entry.client != nil && (entry.expiresAt.IsZero() || now.Before(entry.expiresAt)) {
				return entry.client, nil
			}
			cache.Remove(cacheKey)
		}
	}

	config.Headers = withAttributionHeaders(config.Headers)

	client, err := NewOpenAIClient(model, config)
	if err != nil {
		return nil, err
	}

	if enableRetry {
		breaker := iterrors.NewCircuitBreaker("llm:"+model, circuitBreakerConfig)
		client = NewRetryClient(client, retryConfig, breaker)
	}

	if useCache && cache != nil {
		var expiresAt time.Time
		if cacheTTL > 0 {
			expiresAt = now.Add(cacheTTL)
		}
		cache.Add(cacheKey, cacheEntry{client: client, expiresAt: expiresAt})
	}

	return client, nil
}

func withAttributionHeaders(headers map[string]string) map[string]string {
	merged := map[string]string{
		"HTTP-Referer": refererHeader,
		"X-Title":      titleHeader,
	}
	for k, v := range headers {
		merged[k] = v
	}
	return merged
}
