package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables read by the factory
const (
	EnvProvider     = "FAILMEM_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. FAILMEM_EMBEDDING_PROVIDER (openai, jina, local, none)
//  2. Available API keys: OPENAI_API_KEY, JINA_API_KEY
//  3. Local deterministic provider
//
// "none" disables embeddings entirely: the returned embedder is nil and
// search degrades to the lexical strategy.
func NewFromEnv() (Embedder, error) {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	openaiKey := os.Getenv(EnvOpenAIAPIKey)
	jinaKey := os.Getenv(EnvJinaAPIKey)

	cache := NewCache(10000)

	switch provider {
	case "none":
		return nil, nil
	case ProviderOpenAI:
		return NewOpenAIProvider(openaiKey, cache)
	case ProviderJina:
		return NewJinaProvider(jinaKey, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	case "":
		// Auto-detect below
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, cache)
	}
	if jinaKey != "" {
		return NewJinaProvider(jinaKey, cache)
	}
	return NewLocalProvider(cache)
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
