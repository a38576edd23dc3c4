package embed

import (
	"fmt"
	"log/slog"
	"os"
)

// Provider identifiers accepted by NewProvider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderTFIDF  = "tfidf"
	ProviderHash   = "hash"
)

// Providers lists the supported provider identifiers.
var Providers = []string{ProviderOllama, ProviderOpenAI, ProviderTFIDF, ProviderHash}

// Config contains configuration for creating an embedding provider.
type Config struct {
	Provider   string
	Model      string
	Endpoint   string // Base URL override for ollama and openai
	APIKey     string // openai; falls back to OPENAI_API_KEY
	BatchSize  int
	Dimensions int // hash only
	CacheSize  int // 0 disables the cache
	MaxRetries int
}

// NewProvider builds the configured provider wrapped with retries, call
// statistics (when stats is non-nil) and a vector cache (when CacheSize > 0).
func NewProvider(cfg Config, log *slog.Logger, stats *Stats) (Provider, error) {
	base, err := newBase(cfg)
	if err != nil {
		return nil, err
	}

	var p Provider = NewRetrying(base, cfg.MaxRetries, log)
	if stats != nil {
		p = NewInstrumented(p, stats)
	}
	if cfg.CacheSize > 0 {
		cached, err := NewCached(p, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		p = cached
	}
	return p, nil
}

func newBase(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg.Model, cfg.Endpoint), nil
	case ProviderOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIProvider(key, cfg.Endpoint, cfg.Model, cfg.BatchSize)
	case ProviderTFIDF:
		return NewTFIDFProvider(), nil
	case ProviderHash:
		return NewHashProvider(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: %v)", cfg.Provider, Providers)
	}
}
