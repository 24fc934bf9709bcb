package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/cardaudit/internal/model"
)

// NewProvider creates a new LLM provider by name
func NewProvider(ctx context.Context, name string, config Config) (Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(ctx, config)

	default:
		return nil, fmt.Errorf("%w: %s (supported: openai, anthropic, ollama, gemini)", ErrUnknownProvider, name)
	}
}

// ConfigFromModel converts model.LLMConfig to the Config for one provider
func ConfigFromModel(provider string, cfg model.LLMConfig) Config {
	c := Config{
		Timeout:    cfg.Timeout,
		MaxTokens:  cfg.MaxTokens,
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
		NoProxy:    cfg.NoProxy,
	}
	switch canonicalProvider(provider) {
	case "openai":
		c.BaseURL = cfg.OpenAIBaseURL
	case "anthropic":
		c.BaseURL = cfg.AnthropicURL
	case "ollama":
		c.BaseURL = cfg.OllamaBaseURL
	}
	return c
}

// ParseModel splits a "provider/model" identifier. An identifier without a
// provider prefix is routed to openai.
func ParseModel(id string) (provider, name string, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", fmt.Errorf("%w: empty model identifier", ErrInvalidModel)
	}

	provider, name, found := strings.Cut(id, "/")
	if !found {
		return "openai", id, nil
	}
	if provider == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidModel, id)
	}
	return canonicalProvider(provider), name, nil
}

func canonicalProvider(name string) string {
	switch name = strings.ToLower(name); name {
	case "claude":
		return "anthropic"
	case "google":
		return "gemini"
	default:
		return name
	}
}

// Router resolves "provider/model" identifiers to lazily constructed providers
type Router struct {
	cfg       model.LLMConfig
	mu        sync.Mutex
	providers map[string]Provider
}

// NewRouter creates a router that builds providers from cfg on first use
func NewRouter(cfg model.LLMConfig) *Router {
	return &Router{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}
}

// Register installs a provider under its Name, replacing any existing one
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[canonicalProvider(p.Name())] = p
}

// Resolve returns the provider and bare model name for a model identifier
func (r *Router) Resolve(ctx context.Context, modelID string) (Provider, string, error) {
	providerName, name, err := ParseModel(modelID)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[providerName]; ok {
		return p, name, nil
	}

	p, err := NewProvider(ctx, providerName, ConfigFromModel(providerName, r.cfg))
	if err != nil {
		return nil, "", err
	}
	r.providers[providerName] = p
	return p, name, nil
}
