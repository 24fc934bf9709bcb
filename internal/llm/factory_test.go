package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/cardaudit/internal/model"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		id           string
		wantProvider string
		wantName     string
		wantErr      bool
	}{
		{"gemini/gemini-2.5-flash", "gemini", "gemini-2.5-flash", false},
		{"anthropic/claude-sonnet-4-5-20250514", "anthropic", "claude-sonnet-4-5-20250514", false},
		{"Claude/claude-3-5-haiku", "anthropic", "claude-3-5-haiku", false},
		{"ollama/llama3.1:8b", "ollama", "llama3.1:8b", false},
		{"openrouter/meta/llama", "openrouter", "meta/llama", false},
		{"gpt-4o-mini", "openai", "gpt-4o-mini", false},
		{"", "", "", true},
		{"gemini/", "", "", true},
		{"/model", "", "", true},
	}

	for _, tt := range tests {
		provider, name, err := ParseModel(tt.id)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidModel) {
				t.Errorf("ParseModel(%q) error = %v, want ErrInvalidModel", tt.id, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseModel(%q) unexpected error: %v", tt.id, err)
			continue
		}
		if provider != tt.wantProvider || name != tt.wantName {
			t.Errorf("ParseModel(%q) = %s, %s; want %s, %s", tt.id, provider, name, tt.wantProvider, tt.wantName)
		}
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(context.Background(), "mystery", Config{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestNewProvider_Known(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "claude", "ollama", "gemini"} {
		p, err := NewProvider(context.Background(), name, Config{APIKey: "test-key"})
		if err != nil {
			t.Errorf("NewProvider(%s) failed: %v", name, err)
			continue
		}
		if canonicalProvider(p.Name()) != canonicalProvider(name) {
			t.Errorf("NewProvider(%s).Name() = %s", name, p.Name())
		}
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.LLMConfig{
		Timeout:       30,
		MaxTokens:     2048,
		OpenAIBaseURL: "https://gateway.example.com/v1",
		AnthropicURL:  "https://anthropic.example.com",
		OllamaBaseURL: "http://ollama:11434",
		HTTPProxy:     "http://proxy:3128",
	}

	if got := ConfigFromModel("openai", cfg).BaseURL; got != cfg.OpenAIBaseURL {
		t.Errorf("openai BaseURL = %s", got)
	}
	if got := ConfigFromModel("claude", cfg).BaseURL; got != cfg.AnthropicURL {
		t.Errorf("anthropic BaseURL = %s", got)
	}
	if got := ConfigFromModel("ollama", cfg).BaseURL; got != cfg.OllamaBaseURL {
		t.Errorf("ollama BaseURL = %s", got)
	}

	c := ConfigFromModel("gemini", cfg)
	if c.BaseURL != "" || c.Timeout != 30 || c.MaxTokens != 2048 || c.HTTPProxy != "http://proxy:3128" {
		t.Errorf("gemini config = %+v", c)
	}
}

func TestRouter_ResolveRegistered(t *testing.T) {
	router := NewRouter(model.LLMConfig{})
	fake := &fakeProvider{name: "gemini"}
	router.Register(fake)

	p, name, err := router.Resolve(context.Background(), "gemini/gemini-2.5-flash")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p != fake {
		t.Error("expected registered provider")
	}
	if name != "gemini-2.5-flash" {
		t.Errorf("name = %s", name)
	}
}

func TestRouter_ResolveCachesProvider(t *testing.T) {
	router := NewRouter(model.LLMConfig{OllamaBaseURL: "http://localhost:11434"})

	p1, _, err := router.Resolve(context.Background(), "ollama/llama3.1:8b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	p2, _, err := router.Resolve(context.Background(), "ollama/mistral")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p1 != p2 {
		t.Error("provider should be constructed once")
	}
}

func TestRouter_ResolveErrors(t *testing.T) {
	router := NewRouter(model.LLMConfig{})

	if _, _, err := router.Resolve(context.Background(), "mystery/model"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
	if _, _, err := router.Resolve(context.Background(), ""); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("expected ErrInvalidModel, got %v", err)
	}
}
