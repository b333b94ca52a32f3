package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"termagent/internal/config"
	"termagent/internal/domain"
)

// ProviderConstructor creates a provider from the provider config section.
type ProviderConstructor func(pc config.ProviderConfig, apiKey string, client *http.Client, logger *slog.Logger) domain.Provider

// Factory creates LLM providers from config.
type Factory struct {
	cfg          config.ProviderConfig
	apiKey       string
	client       *http.Client
	logger       *slog.Logger
	constructors map[string]ProviderConstructor
}

// NewFactory creates a provider factory with the built-in constructors registered.
func NewFactory(cfg config.ProviderConfig, apiKey string, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		cfg:          cfg,
		apiKey:       apiKey,
		client:       SharedHTTPClient(time.Duration(cfg.TimeoutSeconds) * time.Second),
		logger:       logger,
		constructors: make(map[string]ProviderConstructor),
	}
	f.registerDefaults()
	return f
}

func (f *Factory) registerDefaults() {
	f.constructors["gemini"] = func(pc config.ProviderConfig, apiKey string, client *http.Client, logger *slog.Logger) domain.Provider {
		return NewGemini(GeminiConfig{APIKey: apiKey, APIBase: pc.APIBase, Model: pc.Model, Client: client, Logger: logger})
	}
	f.constructors["openai"] = func(pc config.ProviderConfig, apiKey string, client *http.Client, logger *slog.Logger) domain.Provider {
		return NewOpenAI(OpenAIConfig{APIKey: apiKey, APIBase: pc.APIBase, Model: pc.Model, Client: client, Logger: logger})
	}
	f.constructors["ollama"] = func(pc config.ProviderConfig, _ string, client *http.Client, logger *slog.Logger) domain.Provider {
		return NewOllama(OllamaConfig{APIBase: pc.APIBase, DefaultModel: pc.Model, Client: client, Logger: logger})
	}
}

// Get returns the provider with the given name, or the configured one if name
// is empty.
func (f *Factory) Get(name string) (domain.Provider, error) {
	if name == "" {
		name = f.cfg.Name
	}
	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return ctor(f.cfg, f.apiKey, f.client, f.logger.With("provider", name)), nil
}

// DefaultProvider returns the configured provider.
func (f *Factory) DefaultProvider() (domain.Provider, error) {
	return f.Get("")
}
