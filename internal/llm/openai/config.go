package openai

import (
	"fmt"
	"strings"
	"time"
)

// Providers that speak the OpenAI chat/completions dialect.
const (
	ProviderOpenAI     = "openai"
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
)

const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 8000
	DefaultTimeout     = 180 * time.Second
)

type preset struct {
	baseURL string
	model   string
}

var presets = map[string]preset{
	ProviderOpenAI:     {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	ProviderGroq:       {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile"},
	ProviderOpenRouter: {baseURL: "https://openrouter.ai/api/v1", model: "anthropic/claude-3.5-sonnet"},
}

// Config for the chat/completions client.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64       // used when a request leaves it unset
	MaxTokens   int           // used when a request leaves it unset
	Timeout     time.Duration // http client timeout
	// Referer and Title are sent to openrouter for attribution.
	Referer string
	Title   string
}

// ConfigFor fills the provider's base URL and model when they are not
// overridden. It fails for providers without a preset.
func ConfigFor(provider, apiKey, model, baseURL string) (Config, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	p, ok := presets[provider]
	if !ok {
		return Config{}, fmt.Errorf("unknown llm provider %q", provider)
	}
	cfg := Config{
		Provider:    provider,
		APIKey:      apiKey,
		BaseURL:     p.baseURL,
		Model:       p.model,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
	if model != "" {
		cfg.Model = model
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if provider == ProviderOpenRouter {
		cfg.Title = "contract-analyzer"
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if p, ok := presets[c.Provider]; ok {
		if c.BaseURL == "" {
			c.BaseURL = p.baseURL
		}
		if c.Model == "" {
			c.Model = p.model
		}
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}
