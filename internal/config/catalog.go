package config

import (
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// models.yml is the single source of truth for provider and model metadata.
// An external catalog (EDITORKIT_MODELS_PATH) overrides the built-in one.
//
//go:embed models.yml
var defaultCatalogYAML []byte

// Pricing is the per-million-token price for a model.
type Pricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// ModelEntry describes one model offered by a provider.
type ModelEntry struct {
	// ID is the model identifier sent on the wire, as opposed to the
	// catalog name users type on the CLI.
	ID      string  `yaml:"id"`
	Pricing Pricing `yaml:"pricing"`
}

// RateLimit is a provider-level client throttling policy.
type RateLimit struct {
	MinIntervalMS        int `yaml:"min_interval_ms"`
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
}

// Overrides are provider-specific request body fields. Only fields the
// OpenAI-compatible surface knows are representable; unknown YAML keys fail
// catalog load instead of being silently dropped.
type Overrides struct {
	ReasoningEffort string  `yaml:"reasoning_effort"`
	TopP            float32 `yaml:"top_p"`
}

// Provider groups connection settings shared by a provider's models.
type Provider struct {
	APIKeyEnv        string                `yaml:"api_key_env"`
	BaseURL          string                `yaml:"base_url"`
	Temperature      float32               `yaml:"temperature"`
	MaxTokens        int                   `yaml:"max_tokens"`
	ContextWindow    int                   `yaml:"context_window"`
	Currency         string                `yaml:"currency"`
	RateLimit        *RateLimit            `yaml:"rate_limit"`
	RequestOverrides Overrides             `yaml:"request_overrides"`
	Models           map[string]ModelEntry `yaml:"models"`
}

// Catalog is the full model catalog.
type Catalog struct {
	Providers map[string]Provider `yaml:"providers"`
}

// ModelConfig is the flattened provider+model view a client is built from.
type ModelConfig struct {
	Name     string // catalog name (CLI-facing)
	ID       string // wire model id
	Provider string

	APIKeyEnv string
	BaseURL   string
	Currency  string

	Temperature   float32
	MaxTokens     int
	ContextWindow int

	PriceInput  float64
	PriceOutput float64

	// MinInterval 0 and MaxPerMinute -1 mean the provider set no policy and
	// the limiter's defaults apply; an explicit max_requests_per_minute of 0
	// disables the per-minute cap.
	MinInterval  time.Duration
	MaxPerMinute int

	ReasoningEffort string
	TopP            float32
}

// LoadCatalog loads the model catalog. An empty path selects the embedded
// default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	var cat Catalog
	if path == "" {
		if err := yaml.Unmarshal(defaultCatalogYAML, &cat); err != nil {
			return nil, fmt.Errorf("config.LoadCatalog: built-in catalog: %w", err)
		}
	} else {
		if err := cleanenv.ReadConfig(path, &cat); err != nil {
			return nil, fmt.Errorf("config.LoadCatalog: %s: %w", path, err)
		}
	}
	if len(cat.Providers) == 0 {
		return nil, fmt.Errorf("config.LoadCatalog: catalog defines no providers")
	}
	return &cat, nil
}

// Models returns all catalog model names, sorted.
func (c *Catalog) Models() []string {
	var names []string
	for _, p := range c.Providers {
		for name := range p.Models {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve flattens provider settings and model details for a model name.
func (c *Catalog) Resolve(name string) (ModelConfig, error) {
	for providerName, p := range c.Providers {
		entry, ok := p.Models[name]
		if !ok {
			continue
		}
		if p.APIKeyEnv == "" || p.BaseURL == "" {
			return ModelConfig{}, fmt.Errorf(
				"config.Catalog.Resolve: provider %s is missing api_key_env or base_url", providerName)
		}
		if p.ContextWindow <= 0 {
			return ModelConfig{}, fmt.Errorf(
				"config.Catalog.Resolve: provider %s has no context_window", providerName)
		}

		mc := ModelConfig{
			Name:            name,
			ID:              entry.ID,
			Provider:        providerName,
			APIKeyEnv:       p.APIKeyEnv,
			BaseURL:         p.BaseURL,
			Currency:        p.Currency,
			Temperature:     p.Temperature,
			MaxTokens:       p.MaxTokens,
			ContextWindow:   p.ContextWindow,
			PriceInput:      entry.Pricing.Input,
			PriceOutput:     entry.Pricing.Output,
			ReasoningEffort: p.RequestOverrides.ReasoningEffort,
			TopP:            p.RequestOverrides.TopP,
		}
		if mc.Currency == "" {
			mc.Currency = "$"
		}
		if p.RateLimit != nil {
			mc.MinInterval = time.Duration(p.RateLimit.MinIntervalMS) * time.Millisecond
			mc.MaxPerMinute = p.RateLimit.MaxRequestsPerMinute
		} else {
			mc.MaxPerMinute = -1
		}
		return mc, nil
	}
	return ModelConfig{}, fmt.Errorf(
		"config.Catalog.Resolve: model %q not found (available: %v)", name, c.Models())
}
