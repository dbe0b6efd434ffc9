package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_Builtin(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Models())
	assert.Contains(t, cat.Models(), "glm-4.6-or")
}

func TestLoadCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  acme:
    api_key_env: ACME_API_KEY
    base_url: https://llm.acme.test/v1
    context_window: 32768
    max_tokens: 4096
    temperature: 0.5
    currency: "€"
    rate_limit:
      min_interval_ms: 250
      max_requests_per_minute: 10
    request_overrides:
      reasoning_effort: high
    models:
      acme-large:
        id: acme-large-2025
        pricing: {input: 1.5, output: 3.0}
`), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	mc, err := cat.Resolve("acme-large")
	require.NoError(t, err)
	assert.Equal(t, "acme-large-2025", mc.ID)
	assert.Equal(t, "acme", mc.Provider)
	assert.Equal(t, "ACME_API_KEY", mc.APIKeyEnv)
	assert.Equal(t, "€", mc.Currency)
	assert.Equal(t, 32768, mc.ContextWindow)
	assert.Equal(t, 1.5, mc.PriceInput)
	assert.Equal(t, 3.0, mc.PriceOutput)
	assert.Equal(t, 250*time.Millisecond, mc.MinInterval)
	assert.Equal(t, 10, mc.MaxPerMinute)
	assert.Equal(t, "high", mc.ReasoningEffort)
}

func TestResolve_UnknownModel(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	_, err = cat.Resolve("no-such-model")
	assert.ErrorContains(t, err, "no-such-model")
}

func TestResolve_DefaultsCurrency(t *testing.T) {
	cat := &Catalog{Providers: map[string]Provider{
		"p": {
			APIKeyEnv:     "P_KEY",
			BaseURL:       "https://p.test/v1",
			ContextWindow: 1000,
			Models:        map[string]ModelEntry{"m": {ID: "m-1"}},
		},
	}}
	mc, err := cat.Resolve("m")
	require.NoError(t, err)
	assert.Equal(t, "$", mc.Currency)
	assert.Zero(t, mc.MinInterval)
	// No rate_limit block leaves the limiter defaults in force, not "uncapped".
	assert.Equal(t, -1, mc.MaxPerMinute)
}

func TestResolve_NoRateLimitKeepsLimiterDefaults(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)

	// openrouter declares no rate_limit; its models must resolve to the
	// unset marker so ratelimit.New falls back to its defaults.
	mc, err := cat.Resolve("glm-4.6-or")
	require.NoError(t, err)
	assert.Zero(t, mc.MinInterval)
	assert.Equal(t, -1, mc.MaxPerMinute)
}

func TestResolve_MissingContextWindow(t *testing.T) {
	cat := &Catalog{Providers: map[string]Provider{
		"p": {
			APIKeyEnv: "P_KEY",
			BaseURL:   "https://p.test/v1",
			Models:    map[string]ModelEntry{"m": {ID: "m-1"}},
		},
	}}
	_, err := cat.Resolve("m")
	assert.ErrorContains(t, err, "context_window")
}

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("EDITORKIT_DB_PATH", filepath.Join(t.TempDir(), "runs.db"))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, 10000, cfg.PromptOverheadTokens)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, "glm-4.6-or", cfg.DefaultModel)
}
