// Package config loads application settings from the environment and the
// model catalog from YAML. Everything is constructed explicitly at startup
// and passed by injection — no import-time side effects.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds runtime settings for editorkit.
type Config struct {
	DBPath       string `env:"EDITORKIT_DB_PATH"`
	ModelsPath   string `env:"EDITORKIT_MODELS_PATH"`
	OutputDir    string `env:"EDITORKIT_OUTPUT_DIR"`
	DefaultModel string `env:"EDITORKIT_DEFAULT_MODEL" env-default:"glm-4.6-or"`

	MaxConcurrent        int `env:"EDITORKIT_MAX_CONCURRENT" env-default:"5"`
	PromptOverheadTokens int `env:"EDITORKIT_PROMPT_OVERHEAD_TOKENS" env-default:"10000"`

	CacheEnabled    bool `env:"EDITORKIT_CACHE_ENABLED" env-default:"false"`
	CacheSize       int  `env:"EDITORKIT_CACHE_SIZE" env-default:"100"`
	CacheTTLSeconds int  `env:"EDITORKIT_CACHE_TTL_SECONDS" env-default:"3600"`

	TelegramToken  string `env:"EDITORKIT_TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"EDITORKIT_TELEGRAM_CHAT_ID"`
}

// Load reads configuration from environment variables, filling defaults for
// everything optional. The database lives under ~/.editorkit by default.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config.Load: resolve home: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".editorkit", "runs.db")
	}
	return &cfg, nil
}
