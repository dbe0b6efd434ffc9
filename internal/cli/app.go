package cli

import (
	"fmt"
	"time"

	"github.com/yourusername/editorkit/internal/cache"
	"github.com/yourusername/editorkit/internal/config"
	"github.com/yourusername/editorkit/internal/llm"
	"github.com/yourusername/editorkit/internal/notify"
	"github.com/yourusername/editorkit/internal/store"
)

// app holds the shared wiring every subcommand needs: configuration, the
// model catalog, and the run database.
type app struct {
	cfg     *config.Config
	catalog *config.Catalog
	db      *store.DB
	repo    *store.Repository
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	catalog, err := config.LoadCatalog(cfg.ModelsPath)
	if err != nil {
		return nil, err
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cli: migrate: %w", err)
	}
	return &app{
		cfg:     cfg,
		catalog: catalog,
		db:      db,
		repo:    store.NewRepository(db),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// newClient builds an LLM client for a catalog model name, honoring the
// cache, streaming, and thinking settings.
func (a *app) newClient(modelName, thinking string, stream bool) (*llm.Client, config.ModelConfig, error) {
	if modelName == "" {
		modelName = a.cfg.DefaultModel
	}
	mc, err := a.catalog.Resolve(modelName)
	if err != nil {
		return nil, config.ModelConfig{}, err
	}

	opts := []llm.Option{
		llm.WithObserver(llm.NewLogObserver()),
		llm.WithStreaming(stream),
	}
	if thinking != "" {
		opts = append(opts, llm.WithThinkingLevel(thinking))
	}
	if a.cfg.CacheEnabled {
		ttl := time.Duration(a.cfg.CacheTTLSeconds) * time.Second
		opts = append(opts, llm.WithCache(cache.NewLRU(a.cfg.CacheSize, ttl)))
	}

	client, err := llm.NewClient(mc, opts...)
	if err != nil {
		return nil, config.ModelConfig{}, err
	}
	return client, mc, nil
}

// newNotifier builds the Telegram notifier, disabled when no token is set.
func (a *app) newNotifier() (*notify.Notifier, error) {
	tg, err := notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID)
	if err != nil {
		return nil, err
	}
	return notify.New(tg), nil
}
