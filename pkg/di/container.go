package di

import (
	"context"
	"fmt"
	"time"

	"lume-companion/backend/ai"
	"lume-companion/backend/internal/service"
	"lume-companion/backend/internal/store"
	"lume-companion/backend/internal/typing"
	"lume-companion/backend/internal/ws"
	"lume-companion/backend/pkg/cache"
	"lume-companion/backend/pkg/config"
	"lume-companion/backend/pkg/health"
	"lume-companion/backend/pkg/logger"
	"lume-companion/backend/pkg/notify"
)

// Container holds all the dependencies for the application
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       store.Store
	Notifier    *notify.Broadcaster
	Roster      *service.Roster
	Presenter   *typing.Presenter
	GenClient   *ai.Client
	ImageClient *ai.ImageClient
	Chat        *service.Chat
	Hub         *ws.Hub
	ModelCache  *cache.Cache
	Health      *health.Checker
}

// New wires the application bottom-up: store, roster, generation clients,
// chat orchestrator, then the websocket hub that observes all of them.
func New(cfg *config.Config, logConfig logger.Config) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}

	log := logger.New(logConfig)

	st, err := newStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	notifier := notify.NewBroadcaster(log)

	roster, err := service.NewRoster(st, notifier, log)
	if err != nil {
		return nil, fmt.Errorf("initializing roster: %w", err)
	}

	genClient := ai.NewClient(log, notifier, ai.WithTimeout(cfg.Generation.Timeout))
	imageClient := ai.NewImageClient(log, notifier)
	imageClient.Configure(cfg.ImageGen.Host, cfg.ImageGen.Model, cfg.ImageGen.APIKey)

	presenter := typing.NewPresenter(cfg.Typing.Interval)

	hub := ws.NewHub(nil, log)
	notifier.Attach(hub)

	chat := service.NewChat(roster, genClient, presenter, log, service.ChatOptions{
		Timeout: cfg.Generation.Timeout,
		Events:  hub,
	})
	hub.SetSubmitter(chat)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterStoreCheck(func() error {
		_, err := st.LoadCharacters()
		return err
	})
	// The generation endpoint is runtime-configurable through the roster
	// settings, so the check resolves it on every run.
	checker.RegisterAPICheckFunc("generation", func() string {
		return roster.Settings().LLM.Endpoint + "/tags"
	}, nil)

	return &Container{
		Config:      cfg,
		Logger:      log,
		Store:       st,
		Notifier:    notifier,
		Roster:      roster,
		Presenter:   presenter,
		GenClient:   genClient,
		ImageClient: imageClient,
		Chat:        chat,
		Hub:         hub,
		ModelCache:  cache.NewCache(cache.DefaultOptions()),
		Health:      checker,
	}, nil
}

// Close releases the container's resources.
func (c *Container) Close() error {
	return c.Store.Close()
}

// newStore selects the persistence backend from configuration.
func newStore(cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		kv, err := store.NewGormKV(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store.NewKVStore(kv, log), nil
	case "file":
		return store.NewFileStore(cfg.Store.DataDir, log)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		kv, err := store.NewRedisKV(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPass,
			DB:       cfg.Store.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return store.NewKVStore(kv, log), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
