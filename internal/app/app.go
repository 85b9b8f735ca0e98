package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/data/db"
	"github.com/yungbote/learnloop-backend/internal/data/repos"
	"github.com/yungbote/learnloop-backend/internal/http"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
	"github.com/yungbote/learnloop-backend/internal/platform/shutdown"
)

// Version is stamped at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      *config.Config
	Repos    repos.Repos
	Clients  Clients
	Services Services
	Server   *http.Server
	Metrics  *observability.Metrics

	store        *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "learnloop",
		Environment: cfg.Env,
		Version:     Version,
	})

	store, err := db.Open(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("store automigrate: %w", err)
	}
	theDB := store.DB()

	reposet := wireRepos(theDB, log)
	clients, err := WireClients(log, cfg, metrics)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	serviceset := wireServices(theDB, log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(log, theDB, serviceset, clients)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Server:       wireServer(log, cfg.HTTP, handlerset, metrics),
		Metrics:      metrics,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background collectors. It is idempotent.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	if a.Clients.redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.redis.Client())
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	a.Start()
	a.Log.Info("http server listening", "addr", a.Cfg.HTTP.Addr)
	return a.Server.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Sessions != nil {
		a.Services.Sessions.Close()
	}
	a.Clients.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("store close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := shutdown.Grace(a.Cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
