// Package app assembles the movie-memory service from configuration:
// store clients, the tracking-service client, the conversational agent,
// the HTTP gateway, and the background scheduler.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yengalvez/a-movies/internal/agent"
	"github.com/yengalvez/a-movies/internal/assistant"
	"github.com/yengalvez/a-movies/internal/config"
	"github.com/yengalvez/a-movies/internal/cron"
	"github.com/yengalvez/a-movies/internal/gateway"
	"github.com/yengalvez/a-movies/internal/importer"
	"github.com/yengalvez/a-movies/internal/memstore"
	"github.com/yengalvez/a-movies/internal/memstore/openai"
	"github.com/yengalvez/a-movies/internal/provider/anthropic"
	"github.com/yengalvez/a-movies/internal/record"
	"github.com/yengalvez/a-movies/internal/session"
	"github.com/yengalvez/a-movies/internal/tool"
	"github.com/yengalvez/a-movies/internal/trakt"
)

// App is the fully wired service.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	gateway   *gateway.Gateway
	scheduler *cron.Scheduler
	sessions  *session.Store
}

// New builds the service from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := openai.NewClient(openai.Config{
		APIKey:     cfg.Store.APIKey,
		BaseURL:    cfg.Store.BaseURL,
		Collection: cfg.Store.Collection,
		Purpose:    cfg.Store.Purpose,
		Timeout:    cfg.Store.Timeout,
	})
	uploader := memstore.NewUploader(store, "", logger)
	searcher := memstore.NewSearcher(store, logger)

	traktClient := trakt.NewClient(trakt.Config{
		ClientID:    cfg.Trakt.ClientID,
		AccessToken: cfg.Trakt.AccessToken,
		BaseURL:     cfg.Trakt.BaseURL,
		Timeout:     cfg.Trakt.Timeout,
	})
	if !traktClient.IsConfigured() {
		logger.Info("trakt credentials absent, mirroring disabled")
	}

	imp := importer.New(traktClient, uploader, logger)

	sessions, err := session.Open(session.Config{
		Path:        cfg.Session.Path,
		WAL:         cfg.Session.WAL,
		BusyTimeout: cfg.Session.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("app: open session store: %w", err)
	}

	provider := anthropic.New(anthropic.Config{
		APIKey:    cfg.Agent.APIKey,
		Model:     cfg.Agent.Model,
		MaxTokens: cfg.Agent.MaxTokens,
	}, logger)

	registry := tool.NewRegistry()
	for _, t := range []tool.Tool{
		assistant.NewMemoryWriteTool(uploader),
		assistant.NewMemorySearchTool(searcher),
		assistant.NewTraktCallTool(traktClient),
	} {
		if err := registry.Register(t); err != nil {
			_ = sessions.Close()
			return nil, fmt.Errorf("app: register tool: %w", err)
		}
	}

	chat := assistant.New(provider, registry, sessions, assistant.Config{
		SystemPrompt:  cfg.Agent.SystemPrompt,
		HistoryWindow: cfg.Agent.HistoryWindow,
		Loop: agent.LoopConfig{
			MaxIterations: cfg.Agent.MaxIterations,
			Timeout:       cfg.Agent.Timeout,
		},
	}, logger)

	gw := gateway.New(gateway.Config{
		Bind:            cfg.Server.Bind,
		BearerToken:     cfg.Server.BearerToken,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, gateway.Deps{
		Codec:    record.NewCodec(),
		Uploader: uploader,
		Searcher: searcher,
		Trakt:    traktClient,
		Importer: imp,
		Chat:     chat,
		Model:    provider.ModelName(),
	}, logger)

	scheduler := cron.NewScheduler(logger)
	if cfg.Sync.Schedule != "" && traktClient.IsConfigured() {
		if err := scheduler.RegisterJob(&cron.HistoryImportJob{
			Importer: imp,
			Spec:     cfg.Sync.Schedule,
			Limit:    cfg.Sync.Limit,
			Logger:   logger,
		}); err != nil {
			_ = sessions.Close()
			return nil, fmt.Errorf("app: register import job: %w", err)
		}
	}
	if cfg.Session.PurgeSchedule != "" {
		if err := scheduler.RegisterJob(&cron.SessionPurgeJob{
			Sessions: sessions,
			Spec:     cfg.Session.PurgeSchedule,
			MaxAge:   cfg.Session.MaxAge,
			Logger:   logger,
		}); err != nil {
			_ = sessions.Close()
			return nil, fmt.Errorf("app: register purge job: %w", err)
		}
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		gateway:   gw,
		scheduler: scheduler,
		sessions:  sessions,
	}, nil
}

// Run starts the gateway and the scheduler, then blocks until ctx is
// cancelled and everything has shut down.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("app: start scheduler: %w", err)
	}
	if err := a.gateway.Start(); err != nil {
		a.stop(context.Background())
		return fmt.Errorf("app: start gateway: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("shutdown requested")

	a.stop(context.Background())
	return nil
}

func (a *App) stop(ctx context.Context) {
	if err := a.gateway.Stop(ctx); err != nil {
		a.logger.Error("gateway shutdown failed", "error", err)
	}
	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Error("scheduler shutdown failed", "error", err)
	}
	if err := a.sessions.Close(); err != nil {
		a.logger.Error("session store close failed", "error", err)
	}
}
