// Package gateway exposes the movie-memory service over HTTP: record
// writes, history import, watchlist mirroring, and the conversational
// agent, plus health and metrics.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yengalvez/a-movies/internal/agent"
	"github.com/yengalvez/a-movies/internal/assistant"
	"github.com/yengalvez/a-movies/internal/importer"
	"github.com/yengalvez/a-movies/internal/memstore"
	"github.com/yengalvez/a-movies/internal/record"
	"github.com/yengalvez/a-movies/internal/trakt"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Config holds the HTTP server settings.
type Config struct {
	Bind            string
	BearerToken     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:3000"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// ChatService is the conversational surface the gateway fronts.
type ChatService interface {
	Chat(ctx context.Context, sessionID, message string) (assistant.Reply, error)
	ChatStream(ctx context.Context, sessionID, message string) (string, <-chan agent.StreamEvent, error)
}

// Deps are the collaborators the gateway dispatches to.
type Deps struct {
	Codec    *record.Codec
	Uploader *memstore.Uploader
	Searcher *memstore.Searcher
	Trakt    *trakt.Client
	Importer *importer.Importer
	Chat     ChatService
	Model    string
}

// Gateway is the HTTP server for the movie-memory service.
type Gateway struct {
	config    Config
	deps      Deps
	logger    *slog.Logger
	metrics   *Collector
	server    *http.Server
	startedAt time.Time
}

// New creates a Gateway. Start must be called to begin serving.
func New(cfg Config, deps Deps, logger *slog.Logger) *Gateway {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:  cfg,
		deps:    deps,
		logger:  logger,
		metrics: NewCollector("amovies"),
	}
}

// Handler returns the fully wired router, exposed for tests.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Start begins serving in a background goroutine.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
