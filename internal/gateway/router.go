package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/", g.handleInfo())
	r.Get("/health", g.handleHealth())
	r.Method(http.MethodGet, "/metrics", g.metrics.Handler())

	// Mutating routes — bearer auth when configured.
	r.Group(func(r chi.Router) {
		r.Use(g.metrics.instrument)
		if g.config.BearerToken != "" {
			r.Use(authMiddleware(g.config.BearerToken))
		}
		r.Get("/memory/search", g.handleSearch())
		r.Post("/mark-seen", g.handleMarkSeen())
		r.Post("/import-trakt-history", g.handleImportHistory())
		r.Post("/trakt/watchlist/add", g.handleWatchlist(watchlistAdd))
		r.Post("/trakt/watchlist/remove", g.handleWatchlist(watchlistRemove))
		r.Post("/agent/chat", g.handleChat())
	})

	// WebSocket — outside the instrumented group (needs connection hijack).
	r.Group(func(r chi.Router) {
		if g.config.BearerToken != "" {
			r.Use(authMiddleware(g.config.BearerToken))
		}
		r.Get("/agent/chat/ws", g.handleChatWS())
	})

	return r
}
