package gateway

import (
	"net/http"
	"time"
)

// handleInfo serves GET / with service identity and uptime.
func (g *Gateway) handleInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		g.writeJSON(w, http.StatusOK, map[string]any{
			"name":    "a-movies",
			"version": Version,
			"uptime":  time.Since(g.startedAt).Round(time.Second).String(),
		})
	}
}

// handleHealth serves GET /health with a configuration summary.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		g.writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"trakt":  g.deps.Trakt.IsConfigured(),
			"model":  g.deps.Model,
		})
	}
}
