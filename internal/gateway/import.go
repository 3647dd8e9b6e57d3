package gateway

import (
	"net/http"

	"github.com/yengalvez/a-movies/internal/importer"
)

type importRequest struct {
	Limit int `json:"limit"`
}

// handleImportHistory serves POST /import-trakt-history: pull recent watch
// history from the tracking service and batch it into one memory upload.
func (g *Gateway) handleImportHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if req.Limit < 0 {
			g.writeError(w, http.StatusBadRequest, "limit must be positive", "")
			return
		}
		if !g.deps.Trakt.IsConfigured() {
			g.writeError(w, http.StatusServiceUnavailable, "trakt is not configured", "set the client id and access token")
			return
		}

		limit := req.Limit
		if limit == 0 {
			limit = importer.DefaultLimit
		}

		res, err := g.deps.Importer.Import(r.Context(), limit)
		if err != nil {
			g.writeError(w, http.StatusBadGateway, "import failed", err.Error())
			return
		}
		g.metrics.ImportsRun.Inc()

		resp := map[string]any{"ok": true, "imported": res.Imported}
		if res.FileID != "" {
			resp["file_id"] = res.FileID
		}
		g.writeJSON(w, http.StatusOK, resp)
	}
}
