package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/yengalvez/a-movies/internal/memstore"
)

// handleSearch serves GET /memory/search: the same linear scan the agent's
// memory_search tool runs, exposed for direct callers. Query parameters:
// q (required), top_k, tags (comma separated).
func (g *Gateway) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if strings.TrimSpace(query) == "" {
			g.writeError(w, http.StatusBadRequest, "q is required", "")
			return
		}

		topK := 0
		if raw := r.URL.Query().Get("top_k"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 || n > memstore.MaxTopK {
				g.writeError(w, http.StatusBadRequest, "invalid top_k", "must be an integer between 0 and "+strconv.Itoa(memstore.MaxTopK))
				return
			}
			topK = n
		}

		var tags []string
		if raw := r.URL.Query().Get("tags"); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}

		results, err := g.deps.Searcher.Search(r.Context(), query, topK, tags)
		if err != nil {
			g.writeError(w, http.StatusInternalServerError, "search failed", err.Error())
			return
		}
		if results == nil {
			results = []memstore.SearchResult{}
		}

		g.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "results": results})
	}
}
