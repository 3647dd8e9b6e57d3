package gateway

import (
	"net/http"

	"github.com/yengalvez/a-movies/internal/record"
	"github.com/yengalvez/a-movies/internal/trakt"
)

type watchlistAction string

const (
	watchlistAdd    watchlistAction = "add"
	watchlistRemove watchlistAction = "remove"
)

type watchlistRequest struct {
	Title       *string  `json:"title"`
	Year        *int     `json:"year"`
	TraktID     *flexID  `json:"trakt_id"`
	IMDB        *string  `json:"imdb"`
	Slug        *string  `json:"slug"`
	TMDB        *flexID  `json:"tmdb"`
	Tags        []string `json:"tags"`
	Comment     *string  `json:"comment"`
	WriteMemory *bool    `json:"writeMemory"`
}

func (req *watchlistRequest) fact(action watchlistAction) record.Fact {
	f := record.Fact{
		Year:    req.Year,
		IMDB:    req.IMDB,
		Slug:    req.Slug,
		Tags:    req.Tags,
		Comment: req.Comment,
	}
	switch action {
	case watchlistRemove:
		f.Type = record.TypeMovieWatchlistRemoved
		f.State = record.StateRemovedFromWatchlist
	default:
		f.Type = record.TypeMovieWatchlist
		f.State = record.StateInWatchlist
	}
	if req.Title != nil {
		f.Title = *req.Title
	}
	if req.TraktID != nil {
		id := string(*req.TraktID)
		f.TraktID = &id
	}
	if req.TMDB != nil {
		id := string(*req.TMDB)
		f.TMDB = &id
	}
	return f
}

// handleWatchlist serves POST /trakt/watchlist/{add,remove}. The tracking
// service resolves movies by external ID, so at least one is required. The
// memory record is written first; a mirror failure only fails the request
// when the caller opted out of the memory write, because then nothing at
// all would have happened.
func (g *Gateway) handleWatchlist(action watchlistAction) http.HandlerFunc {
	mirror := func(r *http.Request, m trakt.Movie) (trakt.SyncResult, error) {
		if action == watchlistRemove {
			return g.deps.Trakt.WatchlistRemove(r.Context(), m)
		}
		return g.deps.Trakt.WatchlistAdd(r.Context(), m)
	}
	mirrorLabel := "watchlist_" + string(action)

	return func(w http.ResponseWriter, r *http.Request) {
		var req watchlistRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		fact := req.fact(action)
		if !fact.HasExternalID() {
			g.writeError(w, http.StatusBadRequest, "at least one external id is required", "provide trakt_id, imdb, slug or tmdb")
			return
		}

		resp := map[string]any{"ok": true}

		writeMemory := req.WriteMemory == nil || *req.WriteMemory
		if writeMemory {
			fileID, err := g.writeFact(r, fact)
			if err != nil {
				g.writeError(w, http.StatusInternalServerError, "failed to store record", err.Error())
				return
			}
			resp["file_id"] = fileID
		}

		if g.deps.Trakt.IsConfigured() {
			res, err := mirror(r, movieFromFact(fact))
			if err != nil {
				g.metrics.TraktMirrors.WithLabelValues(mirrorLabel, "error").Inc()
				g.logger.Warn("watchlist mirror failed", "action", action, "error", err)
				if !writeMemory {
					g.writeError(w, http.StatusBadGateway, "watchlist sync failed", err.Error())
					return
				}
				resp["trakt"] = map[string]any{"error": err.Error()}
			} else {
				g.metrics.TraktMirrors.WithLabelValues(mirrorLabel, "ok").Inc()
				detail := map[string]any{"synced": true}
				if action == watchlistRemove {
					detail["removed"] = res.Deleted.Movies
				} else {
					detail["added"] = res.Added.Movies
				}
				resp["trakt"] = detail
			}
		}

		g.writeJSON(w, http.StatusOK, resp)
	}
}
