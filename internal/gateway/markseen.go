package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/yengalvez/a-movies/internal/record"
	"github.com/yengalvez/a-movies/internal/trakt"
)

// flexID accepts an external identifier sent as either a JSON string or a
// JSON number; callers are inconsistent about this.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	return fmt.Errorf("identifier must be a string or number")
}

type markSeenRequest struct {
	Title     *string  `json:"title"`
	Year      *int     `json:"year"`
	TraktID   *flexID  `json:"trakt_id"`
	IMDB      *string  `json:"imdb"`
	Slug      *string  `json:"slug"`
	TMDB      *flexID  `json:"tmdb"`
	Rating    *float64 `json:"rating"`
	Liked     *bool    `json:"liked"`
	Tags      []string `json:"tags"`
	Comment   *string  `json:"comment"`
	SyncTrakt *bool    `json:"syncTrakt"`
}

func (req *markSeenRequest) fact() record.Fact {
	f := record.Fact{
		Type:    record.TypeMovieSeen,
		State:   record.StateSeen,
		Year:    req.Year,
		IMDB:    req.IMDB,
		Slug:    req.Slug,
		Rating:  req.Rating,
		Liked:   req.Liked,
		Tags:    req.Tags,
		Comment: req.Comment,
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

// movieFromFact builds the tracking-service movie payload from a record.
func movieFromFact(f record.Fact) trakt.Movie {
	m := trakt.Movie{Title: f.Title}
	if f.Year != nil {
		m.Year = *f.Year
	}
	if f.TraktID != nil {
		if id, err := strconv.ParseInt(*f.TraktID, 10, 64); err == nil {
			m.IDs.Trakt = id
		}
	}
	if f.IMDB != nil {
		m.IDs.IMDB = *f.IMDB
	}
	if f.Slug != nil {
		m.IDs.Slug = *f.Slug
	}
	if f.TMDB != nil {
		if id, err := strconv.ParseInt(*f.TMDB, 10, 64); err == nil {
			m.IDs.TMDB = id
		}
	}
	return m
}

// writeFact encodes and uploads one record, returning the vendor file ID.
func (g *Gateway) writeFact(r *http.Request, f record.Fact) (string, error) {
	line, err := g.deps.Codec.Encode(f)
	if err != nil {
		return "", err
	}
	fileID, err := g.deps.Uploader.Upload(r.Context(), string(line))
	if err != nil {
		return "", err
	}
	g.metrics.RecordsWritten.Inc()
	return fileID, nil
}

// handleMarkSeen serves POST /mark-seen: write the memory record, then
// mirror to the tracking service when configured. A mirror failure never
// fails the request; the record already exists.
func (g *Gateway) handleMarkSeen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markSeenRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			g.writeError(w, http.StatusBadRequest, "title is required", "")
			return
		}

		fact := req.fact()

		fileID, err := g.writeFact(r, fact)
		if err != nil {
			g.writeError(w, http.StatusInternalServerError, "failed to store record", err.Error())
			return
		}

		resp := map[string]any{"ok": true, "file_id": fileID}

		syncTrakt := req.SyncTrakt == nil || *req.SyncTrakt
		if syncTrakt && g.deps.Trakt.IsConfigured() && fact.HasExternalID() {
			res, err := g.deps.Trakt.AddToHistory(r.Context(), movieFromFact(fact))
			if err != nil {
				g.metrics.TraktMirrors.WithLabelValues("history_add", "error").Inc()
				g.logger.Warn("history mirror failed", "title", fact.Title, "error", err)
				resp["trakt"] = map[string]any{"error": err.Error()}
			} else {
				g.metrics.TraktMirrors.WithLabelValues("history_add", "ok").Inc()
				resp["trakt"] = map[string]any{"synced": true, "added": res.Added.Movies}
			}
		}

		g.writeJSON(w, http.StatusOK, resp)
	}
}
