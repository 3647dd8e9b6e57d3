package trakt

import "time"

// IDs is the tracking service's identifier set for a movie. At least one
// field must be populated for a movie to round-trip.
type IDs struct {
	Trakt int64  `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
}

// IsZero reports whether no identifier is set.
func (i IDs) IsZero() bool {
	return i.Trakt == 0 && i.Slug == "" && i.IMDB == "" && i.TMDB == 0
}

// Movie is the movie payload used in sync requests.
type Movie struct {
	Title string `json:"title,omitempty"`
	Year  int    `json:"year,omitempty"`
	IDs   IDs    `json:"ids"`
}

// HistoryItem is one watched entry from the user's history.
type HistoryItem struct {
	ID        int64     `json:"id"`
	WatchedAt time.Time `json:"watched_at"`
	Action    string    `json:"action"`
	Type      string    `json:"type"`
	Movie     Movie     `json:"movie"`
}

// syncRequest is the body shape shared by history and watchlist mutations.
type syncRequest struct {
	Movies []Movie `json:"movies"`
}

// SyncResult summarizes a sync mutation response. The service reports
// per-category counts; only movies are used here.
type SyncResult struct {
	Added    Counts `json:"added"`
	Deleted  Counts `json:"deleted"`
	Existing Counts `json:"existing"`
}

// Counts holds per-media-type counters from a sync response.
type Counts struct {
	Movies int `json:"movies"`
}
