// Package record defines the memory record persisted for every movie fact
// and the line codec that serializes it. One encoded record occupies exactly
// one line of a line-delimited JSON file; callers may concatenate lines into
// a single upload blob.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known record types. The type tag is open-ended: any string is
// accepted and consumers must tolerate unknown types.
const (
	TypeMovieSeen             = "movie_seen"
	TypeMovieWatchlist        = "movie_watchlist"
	TypeMovieWatchlistRemoved = "movie_watchlist_removed"
)

// Lifecycle states recorded in the State field.
const (
	StateSeen                 = "seen"
	StateInWatchlist          = "in_watchlist"
	StateRemovedFromWatchlist = "removed_from_watchlist"
)

// Fact is a partially-filled memory fact supplied by a caller. Pointer
// fields are tri-state: nil serializes as JSON null.
type Fact struct {
	Type    string
	Title   string
	Year    *int
	TraktID *string
	IMDB    *string
	Slug    *string
	TMDB    *string
	Rating  *float64
	Liked   *bool
	State   string
	Source  string
	Tags    []string
	Comment *string
	Text    *string
}

// HasExternalID reports whether at least one tracking-service identifier is
// present. Records without one cannot round-trip to the tracking service.
func (f Fact) HasExternalID() bool {
	return f.TraktID != nil || f.IMDB != nil || f.Slug != nil || f.TMDB != nil
}

// wireFact is the fixed on-disk field set. Every field is always emitted;
// absent optionals appear as explicit nulls.
type wireFact struct {
	Type     string    `json:"type"`
	Title    *string   `json:"title"`
	Year     *int      `json:"year"`
	TraktID  *string   `json:"trakt_id"`
	IMDB     *string   `json:"imdb"`
	Slug     *string   `json:"slug"`
	TMDB     *string   `json:"tmdb"`
	Rating   *float64  `json:"rating"`
	Liked    *bool     `json:"liked"`
	State    string    `json:"state"`
	Source   string    `json:"source"`
	Tags     []string  `json:"tags"`
	Comment  *string   `json:"comment"`
	Text     *string   `json:"text"`
	MarkedAt time.Time `json:"marked_at"`
}

// Codec serializes facts into canonical record lines. The clock is
// injectable so tests can pin the marked_at stamp.
type Codec struct {
	now func() time.Time
}

// NewCodec creates a Codec using the wall clock.
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// NewCodecWithClock creates a Codec with a custom clock.
func NewCodecWithClock(now func() time.Time) *Codec {
	return &Codec{now: now}
}

// Encode fills defaults, stamps marked_at with the current UTC instant, and
// serializes the fact to one JSON line terminated by a single newline.
// Unknown fields on the input cannot occur by construction; the wire field
// set is fixed.
func (c *Codec) Encode(f Fact) ([]byte, error) {
	w := wireFact{
		Type:     f.Type,
		Year:     f.Year,
		TraktID:  f.TraktID,
		IMDB:     f.IMDB,
		Slug:     f.Slug,
		TMDB:     f.TMDB,
		Rating:   f.Rating,
		Liked:    f.Liked,
		State:    f.State,
		Source:   f.Source,
		Tags:     f.Tags,
		Comment:  f.Comment,
		Text:     f.Text,
		MarkedAt: c.now().UTC().Truncate(time.Second),
	}
	if f.Title != "" {
		title := f.Title
		w.Title = &title
	}
	if w.State == "" {
		w.State = StateSeen
	}
	if w.Source == "" {
		w.Source = "manual"
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}

	line, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("record: encode: %w", err)
	}
	return append(line, '\n'), nil
}

// Decode parses one record line back into a Fact plus its marked_at stamp.
// It is the inverse of Encode up to the volatile marked_at field.
func Decode(line []byte) (Fact, time.Time, error) {
	var w wireFact
	if err := json.Unmarshal(line, &w); err != nil {
		return Fact{}, time.Time{}, fmt.Errorf("record: decode: %w", err)
	}

	f := Fact{
		Type:    w.Type,
		Year:    w.Year,
		TraktID: w.TraktID,
		IMDB:    w.IMDB,
		Slug:    w.Slug,
		TMDB:    w.TMDB,
		Rating:  w.Rating,
		Liked:   w.Liked,
		State:   w.State,
		Source:  w.Source,
		Tags:    w.Tags,
		Comment: w.Comment,
		Text:    w.Text,
	}
	if w.Title != nil {
		f.Title = *w.Title
	}
	return f, w.MarkedAt, nil
}

// Line is the loose decoded view of one stored record used by the search
// path. Records written by foreign producers may carry either a "kind" or a
// "type" tag and either timestamp key, so both are retained.
type Line struct {
	Text      string   `json:"text"`
	Kind      string   `json:"kind"`
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Comment   string   `json:"comment"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	MarkedAt  string   `json:"marked_at"`

	// Raw is the original line, kept for display fallback.
	Raw string `json:"-"`
}

// ParseLine decodes one stored line into its loose view. A parse failure is
// an ordinary error value: the search routine discards it and continues.
func ParseLine(line string) (Line, error) {
	var l Line
	if err := json.Unmarshal([]byte(line), &l); err != nil {
		return Line{}, fmt.Errorf("record: parse line: %w", err)
	}
	l.Raw = line
	return l, nil
}
