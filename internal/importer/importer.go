// Package importer pulls the user's watch history from the tracking
// service and stores it as memory records in one batch upload.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yengalvez/a-movies/internal/memstore"
	"github.com/yengalvez/a-movies/internal/record"
	"github.com/yengalvez/a-movies/internal/trakt"
)

// DefaultLimit is how many history entries one import fetches.
const DefaultLimit = 100

// Importer converts tracking-service history into memory records.
type Importer struct {
	client   *trakt.Client
	uploader *memstore.Uploader
	codec    *record.Codec
	logger   *slog.Logger
}

// New creates an Importer.
func New(client *trakt.Client, uploader *memstore.Uploader, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		client:   client,
		uploader: uploader,
		codec:    record.NewCodec(),
		logger:   logger,
	}
}

// Result summarizes one import run.
type Result struct {
	Imported int    `json:"imported"`
	FileID   string `json:"file_id,omitempty"`
}

// Import fetches up to limit history entries and uploads them as one blob.
// An empty history is a successful no-op. Returns trakt.ErrNotConfigured
// when the tracking service credentials are absent.
func (i *Importer) Import(ctx context.Context, limit int) (Result, error) {
	if !i.client.IsConfigured() {
		return Result{}, trakt.ErrNotConfigured
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	items, err := i.client.History(ctx, limit)
	if err != nil {
		return Result{}, fmt.Errorf("importer: fetch history: %w", err)
	}
	if len(items) == 0 {
		i.logger.Info("import found no history entries")
		return Result{}, nil
	}

	var blob strings.Builder
	for _, item := range items {
		line, err := i.codec.Encode(factFromHistory(item))
		if err != nil {
			return Result{}, fmt.Errorf("importer: encode %q: %w", item.Movie.Title, err)
		}
		blob.Write(line)
	}

	fileID, err := i.uploader.Upload(ctx, blob.String())
	if err != nil {
		return Result{}, fmt.Errorf("importer: upload batch: %w", err)
	}

	i.logger.Info("imported watch history",
		"entries", len(items),
		"file_id", fileID,
	)

	return Result{Imported: len(items), FileID: fileID}, nil
}

// factFromHistory maps one history entry onto a seen-movie record. The
// original watch timestamp travels in the comment; marked_at records when
// the import ran.
func factFromHistory(item trakt.HistoryItem) record.Fact {
	f := record.Fact{
		Type:   record.TypeMovieSeen,
		Title:  item.Movie.Title,
		State:  record.StateSeen,
		Source: "trakt_history",
	}
	if item.Movie.Year != 0 {
		year := item.Movie.Year
		f.Year = &year
	}
	if item.Movie.IDs.Trakt != 0 {
		id := strconv.FormatInt(item.Movie.IDs.Trakt, 10)
		f.TraktID = &id
	}
	if item.Movie.IDs.IMDB != "" {
		id := item.Movie.IDs.IMDB
		f.IMDB = &id
	}
	if item.Movie.IDs.Slug != "" {
		slug := item.Movie.IDs.Slug
		f.Slug = &slug
	}
	if item.Movie.IDs.TMDB != 0 {
		id := strconv.FormatInt(item.Movie.IDs.TMDB, 10)
		f.TMDB = &id
	}
	if !item.WatchedAt.IsZero() {
		comment := "watched at " + item.WatchedAt.UTC().Format(time.RFC3339)
		f.Comment = &comment
	}
	return f
}
