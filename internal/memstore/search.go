package memstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/yengalvez/a-movies/internal/record"
)

// Search parameters and their hard bounds.
const (
	// filePageSize caps the scan at the first page of listed files.
	// This is a deliberate scale ceiling, not an oversight: the store is a
	// personal memory, and the scan must stay bounded per request.
	filePageSize = 20

	DefaultTopK = 10
	MaxTopK     = 50
)

// Searcher answers memory queries with a linear scan over every record line
// in the collection. There is no index and no relevance ranking; results
// come back in file-listing-then-line order with a constant score.
type Searcher struct {
	store  FileStore
	logger *slog.Logger
}

// NewSearcher creates a Searcher over the given store.
func NewSearcher(store FileStore, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{store: store, logger: logger}
}

// Search scans the collection for records whose text matches query as a
// case-insensitive substring, optionally restricted to records carrying
// every tag in filterTags. Scanning stops as soon as topK matches are
// collected. topK defaults to DefaultTopK and is capped at MaxTopK.
func (s *Searcher) Search(ctx context.Context, query string, topK int, filterTags []string) ([]SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	needle := strings.ToLower(query)

	files, err := s.store.List(ctx, filePageSize)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, topK)

	for _, f := range files {
		content, err := s.store.Content(ctx, f.ID)
		if err != nil {
			// One unreadable file must not sink the whole search.
			s.logger.Warn("skipping unreadable file", "file_id", f.ID, "error", err)
			continue
		}

		for _, raw := range strings.Split(content, "\n") {
			if strings.TrimSpace(raw) == "" {
				continue
			}

			line, err := record.ParseLine(raw)
			if err != nil {
				// Silent skip: a malformed line is not an error condition.
				continue
			}

			if !hasAllTags(line.Tags, filterTags) {
				continue
			}
			if !strings.Contains(haystack(line), needle) {
				continue
			}

			results = append(results, toResult(line))
			if len(results) >= topK {
				return results, nil
			}
		}
	}

	return results, nil
}

// hasAllTags reports whether tags is a superset of want (AND filter).
func hasAllTags(tags, want []string) bool {
	for _, w := range want {
		if !slices.Contains(tags, w) {
			return false
		}
	}
	return true
}

// haystack builds the lowercase text the query is matched against:
// text, title, comment, the JSON form of tags, kind, and type, joined by
// spaces. Missing fields contribute empty strings.
func haystack(l record.Line) string {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	parts := []string{l.Text, l.Title, l.Comment, string(tagsJSON), l.Kind, l.Type}
	return strings.ToLower(strings.Join(parts, " "))
}

func toResult(l record.Line) SearchResult {
	text := l.Text
	if text == "" {
		text = l.Title
	}
	if text == "" {
		text = l.Raw
	}

	kind := l.Kind
	if kind == "" {
		kind = l.Type
	}
	if kind == "" {
		kind = "unknown"
	}

	createdAt := l.CreatedAt
	if createdAt == "" {
		createdAt = l.MarkedAt
	}

	return SearchResult{
		Text:      text,
		Kind:      kind,
		Tags:      l.Tags,
		CreatedAt: createdAt,
		Score:     1,
	}
}
