// Package memstore persists memory records in an external file-store
// collection and answers queries with a linear scan over its contents.
// The collection is treated as flat searchable text storage: every file is
// just more record lines, and batch boundaries carry no meaning.
package memstore

import (
	"context"
	"io"
)

// File identifies one file attached to the collection.
type File struct {
	ID        string
	CreatedAt int64
}

// FileStore is the narrow interface to the external file-storage vendor.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Upload submits the reader's content as a new file object and returns
	// its opaque identifier. The file is not yet searchable.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)

	// Attach adds an uploaded file to the searchable collection.
	Attach(ctx context.Context, fileID string) error

	// List returns up to limit files currently attached to the collection,
	// first page only.
	List(ctx context.Context, limit int) ([]File, error)

	// Content fetches a file's full raw text.
	Content(ctx context.Context, fileID string) (string, error)

	// Delete removes a file object from the vendor's storage.
	Delete(ctx context.Context, fileID string) error
}

// SearchResult is one matching record from a memory search. It is ephemeral:
// produced per matching line and discarded after the response is sent.
type SearchResult struct {
	Text      string   `json:"text"`
	Kind      string   `json:"kind"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	Score     float64  `json:"score"`
}
