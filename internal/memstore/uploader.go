package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// Uploader writes record blobs through a local temp file into the external
// store and attaches them to the searchable collection.
type Uploader struct {
	store  FileStore
	dir    string
	logger *slog.Logger
}

// NewUploader creates an Uploader. dir is the directory for transient temp
// files; empty means the OS default.
func NewUploader(store FileStore, dir string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &Uploader{store: store, dir: dir, logger: logger}
}

// Upload persists one blob of record lines. It returns the opaque file
// identifier once the file is both stored and attached to the collection.
//
// The local temp file is removed on every exit path; removal failure is
// logged, never escalated. If attaching fails after the upload succeeded,
// the vendor file object is deleted best-effort so no orphan remains.
func (u *Uploader) Upload(ctx context.Context, text string) (string, error) {
	path := filepath.Join(u.dir, tempName())

	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", fmt.Errorf("memstore: write temp file: %w", err)
	}
	defer u.removeTemp(path)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("memstore: open temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	fileID, err := u.store.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("memstore: upload: %w", err)
	}

	if err := u.store.Attach(ctx, fileID); err != nil {
		// The file object exists but never became searchable. Delete it so
		// the failure leaves no orphan behind.
		if delErr := u.store.Delete(ctx, fileID); delErr != nil {
			u.logger.Warn("orphaned file object could not be deleted",
				"file_id", fileID,
				"error", delErr,
			)
		}
		return "", fmt.Errorf("memstore: attach %s: %w", fileID, err)
	}

	return fileID, nil
}

func (u *Uploader) removeTemp(path string) {
	if err := os.Remove(path); err != nil {
		u.logger.Warn("temp file cleanup failed", "path", path, "error", err)
	}
}

// tempName returns a file name unique under concurrent calls: monotonic
// nanoseconds plus a random suffix.
func tempName() string {
	return fmt.Sprintf("memory-%d-%04d.jsonl", time.Now().UnixNano(), rand.Intn(10000))
}
