package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/yengalvez/a-movies/internal/importer"
	"github.com/yengalvez/a-movies/internal/session"
)

// HistoryImportJob periodically mirrors the tracking-service watch history
// into the memory store.
type HistoryImportJob struct {
	Importer *importer.Importer
	Spec     string
	Limit    int
	Logger   *slog.Logger
}

// Name implements Job.
func (j *HistoryImportJob) Name() string { return "history_import" }

// Schedule implements Job.
func (j *HistoryImportJob) Schedule() string { return j.Spec }

// Run implements Job.
func (j *HistoryImportJob) Run(ctx context.Context) error {
	res, err := j.Importer.Import(ctx, j.Limit)
	if err != nil {
		return err
	}
	j.Logger.Info("scheduled history import done",
		"imported", res.Imported,
		"file_id", res.FileID,
	)
	return nil
}

// SessionPurgeJob removes chat sessions idle for longer than MaxAge.
type SessionPurgeJob struct {
	Sessions *session.Store
	Spec     string
	MaxAge   time.Duration
	Logger   *slog.Logger
}

// Name implements Job.
func (j *SessionPurgeJob) Name() string { return "session_purge" }

// Schedule implements Job.
func (j *SessionPurgeJob) Schedule() string { return j.Spec }

// Run implements Job.
func (j *SessionPurgeJob) Run(ctx context.Context) error {
	n, err := j.Sessions.Purge(ctx, j.MaxAge)
	if err != nil {
		return err
	}
	if n > 0 {
		j.Logger.Info("purged idle sessions", "sessions", n)
	}
	return nil
}
