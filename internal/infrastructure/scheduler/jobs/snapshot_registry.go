package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REGISTRY JOB
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotSource exports the current registry state. The engine satisfies
// this.
type SnapshotSource interface {
	ExportSnapshot() *engine.Snapshot
}

// SnapshotRegistryJob periodically persists the in-memory registry so a
// restarted process can resume from the last durable state.
type SnapshotRegistryJob struct {
	source SnapshotSource
	repo   engine.SnapshotRepository
	logger *slog.Logger

	lastSavedAt atomic.Value // time.Time
}

// NewSnapshotRegistryJob creates a new snapshot job.
func NewSnapshotRegistryJob(source SnapshotSource, repo engine.SnapshotRepository, logger *slog.Logger) *SnapshotRegistryJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotRegistryJob{
		source: source,
		repo:   repo,
		logger: logger,
	}
}

// Name returns the job name.
func (j *SnapshotRegistryJob) Name() string {
	return "snapshot_registry"
}

// Description returns a human-readable description.
func (j *SnapshotRegistryJob) Description() string {
	return "Persists a snapshot of the in-memory registry for crash recovery"
}

// Run executes the snapshot job.
func (j *SnapshotRegistryJob) Run(ctx context.Context) error {
	snap := j.source.ExportSnapshot()
	if err := j.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("save registry snapshot: %w", err)
	}

	savedAt := time.Now()
	j.lastSavedAt.Store(savedAt)

	j.logger.Info("registry snapshot saved",
		"taken_at", snap.TakenAt.Format(time.RFC3339),
	)
	return nil
}

// LastSavedAt returns when the last snapshot was persisted, or the zero time
// if none has been yet.
func (j *SnapshotRegistryJob) LastSavedAt() time.Time {
	saved := j.lastSavedAt.Load()
	if saved == nil {
		return time.Time{}
	}
	return saved.(time.Time)
}
