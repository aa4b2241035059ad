package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/internal/engine"
)

// keepSnapshots is how many historical snapshots survive a save.
const keepSnapshots = 5

// SnapshotRepository persists engine registry snapshots as JSONB rows.
// Implements engine.SnapshotRepository.
type SnapshotRepository struct {
	conn *Connection
}

// NewSnapshotRepository creates a snapshot repository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

// Save inserts the snapshot and prunes all but the newest rows in one
// transaction, so a crash mid-save never loses the previous snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snap *engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO registry_snapshots (taken_at, data)
			VALUES ($1, $2)
		`, snap.TakenAt, data); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM registry_snapshots
			WHERE id NOT IN (
				SELECT id FROM registry_snapshots
				ORDER BY taken_at DESC
				LIMIT $1
			)
		`, keepSnapshots); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		return nil
	})
}

// Load returns the most recent snapshot, or a NotFound error when the store
// is empty.
func (r *SnapshotRepository) Load(ctx context.Context) (*engine.Snapshot, error) {
	var data []byte
	err := r.conn.QueryRow(ctx, `
		SELECT data FROM registry_snapshots
		ORDER BY taken_at DESC
		LIMIT 1
	`).Scan(&data)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("persistence", "Load", shared.ErrNotFound, "no snapshot stored")
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
