package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sitewatch/internal/monitor"
)

// SnapshotStore persists the append-only snapshot chain in Postgres.
type SnapshotStore struct {
	pool querier
}

var _ monitor.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore constructs a SnapshotStore on the shared pool.
func NewSnapshotStore(pool querier) (*SnapshotStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SnapshotStore{pool: pool}, nil
}

// Insert writes one snapshot row.
func (s *SnapshotStore) Insert(ctx context.Context, snap monitor.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	query := `
INSERT INTO snapshots (
	id,
	target_id,
	title,
	content,
	content_hash,
	previous_snapshot_id,
	captured_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	args := []any{
		snap.ID,
		snap.TargetID,
		snap.Title,
		snap.Content,
		snap.ContentHash,
		snap.PreviousSnapshotID,
		snap.CapturedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Get returns one snapshot by id.
func (s *SnapshotStore) Get(ctx context.Context, snapshotID string) (monitor.Snapshot, error) {
	query := `
SELECT
	id,
	target_id,
	title,
	content,
	content_hash,
	previous_snapshot_id,
	captured_at
FROM snapshots WHERE id = $1`

	var snap monitor.Snapshot
	err := s.pool.QueryRow(ctx, query, snapshotID).Scan(
		&snap.ID,
		&snap.TargetID,
		&snap.Title,
		&snap.Content,
		&snap.ContentHash,
		&snap.PreviousSnapshotID,
		&snap.CapturedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return monitor.Snapshot{}, fmt.Errorf("snapshot %s not found", snapshotID)
	}
	if err != nil {
		return monitor.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	return snap, nil
}
