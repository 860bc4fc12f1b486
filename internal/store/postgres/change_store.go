package postgres

import (
	"context"
	"fmt"

	"sitewatch/internal/monitor"
)

// ChangeStore persists detected changes in Postgres.
type ChangeStore struct {
	pool querier
}

var _ monitor.ChangeStore = (*ChangeStore)(nil)

// NewChangeStore constructs a ChangeStore on the shared pool.
func NewChangeStore(pool querier) (*ChangeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ChangeStore{pool: pool}, nil
}

// Insert writes one change row.
func (s *ChangeStore) Insert(ctx context.Context, change monitor.Change) error {
	if change.ID == "" {
		return fmt.Errorf("change id is required")
	}
	query := `
INSERT INTO changes (
	id,
	target_id,
	summary,
	before_snapshot_id,
	after_snapshot_id,
	importance_score,
	notified,
	detected_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	args := []any{
		change.ID,
		change.TargetID,
		change.Summary,
		change.BeforeSnapshotID,
		change.AfterSnapshotID,
		change.ImportanceScore,
		change.Notified,
		change.DetectedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}
