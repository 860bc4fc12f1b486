package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sitewatch/internal/monitor"
)

// TargetStore reads and updates monitored targets in Postgres.
type TargetStore struct {
	pool querier
}

var _ monitor.TargetStore = (*TargetStore)(nil)

// NewTargetStore constructs a TargetStore on the shared pool. The pool
// argument is an interface so tests can substitute a mock.
func NewTargetStore(pool querier) (*TargetStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &TargetStore{pool: pool}, nil
}

const targetColumns = `
	id,
	owner_id,
	url,
	target_type,
	check_interval_seconds,
	is_active,
	last_checked,
	last_content_hash,
	latest_snapshot_id,
	created_at`

// ListActive returns every active target.
func (s *TargetStore) ListActive(ctx context.Context) ([]monitor.Target, error) {
	query := fmt.Sprintf(`SELECT %s FROM targets WHERE is_active ORDER BY created_at`, targetColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active targets: %w", err)
	}
	defer rows.Close()

	var targets []monitor.Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate targets: %w", err)
	}
	return targets, nil
}

// Get returns one target by id.
func (s *TargetStore) Get(ctx context.Context, targetID string) (monitor.Target, error) {
	query := fmt.Sprintf(`SELECT %s FROM targets WHERE id = $1`, targetColumns)
	target, err := scanTarget(s.pool.QueryRow(ctx, query, targetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monitor.Target{}, fmt.Errorf("target %s not found", targetID)
		}
		return monitor.Target{}, err
	}
	return target, nil
}

// UpdateCheckState advances last_checked and, when non-nil, the content hash
// and latest snapshot pointer.
func (s *TargetStore) UpdateCheckState(ctx context.Context, targetID string, checkedAt time.Time, contentHash, latestSnapshotID *string) error {
	query := `
UPDATE targets SET
	last_checked = $2,
	last_content_hash = COALESCE($3, last_content_hash),
	latest_snapshot_id = COALESCE($4, latest_snapshot_id)
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, targetID, checkedAt, contentHash, latestSnapshotID)
	if err != nil {
		return fmt.Errorf("update check state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("target %s not found", targetID)
	}
	return nil
}

// TouchLastChecked advances only last_checked, used after failed fetches.
func (s *TargetStore) TouchLastChecked(ctx context.Context, targetID string, checkedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE targets SET last_checked = $2 WHERE id = $1`, targetID, checkedAt)
	if err != nil {
		return fmt.Errorf("touch last_checked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("target %s not found", targetID)
	}
	return nil
}

// Preferences loads the owner's notification preferences, falling back to the
// defaults when no row exists.
func (s *TargetStore) Preferences(ctx context.Context, ownerID string) (monitor.Preferences, error) {
	query := `
SELECT
	notifications_enabled,
	email_on_changes,
	email_on_insights,
	min_importance_score
FROM owner_preferences WHERE owner_id = $1`

	var prefs monitor.Preferences
	err := s.pool.QueryRow(ctx, query, ownerID).Scan(
		&prefs.NotificationsEnabled,
		&prefs.EmailOnChanges,
		&prefs.EmailOnInsights,
		&prefs.MinImportanceScore,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return monitor.DefaultPreferences(), nil
	}
	if err != nil {
		return monitor.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}

func scanTarget(row pgx.Row) (monitor.Target, error) {
	var (
		target          monitor.Target
		intervalSeconds int64
	)
	err := row.Scan(
		&target.ID,
		&target.OwnerID,
		&target.URL,
		&target.Type,
		&intervalSeconds,
		&target.Active,
		&target.LastChecked,
		&target.LastContentHash,
		&target.LatestSnapshotID,
		&target.CreatedAt,
	)
	if err != nil {
		return monitor.Target{}, fmt.Errorf("scan target: %w", err)
	}
	target.CheckInterval = time.Duration(intervalSeconds) * time.Second
	return target, nil
}
