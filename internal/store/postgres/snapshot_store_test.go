package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/monitor"
)

func TestSnapshotInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	snap := monitor.Snapshot{
		ID:                 "snap-2",
		TargetID:           "t1",
		Title:              "Jane",
		Content:            "profile content",
		ContentHash:        "hash-b",
		PreviousSnapshotID: strptr("snap-1"),
		CapturedAt:         now,
	}

	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(snap.ID, snap.TargetID, snap.Title, snap.Content, snap.ContentHash, snap.PreviousSnapshotID, snap.CapturedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotInsertRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStore(mock)
	require.NoError(t, err)

	require.Error(t, store.Insert(context.Background(), monitor.Snapshot{TargetID: "t1"}))
}

func TestSnapshotGet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM snapshots WHERE id").
		WithArgs("snap-2").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "target_id", "title", "content", "content_hash", "previous_snapshot_id", "captured_at",
		}).AddRow("snap-2", "t1", "Jane", "profile content", "hash-b", strptr("snap-1"), now))

	snap, err := store.Get(context.Background(), "snap-2")
	require.NoError(t, err)
	require.Equal(t, "profile content", snap.Content)
	require.Equal(t, "snap-1", *snap.PreviousSnapshotID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewChangeStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	change := monitor.Change{
		ID:               "c1",
		TargetID:         "t1",
		Summary:          "leadership change",
		BeforeSnapshotID: strptr("snap-1"),
		AfterSnapshotID:  strptr("snap-2"),
		ImportanceScore:  8,
		Notified:         true,
		DetectedAt:       now,
	}

	mock.ExpectExec("INSERT INTO changes").
		WithArgs(change.ID, change.TargetID, change.Summary, change.BeforeSnapshotID,
			change.AfterSnapshotID, change.ImportanceScore, change.Notified, change.DetectedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), change))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewDecisionStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	decision := monitor.Decision{
		ID:              "d1",
		TargetID:        "t1",
		Kind:            monitor.KindChange,
		Outcome:         monitor.OutcomeSuppressedThreshold,
		ImportanceScore: 3,
		DecidedAt:       now,
	}

	mock.ExpectExec("INSERT INTO notification_decisions").
		WithArgs(decision.ID, decision.TargetID, "change", "suppressed_threshold", decision.ImportanceScore, decision.DecidedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), decision))
	require.NoError(t, mock.ExpectationsWereMet())
}
