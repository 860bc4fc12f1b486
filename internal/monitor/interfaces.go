package monitor

import (
	"context"
	"time"
)

// TargetStore reads targets and writes back per-cycle check state.
type TargetStore interface {
	ListActive(ctx context.Context) ([]Target, error)
	Get(ctx context.Context, targetID string) (Target, error)
	// UpdateCheckState advances last_checked and, when hash or snapshot id are
	// non-nil, the corresponding columns.
	UpdateCheckState(ctx context.Context, targetID string, checkedAt time.Time, contentHash, latestSnapshotID *string) error
	// TouchLastChecked advances only last_checked (failed fetches).
	TouchLastChecked(ctx context.Context, targetID string, checkedAt time.Time) error
	Preferences(ctx context.Context, ownerID string) (Preferences, error)
}

// SnapshotStore persists the append-only snapshot chain.
type SnapshotStore interface {
	Insert(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, snapshotID string) (Snapshot, error)
}

// ChangeStore persists change records.
type ChangeStore interface {
	Insert(ctx context.Context, change Change) error
}

// DecisionStore persists notification decision audit rows.
type DecisionStore interface {
	Insert(ctx context.Context, decision Decision) error
}

// Fetcher turns a target into normalized content or an error.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) (FetchResult, error)
}

// Analyzer is the external semantic analysis capability.
type Analyzer interface {
	AnalyzeChanges(ctx context.Context, oldContent, newContent string, targetType TargetType) (Analysis, error)
	ExtractInsights(ctx context.Context, content string, targetType TargetType) (Analysis, error)
}

// Notifier delivers a fully-formed notification payload, best effort.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// Publisher pushes detected-change events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Archive stores raw fetched payloads and returns a URI.
type Archive interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Queue provides enqueue/dequeue semantics for check jobs.
type Queue interface {
	Enqueue(ctx context.Context, item CheckItem) error
	Dequeue(ctx context.Context) (CheckItem, error)
}

// TargetLocker serializes check runs per target id. TryAcquire returns false
// while a prior run for the same target holds the lock and its TTL has not
// lapsed.
type TargetLocker interface {
	TryAcquire(targetID string) bool
	Release(targetID string)
}

// Hasher computes content digests for cheap equality checks.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces snapshot/change/decision IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
