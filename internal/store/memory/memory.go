// Package memory provides in-memory store implementations for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sitewatch/internal/monitor"
)

// TargetStore keeps targets and owner preferences in memory.
type TargetStore struct {
	mu      sync.RWMutex
	targets map[string]monitor.Target
	prefs   map[string]monitor.Preferences
}

var _ monitor.TargetStore = (*TargetStore)(nil)

// NewTargetStore constructs an empty TargetStore.
func NewTargetStore() *TargetStore {
	return &TargetStore{
		targets: make(map[string]monitor.Target),
		prefs:   make(map[string]monitor.Preferences),
	}
}

// Put inserts or replaces a target.
func (s *TargetStore) Put(target monitor.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[target.ID] = target
}

// PutPreferences sets one owner's preferences.
func (s *TargetStore) PutPreferences(ownerID string, prefs monitor.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[ownerID] = prefs
}

// ListActive returns every active target.
func (s *TargetStore) ListActive(_ context.Context) ([]monitor.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []monitor.Target
	for _, target := range s.targets {
		if target.Active {
			out = append(out, target)
		}
	}
	return out, nil
}

// Get returns one target by id.
func (s *TargetStore) Get(_ context.Context, targetID string) (monitor.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.targets[targetID]
	if !ok {
		return monitor.Target{}, fmt.Errorf("target %s not found", targetID)
	}
	return target, nil
}

// UpdateCheckState advances last_checked and, when non-nil, the content hash
// and latest snapshot pointer.
func (s *TargetStore) UpdateCheckState(_ context.Context, targetID string, checkedAt time.Time, contentHash, latestSnapshotID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[targetID]
	if !ok {
		return fmt.Errorf("target %s not found", targetID)
	}
	target.LastChecked = &checkedAt
	if contentHash != nil {
		hash := *contentHash
		target.LastContentHash = &hash
	}
	if latestSnapshotID != nil {
		id := *latestSnapshotID
		target.LatestSnapshotID = &id
	}
	s.targets[targetID] = target
	return nil
}

// TouchLastChecked advances only last_checked.
func (s *TargetStore) TouchLastChecked(_ context.Context, targetID string, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[targetID]
	if !ok {
		return fmt.Errorf("target %s not found", targetID)
	}
	target.LastChecked = &checkedAt
	s.targets[targetID] = target
	return nil
}

// Preferences returns the owner's preferences, defaulting when unset.
func (s *TargetStore) Preferences(_ context.Context, ownerID string) (monitor.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if prefs, ok := s.prefs[ownerID]; ok {
		return prefs, nil
	}
	return monitor.DefaultPreferences(), nil
}

// SnapshotStore keeps snapshots in memory.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]monitor.Snapshot
}

var _ monitor.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore constructs an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]monitor.Snapshot)}
}

// Insert stores one snapshot.
func (s *SnapshotStore) Insert(_ context.Context, snap monitor.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snapshots[snap.ID]; exists {
		return fmt.Errorf("snapshot %s already exists", snap.ID)
	}
	s.snapshots[snap.ID] = snap
	return nil
}

// Get returns one snapshot by id.
func (s *SnapshotStore) Get(_ context.Context, snapshotID string) (monitor.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[snapshotID]
	if !ok {
		return monitor.Snapshot{}, fmt.Errorf("snapshot %s not found", snapshotID)
	}
	return snap, nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// ChangeStore keeps change records in memory.
type ChangeStore struct {
	mu      sync.RWMutex
	changes []monitor.Change
}

var _ monitor.ChangeStore = (*ChangeStore)(nil)

// NewChangeStore constructs an empty ChangeStore.
func NewChangeStore() *ChangeStore {
	return &ChangeStore{}
}

// Insert stores one change record.
func (s *ChangeStore) Insert(_ context.Context, change monitor.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, change)
	return nil
}

// Changes returns a copy of everything recorded.
func (s *ChangeStore) Changes() []monitor.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]monitor.Change, len(s.changes))
	copy(out, s.changes)
	return out
}

// DecisionStore keeps decision audit rows in memory.
type DecisionStore struct {
	mu        sync.RWMutex
	decisions []monitor.Decision
}

var _ monitor.DecisionStore = (*DecisionStore)(nil)

// NewDecisionStore constructs an empty DecisionStore.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{}
}

// Insert stores one decision row.
func (s *DecisionStore) Insert(_ context.Context, decision monitor.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, decision)
	return nil
}

// Decisions returns a copy of everything recorded.
func (s *DecisionStore) Decisions() []monitor.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]monitor.Decision, len(s.decisions))
	copy(out, s.decisions)
	return out
}
