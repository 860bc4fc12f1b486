package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitewatch/internal/monitor"
	queuememory "sitewatch/internal/queue/memory"
)

type fakeTargetStore struct {
	mu      sync.Mutex
	targets map[string]monitor.Target
	listErr error
}

func newFakeTargetStore(targets ...monitor.Target) *fakeTargetStore {
	s := &fakeTargetStore{targets: make(map[string]monitor.Target)}
	for _, t := range targets {
		s.targets[t.ID] = t
	}
	return s
}

func (s *fakeTargetStore) ListActive(context.Context) ([]monitor.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []monitor.Target
	for _, t := range s.targets {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTargetStore) Get(_ context.Context, id string) (monitor.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return monitor.Target{}, errors.New("not found")
	}
	return t, nil
}

func (s *fakeTargetStore) UpdateCheckState(context.Context, string, time.Time, *string, *string) error {
	return nil
}

func (s *fakeTargetStore) TouchLastChecked(context.Context, string, time.Time) error {
	return nil
}

func (s *fakeTargetStore) Preferences(context.Context, string) (monitor.Preferences, error) {
	return monitor.DefaultPreferences(), nil
}

func timePtr(t time.Time) *time.Time { return &t }

func TestScheduler_SelectsOnlyDueActiveTargets(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}

	// A is overdue, B is not due yet, C is inactive and overdue.
	store := newFakeTargetStore(
		monitor.Target{
			ID: "a", Type: monitor.TypeGenericWeb, Active: true,
			CheckInterval: time.Minute,
			LastChecked:   timePtr(now.Add(-61 * time.Second)),
		},
		monitor.Target{
			ID: "b", Type: monitor.TypeGenericWeb, Active: true,
			CheckInterval: time.Minute,
			LastChecked:   timePtr(now.Add(-30 * time.Second)),
		},
		monitor.Target{
			ID: "c", Type: monitor.TypeGenericWeb, Active: false,
			CheckInterval: time.Minute,
			LastChecked:   timePtr(now.Add(-2 * time.Hour)),
		},
	)

	queue := queuememory.NewQueue(8)
	locks := NewLocks(time.Minute, clock)
	s := New(store, queue, locks, clock, zap.NewNop(), time.Minute)

	s.runCycle(context.Background())

	item, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a", item.TargetID)
	require.False(t, item.Forced)

	dequeueCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = queue.Dequeue(dequeueCtx)
	require.Error(t, err)
}

func TestScheduler_NeverCheckedTargetIsDue(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newFakeTargetStore(monitor.Target{
		ID: "fresh", Type: monitor.TypeGenericWeb, Active: true,
		CheckInterval: time.Hour,
	})
	queue := queuememory.NewQueue(4)
	s := New(store, queue, NewLocks(time.Minute, clock), clock, zap.NewNop(), time.Minute)

	s.runCycle(context.Background())

	item, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", item.TargetID)
}

func TestScheduler_BusyTargetNotResubmitted(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	target := monitor.Target{
		ID: "busy", Type: monitor.TypeGenericWeb, Active: true,
		CheckInterval: time.Minute,
	}
	store := newFakeTargetStore(target)
	queue := queuememory.NewQueue(4)
	locks := NewLocks(time.Minute, clock)
	s := New(store, queue, locks, clock, zap.NewNop(), time.Minute)

	_, err := s.Submit(context.Background(), target, false)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), target, false)
	require.ErrorIs(t, err, monitor.ErrTargetBusy)

	// the scheduler cycle skips it silently too
	s.runCycle(context.Background())

	item, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "busy", item.TargetID)

	dequeueCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = queue.Dequeue(dequeueCtx)
	require.Error(t, err)
}

func TestScheduler_FullQueueReleasesLock(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	target := monitor.Target{
		ID: "t1", Type: monitor.TypeGenericWeb, Active: true,
		CheckInterval: time.Minute,
	}
	store := newFakeTargetStore(target)
	queue := queuememory.NewQueue(1)
	locks := NewLocks(time.Minute, clock)
	s := New(store, queue, locks, clock, zap.NewNop(), time.Minute)

	// fill the queue with an unrelated item
	require.NoError(t, queue.Enqueue(context.Background(), monitor.CheckItem{TargetID: "filler"}))

	_, err := s.Submit(context.Background(), target, false)
	var subErr *monitor.SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, "t1", subErr.TargetID)

	// the job never started, so the target is immediately eligible again
	require.True(t, locks.TryAcquire("t1"))
}

func TestScheduler_TriggerNow(t *testing.T) {
	t.Parallel()

	now := time.Unix(5000, 0)
	clock := &fakeClock{now: now}
	store := newFakeTargetStore(
		monitor.Target{
			ID: "recent", Type: monitor.TypeGenericWeb, Active: true,
			CheckInterval: time.Hour,
			LastChecked:   timePtr(now.Add(-time.Minute)),
		},
		monitor.Target{
			ID: "off", Type: monitor.TypeGenericWeb, Active: false,
			CheckInterval: time.Hour,
		},
	)
	queue := queuememory.NewQueue(4)
	s := New(store, queue, NewLocks(time.Minute, clock), clock, zap.NewNop(), time.Minute)

	// bypasses the interval
	item, err := s.TriggerNow(context.Background(), "recent")
	require.NoError(t, err)
	require.True(t, item.Forced)
	require.Equal(t, "recent", item.TargetID)

	// but not the active flag
	_, err = s.TriggerNow(context.Background(), "off")
	require.ErrorIs(t, err, monitor.ErrTargetInactive)

	// nor the per-target lock
	_, err = s.TriggerNow(context.Background(), "recent")
	require.ErrorIs(t, err, monitor.ErrTargetBusy)
}
