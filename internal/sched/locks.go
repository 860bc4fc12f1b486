// Package sched selects due targets and submits check jobs.
package sched

import (
	"sync"
	"time"

	"sitewatch/internal/monitor"
)

// Locks is an in-process keyed lock registry with a TTL safety valve. The TTL
// only exists so a crashed or wedged job cannot block its target forever; a
// normal run releases explicitly.
type Locks struct {
	ttl   time.Duration
	clock monitor.Clock

	mu   sync.Mutex
	held map[string]time.Time
}

var _ monitor.TargetLocker = (*Locks)(nil)

// NewLocks builds a lock registry with the given TTL.
func NewLocks(ttl time.Duration, clock monitor.Clock) *Locks {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Locks{
		ttl:   ttl,
		clock: clock,
		held:  make(map[string]time.Time),
	}
}

// TryAcquire takes the lock for targetID unless a live lock is already held.
// An expired lock is treated as abandoned and stolen.
func (l *Locks) TryAcquire(targetID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if acquired, ok := l.held[targetID]; ok && now.Sub(acquired) < l.ttl {
		return false
	}
	l.held[targetID] = now
	return true
}

// Release frees the lock for targetID.
func (l *Locks) Release(targetID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, targetID)
}
