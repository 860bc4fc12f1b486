// Package memory provides queue implementations for local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sitewatch/internal/monitor"
)

// ErrQueueFull is returned when a non-blocking enqueue finds no capacity.
var ErrQueueFull = errors.New("queue full")

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan monitor.CheckItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan monitor.CheckItem, capacity),
	}
}

// Enqueue pushes a check into the queue without blocking. A full queue is a
// submission failure: the caller keeps the target eligible for the next cycle.
func (q *Queue) Enqueue(ctx context.Context, item monitor.CheckItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue pops the next check, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (monitor.CheckItem, error) {
	select {
	case <-ctx.Done():
		return monitor.CheckItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return monitor.CheckItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
