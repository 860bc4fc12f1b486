package publisher

import (
	"context"
	"fmt"
	"sync"

	"sitewatch/internal/monitor"
)

// Event is one recorded publish call.
type Event struct {
	Topic   string
	Payload any
}

// MemoryPublisher records events in memory for tests and local development.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	nextID int
}

var _ monitor.Publisher = (*MemoryPublisher)(nil)

// NewMemory constructs an empty MemoryPublisher.
func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event and returns a synthetic id.
func (p *MemoryPublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("mem-%d", p.nextID), nil
}

// Events returns a copy of everything published.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
