package notify

import (
	"context"
	"sync"

	"sitewatch/internal/monitor"
)

// MemoryNotifier records notifications in memory for local development and
// tests.
type MemoryNotifier struct {
	mu   sync.Mutex
	sent []monitor.Notification
}

var _ monitor.Notifier = (*MemoryNotifier)(nil)

// NewMemoryNotifier constructs an empty MemoryNotifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// Send records the notification.
func (n *MemoryNotifier) Send(_ context.Context, notification monitor.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (n *MemoryNotifier) Sent() []monitor.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]monitor.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}
