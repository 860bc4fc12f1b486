package archive

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sitewatch/internal/monitor"
)

// MemoryArchive keeps payloads in memory for tests and local development.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ monitor.Archive = (*MemoryArchive)(nil)

// NewMemory constructs an empty MemoryArchive.
func NewMemory() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte)}
}

// PutObject stores the payload and returns a mem:// URI.
func (a *MemoryArchive) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[path] = append([]byte(nil), data...)
	return "mem://" + path, nil
}

// Object returns a stored payload and whether it exists.
func (a *MemoryArchive) Object(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.objects[path]
	return data, ok
}

// Len returns the number of stored objects.
func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}
