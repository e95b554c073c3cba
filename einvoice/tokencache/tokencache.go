// Package tokencache keeps bearer tokens issued by the tax service, keyed by
// taxpayer identification number. Expiry is judged by the caller; stores never
// evict entries, stale ones are overwritten in place.
package tokencache

import (
	"context"
	"sync"
	"time"
)

type Entry struct {
	Token     string
	ExpiresAt time.Time
}

// ValidFor reports whether the entry is still usable at now with the given margin.
func (e Entry) ValidFor(now time.Time, margin time.Duration) bool {
	if e.Token == "" || e.ExpiresAt.IsZero() {
		return false
	}
	return e.ExpiresAt.Sub(now) > margin
}

type Store interface {
	Get(ctx context.Context, tin string) (Entry, bool, error)
	Put(ctx context.Context, tin string, e Entry) error
}

// Memory in-process Store. Concurrent writers for the same TIN: last write wins.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, tin string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[tin]
	return e, ok, nil
}

func (m *Memory) Put(_ context.Context, tin string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[tin] = e
	return nil
}
