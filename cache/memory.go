package cache

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Memory is an in-process Store, used in tests and when no cache path is
// configured.
type Memory struct {
	clock   clockwork.Clock
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:   clock,
		entries: make(map[string]Entry),
	}
}

func (m *Memory) Read(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrMiss
	}
	return e, nil
}

func (m *Memory) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.entries[key] = Entry{Data: stored, StoredAt: m.clock.Now().UTC()}
	return nil
}
