// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore keeps run state in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	retention time.Duration

	// Now is replaced in tests.
	Now func() time.Time
}

// NewMemoryStore returns an empty store that forgets a run retention
// after its last update.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]memoryEntry),
		retention: retention,
		Now:       time.Now,
	}
}

// Put stores a copy of st.
func (m *MemoryStore) Put(_ context.Context, st State) error {
	if st.Outcome != nil {
		out := *st.Outcome
		st.Outcome = &out
	}
	m.mu.Lock()
	m.entries[st.RunID] = memoryEntry{state: st, expires: m.Now().Add(m.retention)}
	m.mu.Unlock()
	return nil
}

// Get returns the state of a run, or ErrNotFound once it has expired.
func (m *MemoryStore) Get(_ context.Context, runID string) (State, error) {
	m.mu.RLock()
	e, ok := m.entries[runID]
	m.mu.RUnlock()
	if !ok || !m.Now().Before(e.expires) {
		return State{}, ErrNotFound
	}
	return e.state, nil
}

// Sweep drops expired runs and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	now := m.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored runs, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Janitor sweeps every interval until ctx is done.
func (m *MemoryStore) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
