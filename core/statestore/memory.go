package statestore

import (
	"context"
	"sync"

	"feed-processor/core/ingest"
)

// Memory is an in-process StateStore for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]ingest.StateEntry
	writes  int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]ingest.StateEntry)}
}

// Get returns the entry for id.
func (m *Memory) Get(ctx context.Context, id string) (ingest.StateEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return ingest.StateEntry{}, ingest.ErrNotFound
	}
	return e, nil
}

// PutIfAbsentOrChanged stores entry unless the stored hash is equal.
func (m *Memory) PutIfAbsentOrChanged(ctx context.Context, entry ingest.StateEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[entry.ID]; ok && cur.ContentHash == entry.ContentHash {
		return false, nil
	}
	m.entries[entry.ID] = entry
	m.writes++
	return true, nil
}

// BatchGet returns the stored entries for ids.
func (m *Memory) BatchGet(ctx context.Context, ids []string) (map[string]ingest.StateEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]ingest.StateEntry, len(ids))
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

// Writes returns the number of applied writes.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
