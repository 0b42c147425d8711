// Durable telemetry snapshot storage keyed by session id.
package store

import (
	"sync"

	"dronesim/internal/telemetry"
)

// Store persists one telemetry snapshot per session. The snapshot is
// overwritten after every transition; a crash writes the frozen final state.
type Store interface {
	// Load returns the snapshot for a session, and whether one exists.
	Load(sessionID string) (telemetry.Telemetry, bool, error)
	// Save overwrites the snapshot for a session.
	Save(sessionID string, tel telemetry.Telemetry) error
	// Delete removes the snapshot for a session.
	Delete(sessionID string) error
	Close() error
}

// MemoryStore is an in-process Store used in tests and when no database
// path is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]telemetry.Telemetry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]telemetry.Telemetry)}
}

func (m *MemoryStore) Load(sessionID string) (telemetry.Telemetry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tel, ok := m.snapshots[sessionID]
	return tel, ok, nil
}

func (m *MemoryStore) Save(sessionID string, tel telemetry.Telemetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = tel
	return nil
}

func (m *MemoryStore) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, sessionID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
