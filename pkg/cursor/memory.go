package cursor

import (
	"context"
	"sync"
)

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	lk      sync.RWMutex
	cursors map[string]string
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursors: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, stream string) (string, bool, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()

	if m.closed {
		return "", false, ErrClosed
	}
	id, ok := m.cursors[stream]
	return id, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, stream string, id string) error {
	m.lk.Lock()
	defer m.lk.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.cursors[stream] = id
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, stream string) error {
	m.lk.Lock()
	defer m.lk.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.cursors, stream)
	return nil
}

func (m *MemoryStore) Close() error {
	m.lk.Lock()
	defer m.lk.Unlock()

	m.closed = true
	m.cursors = nil
	return nil
}
