package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs tests and the "memory" backend,
// where session continuity across restarts is deliberately not wanted.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key, dst any) error {
	m.mu.RLock()
	raw, ok := m.data[key.String()]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return open(raw, dst)
}

func (m *Memory) Put(_ context.Context, key Key, v any) error {
	raw, err := seal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key.String()] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k.String())
	}
	return nil
}
