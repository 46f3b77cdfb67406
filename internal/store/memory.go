package store

import (
	"context"
	"sync"
)

// Memory keeps blobs in process memory. The zero value is not usable; use NewMemory.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]string)}
}

// Get returns the value stored under key
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.blobs[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.blobs[key] = value
	m.mu.Unlock()
	return nil
}

// Remove deletes key
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.blobs, key)
	m.mu.Unlock()
	return nil
}
