package store

import (
	"context"
	"sync"
)

const backendMemory = "memory"

// Memory is an in-process Store. The zero value is not usable; call NewMemory.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	Operations.WithLabelValues(backendMemory, "get").Inc()

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		Misses.WithLabelValues(backendMemory).Inc()
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	Operations.WithLabelValues(backendMemory, "set").Inc()

	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	Operations.WithLabelValues(backendMemory, "delete").Inc()

	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}
