package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process Store used by tests and no-database runs.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	*notifier
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values:   make(map[string]json.RawMessage),
		notifier: newNotifier(),
	}
}

func (m *Memory) Get(_ context.Context, path string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.values[path]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("failed to decode value at %s: %w", path, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}
	m.mu.Lock()
	m.values[path] = raw
	m.mu.Unlock()
	m.publish(path, raw)
	return nil
}

func (m *Memory) Update(_ context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	merged := make(map[string]json.RawMessage)
	if existing, ok := m.values[path]; ok {
		if err := json.Unmarshal(existing, &merged); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("existing value at %s is not an object: %w", path, err)
		}
	}
	for key, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("failed to encode field %s for %s: %w", key, path, err)
		}
		merged[key] = raw
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to encode merged value for %s: %w", path, err)
	}
	m.values[path] = raw
	m.mu.Unlock()
	m.publish(path, raw)
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	delete(m.values, path)
	m.mu.Unlock()
	m.publish(path, nil)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage)
	for path, raw := range m.values {
		if strings.HasPrefix(path, prefix) {
			out[path] = raw
		}
	}
	return out, nil
}

func (m *Memory) Subscribe(ctx context.Context, prefix string) (<-chan Event, func()) {
	return m.subscribe(ctx, prefix)
}

func (m *Memory) Close() {}
