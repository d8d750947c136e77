package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dakshkumar96/Reclaim/internal/cache"
)

// MockCache is an in-memory mock implementation of the Cache interface
// Used for testing without requiring a real Redis instance
type MockCache struct {
	data  map[string][]byte
	lists map[string][][]byte
	mu    sync.RWMutex

	// Err, when set, is returned by every operation.
	Err error
}

// NewMockCache creates a new mock cache instance
func NewMockCache() *MockCache {
	return &MockCache{
		data:  make(map[string][]byte),
		lists: make(map[string][][]byte),
	}
}

// GetJSON decodes a stored value into dest
func (m *MockCache) GetJSON(_ context.Context, key string, dest any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return m.Err
	}
	val, exists := m.data[key]
	if !exists {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(val, dest)
}

// SetJSON stores a value in the mock cache
func (m *MockCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	// Note: expiration is ignored in mock (no TTL implementation)
	m.data[key] = data
	return nil
}

// Del deletes keys from the mock cache
func (m *MockCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, key := range keys {
		delete(m.data, key)
		delete(m.lists, key)
	}
	return nil
}

// PushBounded appends to a list and keeps the newest limit entries
func (m *MockCache) PushBounded(_ context.Context, key string, value any, limit int, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	list := append(m.lists[key], data)
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	m.lists[key] = list
	return nil
}

// Range returns the list entries, oldest first
func (m *MockCache) Range(_ context.Context, key string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return append([][]byte(nil), m.lists[key]...), nil
}

// Clear clears all data from the mock cache
func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	m.lists = make(map[string][][]byte)
}
