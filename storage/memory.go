package storage

import (
	"sync"

	"github.com/saiset-co/sai-freshness/types"
)

// MemoryBackend is an in-memory byte medium with the same quota behavior as
// a persistent one. It doubles as the transparent fallback when the
// configured backend is unavailable.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64
	used  int64
}

func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{
		data:  make(map[string]string),
		quota: quota,
	}
}

func (m *MemoryBackend) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	return value, exists, nil
}

func (m *MemoryBackend) SetItem(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newUsed := m.used + entrySize(key, value)
	if old, exists := m.data[key]; exists {
		newUsed -= entrySize(key, old)
	}

	if m.quota > 0 && newUsed > m.quota {
		return types.ErrStorageQuotaExceeded
	}

	m.data[key] = value
	m.used = newUsed
	return nil
}

func (m *MemoryBackend) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.data[key]; exists {
		m.used -= entrySize(key, old)
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]string)
	m.used = 0
	return nil
}

func (m *MemoryBackend) Close() error {
	return m.Clear()
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
