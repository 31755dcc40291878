package durable

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

// DefaultMemoryQuota mirrors the usual per-origin browser storage allowance.
const DefaultMemoryQuota = 5 * 1024 * 1024

// Memory is an in-process Store with a byte quota. Keys and values both count
// towards the quota. It stands in for browser-style persistent storage in
// tests and in processes that only need restart-free durability.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
	used  int64
	quota int64
}

// NewMemory creates a Memory store holding at most quota bytes. A quota of
// zero or less selects [DefaultMemoryQuota].
func NewMemory(quota int64) *Memory {
	if quota <= 0 {
		quota = DefaultMemoryQuota
	}
	return &Memory{
		items: make(map[string]string),
		quota: quota,
	}
}

// Get returns the value stored under key.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	return v, ok, nil
}

// Set stores value under key. It fails with ErrQuotaExceeded when the new
// total would exceed the quota; the previous value is kept in that case.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	need := int64(len(key) + len(value))
	used := m.used
	if prev, ok := m.items[key]; ok {
		used -= int64(len(key) + len(prev))
	}
	if used+need > m.quota {
		return fmt.Errorf("%w: %s record, %s of %s in use", ErrQuotaExceeded,
			humanize.IBytes(uint64(need)), humanize.IBytes(uint64(m.used)), humanize.IBytes(uint64(m.quota)))
	}

	m.items[key] = value
	m.used = used + need
	return nil
}

// Remove deletes key.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.items[key]; ok {
		m.used -= int64(len(key) + len(prev))
		delete(m.items, key)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items), nil
}

// Keys returns a snapshot of the stored keys.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys, nil
}

// Used returns the number of bytes currently counted against the quota.
func (m *Memory) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.used
}
