package medium

import (
	"sort"
	"strings"
	"sync"
)

// Memory is a map-backed Medium with an optional byte quota, modelled on
// browser local storage: single-key writes are atomic, multi-key sequences are
// not, and writes beyond the quota are rejected.
//
// Memory deliberately does not implement Transactional.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	used     int
	maxBytes int
}

// MemoryOption configures a Memory medium.
type MemoryOption func(*Memory)

// WithMaxBytes caps the sum of key and value lengths. Zero means unbounded.
func WithMaxBytes(n int) MemoryOption {
	return func(m *Memory) { m.maxBytes = n }
}

// NewMemory returns an empty in-memory medium.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{data: make(map[string][]byte)}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.used + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		next -= len(key) + len(old)
	}
	if m.maxBytes > 0 && next > m.maxBytes {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	m.used = next
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.used -= len(key) + len(old)
		delete(m.data, key)
	}
	return nil
}

func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Used reports the bytes currently accounted against the quota.
func (m *Memory) Used() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
