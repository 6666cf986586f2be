package storage

import (
	"context"
	"fmt"
	"sync"
)

var _ KV = (*MemoryKV)(nil)

// MemoryKV is an in-process KV. With a quota it behaves like a browser's
// local storage: the sum of all values may not exceed the limit.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
	quota  int
}

// MemoryOption configures a MemoryKV.
type MemoryOption func(*MemoryKV)

// WithQuota limits the total stored bytes. Zero means unlimited.
func WithQuota(bytes int) MemoryOption {
	return func(m *MemoryKV) {
		m.quota = bytes
	}
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV(opts ...MemoryOption) *MemoryKV {
	m := &MemoryKV{values: make(map[string][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		total := len(value)
		for k, v := range m.values {
			if k != key {
				total += len(v)
			}
		}
		if total > m.quota {
			return fmt.Errorf("setting %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

// Put stores a raw value without quota checks. Tests use it to seed
// snapshots, including corrupt ones.
func (m *MemoryKV) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
}
