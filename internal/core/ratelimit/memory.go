package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a process-local Counter for single-instance and dev runs
type MemoryCounter struct {
	mu   sync.Mutex
	now  func() time.Time
	vals map[string]memEntry
}

type memEntry struct {
	n       int64
	expires time.Time
}

// NewMemoryCounter returns an empty counter
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{now: time.Now, vals: map[string]memEntry{}}
}

// Get returns live values
func (m *MemoryCounter) Get(_ context.Context, keys ...string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]int64, len(keys))
	for i, k := range keys {
		if e, ok := m.vals[k]; ok && now.Before(e.expires) {
			out[i] = e.n
		}
	}
	return out, nil
}

// Incr bumps key, dropping expired entries on the way
func (m *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.vals {
		if !now.Before(e.expires) {
			delete(m.vals, k)
		}
	}
	e := m.vals[key]
	e.n++
	e.expires = now.Add(ttl)
	m.vals[key] = e
	return nil
}
