package session

import (
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	httpOnly bool
	expires  time.Time
}

// MemoryStore is a thread-safe in-memory Store. Entries expire after their MaxAge.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the store's time source.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Get(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[name]
	if !ok || !m.now().Before(e.expires) {
		return "", false
	}
	return e.value, true
}

func (m *MemoryStore) Set(cookie Cookie) error {
	if cookie.Name == "" {
		return fmt.Errorf("cookie name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[cookie.Name] = memoryEntry{
		value:    cookie.Value,
		httpOnly: cookie.HTTPOnly,
		expires:  m.now().Add(cookie.MaxAge),
	}
	return nil
}

func (m *MemoryStore) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("cookie name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, name) // Already absent is fine
	return nil
}

// TTL reports the remaining lifetime of a stored value.
func (m *MemoryStore) TTL(name string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[name]
	if !ok {
		return 0, false
	}
	return e.expires.Sub(m.now()), true
}

// HTTPOnly reports whether a stored value was written as HTTP-only.
func (m *MemoryStore) HTTPOnly(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[name].httpOnly
}

// Len returns the number of stored values, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
