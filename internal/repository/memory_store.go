package repository

import (
	"context"
	"fmt"
	"sync"
)

// MemoryObject is one stored object with its metadata headers.
type MemoryObject struct {
	Body         []byte
	ContentType  string
	CacheControl string
}

// MemoryStore is an in-memory ObjectStore used by tests and the offline
// demo. Keys may be configured to fail to exercise partial-failure paths.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string]MemoryObject
	failKeys map[string]bool
	puts     []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]MemoryObject),
		failKeys: make(map[string]bool),
	}
}

// FailKey makes subsequent writes to key return an error.
func (m *MemoryStore) FailKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failKeys[key] = true
}

// Put stores the object, recording attempt order.
func (m *MemoryStore) Put(_ context.Context, key string, body []byte, contentType, cacheControl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts = append(m.puts, key)

	if m.failKeys[key] {
		return fmt.Errorf("simulated write failure for %s", key)
	}

	m.objects[key] = MemoryObject{
		Body:         append([]byte(nil), body...),
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	return nil
}

// Get returns the stored object for key.
func (m *MemoryStore) Get(key string) (MemoryObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// PutAttempts returns every key a write was attempted for, in order.
func (m *MemoryStore) PutAttempts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}
