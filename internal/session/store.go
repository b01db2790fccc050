// Package session provides the key/value session storage backing the
// current-user record and the pending-upload state of the create form.
package session

import "sync"

// UserKey is the session key holding the serialized current-user record.
const UserKey = "user"

// Store is a string key/value store holding string-serialized JSON. It
// mirrors the getItem/setItem/removeItem browser-storage contract the rest
// of the application was written against.
type Store interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
}

// MemoryStore is the in-process Store implementation. One instance exists
// per logged-in session; the manager owns the mapping from cookie to store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) GetItem(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *MemoryStore) SetItem(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

func (s *MemoryStore) RemoveItem(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}
