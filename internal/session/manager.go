package session

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"billed/internal/core"
)

// CookieName identifies the session cookie.
const CookieName = "billed_session"

type entry struct {
	store     *MemoryStore
	expiresAt time.Time
}

// Manager maps session cookies to per-session stores. Sessions expire after
// the configured TTL; expired entries are dropped lazily on access.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		ttl:      ttl,
	}
}

// Get returns the store bound to the request's session cookie, or nil when
// there is no live session.
func (m *Manager) Get(r *http.Request) Store {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[c.Value]
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		delete(m.sessions, c.Value)
		return nil
	}
	return e.store
}

// Start creates a fresh session, sets its cookie on the response, and
// returns the new store.
func (m *Manager) Start(w http.ResponseWriter) Store {
	id := newSessionID()
	store := NewMemoryStore()
	m.mu.Lock()
	m.sessions[id] = &entry{store: store, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl / time.Second),
	})
	return store
}

// End removes the request's session and clears its cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		m.mu.Lock()
		delete(m.sessions, c.Value)
		m.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Count returns the number of live sessions, for the readiness endpoint.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for id, e := range m.sessions {
		if now.After(e.expiresAt) {
			delete(m.sessions, id)
			continue
		}
		n++
	}
	return n
}

// CurrentUser decodes the user record from a session store. A nil store or
// a missing/garbled record both read as "nobody logged in".
func CurrentUser(s Store) (core.User, bool) {
	if s == nil {
		return core.User{}, false
	}
	raw, ok := s.GetItem(UserKey)
	if !ok {
		return core.User{}, false
	}
	return core.DecodeUser(raw)
}

func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}
