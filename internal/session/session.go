// Package session holds per-visitor challenge state. Each visitor gets a
// cookie-identified key/value bag; verification flows read and write
// namespaced keys in it and the whole bag dies with the session.
package session

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Store is the per-visitor key/value contract the verification state
// machine is given. Values are arbitrary typed challenge structs.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
}

type visitorStore struct {
	mu     *sync.Mutex
	values map[string]any
}

func (s visitorStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s visitorStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s visitorStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Manager owns every visitor bag, keyed by session id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]visitorStore
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]visitorStore)}
}

// Store returns the bag for the given session id, creating it on first use.
func (m *Manager) Store(sessionID string) Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = visitorStore{mu: &sync.Mutex{}, values: make(map[string]any)}
		m.sessions[sessionID] = s
	}
	return s
}

// Destroy drops a visitor's bag (logout).
func (m *Manager) Destroy(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// NewMemoryStore returns a standalone bag, used by tests that drive the
// verification flows without HTTP.
func NewMemoryStore() Store {
	return visitorStore{mu: &sync.Mutex{}, values: make(map[string]any)}
}

const cookieName = "session_id"

// ContextKey is where Middleware parks the visitor's Store in gin context.
const ContextKey = "session"

// Middleware resolves the visitor's session from the session cookie,
// issuing a fresh id when none is present.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(cookieName, id, 0, "/", "", false, true)
		}

		c.Set(ContextKey, m.Store(id))
		c.Set("sessionId", id)
		c.Next()
	}
}

// FromContext pulls the visitor's Store out of gin context.
func FromContext(c *gin.Context) (Store, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(Store)
	return s, ok
}
