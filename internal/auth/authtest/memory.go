// Package authtest provides an in-memory auth.Store for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/dns-automate/zone-manager/internal/auth"
)

type window struct {
	count int
	end   time.Time
}

// MemoryStore is a mutex-guarded auth.Store.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]auth.User
	sessions map[string]auth.Session
	limits   map[string]window

	// Now is the clock used for rate-limit windows.
	Now func() time.Time
}

var _ auth.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]auth.User),
		sessions: make(map[string]auth.Session),
		limits:   make(map[string]window),
		Now:      time.Now,
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := auth.NormalizeEmail(user.Email)
	if _, ok := m.users[email]; ok {
		return auth.ErrUserExists
	}
	u := *user
	u.Email = email
	m.users[email] = u
	return nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, session *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) IncrementRateLimit(_ context.Context, key string, limit int, d time.Duration) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	w, ok := m.limits[key]
	if !ok || now.After(w.end) {
		w = window{end: now.Add(d)}
	}
	w.count++
	m.limits[key] = w
	return w.count, w.count > limit, nil
}

// SessionCount returns the number of stored sessions.
func (m *MemoryStore) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
