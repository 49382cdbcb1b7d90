// Package session manages editor session lifecycle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/condexpr/internal/editor"
)

// Session holds one client's editor.
type Session struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Editor    *editor.Editor `json:"-"`

	mu           sync.Mutex
	lastActiveAt time.Time
}

// LastActiveAt returns the last activity timestamp.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActiveAt = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, maxAge, idleTimeout time.Duration) bool {
	if maxAge > 0 && now.Sub(s.CreatedAt) > maxAge {
		return true
	}
	return idleTimeout > 0 && now.Sub(s.LastActiveAt()) > idleTimeout
}

// EditorFactory creates the editor for a new session.
type EditorFactory func(sessionID string) *editor.Editor

// Manager handles session creation, lookup, and cleanup. A zero max age or
// idle timeout disables that limit.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
	newEditor   EditorFactory
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration, newEditor EditorFactory, opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		newEditor:   newEditor,
		now:         time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create creates a new session and returns it.
func (m *Manager) Create() *Session {
	now := m.now()
	id := uuid.New().String()
	s := &Session{
		ID:           id,
		CreatedAt:    now,
		Editor:       m.newEditor(id),
		lastActiveAt: now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID and marks it active. Returns nil if not
// found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	now := m.now()
	if s.expired(now, m.maxAge, m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	s.touch(now)
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions and reports how many.
func (m *Manager) Cleanup() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.expired(now, m.maxAge, m.idleTimeout) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Cleanup()
		}
	}
}
