package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/profile-view/internal/profile"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound        = errors.New("view session not found")
	ErrAlreadyAttached = errors.New("view session already has a live connection")
)

// Session is one mounted profile view waiting for, or serving, a browser.
type Session struct {
	ID        string
	UserID    string
	View      *profile.View
	CreatedAt time.Time

	attached bool
}

// Registry tracks live view sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty registry. A nil now uses time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{sessions: make(map[string]*Session), now: now}
}

// Create registers view under a fresh id.
func (r *Registry) Create(userID string, view *profile.View) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		View:      view,
		CreatedAt: r.now(),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get looks up a session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Attach claims a session for a connection. Only one connection may hold it.
func (r *Registry) Attach(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.attached {
		return nil, ErrAlreadyAttached
	}
	s.attached = true
	return s, nil
}

// Remove drops the session and unmounts its view.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.View.Unmount()
	}
}

// Sweep removes sessions that were never attached within ttl of creation.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if !s.attached && s.CreatedAt.Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		log.Debug().Str("session_id", s.ID).Str("user_id", s.UserID).Msg("Reaping idle view session")
		s.View.Unmount()
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close unmounts every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.View.Unmount()
	}
}
