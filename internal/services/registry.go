package services

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrAlreadyConnected = errors.New("user already connected")

// ClientConn is the registry's non-owning view of a connection. The
// transport layer owns the underlying channel.
type ClientConn interface {
	Send(event string, payload any)
}

type session struct {
	conn       ClientConn
	lastActive time.Time
}

// Registry tracks currently connected identities and enforces at most one
// session per username. Admission is check-then-insert under one lock, so
// two concurrent admits for the same username can never both succeed.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// Admit binds username to conn. It fails with ErrAlreadyConnected when an
// entry already exists; the prior connection is left untouched.
func (r *Registry) Admit(username string, conn ClientConn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[username]; ok {
		return ErrAlreadyConnected
	}

	r.sessions[username] = &session{conn: conn, lastActive: time.Now()}
	return nil
}

// Remove is idempotent: removing an absent username is a no-op.
func (r *Registry) Remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, username)
}

func (r *Registry) Lookup(username string) (ClientConn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[username]
	if !ok {
		return nil, false
	}
	return s.conn, true
}

// Touch refreshes the last-active timestamp for username.
func (r *Registry) Touch(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[username]; ok {
		s.lastActive = time.Now()
	}
}

// ListActive returns the usernames of all connected sessions, sorted for
// stable presence payloads.
func (r *Registry) ListActive() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
