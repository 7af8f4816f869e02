package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pauljones0/maodevaca/internal/models"
)

type session struct {
	identity models.Identity
	expires  time.Time
}

// Sessions maps opaque bearer tokens to identities. Only the identity is
// kept: moderation flags are always read from the store.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session and returns its token.
func (s *Sessions) Create(id models.Identity) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.sessions[token] = session{identity: id, expires: s.now().Add(s.ttl)}
	return token
}

// Lookup returns the identity behind a live token.
func (s *Sessions) Lookup(token string) (models.Identity, bool) {
	if token == "" {
		return models.Identity{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return models.Identity{}, false
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, token)
		return models.Identity{}, false
	}
	return sess.identity, true
}

// Delete ends a session. Unknown tokens are ignored.
func (s *Sessions) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Len counts stored sessions, expired ones not yet pruned included.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) pruneLocked() {
	now := s.now()
	for token, sess := range s.sessions {
		if !now.Before(sess.expires) {
			delete(s.sessions, token)
		}
	}
}
