package memory

import (
	"context"
	"sync"
	"time"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

type sessionEntry struct {
	session   *app.Session
	expiresAt time.Time
}

// SessionStore is an in-memory implementation of app.SessionRepository.
// Every Save extends a session's lifetime by ttl; expired sessions are
// dropped on read and swept on each Save. A non-positive ttl keeps
// sessions until they are deleted.
type SessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]sessionEntry
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]sessionEntry),
	}
}

func (s *SessionStore) Save(_ context.Context, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	entry := sessionEntry{session: session}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.sessions[session.ID()] = entry
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*app.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if entry.expired(s.now()) {
		s.mu.Lock()
		// only drop it if no Save refreshed it meanwhile
		if cur, ok := s.sessions[id]; ok && cur.expired(s.now()) {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	return entry.session, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports how many sessions are held, expired ones included until swept.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked(now time.Time) {
	for id, entry := range s.sessions {
		if entry.expired(now) {
			delete(s.sessions, id)
		}
	}
}

func (e sessionEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
