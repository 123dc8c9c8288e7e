package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

// SessionStore is a Redis-backed implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in a local map so the busy flag of a session is
//     shared by every request that reaches this process.
//   - Each Save writes a JSON snapshot with a TTL, so a session survives a
//     restart. The key is the lifetime: a local handle whose key has expired
//     is dropped on the next Get.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(ctx context.Context, session *app.Session) error {
	state := session.Snapshot()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	s.mu.Lock()
	s.sessions[state.ID] = session
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*app.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return s.live(ctx, id, session)
	}

	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	var state app.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have restored it meanwhile
	if session, ok := s.sessions[id]; ok {
		return session, nil
	}
	session = app.RestoreSession(state)
	s.sessions[id] = session
	return session, nil
}

// live returns the local handle while its Redis key exists, and forgets it
// once the key has expired.
func (s *SessionStore) live(ctx context.Context, id string, session *app.Session) (*app.Session, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	if n > 0 {
		return session, nil
	}
	s.mu.Lock()
	if s.sessions[id] == session {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	return nil, domain.ErrSessionNotFound
}

// Len reports how many sessions are held locally.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
