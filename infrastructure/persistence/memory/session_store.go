package memory

import (
	"context"
	"sync"
	"time"

	"cmseditor/domain/core/entities"
)

// SessionStore keeps edit sessions in process memory
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*entities.EditSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*entities.EditSession)}
}

func (s *SessionStore) Get(ctx context.Context, key entities.SessionKey) (*entities.EditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key.String()]
	if !ok {
		return nil, nil
	}
	return session.Clone(), nil
}

func (s *SessionStore) Save(ctx context.Context, session *entities.EditSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key.String()] = session.Clone()
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, key entities.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key.String())
	return nil
}

func (s *SessionStore) ListExpired(ctx context.Context, before time.Time) ([]*entities.EditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entities.EditSession
	for _, session := range s.sessions {
		if session.UpdatedAt.Before(before) {
			out = append(out, session.Clone())
		}
	}
	return out, nil
}
