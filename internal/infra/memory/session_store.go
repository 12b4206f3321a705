package memory

import (
	"context"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.SessionState),
	}
}

// Load returns a copy of the owner's session. Records that break the session
// invariants are dropped and reported as absent.
func (s *SessionStore) Load(_ context.Context, owner string) (domain.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[owner]
	if !ok {
		return domain.SessionState{}, false
	}
	if err := state.Validate(); err != nil {
		delete(s.sessions, owner)
		return domain.SessionState{}, false
	}
	return state.Clone(), true
}

func (s *SessionStore) Save(_ context.Context, state domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.Owner] = state.Clone()
	return nil
}

func (s *SessionStore) Clear(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, owner)
	return nil
}
