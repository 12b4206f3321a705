package memory

import (
	"context"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// ResultStore is an in-memory result history.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string][]domain.QuizResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string][]domain.QuizResult),
	}
}

func (s *ResultStore) Record(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Owner] = append(s.results[result.Owner], result)
	return nil
}

// ListByOwner returns up to limit results, newest first.
func (s *ResultStore) ListByOwner(_ context.Context, owner string, limit int) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.results[owner]
	out := make([]domain.QuizResult, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, history[i])
	}
	return out, nil
}
