package app

import (
	"context"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// QuizService hands out one engine per owner and fronts the result history.
type QuizService struct {
	deps Deps
	opts Options

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewQuizService(deps Deps, opts Options) *QuizService {
	return &QuizService{
		deps:    deps,
		opts:    opts,
		engines: make(map[string]*Engine),
	}
}

// Engine returns the owner's engine, creating it on first use.
func (s *QuizService) Engine(owner string) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if engine, ok := s.engines[owner]; ok {
		return engine
	}
	engine := NewEngine(owner, s.deps, s.opts)
	s.engines[owner] = engine
	return engine
}

// Lookup returns the owner's engine if one exists.
func (s *QuizService) Lookup(owner string) (*Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	engine, ok := s.engines[owner]
	return engine, ok
}

// Logout stops the owner's engine, drops it and clears the owner's stored session and cache.
func (s *QuizService) Logout(ctx context.Context, owner string) error {
	s.mu.Lock()
	engine, ok := s.engines[owner]
	delete(s.engines, owner)
	s.mu.Unlock()

	if ok {
		return engine.Logout(ctx)
	}
	if err := s.deps.Sessions.Clear(ctx, owner); err != nil {
		return err
	}
	return s.deps.Cache.Clear(ctx, owner)
}

// Results lists the owner's completed attempts, newest first.
func (s *QuizService) Results(ctx context.Context, owner string, limit int) ([]domain.QuizResult, error) {
	if s.deps.Results == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.deps.Results.ListByOwner(ctx, owner, limit)
}
