package memory

import (
	"context"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// QuestionCache keeps the latest batch per owner in memory. Freshness is decided by
// the caller with app.IsFresh; entries are only removed by Clear.
type QuestionCache struct {
	mu      sync.RWMutex
	batches map[string]domain.CachedBatch
}

func NewQuestionCache() *QuestionCache {
	return &QuestionCache{
		batches: make(map[string]domain.CachedBatch),
	}
}

func (c *QuestionCache) Read(_ context.Context, owner string) (domain.CachedBatch, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	batch, ok := c.batches[owner]
	if !ok {
		return domain.CachedBatch{}, false, nil
	}
	batch.Questions = append([]domain.Question(nil), batch.Questions...)
	return batch, true, nil
}

func (c *QuestionCache) Write(_ context.Context, owner string, batch domain.CachedBatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch.Questions = append([]domain.Question(nil), batch.Questions...)
	c.batches[owner] = batch
	return nil
}

func (c *QuestionCache) Clear(_ context.Context, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.batches, owner)
	return nil
}
