package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/domain"
)

// QuestionCache stores the latest batch per owner as JSON under quiz:cache:{owner}.
// Freshness is judged by the caller from FetchedAt; the Redis expiry (ttl plus up to
// 10% jitter) only garbage-collects batches that are already stale.
type QuestionCache struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Read(ctx context.Context, owner string) (domain.CachedBatch, bool, error) {
	raw, err := c.client.Get(ctx, c.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CachedBatch{}, false, nil
	}
	if err != nil {
		return domain.CachedBatch{}, false, fmt.Errorf("read cached batch: %w", err)
	}
	var batch domain.CachedBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		// A batch we can't read is as good as a miss.
		_ = c.client.Del(ctx, c.key(owner)).Err()
		return domain.CachedBatch{}, false, nil
	}
	return batch, true, nil
}

func (c *QuestionCache) Write(ctx context.Context, owner string, batch domain.CachedBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode cached batch: %w", err)
	}
	if err := c.client.Set(ctx, c.key(owner), data, c.ttlWithJitter()).Err(); err != nil {
		return fmt.Errorf("write cached batch: %w", err)
	}
	return nil
}

func (c *QuestionCache) Clear(ctx context.Context, owner string) error {
	if err := c.client.Del(ctx, c.key(owner)).Err(); err != nil {
		return fmt.Errorf("clear cached batch: %w", err)
	}
	return nil
}

func (c *QuestionCache) key(owner string) string {
	return "quiz:cache:" + owner
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
