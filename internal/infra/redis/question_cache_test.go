package redis

import (
	"context"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
)

func TestQuestionCacheStoresPerOwner(t *testing.T) {
	mr, client := startRedis(t)
	cache := NewQuestionCache(client, time.Hour)
	ctx := context.Background()

	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := cache.Write(ctx, "alice", cachedBatch(fetchedAt)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ttl := mr.TTL("quiz:cache:alice"); ttl < time.Hour || ttl > time.Hour+6*time.Minute {
		t.Fatalf("expected expiry within ttl+10%%, got %v", ttl)
	}

	if _, ok, err := cache.Read(ctx, "bob"); ok || err != nil {
		t.Fatalf("expected miss for bob, got ok=%v err=%v", ok, err)
	}
	batch, ok, err := cache.Read(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !batch.FetchedAt.Equal(fetchedAt) || len(batch.Questions) != 2 {
		t.Fatalf("unexpected batch %+v", batch)
	}

	if err := cache.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("quiz:cache:alice") {
		t.Fatalf("expected cache key removed")
	}
}

func TestQuestionCacheTreatsGarbageAsMiss(t *testing.T) {
	mr, client := startRedis(t)
	cache := NewQuestionCache(client, time.Hour)
	_ = mr.Set("quiz:cache:alice", "not json")

	if _, ok, err := cache.Read(context.Background(), "alice"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func cachedBatch(fetchedAt time.Time) domain.CachedBatch {
	return domain.CachedBatch{Questions: sampleState().Questions, FetchedAt: fetchedAt}
}
