package app

import (
	"context"
	"time"

	"trivia-quiz-service/internal/domain"
)

// QuestionSource fetches a fresh batch of questions from the remote provider.
type QuestionSource interface {
	FetchBatch(ctx context.Context) ([]domain.Question, error)
}

// QuestionCache keeps the most recent batch per owner. It never fetches on its own.
type QuestionCache interface {
	Read(ctx context.Context, owner string) (domain.CachedBatch, bool, error)
	Write(ctx context.Context, owner string, batch domain.CachedBatch) error
	Clear(ctx context.Context, owner string) error
}

// SessionStore persists in-progress attempts (in-memory, Redis, SQLite).
// Load must fail soft: a record that cannot be decoded or validated is reported as absent.
type SessionStore interface {
	Load(ctx context.Context, owner string) (domain.SessionState, bool)
	Save(ctx context.Context, state domain.SessionState) error
	Clear(ctx context.Context, owner string) error
}

// ResultRepository keeps the history of completed attempts.
type ResultRepository interface {
	Record(ctx context.Context, result domain.QuizResult) error
	ListByOwner(ctx context.Context, owner string, limit int) ([]domain.QuizResult, error)
}

// DefaultCacheTTL is how long a cached batch may be reused without a fresh fetch.
const DefaultCacheTTL = time.Hour

// IsFresh reports whether batch is younger than ttl at now. A batch aged exactly ttl is stale.
func IsFresh(batch domain.CachedBatch, now time.Time, ttl time.Duration) bool {
	if batch.FetchedAt.IsZero() || len(batch.Questions) == 0 {
		return false
	}
	return now.Sub(batch.FetchedAt) < ttl
}
