package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/domain"
)

// SessionStore persists one JSON session record per owner:
//
//	SET quiz:session:{owner} <json> EX ttl
//
// Every Save replaces the whole record. A ttl of zero keeps records until cleared.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSessionStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{client: client, ttl: ttl, logger: logger}
}

// Load returns the owner's session. Undecodable or invalid records are deleted and
// reported as absent, as are Redis errors.
func (s *SessionStore) Load(ctx context.Context, owner string) (domain.SessionState, bool) {
	raw, err := s.client.Get(ctx, s.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionState{}, false
	}
	if err != nil {
		s.logger.Warn("load session failed", "owner", owner, "err", err)
		return domain.SessionState{}, false
	}

	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err == nil {
		err = state.Validate()
	}
	if err == nil && state.Owner != owner {
		err = fmt.Errorf("%w: record belongs to %q", domain.ErrInvalidSession, state.Owner)
	}
	if err != nil {
		s.logger.Warn("discarding corrupted session", "owner", owner, "err", err)
		_ = s.client.Del(ctx, s.key(owner)).Err()
		return domain.SessionState{}, false
	}
	return state, true
}

func (s *SessionStore) Save(ctx context.Context, state domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.Owner), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, s.key(owner)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(owner string) string {
	return "quiz:session:" + owner
}
