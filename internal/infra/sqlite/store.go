package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trivia-quiz-service/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Store keeps sessions and cached batches in a local SQLite file so an attempt
// survives a process restart on a single node. It implements both
// app.SessionStore and app.QuestionCache.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Load returns the owner's session; unreadable or invalid rows are deleted and reported absent.
func (s *Store) Load(ctx context.Context, owner string) (domain.SessionState, bool) {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT data FROM sessions WHERE owner = ?`, owner).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionState{}, false
	}
	if err != nil {
		s.logger.Warn("load session failed", "owner", owner, "err", err)
		return domain.SessionState{}, false
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err == nil {
		err = state.Validate()
	}
	if err == nil && state.Owner != owner {
		err = fmt.Errorf("%w: record belongs to %q", domain.ErrInvalidSession, state.Owner)
	}
	if err != nil {
		s.logger.Warn("discarding corrupted session", "owner", owner, "err", err)
		_, _ = s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE owner = ?`, owner)
		return domain.SessionState{}, false
	}
	return state, true
}

// Save replaces the owner's session row.
func (s *Store) Save(ctx context.Context, state domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO sessions (owner, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, state.Owner, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save session for %s: %w", state.Owner, err)
	}
	return nil
}

// Clear removes the owner's session.
func (s *Store) Clear(ctx context.Context, owner string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("clear session for %s: %w", owner, err)
	}
	return nil
}

// QuestionCache returns the cache view of the store.
func (s *Store) QuestionCache() *QuestionCache {
	return &QuestionCache{store: s}
}

// QuestionCache is the per-owner batch cache backed by the same database.
type QuestionCache struct {
	store *Store
}

func (c *QuestionCache) Read(ctx context.Context, owner string) (domain.CachedBatch, bool, error) {
	var (
		raw       string
		fetchedAt int64
	)
	err := c.store.conn.QueryRowContext(ctx,
		`SELECT questions, fetched_at FROM question_cache WHERE owner = ?`, owner,
	).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CachedBatch{}, false, nil
	}
	if err != nil {
		return domain.CachedBatch{}, false, fmt.Errorf("read cached batch: %w", err)
	}

	var questions []domain.Question
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		_ = c.Clear(ctx, owner)
		return domain.CachedBatch{}, false, nil
	}
	return domain.CachedBatch{Questions: questions, FetchedAt: time.UnixMilli(fetchedAt)}, true, nil
}

func (c *QuestionCache) Write(ctx context.Context, owner string, batch domain.CachedBatch) error {
	data, err := json.Marshal(batch.Questions)
	if err != nil {
		return fmt.Errorf("encode cached batch: %w", err)
	}
	_, err = c.store.conn.ExecContext(ctx, `
		INSERT INTO question_cache (owner, questions, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET questions = excluded.questions, fetched_at = excluded.fetched_at
	`, owner, string(data), batch.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("write cached batch: %w", err)
	}
	return nil
}

func (c *QuestionCache) Clear(ctx context.Context, owner string) error {
	if _, err := c.store.conn.ExecContext(ctx, `DELETE FROM question_cache WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("clear cached batch: %w", err)
	}
	return nil
}
