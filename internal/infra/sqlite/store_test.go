package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quiz.db")

	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	state := sampleState()
	state.RemainingSeconds = 419
	if err := first.Save(ctx, state); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = first.Close()

	second := openTestStore(t, path)
	loaded, ok := second.Load(ctx, "alice")
	if !ok {
		t.Fatalf("expected session after reopen")
	}
	if loaded.Cursor != 1 || len(loaded.Answers) != 1 || loaded.RemainingSeconds != 419 {
		t.Fatalf("unexpected state %+v", loaded)
	}

	if err := second.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := second.Load(ctx, "alice"); ok {
		t.Fatalf("expected session cleared")
	}
}

func TestLoadDiscardsCorruptedRow(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "quiz.db"))

	if _, err := store.conn.Exec(`INSERT INTO sessions (owner, data, updated_at) VALUES ('alice', '{"cursor":', ?)`, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := store.Load(ctx, "alice"); ok {
		t.Fatalf("expected corrupted row to be treated as absent")
	}
	var n int
	_ = store.conn.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	if n != 0 {
		t.Fatalf("expected corrupted row deleted, %d left", n)
	}
}

func TestQuestionCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := openTestStore(t, filepath.Join(t.TempDir(), "quiz.db")).QuestionCache()

	fetchedAt := time.UnixMilli(time.Now().UnixMilli())
	batch := domain.CachedBatch{Questions: sampleState().Questions, FetchedAt: fetchedAt}
	if err := cache.Write(ctx, "alice", batch); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok, err := cache.Read(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !got.FetchedAt.Equal(fetchedAt) || len(got.Questions) != 2 || got.Questions[1].CorrectAnswer != "Paris" {
		t.Fatalf("unexpected batch %+v", got)
	}
	if _, ok, _ := cache.Read(ctx, "bob"); ok {
		t.Fatalf("bob must not see alice's batch")
	}

	_ = cache.Clear(ctx, "alice")
	if _, ok, _ := cache.Read(ctx, "alice"); ok {
		t.Fatalf("expected batch cleared")
	}
}

func sampleState() domain.SessionState {
	return domain.SessionState{
		AttemptID: "attempt-1",
		Owner:     "alice",
		Questions: []domain.Question{
			{Text: "2 + 2?", Category: "Math", Difficulty: domain.DifficultyEasy, CorrectAnswer: "4", IncorrectAnswers: []string{"3", "5", "22"}},
			{Text: "Capital of France?", Category: "Geography", Difficulty: domain.DifficultyEasy, CorrectAnswer: "Paris", IncorrectAnswers: []string{"Lyon", "Nice", "Lille"}},
		},
		Cursor:           1,
		Answers:          []domain.RecordedAnswer{{QuestionText: "2 + 2?", SelectedAnswer: "4", CorrectAnswer: "4", IsCorrect: true}},
		RemainingSeconds: 420,
	}
}
