package app_test

import (
	"context"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func newService(source app.QuestionSource) (*app.QuizService, *memory.SessionStore, *memory.QuestionCache) {
	sessions := memory.NewSessionStore()
	cache := memory.NewQuestionCache()
	service := app.NewQuizService(app.Deps{
		Source:   source,
		Cache:    cache,
		Sessions: sessions,
		Results:  memory.NewResultStore(),
	}, app.Options{TickInterval: time.Hour, Seed: 1})
	return service, sessions, cache
}

func TestQuizServiceOneEnginePerOwner(t *testing.T) {
	service, _, _ := newService(okSource(3))

	a := service.Engine("alice")
	if service.Engine("alice") != a {
		t.Fatalf("expected the same engine for the same owner")
	}
	if service.Engine("bob") == a {
		t.Fatalf("expected separate engines per owner")
	}
	if _, ok := service.Lookup("carol"); ok {
		t.Fatalf("lookup must not create engines")
	}
}

func TestQuizServiceOwnersAreIsolated(t *testing.T) {
	service, _, _ := newService(okSource(3))
	ctx := context.Background()
	alice, bob := service.Engine("alice"), service.Engine("bob")
	defer alice.Suspend()
	defer bob.Suspend()

	if _, err := alice.Start(ctx); err != nil {
		t.Fatalf("start alice: %v", err)
	}
	if _, err := bob.Start(ctx); err != nil {
		t.Fatalf("start bob: %v", err)
	}
	alice.SubmitAnswer(ctx, "right")

	if got := bob.Snapshot().Answered; got != 0 {
		t.Fatalf("bob saw alice's answer: %d", got)
	}
}

func TestQuizServiceLogoutDropsEngine(t *testing.T) {
	service, sessions, cache := newService(okSource(3))
	ctx := context.Background()
	engine := service.Engine("alice")
	if _, err := engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := service.Logout(ctx, "alice"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := service.Lookup("alice"); ok {
		t.Fatalf("expected engine dropped")
	}
	if _, ok := sessions.Load(ctx, "alice"); ok {
		t.Fatalf("expected session cleared")
	}
	if _, ok, _ := cache.Read(ctx, "alice"); ok {
		t.Fatalf("expected cache cleared")
	}
}

func TestQuizServiceLogoutWithoutEngineClearsStores(t *testing.T) {
	service, sessions, cache := newService(okSource(3))
	ctx := context.Background()
	_ = sessions.Save(ctx, domain.SessionState{
		AttemptID: "a1", Owner: "alice", Questions: makeQuestions(2), Answers: []domain.RecordedAnswer{}, RemainingSeconds: 60,
	})
	_ = cache.Write(ctx, "alice", domain.CachedBatch{Questions: makeQuestions(2), FetchedAt: time.Now()})

	if err := service.Logout(ctx, "alice"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.Load(ctx, "alice"); ok {
		t.Fatalf("expected session cleared")
	}
	if _, ok, _ := cache.Read(ctx, "alice"); ok {
		t.Fatalf("expected cache cleared")
	}
}

func TestQuizServiceResultsHistory(t *testing.T) {
	service, _, _ := newService(okSource(1))
	ctx := context.Background()
	engine := service.Engine("alice")
	defer engine.Suspend()

	for i := 0; i < 2; i++ {
		if _, err := engine.Restart(ctx); err != nil {
			t.Fatalf("restart: %v", err)
		}
		engine.SubmitAnswer(ctx, "right")
	}

	results, err := service.Results(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 2 || results[0].Grade != domain.GradeA {
		t.Fatalf("expected two A results, got %+v", results)
	}
	if others, _ := service.Results(ctx, "bob", 10); len(others) != 0 {
		t.Fatalf("expected no results for bob, got %+v", others)
	}
}

func TestQuizServiceResultsWithoutRepository(t *testing.T) {
	service := app.NewQuizService(app.Deps{
		Source:   okSource(1),
		Cache:    memory.NewQuestionCache(),
		Sessions: memory.NewSessionStore(),
	}, app.Options{TickInterval: time.Hour})
	results, err := service.Results(context.Background(), "alice", 5)
	if err != nil || results != nil {
		t.Fatalf("expected empty history, got %v %v", results, err)
	}
}
