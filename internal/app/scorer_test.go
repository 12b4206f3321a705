package app

import (
	"math/rand"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
)

func answers(correct, wrong int) []domain.RecordedAnswer {
	out := make([]domain.RecordedAnswer, 0, correct+wrong)
	for i := 0; i < correct; i++ {
		out = append(out, domain.RecordedAnswer{SelectedAnswer: "a", CorrectAnswer: "a", IsCorrect: true})
	}
	for i := 0; i < wrong; i++ {
		out = append(out, domain.RecordedAnswer{SelectedAnswer: "b", CorrectAnswer: "a"})
	}
	return out
}

func TestScore(t *testing.T) {
	cases := []struct {
		name           string
		correct, wrong int
		total          int
		percentage     float64
		grade          domain.Grade
	}{
		{"all correct", 10, 0, 10, 100, domain.GradeA},
		{"timeout with unanswered", 4, 3, 10, 40, domain.GradeE},
		{"exactly eighty", 8, 2, 10, 80, domain.GradeA},
		{"exactly seventy", 7, 0, 10, 70, domain.GradeB},
		{"exactly sixty", 6, 4, 10, 60, domain.GradeC},
		{"exactly fifty", 5, 5, 10, 50, domain.GradeD},
		{"nothing answered", 0, 0, 10, 0, domain.GradeE},
		{"rounded to one decimal", 2, 1, 3, 66.7, domain.GradeC},
		{"no questions", 0, 0, 0, 0, domain.GradeE},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Score(answers(tc.correct, tc.wrong), tc.total)
			if r.Percentage != tc.percentage || r.Grade != tc.grade {
				t.Fatalf("got %.1f%% %s, want %.1f%% %s", r.Percentage, r.Grade, tc.percentage, tc.grade)
			}
			if r.CorrectCount != tc.correct || r.WrongCount != tc.wrong || r.AnsweredCount != tc.correct+tc.wrong || r.TotalQuestions != tc.total {
				t.Fatalf("unexpected counts %+v", r)
			}
		})
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	in := answers(3, 2)
	first := Score(in, 10)
	second := Score(in, 10)
	if first.Percentage != second.Percentage || first.Grade != second.Grade || len(first.Answers) != len(second.Answers) {
		t.Fatalf("score not stable: %+v vs %+v", first, second)
	}
	first.Answers[0].IsCorrect = false
	if !in[0].IsCorrect {
		t.Fatalf("result aliases the input answers")
	}
}

func TestGradeForBoundaries(t *testing.T) {
	cases := map[float64]domain.Grade{
		100: domain.GradeA, 79.9: domain.GradeB, 69.9: domain.GradeC,
		59.9: domain.GradeD, 49.9: domain.GradeE, 0: domain.GradeE,
	}
	for p, want := range cases {
		if got := GradeFor(p); got != want {
			t.Fatalf("GradeFor(%v) = %s, want %s", p, got, want)
		}
	}
}

func TestPermuteKeepsAllChoices(t *testing.T) {
	q := domain.Question{CorrectAnswer: "c", IncorrectAnswers: []string{"x", "y", "z"}}
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		choices := Permute(q, rnd)
		if len(choices) != 4 {
			t.Fatalf("expected 4 choices, got %v", choices)
		}
		seen := map[string]bool{}
		for _, c := range choices {
			seen[c] = true
		}
		for _, want := range []string{"c", "x", "y", "z"} {
			if !seen[want] {
				t.Fatalf("missing %q in %v", want, choices)
			}
		}
	}
	if q.IncorrectAnswers[0] != "x" || q.CorrectAnswer != "c" {
		t.Fatalf("question mutated: %+v", q)
	}
}

func TestPermuteVariesOrder(t *testing.T) {
	q := domain.Question{CorrectAnswer: "c", IncorrectAnswers: []string{"x", "y", "z"}}
	rnd := rand.New(rand.NewSource(11))
	firstPositions := map[string]bool{}
	for i := 0; i < 200; i++ {
		firstPositions[Permute(q, rnd)[0]] = true
	}
	if len(firstPositions) != 4 {
		t.Fatalf("expected every choice to lead at some point, got %v", firstPositions)
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)
	batch := func(age time.Duration) domain.CachedBatch {
		return domain.CachedBatch{Questions: []domain.Question{{Text: "q"}}, FetchedAt: now.Add(-age)}
	}
	cases := []struct {
		name  string
		batch domain.CachedBatch
		fresh bool
	}{
		{"just fetched", batch(0), true},
		{"one second before ttl", batch(DefaultCacheTTL - time.Second), true},
		{"exactly ttl", batch(DefaultCacheTTL), false},
		{"one second after ttl", batch(DefaultCacheTTL + time.Second), false},
		{"no timestamp", domain.CachedBatch{Questions: []domain.Question{{Text: "q"}}}, false},
		{"no questions", domain.CachedBatch{FetchedAt: now}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsFresh(tc.batch, now, DefaultCacheTTL); got != tc.fresh {
				t.Fatalf("IsFresh = %v, want %v", got, tc.fresh)
			}
		})
	}
}

func TestCountdownStops(t *testing.T) {
	c := NewCountdown(2 * time.Millisecond)
	ticks := make(chan uint64, 100)
	c.Start(3, func(token uint64) {
		select {
		case ticks <- token:
		default:
		}
	})
	select {
	case token := <-ticks:
		if token != 3 {
			t.Fatalf("expected token 3, got %d", token)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown never ticked")
	}
	if !c.Running() {
		t.Fatalf("expected running countdown")
	}

	c.Stop()
	c.Stop()
	if c.Running() {
		t.Fatalf("expected stopped countdown")
	}
	time.Sleep(10 * time.Millisecond)
	for len(ticks) > 0 {
		<-ticks
	}
	time.Sleep(20 * time.Millisecond)
	if len(ticks) != 0 {
		t.Fatalf("countdown kept ticking after stop")
	}
}
