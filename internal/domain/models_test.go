package domain

import (
	"errors"
	"testing"
)

func validState() SessionState {
	return SessionState{
		AttemptID: "attempt-1",
		Owner:     "alice",
		Questions: []Question{
			{Text: "2 + 2?", CorrectAnswer: "4", IncorrectAnswers: []string{"3", "5", "22"}},
			{Text: "Capital of France?", CorrectAnswer: "Paris", IncorrectAnswers: []string{"Lyon", "Nice", "Lille"}},
		},
		Cursor:           1,
		Answers:          []RecordedAnswer{{QuestionText: "2 + 2?", SelectedAnswer: "4", CorrectAnswer: "4", IsCorrect: true}},
		RemainingSeconds: 420,
	}
}

func TestSessionStateValidate(t *testing.T) {
	cases := map[string]func(s *SessionState){
		"missing owner":          func(s *SessionState) { s.Owner = "" },
		"no questions":           func(s *SessionState) { s.Questions = nil },
		"cursor past end":        func(s *SessionState) { s.Cursor = 3 },
		"answers behind cursor":  func(s *SessionState) { s.Cursor = 2 },
		"negative time":          func(s *SessionState) { s.RemainingSeconds = -1 },
		"question without text":  func(s *SessionState) { s.Questions[1].Text = "" },
		"no correct answer":      func(s *SessionState) { s.Questions[0].CorrectAnswer = "" },
		"no incorrect answers":   func(s *SessionState) { s.Questions[1].IncorrectAnswers = nil },
		"empty incorrect answer": func(s *SessionState) { s.Questions[0].IncorrectAnswers = []string{"3", ""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validState()
			mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidSession) {
				t.Fatalf("expected ErrInvalidSession, got %v", err)
			}
		})
	}

	if err := validState().Validate(); err != nil {
		t.Fatalf("expected valid state, got %v", err)
	}
	finished := validState()
	finished.Cursor = 2
	finished.Answers = append(finished.Answers, RecordedAnswer{QuestionText: "Capital of France?", SelectedAnswer: "Lyon", CorrectAnswer: "Paris"})
	finished.RemainingSeconds = 0
	if err := finished.Validate(); err != nil {
		t.Fatalf("expected a finished state with no time left to be valid, got %v", err)
	}
}
