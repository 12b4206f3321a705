package domain

import (
	"errors"
	"fmt"
	"html"
	"time"
)

// Difficulty is the provider's difficulty label for a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question models a multiple-choice question as delivered by the provider.
// Text fields keep the provider's HTML-entity escaping; use Display for presentation.
type Question struct {
	Text             string     `json:"question"`
	Category         string     `json:"category"`
	Difficulty       Difficulty `json:"difficulty"`
	CorrectAnswer    string     `json:"correctAnswer"`
	IncorrectAnswers []string   `json:"incorrectAnswers"`
}

// Display returns a copy with HTML entities decoded.
func (q Question) Display() Question {
	out := Question{
		Text:             html.UnescapeString(q.Text),
		Category:         html.UnescapeString(q.Category),
		Difficulty:       q.Difficulty,
		CorrectAnswer:    html.UnescapeString(q.CorrectAnswer),
		IncorrectAnswers: make([]string, len(q.IncorrectAnswers)),
	}
	for i, a := range q.IncorrectAnswers {
		out.IncorrectAnswers[i] = html.UnescapeString(a)
	}
	return out
}

// RecordedAnswer is the outcome of one submitted answer.
type RecordedAnswer struct {
	QuestionText   string `json:"questionText"`
	SelectedAnswer string `json:"selectedAnswer"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}

// SessionState is the durable form of an in-progress attempt.
type SessionState struct {
	AttemptID        string           `json:"attemptId"`
	Owner            string           `json:"owner"`
	Questions        []Question       `json:"questions"`
	Cursor           int              `json:"cursor"`
	Answers          []RecordedAnswer `json:"answers"`
	RemainingSeconds int              `json:"remainingSeconds"`
}

// Validate reports whether the state satisfies the session invariants.
func (s SessionState) Validate() error {
	switch {
	case s.Owner == "":
		return fmt.Errorf("%w: missing owner", ErrInvalidSession)
	case len(s.Questions) == 0:
		return fmt.Errorf("%w: no questions", ErrInvalidSession)
	case s.Cursor < 0 || s.Cursor > len(s.Questions):
		return fmt.Errorf("%w: cursor %d out of range", ErrInvalidSession, s.Cursor)
	case len(s.Answers) != s.Cursor:
		return fmt.Errorf("%w: %d answers for cursor %d", ErrInvalidSession, len(s.Answers), s.Cursor)
	case s.RemainingSeconds < 0:
		return fmt.Errorf("%w: negative remaining time", ErrInvalidSession)
	}
	for i, q := range s.Questions {
		if err := q.validate(); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidSession, i+1, err)
		}
	}
	return nil
}

func (q Question) validate() error {
	switch {
	case q.Text == "":
		return errors.New("missing text")
	case q.CorrectAnswer == "":
		return errors.New("missing correct answer")
	case len(q.IncorrectAnswers) == 0:
		return errors.New("no incorrect answers")
	}
	for _, a := range q.IncorrectAnswers {
		if a == "" {
			return errors.New("empty incorrect answer")
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't alias engine-owned slices.
func (s SessionState) Clone() SessionState {
	out := s
	out.Questions = append([]Question(nil), s.Questions...)
	out.Answers = append([]RecordedAnswer(nil), s.Answers...)
	return out
}

// CachedBatch is the most recent provider batch and when it was fetched.
type CachedBatch struct {
	Questions []Question `json:"questions"`
	FetchedAt time.Time  `json:"fetchedAt"`
}

// Grade is the letter grade derived from the percentage score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

// CompletionReason tells why an attempt ended.
type CompletionReason string

const (
	CompletionFinished CompletionReason = "finished"
	CompletionTimeout  CompletionReason = "timeout"
)

// QuizResult summarizes a completed attempt.
type QuizResult struct {
	AttemptID      string           `json:"attemptId"`
	Owner          string           `json:"owner"`
	TotalQuestions int              `json:"totalQuestions"`
	AnsweredCount  int              `json:"answered"`
	CorrectCount   int              `json:"correct"`
	WrongCount     int              `json:"wrong"`
	Percentage     float64          `json:"percentage"`
	Grade          Grade            `json:"grade"`
	Answers        []RecordedAnswer `json:"answers"`
	Reason         CompletionReason `json:"reason,omitempty"`
	CompletedAt    time.Time        `json:"completedAt"`
}

// Phase is the engine's lifecycle state.
type Phase string

const (
	PhaseBootstrapping Phase = "bootstrapping"
	PhaseInProgress    Phase = "in_progress"
	PhaseCompleted     Phase = "completed"
)

// BatchSource tells where the questions of the current session came from.
type BatchSource string

const (
	SourceResumed  BatchSource = "resumed"
	SourceCache    BatchSource = "cache"
	SourceProvider BatchSource = "provider"
)

// QuestionView is the current question as the presentation layer sees it.
type QuestionView struct {
	Number     int        `json:"number"`
	Text       string     `json:"text"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	Choices    []string   `json:"choices"`
}

// Snapshot is emitted to subscribers after every engine change.
type Snapshot struct {
	Owner             string        `json:"owner"`
	Phase             Phase         `json:"phase"`
	Source            BatchSource   `json:"source,omitempty"`
	Question          *QuestionView `json:"question,omitempty"`
	RemainingSeconds  int           `json:"remainingSeconds"`
	Answered          int           `json:"answered"`
	Total             int           `json:"total"`
	Result            *QuizResult   `json:"result,omitempty"`
	Loading           bool          `json:"loading,omitempty"`
	RetryAttempt      int           `json:"retryAttempt,omitempty"`
	RetryDelaySeconds int           `json:"retryDelaySeconds,omitempty"`
	Error             string        `json:"error,omitempty"`
	Reason            FailureReason `json:"reason,omitempty"`
}
