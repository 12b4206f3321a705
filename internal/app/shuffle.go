package app

import (
	"math/rand"

	"trivia-quiz-service/internal/domain"
)

// Permute returns the question's answer choices (correct plus incorrect) in a
// random presentation order. The question itself is left untouched.
func Permute(q domain.Question, rnd *rand.Rand) []string {
	choices := make([]string, 0, len(q.IncorrectAnswers)+1)
	choices = append(choices, q.CorrectAnswer)
	choices = append(choices, q.IncorrectAnswers...)

	// Fisher-Yates
	for i := len(choices) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		choices[i], choices[j] = choices[j], choices[i]
	}
	return choices
}
