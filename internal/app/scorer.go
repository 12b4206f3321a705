package app

import (
	"math"

	"trivia-quiz-service/internal/domain"
)

// gradeThresholds are evaluated high to low; a percentage equal to a threshold earns that grade.
var gradeThresholds = []struct {
	min   float64
	grade domain.Grade
}{
	{80, domain.GradeA},
	{70, domain.GradeB},
	{60, domain.GradeC},
	{50, domain.GradeD},
}

// Score aggregates recorded answers into a result. It is pure: owner, attempt and
// completion metadata are filled in by the caller.
func Score(answers []domain.RecordedAnswer, totalQuestions int) domain.QuizResult {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}

	percentage := 0.0
	if totalQuestions > 0 {
		percentage = math.Round(float64(correct)/float64(totalQuestions)*1000) / 10
	}

	return domain.QuizResult{
		TotalQuestions: totalQuestions,
		AnsweredCount:  len(answers),
		CorrectCount:   correct,
		WrongCount:     len(answers) - correct,
		Percentage:     percentage,
		Grade:          GradeFor(percentage),
		Answers:        append([]domain.RecordedAnswer(nil), answers...),
	}
}

// GradeFor maps a percentage onto a letter grade.
func GradeFor(percentage float64) domain.Grade {
	for _, t := range gradeThresholds {
		if percentage >= t.min {
			return t.grade
		}
	}
	return domain.GradeE
}
