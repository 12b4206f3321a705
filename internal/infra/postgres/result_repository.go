package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-quiz-service/internal/domain"
)

// ResultRepository keeps completed attempts in the quiz_results table.
// The full result is stored as JSONB; summary columns back the history listing.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Record inserts the result. Recording the same attempt twice is a no-op.
func (r *ResultRepository) Record(ctx context.Context, result domain.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO quiz_results (attempt_id, owner, correct, total, percentage, grade, data, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (attempt_id) DO NOTHING`,
		result.AttemptID, result.Owner, result.CorrectCount, result.TotalQuestions,
		result.Percentage, string(result.Grade), data, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's most recent results first.
func (r *ResultRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.QuizResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT data FROM quiz_results
		WHERE owner = $1
		ORDER BY completed_at DESC
		LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []domain.QuizResult
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.QuizResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
