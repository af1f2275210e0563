package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qbank-service/internal/models"
)

// ResultRepository appends MCQ attempt results to the centralized store.
// Rows are never updated or deleted; every submission is a new record.
type ResultRepository struct {
	DB *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) Create(ctx context.Context, result *models.MCQResult) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO mcq_results
		 (user_id, test_id, score, total_questions, percentage, time_taken, detailed_results)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.UserID, result.TestID, result.Score, result.TotalQuestions,
		result.Percentage, result.TimeTaken, result.DetailedResults)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	result.ID, _ = res.LastInsertId()
	return nil
}

func (r *ResultRepository) FindByUser(ctx context.Context, userID int64) ([]models.MCQResult, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, test_id, score, total_questions, percentage,
			time_taken, detailed_results, completed_at
		 FROM mcq_results WHERE user_id = ? ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []models.MCQResult
	for rows.Next() {
		var res models.MCQResult
		var timeTaken sql.NullInt64
		var detailed sql.NullString
		if err := rows.Scan(&res.ID, &res.UserID, &res.TestID, &res.Score,
			&res.TotalQuestions, &res.Percentage, &timeTaken, &detailed,
			&res.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.TimeTaken = int(timeTaken.Int64)
		res.DetailedResults = detailed.String
		results = append(results, res)
	}
	return results, rows.Err()
}
