package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"qbank-service/internal/db"
	"qbank-service/internal/models"
)

// ExamRepository reads sequential-test definitions from the test-category
// databases and keeps attempt state and response history in the
// centralized store.
type ExamRepository struct {
	Registry *db.Registry
	UserDB   *sql.DB
}

func NewExamRepository(registry *db.Registry, userDB *sql.DB) *ExamRepository {
	return &ExamRepository{Registry: registry, UserDB: userDB}
}

// ListTests unions test definitions across the test databases, with
// question counts.
func (r *ExamRepository) ListTests(ctx context.Context) ([]models.TestInfo, error) {
	var tests []models.TestInfo
	for _, name := range r.Registry.Databases(db.CategoryTest) {
		conn, err := r.Registry.Conn(name)
		if err != nil {
			continue
		}
		rows, err := conn.QueryContext(ctx,
			`SELECT t.id, t.test_name, t.description, t.duration_minutes,
				t.start_time, t.end_time, t.created_at,
				(SELECT COUNT(*) FROM test_questions q WHERE q.test_id = t.id)
			 FROM test_info t ORDER BY t.created_at DESC`)
		if err != nil {
			continue
		}
		for rows.Next() {
			t, err := scanTestInfo(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			t.SourceDatabase = name
			tests = append(tests, *t)
		}
		rows.Close()
	}
	return tests, nil
}

// FindTestDatabase scans test databases for the one defining the test.
func (r *ExamRepository) FindTestDatabase(ctx context.Context, testID int64) (string, error) {
	for _, name := range r.Registry.Databases(db.CategoryTest) {
		conn, err := r.Registry.Conn(name)
		if err != nil {
			continue
		}
		var id int64
		err = conn.QueryRowContext(ctx,
			`SELECT id FROM test_info WHERE id = ?`, testID).Scan(&id)
		if err == nil {
			return name, nil
		}
	}
	return "", ErrNotFound
}

func (r *ExamRepository) GetTestInfo(ctx context.Context, dbName string, testID int64) (*models.TestInfo, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	row := conn.QueryRowContext(ctx,
		`SELECT t.id, t.test_name, t.description, t.duration_minutes,
			t.start_time, t.end_time, t.created_at,
			(SELECT COUNT(*) FROM test_questions q WHERE q.test_id = t.id)
		 FROM test_info t WHERE t.id = ?`, testID)

	var t models.TestInfo
	var description sql.NullString
	var start, end sql.NullTime
	err = row.Scan(&t.ID, &t.TestName, &description, &t.DurationMinutes,
		&start, &end, &t.CreatedAt, &t.QuestionCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load test %d: %w", testID, err)
	}
	t.Description = description.String
	if start.Valid {
		t.StartTime = &start.Time
	}
	if end.Valid {
		t.EndTime = &end.Time
	}
	t.SourceDatabase = dbName
	return &t, nil
}

// TestQuestions returns the test's questions in id order, which is the
// page order of the sequential flow.
func (r *ExamRepository) TestQuestions(ctx context.Context, dbName string, testID int64) ([]models.TestQuestion, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT id, test_id, subject, topic, question,
			option_a, option_b, option_c, option_d, correct_answer, explanation
		 FROM test_questions WHERE test_id = ? ORDER BY id`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test questions: %w", err)
	}
	defer rows.Close()

	var questions []models.TestQuestion
	for rows.Next() {
		var q models.TestQuestion
		var subject, topic, explanation sql.NullString
		if err := rows.Scan(&q.ID, &q.TestID, &subject, &topic, &q.Question,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectAnswer, &explanation); err != nil {
			return nil, fmt.Errorf("failed to scan test question: %w", err)
		}
		q.Subject = subject.String
		q.Topic = topic.String
		q.Explanation = explanation.String
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// LoadAttempt reads the navigation state for a sitting. A missing row
// returns ErrNotFound; callers start a fresh attempt.
func (r *ExamRepository) LoadAttempt(ctx context.Context, sittingID string, testID int64) (*models.AttemptState, error) {
	var answersJSON, markedJSON, skippedJSON string
	state := models.NewAttemptState(sittingID, testID)
	err := r.UserDB.QueryRowContext(ctx,
		`SELECT answers, marked, skipped, current_question
		 FROM test_attempts WHERE sitting_id = ? AND test_id = ?`,
		sittingID, testID,
	).Scan(&answersJSON, &markedJSON, &skippedJSON, &state.CurrentQuestion)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt state: %w", err)
	}

	rawAnswers := make(map[string]string)
	if err := json.Unmarshal([]byte(answersJSON), &rawAnswers); err != nil {
		return nil, fmt.Errorf("failed to decode attempt answers: %w", err)
	}
	for k, v := range rawAnswers {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		state.Answers[id] = v
	}
	for _, set := range []struct {
		raw  string
		dest map[int64]bool
	}{{markedJSON, state.Marked}, {skippedJSON, state.Skipped}} {
		var ids []int64
		if err := json.Unmarshal([]byte(set.raw), &ids); err != nil {
			return nil, fmt.Errorf("failed to decode attempt state: %w", err)
		}
		for _, id := range ids {
			set.dest[id] = true
		}
	}
	return state, nil
}

// SaveAttempt upserts the sitting's navigation state.
func (r *ExamRepository) SaveAttempt(ctx context.Context, state *models.AttemptState) error {
	rawAnswers := make(map[string]string, len(state.Answers))
	for id, answer := range state.Answers {
		rawAnswers[strconv.FormatInt(id, 10)] = answer
	}
	answersJSON, err := json.Marshal(rawAnswers)
	if err != nil {
		return fmt.Errorf("failed to encode attempt answers: %w", err)
	}
	markedJSON, err := json.Marshal(setToSlice(state.Marked))
	if err != nil {
		return fmt.Errorf("failed to encode marked set: %w", err)
	}
	skippedJSON, err := json.Marshal(setToSlice(state.Skipped))
	if err != nil {
		return fmt.Errorf("failed to encode skipped set: %w", err)
	}

	_, err = r.UserDB.ExecContext(ctx,
		`INSERT INTO test_attempts (sitting_id, test_id, answers, marked, skipped, current_question, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(sitting_id, test_id) DO UPDATE SET
			answers = excluded.answers,
			marked = excluded.marked,
			skipped = excluded.skipped,
			current_question = excluded.current_question,
			updated_at = CURRENT_TIMESTAMP`,
		state.SittingID, state.TestID, string(answersJSON), string(markedJSON),
		string(skippedJSON), state.CurrentQuestion)
	if err != nil {
		return fmt.Errorf("failed to save attempt state: %w", err)
	}
	return nil
}

func (r *ExamRepository) DeleteAttempt(ctx context.Context, sittingID string, testID int64) error {
	_, err := r.UserDB.ExecContext(ctx,
		`DELETE FROM test_attempts WHERE sitting_id = ? AND test_id = ?`,
		sittingID, testID)
	if err != nil {
		return fmt.Errorf("failed to clear attempt state: %w", err)
	}
	return nil
}

// NextAttemptNumber returns max(existing)+1 for the (user, test) pair.
func (r *ExamRepository) NextAttemptNumber(ctx context.Context, userID string, testID int64) (int, error) {
	var max sql.NullInt64
	err := r.UserDB.QueryRowContext(ctx,
		`SELECT MAX(attempt_number) FROM user_responses
		 WHERE user_id = ? AND test_id = ?`, userID, testID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read attempt number: %w", err)
	}
	return int(max.Int64) + 1, nil
}

// InsertResponses appends one response row per question for an attempt.
func (r *ExamRepository) InsertResponses(ctx context.Context, responses []models.UserResponse) error {
	tx, err := r.UserDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, resp := range responses {
		isCorrect := 0
		if resp.IsCorrect {
			isCorrect = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_responses
			 (test_id, user_id, question_id, user_answer, correct_answer,
			  is_correct, explanation, attempt_number)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			resp.TestID, resp.UserID, resp.QuestionID, resp.UserAnswer,
			resp.CorrectAnswer, isCorrect, resp.Explanation, resp.AttemptNumber)
		if err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}
	}
	return tx.Commit()
}

// LatestAttemptResponses returns the responses of the user's most recent
// attempt, in question id order.
func (r *ExamRepository) LatestAttemptResponses(ctx context.Context, userID string, testID int64) ([]models.UserResponse, error) {
	rows, err := r.UserDB.QueryContext(ctx,
		`SELECT id, test_id, user_id, question_id, user_answer, correct_answer,
			is_correct, explanation, attempt_number, submitted_at
		 FROM user_responses
		 WHERE user_id = ? AND test_id = ?
		   AND attempt_number = (
			SELECT MAX(attempt_number) FROM user_responses
			WHERE user_id = ? AND test_id = ?)
		 ORDER BY question_id`, userID, testID, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	defer rows.Close()

	var responses []models.UserResponse
	for rows.Next() {
		var resp models.UserResponse
		var answer, explanation sql.NullString
		var isCorrect int
		if err := rows.Scan(&resp.ID, &resp.TestID, &resp.UserID, &resp.QuestionID,
			&answer, &resp.CorrectAnswer, &isCorrect, &explanation,
			&resp.AttemptNumber, &resp.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		resp.UserAnswer = answer.String
		resp.Explanation = explanation.String
		resp.IsCorrect = isCorrect == 1
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func setToSlice(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func scanTestInfo(rows *sql.Rows) (*models.TestInfo, error) {
	var t models.TestInfo
	var description sql.NullString
	var start, end sql.NullTime
	err := rows.Scan(&t.ID, &t.TestName, &description, &t.DurationMinutes,
		&start, &end, &t.CreatedAt, &t.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("failed to scan test info: %w", err)
	}
	t.Description = description.String
	if start.Valid {
		t.StartTime = &start.Time
	}
	if end.Valid {
		t.EndTime = &end.Time
	}
	return &t, nil
}
