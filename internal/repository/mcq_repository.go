package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"qbank-service/internal/db"
	"qbank-service/internal/models"
)

// MCQRepository reads and writes the MCQ databases resolved through the
// registry. Result rows go to the centralized store (ResultRepository).
type MCQRepository struct {
	Registry *db.Registry
}

func NewMCQRepository(registry *db.Registry) *MCQRepository {
	return &MCQRepository{Registry: registry}
}

// DatabaseForSubject prefers an MCQ file whose name contains the subject,
// then falls back to the first MCQ database.
func (r *MCQRepository) DatabaseForSubject(subject string) (string, error) {
	names := r.Registry.Databases(db.CategoryMCQ)
	if len(names) == 0 {
		return "", ErrNotFound
	}
	needle := strings.ToLower(strings.ReplaceAll(subject, " ", "_"))
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), needle) {
			return name, nil
		}
	}
	return names[0], nil
}

// SubjectStats aggregates per-subject question counts, topic counts, and
// average difficulty (easy=1, medium=2, else 3) across all MCQ databases.
func (r *MCQRepository) SubjectStats(ctx context.Context) ([]models.MCQSubjectStats, error) {
	var stats []models.MCQSubjectStats
	for _, name := range r.Registry.Databases(db.CategoryMCQ) {
		conn, err := r.Registry.Conn(name)
		if err != nil {
			continue
		}
		rows, err := conn.QueryContext(ctx,
			`SELECT subject,
				COUNT(*),
				COUNT(DISTINCT topic),
				AVG(CASE difficulty WHEN 'easy' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END)
			 FROM mcq_questions GROUP BY subject`)
		if err != nil {
			continue
		}
		for rows.Next() {
			var s models.MCQSubjectStats
			var avg sql.NullFloat64
			if err := rows.Scan(&s.Subject, &s.TotalQuestions, &s.TopicCount, &avg); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan subject stats: %w", err)
			}
			s.AvgDifficulty = avg.Float64
			s.Database = name
			stats = append(stats, s)
		}
		rows.Close()
	}
	return stats, nil
}

// ChaptersWithTopics groups distinct topics under chapters for a subject.
func (r *MCQRepository) ChaptersWithTopics(ctx context.Context, dbName, subject string) (map[string][]string, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT DISTINCT chapter, topic FROM mcq_questions
		 WHERE LOWER(subject) = LOWER(?)
		   AND chapter IS NOT NULL AND chapter != ''
		   AND topic IS NOT NULL AND topic != ''
		 ORDER BY chapter, topic`, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	chapters := make(map[string][]string)
	for rows.Next() {
		var chapter, topic string
		if err := rows.Scan(&chapter, &topic); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters[chapter] = append(chapters[chapter], topic)
	}
	return chapters, rows.Err()
}

func (r *MCQRepository) DistinctTopics(ctx context.Context, dbName, subject string) ([]string, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT DISTINCT topic FROM mcq_questions
		 WHERE LOWER(subject) = LOWER(?) AND topic IS NOT NULL AND topic != ''
		 ORDER BY topic`, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// QuestionsBySubject returns the subject's questions in random order for
// practice mode. An empty topic matches the whole subject.
func (r *MCQRepository) QuestionsBySubject(ctx context.Context, dbName, subject, topic string) ([]models.MCQQuestion, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	query := selectMCQColumns + ` WHERE LOWER(subject) = LOWER(?)`
	args := []interface{}{subject}
	if topic != "" {
		query += ` AND LOWER(topic) = LOWER(?)`
		args = append(args, topic)
	}
	rows, err := conn.QueryContext(ctx, query+` ORDER BY RANDOM()`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load practice questions: %w", err)
	}
	defer rows.Close()
	return scanMCQQuestions(rows)
}

// CountMatching counts questions satisfying the test-creation filters.
func (r *MCQRepository) CountMatching(ctx context.Context, dbName, subject, topic, difficulty string) (int, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return 0, err
	}
	query, args := filteredQuery(`SELECT COUNT(*) FROM mcq_questions`, subject, topic, difficulty)
	var count int
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// SampleQuestions picks limit random questions under the filters.
func (r *MCQRepository) SampleQuestions(ctx context.Context, dbName, subject, topic, difficulty string, limit int) ([]models.MCQQuestion, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	query, args := filteredQuery(selectMCQColumns, subject, topic, difficulty)
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, limit)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	defer rows.Close()
	return scanMCQQuestions(rows)
}

// InsertTest persists the test row and one junction row per question,
// preserving 1-based order, in a single transaction.
func (r *MCQRepository) InsertTest(ctx context.Context, dbName string, test *models.MCQTest, questions []models.MCQQuestion) error {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return err
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	isPublic := 0
	if test.IsPublic {
		isPublic = 1
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO mcq_tests
		 (test_name, subject, topic_filter, difficulty_filter, question_count,
		  duration_minutes, created_by, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		test.TestName, test.Subject, test.TopicFilter, test.DifficultyFilter,
		test.QuestionCount, test.DurationMinutes, test.CreatedBy, isPublic)
	if err != nil {
		return fmt.Errorf("failed to insert test: %w", err)
	}
	testID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new test id: %w", err)
	}
	test.ID = testID

	for i, q := range questions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mcq_test_questions (test_id, question_id, question_order)
			 VALUES (?, ?, ?)`, testID, q.ID, i+1)
		if err != nil {
			return fmt.Errorf("failed to insert test question: %w", err)
		}
	}
	return tx.Commit()
}

// FindTestDatabase scans MCQ databases for the one holding the test.
func (r *MCQRepository) FindTestDatabase(ctx context.Context, testID int64) (string, error) {
	for _, name := range r.Registry.Databases(db.CategoryMCQ) {
		conn, err := r.Registry.Conn(name)
		if err != nil {
			continue
		}
		var id int64
		err = conn.QueryRowContext(ctx,
			`SELECT id FROM mcq_tests WHERE id = ?`, testID).Scan(&id)
		if err == nil {
			return name, nil
		}
	}
	return "", ErrNotFound
}

func (r *MCQRepository) GetTest(ctx context.Context, dbName string, testID int64) (*models.MCQTest, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	var t models.MCQTest
	var topicFilter, difficultyFilter, createdBy sql.NullString
	var isPublic int
	err = conn.QueryRowContext(ctx,
		`SELECT id, test_name, subject, topic_filter, difficulty_filter,
			question_count, duration_minutes, created_by, is_public, created_at
		 FROM mcq_tests WHERE id = ?`, testID,
	).Scan(&t.ID, &t.TestName, &t.Subject, &topicFilter, &difficultyFilter,
		&t.QuestionCount, &t.DurationMinutes, &createdBy, &isPublic, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load test %d: %w", testID, err)
	}
	t.TopicFilter = topicFilter.String
	t.DifficultyFilter = difficultyFilter.String
	t.CreatedBy = createdBy.String
	t.IsPublic = isPublic == 1
	return &t, nil
}

// TestQuestions returns a test's questions in their stored order.
func (r *MCQRepository) TestQuestions(ctx context.Context, dbName string, testID int64) ([]models.MCQQuestion, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT q.id, q.subject, q.chapter, q.topic, q.question,
			q.option_a, q.option_b, q.option_c, q.option_d, q.correct_option,
			q.explanation, q.difficulty, q.year_of_question, q.source, q.created_at
		 FROM mcq_questions q
		 JOIN mcq_test_questions tq ON tq.question_id = q.id
		 WHERE tq.test_id = ?
		 ORDER BY tq.question_order`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test questions: %w", err)
	}
	defer rows.Close()
	return scanMCQQuestions(rows)
}

// PublicTests lists the public tests for a subject.
func (r *MCQRepository) PublicTests(ctx context.Context, dbName, subject string) ([]models.MCQTest, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT id, test_name, subject, topic_filter, difficulty_filter,
			question_count, duration_minutes, created_by, is_public, created_at
		 FROM mcq_tests
		 WHERE LOWER(subject) = LOWER(?) AND is_public = 1
		 ORDER BY created_at DESC`, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []models.MCQTest
	for rows.Next() {
		var t models.MCQTest
		var topicFilter, difficultyFilter, createdBy sql.NullString
		var isPublic int
		if err := rows.Scan(&t.ID, &t.TestName, &t.Subject, &topicFilter,
			&difficultyFilter, &t.QuestionCount, &t.DurationMinutes, &createdBy,
			&isPublic, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		t.TopicFilter = topicFilter.String
		t.DifficultyFilter = difficultyFilter.String
		t.CreatedBy = createdBy.String
		t.IsPublic = isPublic == 1
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

func (r *MCQRepository) InsertQuestion(ctx context.Context, dbName string, q *models.MCQQuestion) error {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return err
	}
	res, err := conn.ExecContext(ctx,
		`INSERT INTO mcq_questions
		 (subject, chapter, topic, question, option_a, option_b, option_c, option_d,
		  correct_option, explanation, difficulty, year_of_question, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Subject, q.Chapter, q.Topic, q.Question, q.OptionA, q.OptionB, q.OptionC,
		q.OptionD, strings.ToLower(q.CorrectOption), q.Explanation, q.Difficulty,
		q.YearOfQuestion, q.Source)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	q.ID, _ = res.LastInsertId()
	return nil
}

const selectMCQColumns = `SELECT id, subject, chapter, topic, question,
	option_a, option_b, option_c, option_d, correct_option,
	explanation, difficulty, year_of_question, source, created_at
	FROM mcq_questions`

func filteredQuery(base, subject, topic, difficulty string) (string, []interface{}) {
	query := base + ` WHERE LOWER(subject) = LOWER(?)`
	args := []interface{}{subject}
	if topic != "" {
		query += ` AND LOWER(topic) = LOWER(?)`
		args = append(args, topic)
	}
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	return query, args
}

func scanMCQQuestions(rows *sql.Rows) ([]models.MCQQuestion, error) {
	var questions []models.MCQQuestion
	for rows.Next() {
		var q models.MCQQuestion
		var chapter, topic, explanation, difficulty, year, source sql.NullString
		if err := rows.Scan(&q.ID, &q.Subject, &chapter, &topic, &q.Question,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption,
			&explanation, &difficulty, &year, &source, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Chapter = chapter.String
		q.Topic = topic.String
		q.Explanation = explanation.String
		q.Difficulty = difficulty.String
		q.YearOfQuestion = year.String
		q.Source = source.String
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
