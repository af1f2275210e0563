package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qbank-service/internal/db"
	"qbank-service/internal/models"
)

// QbankRepository reads the content databases resolved through the
// registry. All writes here are limited to the premium flag.
type QbankRepository struct {
	Registry  *db.Registry
	DefaultDB string
}

func NewQbankRepository(registry *db.Registry, defaultDB string) *QbankRepository {
	return &QbankRepository{Registry: registry, DefaultDB: defaultDB}
}

// FindSubjectDatabase scans the qbank databases for one containing the
// subject, falling back to the configured default file.
func (r *QbankRepository) FindSubjectDatabase(ctx context.Context, subject string) string {
	for _, name := range r.Registry.Databases(db.CategoryQbank) {
		conn, err := r.Registry.Conn(name)
		if err != nil {
			continue
		}
		var count int
		err = conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM qbank WHERE LOWER(subject) = LOWER(?)`, subject,
		).Scan(&count)
		if err == nil && count > 0 {
			return name
		}
	}
	return r.DefaultDB
}

// ListAllSubjects unions distinct subjects across every qbank database.
func (r *QbankRepository) ListAllSubjects(ctx context.Context) (map[string][]models.SubjectSource, error) {
	subjects := make(map[string][]models.SubjectSource)
	for _, name := range r.Registry.Databases(db.CategoryQbank) {
		conn, err := r.Registry.Conn(name)
		if err != nil {
			continue
		}
		rows, err := conn.QueryContext(ctx,
			`SELECT subject, COUNT(*) FROM qbank
			 WHERE subject IS NOT NULL AND subject != ''
			 GROUP BY subject`)
		if err != nil {
			continue
		}
		for rows.Next() {
			var subject string
			var count int
			if err := rows.Scan(&subject, &count); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan subject: %w", err)
			}
			subjects[subject] = append(subjects[subject], models.SubjectSource{
				Database:      name,
				QuestionCount: count,
			})
		}
		rows.Close()
	}
	return subjects, nil
}

// DistinctChapters returns non-empty chapters for a subject, lexically.
func (r *QbankRepository) DistinctChapters(ctx context.Context, dbName, subject string) ([]string, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT DISTINCT chapter FROM qbank
		 WHERE LOWER(subject) = LOWER(?) AND chapter IS NOT NULL AND chapter != ''
		 ORDER BY chapter`, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// TopicsWithCounts returns (topic, question count) pairs for a chapter,
// topics ordered lexically.
func (r *QbankRepository) TopicsWithCounts(ctx context.Context, dbName, subject, chapter string) ([]string, map[string]int, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT topic, COUNT(*) FROM qbank
		 WHERE LOWER(subject) = LOWER(?) AND chapter = ?
		   AND topic IS NOT NULL AND topic != ''
		 GROUP BY topic ORDER BY topic`, subject, chapter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	counts := make(map[string]int)
	for rows.Next() {
		var topic string
		var count int
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, topic)
		counts[topic] = count
	}
	return topics, counts, rows.Err()
}

// TopicsForSubject returns all distinct topics for the subject, lexically.
// Used for next-topic chaining.
func (r *QbankRepository) TopicsForSubject(ctx context.Context, dbName, subject string) ([]string, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT DISTINCT topic FROM qbank
		 WHERE LOWER(subject) = LOWER(?) AND topic IS NOT NULL AND topic != ''
		 ORDER BY topic`, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// QuestionIDs returns the ordered id list for a (subject, topic).
func (r *QbankRepository) QuestionIDs(ctx context.Context, dbName, subject, topic string) ([]int64, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT id FROM qbank
		 WHERE LOWER(subject) = LOWER(?) AND LOWER(topic) = LOWER(?)
		 ORDER BY id`, subject, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to list question ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *QbankRepository) GetQuestion(ctx context.Context, dbName string, id int64) (*models.Question, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	var q models.Question
	var chapter, topic, answer sql.NullString
	err = conn.QueryRowContext(ctx,
		`SELECT id, subject, chapter, topic, question, answer, premium, created_at
		 FROM qbank WHERE id = ?`, id,
	).Scan(&q.ID, &q.Subject, &chapter, &topic, &q.Question, &answer, &q.Premium, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question %d: %w", id, err)
	}
	q.Chapter = chapter.String
	q.Topic = topic.String
	q.Answer = answer.String
	return &q, nil
}

// QuestionText fetches just the question body, used to enrich bookmark
// listings from their source databases.
func (r *QbankRepository) QuestionText(ctx context.Context, dbName string, id int64) (string, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return "", err
	}
	var text string
	err = conn.QueryRowContext(ctx, `SELECT question FROM qbank WHERE id = ?`, id).Scan(&text)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load question text: %w", err)
	}
	return text, nil
}

// TopicPremium reads the premium flag of any one row matching the topic.
// found is false when no row matches.
func (r *QbankRepository) TopicPremium(ctx context.Context, dbName, subject, topic string) (premium, found bool, err error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return false, false, err
	}
	var flag int
	err = conn.QueryRowContext(ctx,
		`SELECT premium FROM qbank
		 WHERE LOWER(subject) = LOWER(?) AND LOWER(topic) = LOWER(?) LIMIT 1`,
		subject, topic,
	).Scan(&flag)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to read premium flag: %w", err)
	}
	return flag == 1, true, nil
}

// SetTopicPremium flags every row of a (subject, topic).
func (r *QbankRepository) SetTopicPremium(ctx context.Context, dbName, subject, topic string, premium bool) error {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return err
	}
	flag := 0
	if premium {
		flag = 1
	}
	_, err = conn.ExecContext(ctx,
		`UPDATE qbank SET premium = ?
		 WHERE LOWER(subject) = LOWER(?) AND LOWER(topic) = LOWER(?)`,
		flag, subject, topic)
	if err != nil {
		return fmt.Errorf("failed to set premium flag: %w", err)
	}
	return nil
}

// SetAllPremium flags every row in the database.
func (r *QbankRepository) SetAllPremium(ctx context.Context, dbName string) error {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, `UPDATE qbank SET premium = 1`); err != nil {
		return fmt.Errorf("failed to set premium flags: %w", err)
	}
	return nil
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
