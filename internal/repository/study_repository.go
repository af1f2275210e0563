package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qbank-service/internal/models"
)

// StudyRepository owns the user-activity tables in the centralized store:
// bookmarks, notes, topic completions.
type StudyRepository struct {
	DB *sql.DB
}

func NewStudyRepository(db *sql.DB) *StudyRepository {
	return &StudyRepository{DB: db}
}

func (r *StudyRepository) BookmarkExists(ctx context.Context, userID, questionID int64, sourceDB string) (bool, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM user_bookmarks
		 WHERE user_id = ? AND question_id = ? AND source_database = ?`,
		userID, questionID, sourceDB,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return true, nil
}

func (r *StudyRepository) InsertBookmark(ctx context.Context, b *models.Bookmark) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_bookmarks (user_id, question_id, subject, topic, source_database)
		 VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.QuestionID, b.Subject, b.Topic, b.SourceDatabase,
	)
	if err != nil {
		if isConstraintErr(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert bookmark: %w", err)
	}
	b.ID, _ = res.LastInsertId()
	return nil
}

func (r *StudyRepository) DeleteBookmark(ctx context.Context, userID, questionID int64, sourceDB string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM user_bookmarks
		 WHERE user_id = ? AND question_id = ? AND source_database = ?`,
		userID, questionID, sourceDB)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

func (r *StudyRepository) DeleteBookmarkByID(ctx context.Context, userID, bookmarkID int64) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM user_bookmarks WHERE id = ? AND user_id = ?`, bookmarkID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudyRepository) ListBookmarks(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	return r.queryBookmarks(ctx,
		`SELECT id, user_id, question_id, subject, topic, source_database, created_at
		 FROM user_bookmarks WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (r *StudyRepository) ListBookmarksBySubject(ctx context.Context, userID int64, subject string) ([]models.Bookmark, error) {
	return r.queryBookmarks(ctx,
		`SELECT id, user_id, question_id, subject, topic, source_database, created_at
		 FROM user_bookmarks WHERE user_id = ? AND LOWER(subject) = LOWER(?)
		 ORDER BY created_at DESC`, userID, subject)
}

func (r *StudyRepository) queryBookmarks(ctx context.Context, query string, args ...interface{}) ([]models.Bookmark, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []models.Bookmark
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.QuestionID, &b.Subject, &b.Topic,
			&b.SourceDatabase, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// UpsertNote replaces any prior note for the (user, question) pair.
func (r *StudyRepository) UpsertNote(ctx context.Context, n *models.Note) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO user_notes
		 (user_id, question_id, note_text, source_database, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		n.UserID, n.QuestionID, n.NoteText, n.SourceDatabase)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func (r *StudyRepository) DeleteNote(ctx context.Context, userID, questionID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM user_notes WHERE user_id = ? AND question_id = ?`,
		userID, questionID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (r *StudyRepository) GetNote(ctx context.Context, userID, questionID int64) (*models.Note, error) {
	var n models.Note
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, question_id, note_text, source_database, updated_at
		 FROM user_notes WHERE user_id = ? AND question_id = ?`,
		userID, questionID,
	).Scan(&n.ID, &n.UserID, &n.QuestionID, &n.NoteText, &n.SourceDatabase, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	return &n, nil
}

// InsertCompletionIfAbsent records a topic completion once. Returns true
// when a new row was created.
func (r *StudyRepository) InsertCompletionIfAbsent(ctx context.Context, c *models.TopicCompletion) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_topic_completion
		 (user_id, subject, topic, source_database) VALUES (?, ?, ?, ?)`,
		c.UserID, c.Subject, c.Topic, c.SourceDatabase)
	if err != nil {
		return false, fmt.Errorf("failed to record completion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CompletedTopics returns the set of completed topic names for a subject.
func (r *StudyRepository) CompletedTopics(ctx context.Context, userID int64, subject string) (map[string]bool, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT topic FROM user_topic_completion
		 WHERE user_id = ? AND LOWER(subject) = LOWER(?)`, userID, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	defer rows.Close()

	completed := make(map[string]bool)
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completed[topic] = true
	}
	return completed, rows.Err()
}

func (r *StudyRepository) CountCompleted(ctx context.Context, userID int64, subject string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_topic_completion
		 WHERE user_id = ? AND LOWER(subject) = LOWER(?)`, userID, subject,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}
