package service

import (
	"context"
	"errors"
	"strings"

	"qbank-service/internal/logger"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
)

// StudyService covers the per-user activity operations: bookmarks, notes,
// topic completions. Writes land in the centralized store only; the
// source database name is resolved purely as row metadata.
type StudyService struct {
	Study *repository.StudyRepository
	Qbank *repository.QbankRepository
	log   *logger.Logger
}

func NewStudyService(study *repository.StudyRepository, qbank *repository.QbankRepository, log *logger.Logger) *StudyService {
	return &StudyService{Study: study, Qbank: qbank, log: log.With("service", "study")}
}

// ToggleBookmark flips bookmark state and reports which way it went:
// "added" or "removed".
func (s *StudyService) ToggleBookmark(ctx context.Context, userID, questionID int64, subject, topic string) (string, error) {
	sourceDB := s.Qbank.FindSubjectDatabase(ctx, subject)

	exists, err := s.Study.BookmarkExists(ctx, userID, questionID, sourceDB)
	if err != nil {
		return "", err
	}
	if exists {
		if err := s.Study.DeleteBookmark(ctx, userID, questionID, sourceDB); err != nil {
			return "", err
		}
		return "removed", nil
	}

	err = s.Study.InsertBookmark(ctx, &models.Bookmark{
		UserID:         userID,
		QuestionID:     questionID,
		Subject:        subject,
		Topic:          topic,
		SourceDatabase: sourceDB,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost the race to another insert: the bookmark exists, which is
		// what the caller asked for.
		return "already exists", nil
	}
	if err != nil {
		return "", err
	}
	return "added", nil
}

// AddBookmark inserts without toggling. A duplicate is benign.
func (s *StudyService) AddBookmark(ctx context.Context, userID, questionID int64, subject, topic string) (string, error) {
	sourceDB := s.Qbank.FindSubjectDatabase(ctx, subject)
	err := s.Study.InsertBookmark(ctx, &models.Bookmark{
		UserID:         userID,
		QuestionID:     questionID,
		Subject:        subject,
		Topic:          topic,
		SourceDatabase: sourceDB,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return "already exists", nil
	}
	if err != nil {
		return "", err
	}
	return "added", nil
}

func (s *StudyService) RemoveBookmark(ctx context.Context, userID, bookmarkID int64) error {
	return s.Study.DeleteBookmarkByID(ctx, userID, bookmarkID)
}

// ListBookmarks enriches each bookmark with its question text from the
// source database. A bookmark whose source row is gone stays in the list
// without text.
func (s *StudyService) ListBookmarks(ctx context.Context, userID int64, subject string) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	var err error
	if subject != "" {
		bookmarks, err = s.Study.ListBookmarksBySubject(ctx, userID, subject)
	} else {
		bookmarks, err = s.Study.ListBookmarks(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	for i := range bookmarks {
		text, err := s.Qbank.QuestionText(ctx, bookmarks[i].SourceDatabase, bookmarks[i].QuestionID)
		if err != nil {
			s.log.Warn("bookmark source question unavailable",
				"bookmark_id", bookmarks[i].ID, "source", bookmarks[i].SourceDatabase)
			continue
		}
		bookmarks[i].QuestionText = text
	}
	return bookmarks, nil
}

// SetNote upserts a note; empty text deletes any existing note.
func (s *StudyService) SetNote(ctx context.Context, userID, questionID int64, subject, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		if err := s.Study.DeleteNote(ctx, userID, questionID); err != nil {
			return "", err
		}
		return "deleted", nil
	}

	sourceDB := s.Qbank.FindSubjectDatabase(ctx, subject)
	err := s.Study.UpsertNote(ctx, &models.Note{
		UserID:         userID,
		QuestionID:     questionID,
		NoteText:       text,
		SourceDatabase: sourceDB,
	})
	if err != nil {
		return "", err
	}
	return "saved", nil
}

// MarkTopicComplete records the first completion; repeats are no-ops.
func (s *StudyService) MarkTopicComplete(ctx context.Context, userID int64, subject, topic string) (bool, error) {
	sourceDB := s.Qbank.FindSubjectDatabase(ctx, subject)
	created, err := s.Study.InsertCompletionIfAbsent(ctx, &models.TopicCompletion{
		UserID:         userID,
		Subject:        subject,
		Topic:          topic,
		SourceDatabase: sourceDB,
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info("topic completed", "user_id", userID, "subject", subject, "topic", topic)
	}
	return created, nil
}
