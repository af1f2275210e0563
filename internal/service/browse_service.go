package service

import (
	"context"
	"errors"

	"qbank-service/internal/logger"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
)

// profYearGroups assigns subjects to the professional-year curriculum
// groupings shown on the home page.
var profYearGroups = []struct {
	Year     string
	Subjects []string
}{
	{"1st Prof", []string{"Anatomy", "Physiology", "Biochemistry"}},
	{"2nd Prof", []string{"Pathology", "Microbiology", "Pharmacology", "Forensic Medicine"}},
	{"3rd Prof Part 1", []string{"Community Medicine", "ENT", "Ophthalmology"}},
	{"3rd Prof Part 2", []string{
		"Medicine", "Surgery", "Pediatrics", "Obstetrics & Gynecology",
		"Orthopedics", "Dermatology", "Psychiatry", "Radiology",
	}},
}

type ProfYearGroup struct {
	Year     string                   `json:"year"`
	Subjects []models.SubjectProgress `json:"subjects"`
}

type BrowseService struct {
	Qbank  *repository.QbankRepository
	Study  *repository.StudyRepository
	Access *AccessService
	log    *logger.Logger
}

func NewBrowseService(qbank *repository.QbankRepository, study *repository.StudyRepository, access *AccessService, log *logger.Logger) *BrowseService {
	return &BrowseService{Qbank: qbank, Study: study, Access: access, log: log.With("service", "browse")}
}

// Home groups the discovered subjects into prof-year buckets with the
// user's completion progress. userID 0 means anonymous.
func (s *BrowseService) Home(ctx context.Context, userID int64) ([]ProfYearGroup, error) {
	available, err := s.Qbank.ListAllSubjects(ctx)
	if err != nil {
		return nil, err
	}

	var groups []ProfYearGroup
	for _, g := range profYearGroups {
		group := ProfYearGroup{Year: g.Year}
		for _, subject := range g.Subjects {
			sources, ok := available[subject]
			if !ok {
				continue
			}
			dbName := sources[0].Database
			topics, err := s.Qbank.TopicsForSubject(ctx, dbName, subject)
			if err != nil {
				return nil, err
			}
			completed := 0
			if userID != 0 {
				completed, err = s.Study.CountCompleted(ctx, userID, subject)
				if err != nil {
					return nil, err
				}
			}
			group.Subjects = append(group.Subjects, models.SubjectProgress{
				Subject:         subject,
				TotalTopics:     len(topics),
				CompletedTopics: completed,
				Database:        dbName,
			})
		}
		if len(group.Subjects) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// topicRating derives the displayed star rating from question count.
func topicRating(count int) float64 {
	switch {
	case count >= 50:
		return 4.8
	case count >= 30:
		return 4.5
	case count >= 15:
		return 4.2
	case count >= 5:
		return 4.0
	default:
		return 3.8
	}
}

// ListChaptersAndTopics annotates each topic with its question count,
// rating, completion, and lock state. loggedIn toggles lock display.
func (s *BrowseService) ListChaptersAndTopics(ctx context.Context, subject string, userID int64, loggedIn bool) ([]models.ChapterSummary, error) {
	dbName := s.Qbank.FindSubjectDatabase(ctx, subject)
	chapters, err := s.Qbank.DistinctChapters(ctx, dbName, subject)
	if err != nil {
		return nil, err
	}

	completed := make(map[string]bool)
	if userID != 0 {
		completed, err = s.Study.CompletedTopics(ctx, userID, subject)
		if err != nil {
			return nil, err
		}
	}

	var out []models.ChapterSummary
	for _, chapter := range chapters {
		topics, counts, err := s.Qbank.TopicsWithCounts(ctx, dbName, subject, chapter)
		if err != nil {
			return nil, err
		}
		summary := models.ChapterSummary{Name: chapter}
		for _, topic := range topics {
			gated := s.Access.IsTopicLoginRequired(ctx, subject, topic)
			summary.Topics = append(summary.Topics, models.TopicSummary{
				Name:          topic,
				QuestionCount: counts[topic],
				Rating:        topicRating(counts[topic]),
				Completed:     completed[topic],
				Locked:        gated && !loggedIn,
			})
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetNextTopic returns the topic lexically after current, or "" when
// current is last or unknown.
func (s *BrowseService) GetNextTopic(ctx context.Context, subject, current string) (string, error) {
	dbName := s.Qbank.FindSubjectDatabase(ctx, subject)
	topics, err := s.Qbank.TopicsForSubject(ctx, dbName, subject)
	if err != nil {
		return "", err
	}
	for i, topic := range topics {
		if topic == current && i+1 < len(topics) {
			return topics[i+1], nil
		}
	}
	return "", nil
}

// FirstQuestionID gives the entry point of a topic.
func (s *BrowseService) FirstQuestionID(ctx context.Context, subject, topic string) (int64, error) {
	dbName := s.Qbank.FindSubjectDatabase(ctx, subject)
	ids, err := s.Qbank.QuestionIDs(ctx, dbName, subject, topic)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, repository.ErrNotFound
	}
	return ids[0], nil
}

// ShowQuestion builds the question page view. withAnswer additionally
// loads the answer text and the user's saved note.
func (s *BrowseService) ShowQuestion(ctx context.Context, subject, topic string, questionID, userID int64, withAnswer bool) (*models.QuestionView, error) {
	dbName := s.Qbank.FindSubjectDatabase(ctx, subject)
	ids, err := s.Qbank.QuestionIDs(ctx, dbName, subject, topic)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, id := range ids {
		if id == questionID {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, repository.ErrNotFound
	}

	question, err := s.Qbank.GetQuestion(ctx, dbName, questionID)
	if err != nil {
		return nil, err
	}
	if !withAnswer {
		question.Answer = ""
	}

	view := &models.QuestionView{
		Question: question,
		Index:    index + 1,
		Total:    len(ids),
		IsLast:   index == len(ids)-1,
	}
	if index > 0 {
		view.PrevID = &ids[index-1]
	}
	if index < len(ids)-1 {
		view.NextID = &ids[index+1]
	}
	if view.IsLast {
		next, err := s.GetNextTopic(ctx, subject, topic)
		if err != nil {
			return nil, err
		}
		view.NextTopic = next
	}

	if userID != 0 {
		bookmarked, err := s.Study.BookmarkExists(ctx, userID, questionID, dbName)
		if err != nil {
			return nil, err
		}
		view.Bookmarked = bookmarked

		if withAnswer {
			note, err := s.Study.GetNote(ctx, userID, questionID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			if note != nil {
				view.Note = note.NoteText
			}
		}
	}
	return view, nil
}
