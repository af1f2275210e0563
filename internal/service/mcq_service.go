package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"qbank-service/internal/logger"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
)

// ErrInsufficientQuestions aborts test creation when the filtered pool is
// smaller than the requested size. The message carries the pool size.
type ErrInsufficientQuestions struct {
	Available int
}

func (e *ErrInsufficientQuestions) Error() string {
	return fmt.Sprintf("Only %d questions available", e.Available)
}

type MCQService struct {
	MCQ     *repository.MCQRepository
	Results *repository.ResultRepository
	log     *logger.Logger
}

func NewMCQService(mcq *repository.MCQRepository, results *repository.ResultRepository, log *logger.Logger) *MCQService {
	return &MCQService{MCQ: mcq, Results: results, log: log.With("service", "mcq")}
}

func (s *MCQService) SubjectStats(ctx context.Context) ([]models.MCQSubjectStats, error) {
	return s.MCQ.SubjectStats(ctx)
}

type MCQSubjectPage struct {
	Chapters map[string][]string `json:"chapters"`
	Tests    []models.MCQTest    `json:"tests"`
}

func (s *MCQService) SubjectPage(ctx context.Context, subject string) (*MCQSubjectPage, error) {
	dbName, err := s.MCQ.DatabaseForSubject(subject)
	if err != nil {
		return nil, err
	}
	chapters, err := s.MCQ.ChaptersWithTopics(ctx, dbName, subject)
	if err != nil {
		return nil, err
	}
	tests, err := s.MCQ.PublicTests(ctx, dbName, subject)
	if err != nil {
		return nil, err
	}
	return &MCQSubjectPage{Chapters: chapters, Tests: tests}, nil
}

func (s *MCQService) Topics(ctx context.Context, subject string) ([]string, error) {
	dbName, err := s.MCQ.DatabaseForSubject(subject)
	if err != nil {
		return nil, err
	}
	return s.MCQ.DistinctTopics(ctx, dbName, subject)
}

// Practice returns the subject's questions in random order with correct
// options intact; the client grades locally as the user flips cards.
// topic narrows the pool to one topic when non-empty.
func (s *MCQService) Practice(ctx context.Context, subject, topic string) ([]models.MCQQuestion, error) {
	dbName, err := s.MCQ.DatabaseForSubject(subject)
	if err != nil {
		return nil, err
	}
	return s.MCQ.QuestionsBySubject(ctx, dbName, subject, topic)
}

// CreateTest samples the filtered pool. If fewer than the requested
// number match, no test is created and the pool size is reported.
func (s *MCQService) CreateTest(ctx context.Context, req *models.CreateTestRequest, creator string) (*models.MCQTest, error) {
	dbName, err := s.MCQ.DatabaseForSubject(req.Subject)
	if err != nil {
		return nil, err
	}

	available, err := s.MCQ.CountMatching(ctx, dbName, req.Subject, req.TopicFilter, req.DifficultyFilter)
	if err != nil {
		return nil, err
	}
	if available < req.NumQuestions {
		return nil, &ErrInsufficientQuestions{Available: available}
	}

	questions, err := s.MCQ.SampleQuestions(ctx, dbName, req.Subject, req.TopicFilter,
		req.DifficultyFilter, req.NumQuestions)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = 30
	}
	test := &models.MCQTest{
		TestName:         req.TestName,
		Subject:          req.Subject,
		TopicFilter:      req.TopicFilter,
		DifficultyFilter: req.DifficultyFilter,
		QuestionCount:    req.NumQuestions,
		DurationMinutes:  duration,
		CreatedBy:        creator,
		IsPublic:         true,
	}
	if err := s.MCQ.InsertTest(ctx, dbName, test, questions); err != nil {
		return nil, err
	}

	s.log.Info("mcq test created", "test_id", test.ID, "subject", test.Subject,
		"questions", len(questions))
	return test, nil
}

type MCQTestPage struct {
	Test      *models.MCQTest      `json:"test"`
	Questions []models.MCQQuestion `json:"questions"`
}

// TakeTest loads a test and its ordered questions, with correct options
// and explanations stripped.
func (s *MCQService) TakeTest(ctx context.Context, testID int64) (*MCQTestPage, error) {
	dbName, err := s.MCQ.FindTestDatabase(ctx, testID)
	if err != nil {
		return nil, err
	}
	test, err := s.MCQ.GetTest(ctx, dbName, testID)
	if err != nil {
		return nil, err
	}
	questions, err := s.MCQ.TestQuestions(ctx, dbName, testID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].CorrectOption = ""
		questions[i].Explanation = ""
	}
	return &MCQTestPage{Test: test, Questions: questions}, nil
}

type MCQSubmission struct {
	Score      int                        `json:"score"`
	Total      int                        `json:"total"`
	Percentage float64                    `json:"percentage"`
	Results    []models.MCQQuestionResult `json:"results"`
}

// SubmitTest grades by exact match on the stored correct-option letter
// and appends a result row. Prior attempts are never overwritten.
func (s *MCQService) SubmitTest(ctx context.Context, userID, testID int64, req *models.SubmitTestRequest) (*MCQSubmission, error) {
	dbName, err := s.MCQ.FindTestDatabase(ctx, testID)
	if err != nil {
		return nil, err
	}
	questions, err := s.MCQ.TestQuestions(ctx, dbName, testID)
	if err != nil {
		return nil, err
	}

	score := 0
	details := make([]models.MCQQuestionResult, 0, len(questions))
	for _, q := range questions {
		selected := req.Answers[strconv.FormatInt(q.ID, 10)]
		correct := selected != "" && selected == q.CorrectOption
		if correct {
			score++
		}
		details = append(details, models.MCQQuestionResult{
			QuestionID:     q.ID,
			Question:       q.Question,
			SelectedAnswer: selected,
			CorrectAnswer:  q.CorrectOption,
			IsCorrect:      correct,
			Explanation:    q.Explanation,
		})
	}

	percentage := 0.0
	if len(questions) > 0 {
		percentage = 100 * float64(score) / float64(len(questions))
	}

	detailJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result details: %w", err)
	}
	result := &models.MCQResult{
		UserID:          userID,
		TestID:          testID,
		Score:           score,
		TotalQuestions:  len(questions),
		Percentage:      percentage,
		TimeTaken:       req.TimeTaken,
		DetailedResults: string(detailJSON),
	}
	if err := s.Results.Create(ctx, result); err != nil {
		return nil, err
	}

	s.log.Info("mcq test submitted", "user_id", userID, "test_id", testID,
		"score", score, "total", len(questions))
	return &MCQSubmission{
		Score:      score,
		Total:      len(questions),
		Percentage: percentage,
		Results:    details,
	}, nil
}

func (s *MCQService) UserResults(ctx context.Context, userID int64) ([]models.MCQResult, error) {
	return s.Results.FindByUser(ctx, userID)
}

// AddQuestion is the admin authoring path.
func (s *MCQService) AddQuestion(ctx context.Context, q *models.MCQQuestion) error {
	if err := validateOption(q.CorrectOption); err != nil {
		return err
	}
	dbName, err := s.MCQ.DatabaseForSubject(q.Subject)
	if err != nil {
		return err
	}
	return s.MCQ.InsertQuestion(ctx, dbName, q)
}

func validateOption(option string) error {
	switch strings.ToLower(strings.TrimSpace(option)) {
	case "a", "b", "c", "d":
		return nil
	}
	return errors.New("correct option must be one of a, b, c, d")
}
