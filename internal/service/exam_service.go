package service

import (
	"context"
	"errors"
	"strings"

	"qbank-service/internal/logger"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
)

var (
	ErrQuestionOutOfRange = errors.New("question number out of range")
	ErrNoOptionSelected   = errors.New("please select an option before continuing")
	ErrInvalidFilter      = errors.New("unknown review filter")
	ErrNoAttempt          = errors.New("no submitted attempt to review")
)

// ExamService runs the one-question-per-page sequential test flow. All
// navigation state lives in a per-(sitting, test) attempt row; the
// sitting id is the user id for logged-in users and an anonymous cookie
// id otherwise.
type ExamService struct {
	Exam *repository.ExamRepository
	log  *logger.Logger
}

func NewExamService(exam *repository.ExamRepository, log *logger.Logger) *ExamService {
	return &ExamService{Exam: exam, log: log.With("service", "exam")}
}

func (s *ExamService) ListTests(ctx context.Context) ([]models.TestInfo, error) {
	return s.Exam.ListTests(ctx)
}

type TopicGroup struct {
	Subject   string                `json:"subject"`
	Topic     string                `json:"topic"`
	Questions []models.TestQuestion `json:"questions"`
}

// QuestionsGrouped lists a test's questions grouped by subject and topic
// for the overview page.
func (s *ExamService) QuestionsGrouped(ctx context.Context, testID int64) ([]TopicGroup, error) {
	dbName, err := s.Exam.FindTestDatabase(ctx, testID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Exam.TestQuestions(ctx, dbName, testID)
	if err != nil {
		return nil, err
	}

	var groups []TopicGroup
	index := make(map[string]int)
	for _, q := range questions {
		key := q.Subject + "\x00" + q.Topic
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, TopicGroup{Subject: q.Subject, Topic: q.Topic})
		}
		groups[i].Questions = append(groups[i].Questions, q)
	}
	return groups, nil
}

// QuestionPage is one page of the sequential flow.
type QuestionPage struct {
	Test     *models.TestInfo     `json:"test"`
	Question *models.TestQuestion `json:"question"`
	Number   int                  `json:"number"`
	Total    int                  `json:"total"`
	Selected string               `json:"selected,omitempty"`
	Marked   bool                 `json:"marked"`
	Skipped  bool                 `json:"skipped"`
	Answered int                  `json:"answered_count"`
	IsLast   bool                 `json:"is_last"`
}

// Start resets the sitting's attempt state and serves question 1.
func (s *ExamService) Start(ctx context.Context, sittingID string, testID int64) (*QuestionPage, error) {
	if _, err := s.Exam.FindTestDatabase(ctx, testID); err != nil {
		return nil, err
	}
	state := models.NewAttemptState(sittingID, testID)
	if err := s.Exam.SaveAttempt(ctx, state); err != nil {
		return nil, err
	}
	return s.Question(ctx, sittingID, testID, 1)
}

// Question serves page qnum. Out-of-range numbers are a hard not-found.
func (s *ExamService) Question(ctx context.Context, sittingID string, testID int64, qnum int) (*QuestionPage, error) {
	test, questions, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if qnum < 1 || qnum > len(questions) {
		return nil, ErrQuestionOutOfRange
	}

	state, err := s.loadState(ctx, sittingID, testID)
	if err != nil {
		return nil, err
	}

	q := questions[qnum-1]
	return &QuestionPage{
		Test:     test,
		Question: &q,
		Number:   qnum,
		Total:    len(questions),
		Selected: state.Answers[q.ID],
		Marked:   state.Marked[q.ID],
		Skipped:  state.Skipped[q.ID],
		Answered: len(state.Answers),
		IsLast:   qnum == len(questions),
	}, nil
}

// NavResult reports where a navigation action landed. Score is set only
// when the action completed the submission flow.
type NavResult struct {
	NextQuestion int               `json:"next_question,omitempty"`
	Submitted    bool              `json:"submitted"`
	Score        *models.ExamScore `json:"score,omitempty"`
}

// Navigate applies one state-machine transition on question qnum.
// Actions: "skip", "next", "previous", "submit".
func (s *ExamService) Navigate(ctx context.Context, sittingID string, testID int64, qnum int, action, selected string) (*NavResult, error) {
	_, questions, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if qnum < 1 || qnum > len(questions) {
		return nil, ErrQuestionOutOfRange
	}

	state, err := s.loadState(ctx, sittingID, testID)
	if err != nil {
		return nil, err
	}
	q := questions[qnum-1]

	switch action {
	case "skip":
		state.Skipped[q.ID] = true
		delete(state.Answers, q.ID)
		state.CurrentQuestion = clamp(qnum+1, 1, len(questions))

	case "next", "submit":
		if selected == "" {
			return nil, ErrNoOptionSelected
		}
		state.Answers[q.ID] = selected
		delete(state.Skipped, q.ID)
		if action == "submit" {
			if err := s.Exam.SaveAttempt(ctx, state); err != nil {
				return nil, err
			}
			score, err := s.Submit(ctx, sittingID, testID)
			if err != nil {
				return nil, err
			}
			return &NavResult{Submitted: true, Score: score}, nil
		}
		state.CurrentQuestion = clamp(qnum+1, 1, len(questions))

	case "previous":
		if selected != "" {
			state.Answers[q.ID] = selected
		}
		state.CurrentQuestion = clamp(qnum-1, 1, len(questions))

	default:
		return nil, errors.New("unknown navigation action: " + action)
	}

	if err := s.Exam.SaveAttempt(ctx, state); err != nil {
		return nil, err
	}
	return &NavResult{NextQuestion: state.CurrentQuestion}, nil
}

// ToggleMark flips the review mark on question qnum and returns the new
// state.
func (s *ExamService) ToggleMark(ctx context.Context, sittingID string, testID int64, qnum int) (bool, error) {
	_, questions, err := s.loadTest(ctx, testID)
	if err != nil {
		return false, err
	}
	if qnum < 1 || qnum > len(questions) {
		return false, ErrQuestionOutOfRange
	}

	state, err := s.loadState(ctx, sittingID, testID)
	if err != nil {
		return false, err
	}
	q := questions[qnum-1]
	if state.Marked[q.ID] {
		delete(state.Marked, q.ID)
	} else {
		state.Marked[q.ID] = true
	}
	if err := s.Exam.SaveAttempt(ctx, state); err != nil {
		return false, err
	}
	return state.Marked[q.ID], nil
}

// Submit grades the attempt case-insensitively, appends one response row
// per question under a fresh attempt number, and clears the navigation
// state. Unanswered questions count separately, never as wrong.
func (s *ExamService) Submit(ctx context.Context, sittingID string, testID int64) (*models.ExamScore, error) {
	_, questions, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	state, err := s.loadState(ctx, sittingID, testID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.Exam.NextAttemptNumber(ctx, sittingID, testID)
	if err != nil {
		return nil, err
	}

	score := &models.ExamScore{TestID: testID, Total: len(questions), Attempt: attempt}
	responses := make([]models.UserResponse, 0, len(questions))
	for _, q := range questions {
		answer, answered := state.Answers[q.ID]
		correct := false
		switch {
		case !answered || answer == "":
			score.Unanswered++
		case strings.EqualFold(strings.TrimSpace(answer), q.CorrectAnswer):
			score.Correct++
			correct = true
		default:
			score.Wrong++
		}
		responses = append(responses, models.UserResponse{
			TestID:        testID,
			UserID:        sittingID,
			QuestionID:    q.ID,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			Explanation:   q.Explanation,
			AttemptNumber: attempt,
		})
	}

	if err := s.Exam.InsertResponses(ctx, responses); err != nil {
		return nil, err
	}
	if err := s.Exam.DeleteAttempt(ctx, sittingID, testID); err != nil {
		return nil, err
	}

	s.log.Info("sequential test submitted", "sitting", sittingID, "test_id", testID,
		"correct", score.Correct, "wrong", score.Wrong, "unanswered", score.Unanswered)
	return score, nil
}

// Review returns the latest attempt's responses under a filter:
// "correct", "incorrect", or "all".
func (s *ExamService) Review(ctx context.Context, sittingID string, testID int64, filter string) ([]models.ReviewEntry, int, int, error) {
	entries, correct, incorrect, err := s.filteredReview(ctx, sittingID, testID, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	return entries, correct, incorrect, nil
}

// ReviewQuestion pages within the filtered subset, 1-based. An index
// outside the subset is a hard not-found.
func (s *ExamService) ReviewQuestion(ctx context.Context, sittingID string, testID int64, filter string, index int) (*models.ReviewPage, error) {
	entries, correct, incorrect, err := s.filteredReview(ctx, sittingID, testID, filter)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(entries) {
		return nil, ErrQuestionOutOfRange
	}
	return &models.ReviewPage{
		Entry:     &entries[index-1],
		Index:     index,
		Total:     len(entries),
		HasPrev:   index > 1,
		HasNext:   index < len(entries),
		Filter:    filter,
		Correct:   correct,
		Incorrect: incorrect,
	}, nil
}

func (s *ExamService) filteredReview(ctx context.Context, sittingID string, testID int64, filter string) ([]models.ReviewEntry, int, int, error) {
	switch filter {
	case "correct", "incorrect", "all":
	default:
		return nil, 0, 0, ErrInvalidFilter
	}

	dbName, err := s.Exam.FindTestDatabase(ctx, testID)
	if err != nil {
		return nil, 0, 0, err
	}
	questions, err := s.Exam.TestQuestions(ctx, dbName, testID)
	if err != nil {
		return nil, 0, 0, err
	}
	byID := make(map[int64]*models.TestQuestion, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	responses, err := s.Exam.LatestAttemptResponses(ctx, sittingID, testID)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(responses) == 0 {
		return nil, 0, 0, ErrNoAttempt
	}

	var entries []models.ReviewEntry
	correct, incorrect := 0, 0
	for _, resp := range responses {
		if resp.IsCorrect {
			correct++
		} else {
			incorrect++
		}
		if filter == "correct" && !resp.IsCorrect {
			continue
		}
		if filter == "incorrect" && resp.IsCorrect {
			continue
		}
		entries = append(entries, models.ReviewEntry{
			Question:    byID[resp.QuestionID],
			UserAnswer:  resp.UserAnswer,
			Correct:     resp.CorrectAnswer,
			IsCorrect:   resp.IsCorrect,
			Explanation: resp.Explanation,
		})
	}
	return entries, correct, incorrect, nil
}

func (s *ExamService) loadTest(ctx context.Context, testID int64) (*models.TestInfo, []models.TestQuestion, error) {
	dbName, err := s.Exam.FindTestDatabase(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	test, err := s.Exam.GetTestInfo(ctx, dbName, testID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.Exam.TestQuestions(ctx, dbName, testID)
	if err != nil {
		return nil, nil, err
	}
	return test, questions, nil
}

// loadState falls back to a fresh attempt when the sitting has none yet,
// so landing directly on a question page without start still works.
func (s *ExamService) loadState(ctx context.Context, sittingID string, testID int64) (*models.AttemptState, error) {
	state, err := s.Exam.LoadAttempt(ctx, sittingID, testID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewAttemptState(sittingID, testID), nil
	}
	return state, err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
