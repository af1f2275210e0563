package models

import "time"

// TestInfo is a sequential (one-question-per-page) test definition. The
// duration and scheduling window are advisory display data, not enforced.
type TestInfo struct {
	ID              int64      `json:"id"`
	TestName        string     `json:"test_name"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	QuestionCount   int        `json:"question_count"`
	SourceDatabase  string     `json:"source_database,omitempty"`
}

type TestQuestion struct {
	ID            int64  `json:"id"`
	TestID        int64  `json:"test_id"`
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
	Question      string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"-"`
	Explanation   string `json:"-"`
}

// AttemptState is the per-(sitting, test) navigation state: what is
// answered, marked for review, or skipped, and the current page.
type AttemptState struct {
	SittingID       string           `json:"-"`
	TestID          int64            `json:"test_id"`
	Answers         map[int64]string `json:"answers"`
	Marked          map[int64]bool   `json:"marked"`
	Skipped         map[int64]bool   `json:"skipped"`
	CurrentQuestion int              `json:"current_question"`
}

func NewAttemptState(sittingID string, testID int64) *AttemptState {
	return &AttemptState{
		SittingID:       sittingID,
		TestID:          testID,
		Answers:         make(map[int64]string),
		Marked:          make(map[int64]bool),
		Skipped:         make(map[int64]bool),
		CurrentQuestion: 1,
	}
}

type UserResponse struct {
	ID            int64     `json:"id"`
	TestID        int64     `json:"test_id"`
	UserID        string    `json:"user_id"`
	QuestionID    int64     `json:"question_id"`
	UserAnswer    string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	IsCorrect     bool      `json:"is_correct"`
	Explanation   string    `json:"explanation"`
	AttemptNumber int       `json:"attempt_number"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type ExamScore struct {
	TestID     int64 `json:"test_id"`
	Total      int   `json:"total"`
	Correct    int   `json:"correct"`
	Wrong      int   `json:"wrong"`
	Unanswered int   `json:"unanswered"`
	Attempt    int   `json:"attempt"`
}

// ReviewEntry joins a stored response back to its question for the
// review pages.
type ReviewEntry struct {
	Question    *TestQuestion `json:"question"`
	UserAnswer  string        `json:"user_answer"`
	Correct     string        `json:"correct_answer"`
	IsCorrect   bool          `json:"is_correct"`
	Explanation string        `json:"explanation"`
}

type ReviewPage struct {
	Entry     *ReviewEntry `json:"entry"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	HasPrev   bool         `json:"has_prev"`
	HasNext   bool         `json:"has_next"`
	Filter    string       `json:"filter"`
	Correct   int          `json:"correct_count"`
	Incorrect int          `json:"incorrect_count"`
}
