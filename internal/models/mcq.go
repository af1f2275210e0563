package models

import "time"

type MCQQuestion struct {
	ID             int64     `json:"id"`
	Subject        string    `json:"subject"`
	Chapter        string    `json:"chapter"`
	Topic          string    `json:"topic"`
	Question       string    `json:"question"`
	OptionA        string    `json:"option_a"`
	OptionB        string    `json:"option_b"`
	OptionC        string    `json:"option_c"`
	OptionD        string    `json:"option_d"`
	CorrectOption  string    `json:"correct_option"`
	Explanation    string    `json:"explanation"`
	Difficulty     string    `json:"difficulty"`
	YearOfQuestion string    `json:"year_of_question"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

type MCQTest struct {
	ID               int64     `json:"id"`
	TestName         string    `json:"test_name"`
	Subject          string    `json:"subject"`
	TopicFilter      string    `json:"topic_filter,omitempty"`
	DifficultyFilter string    `json:"difficulty_filter,omitempty"`
	QuestionCount    int       `json:"question_count"`
	DurationMinutes  int       `json:"duration_minutes"`
	CreatedBy        string    `json:"created_by"`
	IsPublic         bool      `json:"is_public"`
	CreatedAt        time.Time `json:"created_at"`
}

type CreateTestRequest struct {
	TestName         string `json:"test_name" binding:"required"`
	Subject          string `json:"subject" binding:"required"`
	TopicFilter      string `json:"topic_filter"`
	DifficultyFilter string `json:"difficulty_filter"`
	NumQuestions     int    `json:"num_questions" binding:"required,min=1"`
	DurationMinutes  int    `json:"duration_minutes"`
}

type SubmitTestRequest struct {
	Answers   map[string]string `json:"answers" binding:"required"`
	TimeTaken int               `json:"time_taken"`
}

// MCQQuestionResult is the per-question entry serialized into a result's
// detailed_results column.
type MCQQuestionResult struct {
	QuestionID     int64  `json:"question_id"`
	Question       string `json:"question"`
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Explanation    string `json:"explanation"`
}

type MCQResult struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	TestID          int64     `json:"test_id"`
	Score           int       `json:"score"`
	TotalQuestions  int       `json:"total_questions"`
	Percentage      float64   `json:"percentage"`
	TimeTaken       int       `json:"time_taken"`
	DetailedResults string    `json:"detailed_results,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}

// MCQSubjectStats feeds the MCQ home page.
type MCQSubjectStats struct {
	Subject        string  `json:"subject"`
	TotalQuestions int     `json:"total_questions"`
	TopicCount     int     `json:"topic_count"`
	AvgDifficulty  float64 `json:"avg_difficulty"`
	Database       string  `json:"database"`
}
