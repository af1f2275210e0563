package models

import "time"

type Bookmark struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	QuestionID     int64     `json:"question_id"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic"`
	SourceDatabase string    `json:"source_database"`
	CreatedAt      time.Time `json:"created_at"`

	// Filled in from the source database when listing.
	QuestionText string `json:"question_text,omitempty"`
}

type Note struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	QuestionID     int64     `json:"question_id"`
	NoteText       string    `json:"note_text"`
	SourceDatabase string    `json:"source_database"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type TopicCompletion struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic"`
	SourceDatabase string    `json:"source_database"`
	CompletedAt    time.Time `json:"completed_at"`
}
