package models

import "time"

// Question is one qbank row. Content databases are read-mostly; only the
// premium flag changes after authoring.
type Question struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	Chapter   string    `json:"chapter"`
	Topic     string    `json:"topic"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Premium   bool      `json:"premium"`
	CreatedAt time.Time `json:"created_at"`
}

// SubjectSource ties a subject to one content database and its question
// count there.
type SubjectSource struct {
	Database      string `json:"database"`
	QuestionCount int    `json:"question_count"`
}

// TopicSummary is one topic row on the subject browse page.
type TopicSummary struct {
	Name          string  `json:"name"`
	QuestionCount int     `json:"question_count"`
	Rating        float64 `json:"rating"`
	Completed     bool    `json:"completed"`
	Locked        bool    `json:"locked"`
}

type ChapterSummary struct {
	Name   string         `json:"name"`
	Topics []TopicSummary `json:"topics"`
}

// QuestionView is a question (or answer) page: the row plus its position
// in the topic's ordered id list and navigation targets.
type QuestionView struct {
	Question   *Question `json:"question"`
	Index      int       `json:"index"`
	Total      int       `json:"total"`
	PrevID     *int64    `json:"prev_id,omitempty"`
	NextID     *int64    `json:"next_id,omitempty"`
	IsLast     bool      `json:"is_last"`
	NextTopic  string    `json:"next_topic,omitempty"`
	Bookmarked bool      `json:"bookmarked"`
	Note       string    `json:"note,omitempty"`
}

// SubjectProgress is one subject entry on the home page grouping.
type SubjectProgress struct {
	Subject         string `json:"subject"`
	TotalTopics     int    `json:"total_topics"`
	CompletedTopics int    `json:"completed_topics"`
	Database        string `json:"database"`
}
