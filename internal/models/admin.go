package models

import "time"

type DatabaseStats struct {
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	SizeBytes int64            `json:"size_bytes"`
	Tables    map[string]int64 `json:"tables"`
}

// TablePage is one page of raw rows from the admin table browser.
type TablePage struct {
	Table      string                   `json:"table"`
	Columns    []string                 `json:"columns"`
	Rows       []map[string]interface{} `json:"rows"`
	Page       int                      `json:"page"`
	PerPage    int                      `json:"per_page"`
	TotalRows  int                      `json:"total_rows"`
	TotalPages int                      `json:"total_pages"`
}

type AdminAction struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"admin_id"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

type MigrationReport struct {
	SourceDatabase string   `json:"source_database"`
	Migrated       int      `json:"migrated"`
	Skipped        int      `json:"skipped"`
	Failed         int      `json:"failed"`
	Bookmarks      int      `json:"bookmarks,omitempty"`
	Notes          int      `json:"notes,omitempty"`
	Completions    int      `json:"completions,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}
