package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens a SQLite file and verifies the connection. Foreign keys are
// enabled per connection; the rest stays at SQLite defaults.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}
	return conn, nil
}

// OpenWithSchema opens a SQLite file and applies the given schema
// statements. Used both at startup (user store) and when the admin
// creates a new category database.
func OpenWithSchema(path string, schema string) (*sql.DB, error) {
	conn, err := Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", path, err)
	}
	return conn, nil
}

// TableExists reports whether a table is present in the given database.
func TableExists(conn *sql.DB, table string) (bool, error) {
	var name string
	err := conn.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
