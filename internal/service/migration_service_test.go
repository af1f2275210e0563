package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"qbank-service/internal/db"
)

// seedLegacyDB builds an old per-database user store. withCreatedAt
// controls whether the legacy users table carries the column at all.
func seedLegacyDB(t *testing.T, f *fixture, name string, withCreatedAt bool) *sql.DB {
	t.Helper()
	schema := `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL`
	if withCreatedAt {
		schema += `,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP`
	}
	schema += `);`

	conn, err := db.OpenWithSchema(filepath.Join(f.dir, name), schema)
	if err != nil {
		t.Fatalf("create legacy db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrateUsersIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := NewMigrationService(f.registry, f.userDB, f.admin, nopLogger())
	ctx := context.Background()

	legacy := seedLegacyDB(t, f, "old_portal.db", true)
	for _, email := range []string{"one@example.com", "Two@Example.com"} {
		if _, err := legacy.Exec(
			`INSERT INTO users (username, email, password_hash) VALUES (?, ?, 'h')`,
			email, email); err != nil {
			t.Fatalf("seed legacy user: %v", err)
		}
	}

	report, err := svc.MigrateUsers(ctx, "old_portal.db", false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if report.Migrated != 2 || report.Skipped != 0 || report.Failed != 0 {
		t.Errorf("first run = %d migrated %d skipped %d failed, want 2/0/0",
			report.Migrated, report.Skipped, report.Failed)
	}

	// Emails are lowercased on the way in.
	var count int
	if err := f.userDB.QueryRow(
		`SELECT COUNT(*) FROM users WHERE email = 'two@example.com'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("lowercased email rows = %d, want 1", count)
	}

	report, err = svc.MigrateUsers(ctx, "old_portal.db", false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Migrated != 0 || report.Skipped != 2 {
		t.Errorf("second run = %d migrated %d skipped, want 0/2",
			report.Migrated, report.Skipped)
	}
}

func TestMigrateUsersWithoutCreatedAt(t *testing.T) {
	f := newFixture(t)
	svc := NewMigrationService(f.registry, f.userDB, f.admin, nopLogger())
	ctx := context.Background()

	legacy := seedLegacyDB(t, f, "bare_portal.db", false)
	if _, err := legacy.Exec(
		`INSERT INTO users (username, email, password_hash) VALUES ('u', 'bare@example.com', 'h')`); err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	report, err := svc.MigrateUsers(ctx, "bare_portal.db", false)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if report.Migrated != 1 || report.Failed != 0 {
		t.Errorf("report = %d migrated %d failed, want 1/0", report.Migrated, report.Failed)
	}
}

func TestMigrateUsersMissingTable(t *testing.T) {
	f := newFixture(t)
	svc := NewMigrationService(f.registry, f.userDB, f.admin, nopLogger())

	conn, err := db.OpenWithSchema(filepath.Join(f.dir, "empty_portal.db"),
		`CREATE TABLE settings (k TEXT, v TEXT);`)
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	conn.Close()

	if _, err := svc.MigrateUsers(context.Background(), "empty_portal.db", false); err == nil {
		t.Fatal("expected error for database without users table")
	}
}

func TestMigrateUsersCascade(t *testing.T) {
	f := newFixture(t)
	svc := NewMigrationService(f.registry, f.userDB, f.admin, nopLogger())
	ctx := context.Background()

	legacy := seedLegacyDB(t, f, "cascade_portal.db", true)
	if _, err := legacy.Exec(
		`INSERT INTO users (username, email, password_hash) VALUES ('u', 'carry@example.com', 'h')`); err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}
	stmts := []string{
		`CREATE TABLE user_bookmarks (user_id INTEGER, question_id INTEGER, subject TEXT, topic TEXT)`,
		`CREATE TABLE user_notes (user_id INTEGER, question_id INTEGER, note_text TEXT)`,
		`CREATE TABLE user_topic_completion (user_id INTEGER, subject TEXT, topic TEXT)`,
		`INSERT INTO user_bookmarks VALUES (1, 10, 'Anatomy', 'Basic Anatomy')`,
		`INSERT INTO user_bookmarks VALUES (1, 11, 'Anatomy', 'General Anatomy')`,
		`INSERT INTO user_notes VALUES (1, 10, 'revise this')`,
		`INSERT INTO user_topic_completion VALUES (1, 'Anatomy', 'Basic Anatomy')`,
		`INSERT INTO user_bookmarks VALUES (99, 12, 'Anatomy', 'Orphan')`,
	}
	for _, stmt := range stmts {
		if _, err := legacy.Exec(stmt); err != nil {
			t.Fatalf("seed legacy activity: %v", err)
		}
	}

	report, err := svc.MigrateUsers(ctx, "cascade_portal.db", true)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if report.Migrated != 1 {
		t.Errorf("migrated = %d, want 1", report.Migrated)
	}
	// All three bookmark rows are processed without error; the orphan
	// user id is silently not inserted.
	if report.Bookmarks != 3 || report.Notes != 1 || report.Completions != 1 {
		t.Errorf("cascade = %d bookmarks %d notes %d completions, want 3/1/1",
			report.Bookmarks, report.Notes, report.Completions)
	}

	var bookmarks int
	if err := f.userDB.QueryRow(
		`SELECT COUNT(*) FROM user_bookmarks WHERE source_database = 'cascade_portal.db'`).Scan(&bookmarks); err != nil {
		t.Fatalf("count bookmarks: %v", err)
	}
	if bookmarks != 2 {
		t.Errorf("copied bookmark rows = %d, want 2", bookmarks)
	}
}

func TestDebugUsers(t *testing.T) {
	f := newFixture(t)
	svc := NewMigrationService(f.registry, f.userDB, f.admin, nopLogger())
	ctx := context.Background()

	f.seedUser(t, "central@example.com")
	legacy := seedLegacyDB(t, f, "debug_portal.db", true)
	if _, err := legacy.Exec(
		`INSERT INTO users (username, email, password_hash) VALUES ('u', 'old@example.com', 'h')`); err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	out, err := svc.DebugUsers(ctx, "debug_portal.db")
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	if len(out["legacy"]) != 1 || out["legacy"][0] != "old@example.com" {
		t.Errorf("legacy emails = %v", out["legacy"])
	}
	if len(out["centralized"]) != 1 || out["centralized"][0] != "central@example.com" {
		t.Errorf("centralized emails = %v", out["centralized"])
	}
}
