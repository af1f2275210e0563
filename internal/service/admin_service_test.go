package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"qbank-service/internal/db"
)

func newAdminService(t *testing.T) (*fixture, *AdminService) {
	t.Helper()
	f := newFixture(t)
	svc := NewAdminService(f.registry, f.admin, "admin_users.db",
		filepath.Join(f.dir, "backups"), nopLogger())
	return f, svc
}

func TestDeleteDatabaseProtectsUserStore(t *testing.T) {
	f, svc := newAdminService(t)
	ctx := context.Background()

	if err := svc.DeleteDatabase(ctx, 1, "admin_users.db"); !errors.Is(err, ErrProtectedDatabase) {
		t.Fatalf("err = %v, want ErrProtectedDatabase", err)
	}

	if err := svc.DeleteDatabase(ctx, 1, "general_mcq.db"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "general_mcq.db")); !os.IsNotExist(err) {
		t.Error("database file still on disk after delete")
	}
	if len(f.registry.Databases("mcq")) != 0 {
		t.Error("deleted database still registered")
	}
}

func TestCreateDatabaseLogsAction(t *testing.T) {
	f, svc := newAdminService(t)
	ctx := context.Background()

	filename, err := svc.CreateDatabase(ctx, 1, "qbank", "2nd")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filename != "2nd_year.db" {
		t.Errorf("filename = %q, want 2nd_year.db", filename)
	}

	var count int
	if err := f.userDB.QueryRow(
		`SELECT COUNT(*) FROM admin_actions WHERE action = 'create_database' AND target = '2nd_year.db'`).Scan(&count); err != nil {
		t.Fatalf("count actions: %v", err)
	}
	if count != 1 {
		t.Errorf("audit rows = %d, want 1", count)
	}
}

func TestTablePagePagination(t *testing.T) {
	f, svc := newAdminService(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "Q", 0)
	}

	page1, err := svc.TablePage(ctx, "1st_year.db", "qbank", 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if page1.TotalRows != 30 || len(page1.Rows) != 25 {
		t.Errorf("page 1 = %d total, %d rows, want 30/25", page1.TotalRows, len(page1.Rows))
	}

	page2, err := svc.TablePage(ctx, "1st_year.db", "qbank", 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Rows) != 5 {
		t.Errorf("page 2 rows = %d, want 5", len(page2.Rows))
	}
}

func TestRecordEditing(t *testing.T) {
	f, svc := newAdminService(t)
	ctx := context.Background()

	id, err := svc.InsertRecord(ctx, 1, "1st_year.db", "qbank", map[string]interface{}{
		"subject":  "Anatomy",
		"chapter":  "Intro",
		"topic":    "Basic Anatomy",
		"question": "inserted",
		"answer":   "a",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := svc.UpdateRecord(ctx, 1, "1st_year.db", "qbank", id, map[string]interface{}{
		"question": "edited",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	conn, err := f.registry.Conn("1st_year.db")
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	var question string
	if err := conn.QueryRow(`SELECT question FROM qbank WHERE id = ?`, id).Scan(&question); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if question != "edited" {
		t.Errorf("question = %q, want edited", question)
	}

	if err := svc.DeleteRecord(ctx, 1, "1st_year.db", "qbank", id); err != nil {
		t.Fatalf("delete record: %v", err)
	}
	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM qbank WHERE id = ?`, id).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Error("record still present after delete")
	}

	// Identifier validation rejects injection-shaped names outright.
	if _, err := svc.ListTables(ctx, "1st_year.db"); err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if err := svc.DeleteRecord(ctx, 1, "1st_year.db", "qbank; DROP TABLE qbank", id); err == nil {
		t.Error("malformed table name accepted")
	}
}

func TestUploadDatabase(t *testing.T) {
	f, svc := newAdminService(t)
	ctx := context.Background()

	// Build a well-formed qbank file outside the data directory to stand
	// in for the posted upload.
	staging := t.TempDir()
	src := filepath.Join(staging, "5th_year.db")
	conn, err := db.OpenWithSchema(src, db.QbankSchema)
	if err != nil {
		t.Fatalf("stage upload: %v", err)
	}
	conn.Close()

	upload := func(t *testing.T, category, filename, path string) (string, error) {
		t.Helper()
		in, err := os.Open(path)
		if err != nil {
			t.Fatalf("open staged file: %v", err)
		}
		defer in.Close()
		return svc.UploadDatabase(ctx, 1, category, filename, in)
	}

	filename, err := upload(t, "qbank", "5th_year.db", src)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if filename != "5th_year.db" {
		t.Errorf("filename = %q, want 5th_year.db", filename)
	}
	if !contains(f.registry.Databases(db.CategoryQbank), "5th_year.db") {
		t.Error("uploaded database not registered")
	}

	if _, err := upload(t, "qbank", "5th_year.db", src); err == nil {
		t.Error("duplicate filename accepted")
	}
	if _, err := upload(t, "qbank", "notes.txt", src); err == nil {
		t.Error("non-.db extension accepted")
	}
	if _, err := upload(t, "users", "fake_users.db", src); err == nil {
		t.Error("users upload under a different name accepted")
	}
	if _, err := upload(t, "bogus", "6th_year.db", src); err == nil {
		t.Error("unknown category accepted")
	}
}

func TestUploadDatabaseRejectsMissingTables(t *testing.T) {
	f, svc := newAdminService(t)
	ctx := context.Background()

	staging := t.TempDir()
	src := filepath.Join(staging, "hollow_year.db")
	conn, err := db.OpenWithSchema(src, `CREATE TABLE other (id INTEGER);`)
	if err != nil {
		t.Fatalf("stage upload: %v", err)
	}
	conn.Close()

	in, err := os.Open(src)
	if err != nil {
		t.Fatalf("open staged file: %v", err)
	}
	defer in.Close()

	if _, err := svc.UploadDatabase(ctx, 1, "qbank", "hollow_year.db", in); err == nil {
		t.Fatal("database without the qbank table accepted")
	}
	if _, err := os.Stat(filepath.Join(f.dir, "hollow_year.db")); !os.IsNotExist(err) {
		t.Error("invalid upload left on disk")
	}
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestBackupCopiesRegisteredFiles(t *testing.T) {
	_, svc := newAdminService(t)
	ctx := context.Background()

	root, err := svc.Backup(ctx, 1)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "qbank", "1st_year.db")); err != nil {
		t.Errorf("qbank backup missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "users", "admin_users.db")); err != nil {
		t.Errorf("user store backup missing: %v", err)
	}
}
