package service

import (
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"qbank-service/internal/db"
	"qbank-service/internal/logger"
	"qbank-service/internal/repository"
)

func nopLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// fixture builds a data directory with one qbank, one MCQ, and one
// sequential-test database plus the centralized user store, all wired
// through a registry the way main does it.
type fixture struct {
	dir      string
	registry *db.Registry
	userDB   *sql.DB

	users   *repository.UserRepository
	qbank   *repository.QbankRepository
	study   *repository.StudyRepository
	mcq     *repository.MCQRepository
	results *repository.ResultRepository
	exam    *repository.ExamRepository
	admin   *repository.AdminRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	userDB, err := db.OpenWithSchema(filepath.Join(dir, "admin_users.db"), db.UserStoreSchema)
	if err != nil {
		t.Fatalf("open user store: %v", err)
	}
	t.Cleanup(func() { userDB.Close() })

	for _, spec := range []struct{ name, schema string }{
		{"1st_year.db", db.QbankSchema},
		{"general_mcq.db", db.MCQSchema},
		{"unit_test.db", db.TestSchema},
	} {
		conn, err := db.OpenWithSchema(filepath.Join(dir, spec.name), spec.schema)
		if err != nil {
			t.Fatalf("create %s: %v", spec.name, err)
		}
		conn.Close()
	}

	registry, err := db.NewRegistry(dir, 0, nopLogger())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(registry.Close)

	return &fixture{
		dir:      dir,
		registry: registry,
		userDB:   userDB,
		users:    repository.NewUserRepository(userDB),
		qbank:    repository.NewQbankRepository(registry, "1st_year.db"),
		study:    repository.NewStudyRepository(userDB),
		mcq:      repository.NewMCQRepository(registry),
		results:  repository.NewResultRepository(userDB),
		exam:     repository.NewExamRepository(registry, userDB),
		admin:    repository.NewAdminRepository(registry, userDB),
	}
}

func (f *fixture) seedQuestion(t *testing.T, subject, chapter, topic, question string, premium int) int64 {
	t.Helper()
	conn, err := f.registry.Conn("1st_year.db")
	if err != nil {
		t.Fatalf("open qbank: %v", err)
	}
	res, err := conn.Exec(
		`INSERT INTO qbank (subject, chapter, topic, question, answer, premium)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		subject, chapter, topic, question, "answer to "+question, premium)
	if err != nil {
		t.Fatalf("seed question: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func (f *fixture) seedMCQ(t *testing.T, subject, topic, difficulty, correct string) int64 {
	t.Helper()
	conn, err := f.registry.Conn("general_mcq.db")
	if err != nil {
		t.Fatalf("open mcq db: %v", err)
	}
	res, err := conn.Exec(
		`INSERT INTO mcq_questions
		 (subject, chapter, topic, question, option_a, option_b, option_c, option_d,
		  correct_option, explanation, difficulty)
		 VALUES (?, 'Chapter 1', ?, 'stem', 'A', 'B', 'C', 'D', ?, 'because', ?)`,
		subject, topic, correct, difficulty)
	if err != nil {
		t.Fatalf("seed mcq question: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// seedSequentialTest creates one test with the given correct answers and
// returns the test id and question ids in page order.
func (f *fixture) seedSequentialTest(t *testing.T, name string, correctAnswers []string) (int64, []int64) {
	t.Helper()
	conn, err := f.registry.Conn("unit_test.db")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	res, err := conn.Exec(
		`INSERT INTO test_info (test_name, description, duration_minutes)
		 VALUES (?, 'fixture test', 30)`, name)
	if err != nil {
		t.Fatalf("seed test info: %v", err)
	}
	testID, _ := res.LastInsertId()

	var questionIDs []int64
	for _, correct := range correctAnswers {
		res, err := conn.Exec(
			`INSERT INTO test_questions
			 (test_id, subject, topic, question, option_a, option_b, option_c, option_d,
			  correct_answer, explanation)
			 VALUES (?, 'Anatomy', 'Basic Anatomy', 'stem', 'A', 'B', 'C', 'D', ?, 'why')`,
			testID, correct)
		if err != nil {
			t.Fatalf("seed test question: %v", err)
		}
		id, _ := res.LastInsertId()
		questionIDs = append(questionIDs, id)
	}
	return testID, questionIDs
}

func (f *fixture) seedUser(t *testing.T, email string) int64 {
	t.Helper()
	res, err := f.userDB.Exec(
		`INSERT INTO users (username, email, password_hash) VALUES (?, ?, 'x')`,
		email, email)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}
