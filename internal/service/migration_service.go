package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"qbank-service/internal/db"
	"qbank-service/internal/logger"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
)

// MigrationService reconciles legacy per-database user tables into the
// centralized store. Runs are idempotent: inserts are keyed by unique
// email with insert-or-ignore, and per-row failures never abort the
// batch.
type MigrationService struct {
	Registry *db.Registry
	UserDB   *sql.DB
	Admin    *repository.AdminRepository
	log      *logger.Logger
}

func NewMigrationService(registry *db.Registry, userDB *sql.DB, admin *repository.AdminRepository, log *logger.Logger) *MigrationService {
	return &MigrationService{
		Registry: registry,
		UserDB:   userDB,
		Admin:    admin,
		log:      log.With("service", "migration"),
	}
}

// MigrateUsers copies the legacy database's users into the centralized
// store. cascade also copies bookmarks, notes, and completions tagged
// with the legacy database name, remapping user ids by email.
func (s *MigrationService) MigrateUsers(ctx context.Context, legacyDB string, cascade bool) (*models.MigrationReport, error) {
	conn, err := s.Registry.Conn(legacyDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}
	hasUsers, err := db.TableExists(conn, "users")
	if err != nil {
		return nil, err
	}
	if !hasUsers {
		return nil, fmt.Errorf("legacy database %s has no users table", legacyDB)
	}

	report := &models.MigrationReport{SourceDatabase: legacyDB}
	hasCreatedAt, err := columnExists(ctx, conn, "users", "created_at")
	if err != nil {
		return nil, err
	}

	query := `SELECT id, username, email, password_hash FROM users`
	if hasCreatedAt {
		query = `SELECT id, username, email, password_hash, created_at FROM users`
	}
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy users: %w", err)
	}
	defer rows.Close()

	idByEmail := make(map[int64]string)
	for rows.Next() {
		var legacyID int64
		var username, email, passwordHash string
		var createdAt sql.NullTime
		if hasCreatedAt {
			err = rows.Scan(&legacyID, &username, &email, &passwordHash, &createdAt)
		} else {
			err = rows.Scan(&legacyID, &username, &email, &passwordHash)
		}
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			continue
		}

		created := time.Now()
		if createdAt.Valid {
			created = createdAt.Time
		}
		email = strings.ToLower(strings.TrimSpace(email))
		idByEmail[legacyID] = email

		res, err := s.UserDB.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (username, email, password_hash, role, created_at)
			 VALUES (?, ?, ?, 'student', ?)`,
			username, email, passwordHash, created)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("user %s: %v", email, err))
			s.log.Warn("user migration row failed", "email", email, "error", err)
			continue
		}
		affected, _ := res.RowsAffected()
		if affected > 0 {
			report.Migrated++
		} else {
			report.Skipped++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if cascade {
		s.cascadeActivity(ctx, conn, legacyDB, idByEmail, report)
	}

	if err := s.Admin.RecordMigration(ctx, report); err != nil {
		s.log.Warn("failed to record migration", "error", err)
	}
	s.log.Info("user migration complete", "source", legacyDB,
		"migrated", report.Migrated, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// cascadeActivity copies legacy bookmark/note/completion rows, remapping
// legacy user ids to centralized ids through the email map. Missing
// legacy tables are skipped silently; row errors are tolerated.
func (s *MigrationService) cascadeActivity(ctx context.Context, legacy *sql.DB, legacyDB string, idByEmail map[int64]string, report *models.MigrationReport) {
	newIDs := make(map[int64]int64)
	for legacyID, email := range idByEmail {
		var newID int64
		err := s.UserDB.QueryRowContext(ctx,
			`SELECT id FROM users WHERE email = ?`, email).Scan(&newID)
		if err != nil {
			continue
		}
		newIDs[legacyID] = newID
	}

	type copySpec struct {
		table   string
		copyRow func(ctx context.Context, rows *sql.Rows) error
		counter *int
	}

	specs := []copySpec{
		{
			table: "user_bookmarks",
			copyRow: func(ctx context.Context, rows *sql.Rows) error {
				var legacyUser, questionID int64
				var subject, topic string
				if err := rows.Scan(&legacyUser, &questionID, &subject, &topic); err != nil {
					return err
				}
				newID, ok := newIDs[legacyUser]
				if !ok {
					return nil
				}
				_, err := s.UserDB.ExecContext(ctx,
					`INSERT OR IGNORE INTO user_bookmarks
					 (user_id, question_id, subject, topic, source_database)
					 VALUES (?, ?, ?, ?, ?)`,
					newID, questionID, subject, topic, legacyDB)
				return err
			},
			counter: &report.Bookmarks,
		},
		{
			table: "user_notes",
			copyRow: func(ctx context.Context, rows *sql.Rows) error {
				var legacyUser, questionID int64
				var noteText string
				if err := rows.Scan(&legacyUser, &questionID, &noteText); err != nil {
					return err
				}
				newID, ok := newIDs[legacyUser]
				if !ok {
					return nil
				}
				_, err := s.UserDB.ExecContext(ctx,
					`INSERT OR REPLACE INTO user_notes
					 (user_id, question_id, note_text, source_database)
					 VALUES (?, ?, ?, ?)`,
					newID, questionID, noteText, legacyDB)
				return err
			},
			counter: &report.Notes,
		},
		{
			table: "user_topic_completion",
			copyRow: func(ctx context.Context, rows *sql.Rows) error {
				var legacyUser int64
				var subject, topic string
				if err := rows.Scan(&legacyUser, &subject, &topic); err != nil {
					return err
				}
				newID, ok := newIDs[legacyUser]
				if !ok {
					return nil
				}
				_, err := s.UserDB.ExecContext(ctx,
					`INSERT OR IGNORE INTO user_topic_completion
					 (user_id, subject, topic, source_database)
					 VALUES (?, ?, ?, ?)`,
					newID, subject, topic, legacyDB)
				return err
			},
			counter: &report.Completions,
		},
	}

	queries := map[string]string{
		"user_bookmarks":        `SELECT user_id, question_id, subject, topic FROM user_bookmarks`,
		"user_notes":            `SELECT user_id, question_id, note_text FROM user_notes`,
		"user_topic_completion": `SELECT user_id, subject, topic FROM user_topic_completion`,
	}

	for _, spec := range specs {
		exists, err := db.TableExists(legacy, spec.table)
		if err != nil || !exists {
			continue
		}
		rows, err := legacy.QueryContext(ctx, queries[spec.table])
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", spec.table, err))
			continue
		}
		for rows.Next() {
			if err := spec.copyRow(ctx, rows); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", spec.table, err))
				continue
			}
			*spec.counter++
		}
		rows.Close()
	}
}

// DebugUsers dumps email lists from a legacy database and the centralized
// store side by side for verification.
func (s *MigrationService) DebugUsers(ctx context.Context, legacyDB string) (map[string][]string, error) {
	out := map[string][]string{"legacy": {}, "centralized": {}}

	if legacyDB != "" {
		conn, err := s.Registry.Conn(legacyDB)
		if err != nil {
			return nil, err
		}
		emails, err := collectEmails(ctx, conn)
		if err != nil {
			return nil, err
		}
		out["legacy"] = emails
	}

	emails, err := collectEmails(ctx, s.UserDB)
	if err != nil {
		return nil, err
	}
	out["centralized"] = emails
	return out, nil
}

func collectEmails(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT email FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func columnExists(ctx context.Context, conn *sql.DB, table, column string) (bool, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
