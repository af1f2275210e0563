package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"qbank-service/internal/db"
	"qbank-service/internal/models"
)

// AdminRepository backs the database-management pages: generic table
// browsing/editing on any registered file plus the audit and migration
// bookkeeping tables in the centralized store.
type AdminRepository struct {
	Registry *db.Registry
	UserDB   *sql.DB
}

func NewAdminRepository(registry *db.Registry, userDB *sql.DB) *AdminRepository {
	return &AdminRepository{Registry: registry, UserDB: userDB}
}

// Table and column names reach this layer from request paths, so they are
// validated as identifiers before interpolation.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func (r *AdminRepository) ListTables(ctx context.Context, dbName string) ([]string, error) {
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// TablePage returns one page of raw rows plus the column list.
func (r *AdminRepository) TablePage(ctx context.Context, dbName, table string, page, perPage int) (*models.TablePage, error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return nil, err
	}

	var total int
	if err := conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage
	rows, err := conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT * FROM %s LIMIT ? OFFSET ?`, table), perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var pageRows []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		pageRows = append(pageRows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + perPage - 1) / perPage
	return &models.TablePage{
		Table:      table,
		Columns:    columns,
		Rows:       pageRows,
		Page:       page,
		PerPage:    perPage,
		TotalRows:  total,
		TotalPages: totalPages,
	}, nil
}

// UpdateRecord sets the given columns on one row by id.
func (r *AdminRepository) UpdateRecord(ctx context.Context, dbName, table string, id int64, fields map[string]interface{}) error {
	if !validIdentifier(table) {
		return fmt.Errorf("invalid table name: %q", table)
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update")
	}
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return err
	}

	var assignments []string
	var args []interface{}
	for col, val := range fields {
		if !validIdentifier(col) {
			return fmt.Errorf("invalid column name: %q", col)
		}
		assignments = append(assignments, col+" = ?")
		args = append(args, val)
	}
	args = append(args, id)

	res, err := conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(assignments, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdminRepository) InsertRecord(ctx context.Context, dbName, table string, fields map[string]interface{}) (int64, error) {
	if !validIdentifier(table) {
		return 0, fmt.Errorf("invalid table name: %q", table)
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("no fields to insert")
	}
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return 0, err
	}

	var columns, placeholders []string
	var args []interface{}
	for col, val := range fields {
		if !validIdentifier(col) {
			return 0, fmt.Errorf("invalid column name: %q", col)
		}
		columns = append(columns, col)
		placeholders = append(placeholders, "?")
		args = append(args, val)
	}

	res, err := conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table,
			strings.Join(columns, ", "), strings.Join(placeholders, ", ")),
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}
	return res.LastInsertId()
}

func (r *AdminRepository) DeleteRecord(ctx context.Context, dbName, table string, id int64) error {
	if !validIdentifier(table) {
		return fmt.Errorf("invalid table name: %q", table)
	}
	conn, err := r.Registry.Conn(dbName)
	if err != nil {
		return err
	}
	res, err := conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdminRepository) LogAction(ctx context.Context, adminID int64, action, target, details string) error {
	_, err := r.UserDB.ExecContext(ctx,
		`INSERT INTO admin_actions (admin_id, action, target, details) VALUES (?, ?, ?, ?)`,
		adminID, action, target, details)
	if err != nil {
		return fmt.Errorf("failed to log admin action: %w", err)
	}
	return nil
}

func (r *AdminRepository) RecordMigration(ctx context.Context, report *models.MigrationReport) error {
	_, err := r.UserDB.ExecContext(ctx,
		`INSERT INTO database_migrations (source_database, migrated, skipped, failed)
		 VALUES (?, ?, ?, ?)`,
		report.SourceDatabase, report.Migrated, report.Skipped, report.Failed)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}
