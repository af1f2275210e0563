package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qbank-service/internal/db"
	"qbank-service/internal/logger"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
)

var ErrProtectedDatabase = errors.New("the centralized user database cannot be deleted")

const tablePageSize = 25

// AdminService backs the database-management surface: registry stats,
// database lifecycle, the generic table editor, and backups.
type AdminService struct {
	Registry   *db.Registry
	Admin      *repository.AdminRepository
	UserDBFile string
	BackupDir  string
	log        *logger.Logger
}

func NewAdminService(registry *db.Registry, admin *repository.AdminRepository, userDBFile, backupDir string, log *logger.Logger) *AdminService {
	return &AdminService{
		Registry:   registry,
		Admin:      admin,
		UserDBFile: userDBFile,
		BackupDir:  backupDir,
		log:        log.With("service", "admin"),
	}
}

// Stats reports every registered database with size and per-table row
// counts.
func (s *AdminService) Stats(ctx context.Context) (map[string][]models.DatabaseStats, error) {
	out := make(map[string][]models.DatabaseStats)
	for cat := range db.Categories {
		for _, name := range s.Registry.Databases(cat) {
			stat := models.DatabaseStats{
				Name:     name,
				Category: string(cat),
				Tables:   make(map[string]int64),
			}
			if info, err := os.Stat(s.Registry.Path(name)); err == nil {
				stat.SizeBytes = info.Size()
			}
			tables, err := s.Admin.ListTables(ctx, name)
			if err != nil {
				s.log.Warn("failed to inspect database", "file", name, "error", err)
				continue
			}
			conn, err := s.Registry.Conn(name)
			if err != nil {
				continue
			}
			for _, table := range tables {
				var count int64
				if err := conn.QueryRowContext(ctx,
					fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err == nil {
					stat.Tables[table] = count
				}
			}
			out[string(cat)] = append(out[string(cat)], stat)
		}
	}
	return out, nil
}

func (s *AdminService) CreateDatabase(ctx context.Context, adminID int64, category, name string) (string, error) {
	filename, err := s.Registry.CreateDatabase(db.Category(category), name)
	if err != nil {
		return "", err
	}
	if err := s.Admin.LogAction(ctx, adminID, "create_database", filename, category); err != nil {
		s.log.Warn("failed to log admin action", "error", err)
	}
	s.log.Info("database created", "file", filename, "category", category)
	return filename, nil
}

func (s *AdminService) DeleteDatabase(ctx context.Context, adminID int64, name string) error {
	if name == s.UserDBFile {
		return ErrProtectedDatabase
	}
	s.Registry.Forget(name)
	if err := os.Remove(s.Registry.Path(name)); err != nil {
		return fmt.Errorf("failed to delete database %s: %w", name, err)
	}
	if err := s.Registry.Refresh(); err != nil {
		return err
	}
	if err := s.Admin.LogAction(ctx, adminID, "delete_database", name, ""); err != nil {
		s.log.Warn("failed to log admin action", "error", err)
	}
	s.log.Info("database deleted", "file", name)
	return nil
}

// UploadDatabase saves a posted database file into the data directory
// under its submitted name and registers it. The file must carry a .db
// extension, must not collide with an existing database, and must hold
// the category's required tables; a file failing validation is removed
// again. A users-category upload must be named like the centralized
// store, which the collision check then rejects while it exists.
func (s *AdminService) UploadDatabase(ctx context.Context, adminID int64, category, filename string, src io.Reader) (string, error) {
	info, ok := db.Categories[db.Category(category)]
	if !ok {
		return "", fmt.Errorf("unknown database category: %s", category)
	}
	filename = filepath.Base(filename)
	if filename == "." || filename == "/" || !strings.HasSuffix(strings.ToLower(filename), ".db") {
		return "", errors.New("file must have a .db extension")
	}
	if db.Category(category) == db.CategoryUsers && filename != s.UserDBFile {
		return "", fmt.Errorf("user database must be named %s", s.UserDBFile)
	}

	path := s.Registry.Path(filename)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("database %s already exists", filename)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}

	conn, err := db.Open(path)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("uploaded file is not a valid database: %w", err)
	}
	for _, table := range info.RequiredTables {
		ok, err := db.TableExists(conn, table)
		if err != nil || !ok {
			conn.Close()
			os.Remove(path)
			return "", fmt.Errorf("database missing required table: %s", table)
		}
	}
	conn.Close()

	if err := s.Registry.Refresh(); err != nil {
		return filename, err
	}
	if err := s.Admin.LogAction(ctx, adminID, "upload_database", filename, category); err != nil {
		s.log.Warn("failed to log admin action", "error", err)
	}
	s.log.Info("database uploaded", "file", filename, "category", category)
	return filename, nil
}

func (s *AdminService) Rescan(ctx context.Context, adminID int64) error {
	if err := s.Registry.Refresh(); err != nil {
		return err
	}
	return s.Admin.LogAction(ctx, adminID, "rescan_databases", "", "")
}

// Backup copies every registered file into a timestamped directory,
// grouped by category.
func (s *AdminService) Backup(ctx context.Context, adminID int64) (string, error) {
	stamp := time.Now().Format("20060102_150405")
	root := filepath.Join(s.BackupDir, stamp)

	copied := 0
	for cat := range db.Categories {
		dir := filepath.Join(root, string(cat))
		for _, name := range s.Registry.Databases(cat) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create backup directory: %w", err)
			}
			if err := copyFile(s.Registry.Path(name), filepath.Join(dir, name)); err != nil {
				return "", err
			}
			copied++
		}
	}

	if err := s.Admin.LogAction(ctx, adminID, "backup", root, fmt.Sprintf("%d files", copied)); err != nil {
		s.log.Warn("failed to log admin action", "error", err)
	}
	s.log.Info("backup complete", "dir", root, "files", copied)
	return root, nil
}

func (s *AdminService) ListTables(ctx context.Context, dbName string) ([]string, error) {
	return s.Admin.ListTables(ctx, dbName)
}

func (s *AdminService) TablePage(ctx context.Context, dbName, table string, page int) (*models.TablePage, error) {
	return s.Admin.TablePage(ctx, dbName, table, page, tablePageSize)
}

func (s *AdminService) UpdateRecord(ctx context.Context, adminID int64, dbName, table string, id int64, fields map[string]interface{}) error {
	if err := s.Admin.UpdateRecord(ctx, dbName, table, id, fields); err != nil {
		return err
	}
	return s.Admin.LogAction(ctx, adminID, "edit_record",
		fmt.Sprintf("%s/%s/%d", dbName, table, id), "")
}

func (s *AdminService) InsertRecord(ctx context.Context, adminID int64, dbName, table string, fields map[string]interface{}) (int64, error) {
	id, err := s.Admin.InsertRecord(ctx, dbName, table, fields)
	if err != nil {
		return 0, err
	}
	return id, s.Admin.LogAction(ctx, adminID, "add_record",
		fmt.Sprintf("%s/%s/%d", dbName, table, id), "")
}

func (s *AdminService) DeleteRecord(ctx context.Context, adminID int64, dbName, table string, id int64) error {
	if err := s.Admin.DeleteRecord(ctx, dbName, table, id); err != nil {
		return err
	}
	return s.Admin.LogAction(ctx, adminID, "delete_record",
		fmt.Sprintf("%s/%s/%d", dbName, table, id), "")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
