package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"qbank-service/internal/logger"
)

type Category string

const (
	CategoryQbank Category = "qbank"
	CategoryUsers Category = "users"
	CategoryMCQ   Category = "mcq"
	CategoryAdmin Category = "admin"
	CategoryTest  Category = "test"
)

type CategoryInfo struct {
	Pattern        string
	RequiredTables []string
	Description    string
	Schema         string
}

var Categories = map[Category]CategoryInfo{
	CategoryQbank: {
		Pattern:        "*year*.db",
		RequiredTables: []string{"qbank"},
		Description:    "Question bank databases",
		Schema:         QbankSchema,
	},
	CategoryUsers: {
		Pattern:        "admin_users.db",
		RequiredTables: []string{"users"},
		Description:    "Centralized user database",
		Schema:         UserStoreSchema,
	},
	CategoryMCQ: {
		Pattern:        "*mcq*.db",
		RequiredTables: []string{"mcq_questions"},
		Description:    "MCQ question databases",
		Schema:         MCQSchema,
	},
	CategoryAdmin: {
		Pattern:        "admin*.db",
		RequiredTables: nil,
		Description:    "Admin databases",
		Schema:         AdminSchema,
	},
	CategoryTest: {
		Pattern:        "*test*.db",
		RequiredTables: []string{"test_info", "test_questions"},
		Description:    "Sequential test databases",
		Schema:         TestSchema,
	},
}

// Registry tracks which SQLite files exist per category. The directory is
// scanned on construction, when the refresh interval has elapsed, and on
// an explicit Refresh call (admin rescan). Lookups between scans hit the
// cached snapshot, and open handles are reused across requests.
type Registry struct {
	dataDir      string
	refreshEvery time.Duration
	log          *logger.Logger

	mu       sync.RWMutex
	files    map[Category][]string
	conns    map[string]*sql.DB
	lastScan time.Time
}

func NewRegistry(dataDir string, refreshEvery time.Duration, log *logger.Logger) (*Registry, error) {
	r := &Registry{
		dataDir:      dataDir,
		refreshEvery: refreshEvery,
		log:          log.With("component", "registry"),
		files:        make(map[Category][]string),
		conns:        make(map[string]*sql.DB),
	}
	if err := r.Refresh(); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh re-globs the data directory and revalidates every match against
// its category's required tables. Files missing required tables are
// skipped with a warning rather than failing the scan.
func (r *Registry) Refresh() error {
	discovered := make(map[Category][]string)
	for cat, info := range Categories {
		matches, err := filepath.Glob(filepath.Join(r.dataDir, info.Pattern))
		if err != nil {
			return fmt.Errorf("failed to scan for %s databases: %w", cat, err)
		}
		sort.Strings(matches)
		var valid []string
		for _, path := range matches {
			name := filepath.Base(path)
			if len(info.RequiredTables) > 0 {
				ok, err := r.hasTables(name, path, info.RequiredTables)
				if err != nil {
					r.log.Warn("skipping unreadable database", "file", name, "error", err)
					continue
				}
				if !ok {
					r.log.Warn("skipping database missing required tables",
						"file", name, "category", cat)
					continue
				}
			}
			valid = append(valid, name)
		}
		discovered[cat] = valid
	}

	r.mu.Lock()
	r.files = discovered
	r.lastScan = time.Now()
	r.mu.Unlock()

	r.log.Info("database scan complete",
		"qbank", len(discovered[CategoryQbank]),
		"mcq", len(discovered[CategoryMCQ]),
		"test", len(discovered[CategoryTest]))
	return nil
}

func (r *Registry) hasTables(name, path string, tables []string) (bool, error) {
	conn, err := r.connByPath(name, path)
	if err != nil {
		return false, err
	}
	for _, table := range tables {
		ok, err := TableExists(conn, table)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Databases returns the cached file list for a category, rescanning first
// if the snapshot has gone stale.
func (r *Registry) Databases(cat Category) []string {
	r.mu.RLock()
	stale := r.refreshEvery > 0 && time.Since(r.lastScan) > r.refreshEvery
	r.mu.RUnlock()
	if stale {
		if err := r.Refresh(); err != nil {
			r.log.Error("stale rescan failed", "error", err)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.files[cat]))
	copy(out, r.files[cat])
	return out
}

func (r *Registry) Path(name string) string {
	return filepath.Join(r.dataDir, name)
}

// Conn returns a pooled handle for the named database file, opening it on
// first use.
func (r *Registry) Conn(name string) (*sql.DB, error) {
	return r.connByPath(name, r.Path(name))
}

func (r *Registry) connByPath(name, path string) (*sql.DB, error) {
	r.mu.RLock()
	conn, ok := r.conns[name]
	r.mu.RUnlock()
	if ok {
		return conn, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[name]; ok {
		return conn, nil
	}
	conn, err := Open(path)
	if err != nil {
		return nil, err
	}
	r.conns[name] = conn
	return conn, nil
}

// CreateDatabase makes a new file for the category following its naming
// convention and applies the category schema. Returns the file name.
func (r *Registry) CreateDatabase(cat Category, name string) (string, error) {
	info, ok := Categories[cat]
	if !ok {
		return "", fmt.Errorf("unknown database category: %s", cat)
	}

	var filename string
	switch cat {
	case CategoryQbank:
		filename = name + "_year.db"
	case CategoryMCQ:
		filename = name + "_mcq.db"
	case CategoryAdmin:
		filename = "admin_" + name + ".db"
	case CategoryTest:
		filename = name + "_test.db"
	default:
		return "", fmt.Errorf("cannot create databases of category %s", cat)
	}

	conn, err := OpenWithSchema(r.Path(filename), info.Schema)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.conns[filename] = conn
	r.mu.Unlock()

	if err := r.Refresh(); err != nil {
		return filename, err
	}
	return filename, nil
}

// Forget closes and drops the cached handle for a file. Callers remove
// the file itself and then trigger a rescan.
func (r *Registry) Forget(name string) {
	r.mu.Lock()
	if conn, ok := r.conns[name]; ok {
		conn.Close()
		delete(r.conns, name)
	}
	r.mu.Unlock()
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, conn := range r.conns {
		conn.Close()
		delete(r.conns, name)
	}
}
