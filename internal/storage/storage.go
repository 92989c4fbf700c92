package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "controlcenter/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Config configures the SQLite database.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// DB wraps the application database handle.
//
// SQLite prefers a small number of concurrent writers, so the pool is capped
// at a single connection; callers share it through database/sql as usual.
type DB struct {
	sql *sql.DB
	log logx.Logger
}

// Open opens (creating if necessary) the database at cfg.Path, applies
// pragmas and runs the embedded migrations.
func Open(cfg Config, log logx.Logger) (*DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &DB{sql: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *DB) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.sql.ExecContext(ctx, string(b))
	return err
}

// SQL exposes the underlying handle for the entity stores.
func (s *DB) SQL() *sql.DB { return s.sql }

func (s *DB) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// Snapshot writes a consistent copy of the live database to dstPath.
//
// VACUUM INTO produces a compacted, transactionally consistent snapshot and
// works while other readers/writers use the WAL, which is exactly what the
// backup service needs.
func (s *DB) Snapshot(ctx context.Context, dstPath string) error {
	if s == nil || s.sql == nil {
		return errors.New("storage closed")
	}
	dstPath = strings.TrimSpace(dstPath)
	if dstPath == "" {
		return errors.New("snapshot path is required")
	}
	if _, err := os.Stat(dstPath); err == nil {
		return fmt.Errorf("snapshot target already exists: %s", dstPath)
	}
	// Single quotes in the path would break the statement; reject rather than escape.
	if strings.ContainsRune(dstPath, '\'') {
		return fmt.Errorf("snapshot path must not contain single quotes: %s", dstPath)
	}
	_, err := s.sql.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dstPath))
	return err
}

// NullStr maps empty strings to NULL for optional text columns.
func NullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

// NullTime maps zero times to NULL, otherwise RFC3339Nano text.
func NullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}
