// Package db owns the single SQLite connection and the goose-driven
// migration runner that brings it up to the current schema at boot under
// an exclusive lock (spec.md §5 "migrations run once at boot under an
// exclusive lock").
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB wraps *sql.DB; the store is a single relational database file per
// spec.md §6 "Persisted layout".
type DB struct {
	*sql.DB
}

// Connect opens (creating if necessary) the SQLite file at path.
func Connect(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		// best-effort; Migrate will fail loudly if the directory is unusable.
		_ = os.MkdirAll(dir, 0o755)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite supports exactly one writer; keep the pool small to avoid
	// SQLITE_BUSY storms under concurrent handlers.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{sqlDB}, nil
}

// Migrate applies every pending migration under internal/db/migrations.
// A failure here aborts boot (spec.md §7: "Store errors ... during startup
// migrations they abort the boot").
func Migrate(database *DB) error {
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(database.DB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
