package shared

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const memoryDatabase = ":memory:"

// dsn adds the connection options used for file databases. Writers wait up to 5s for the lock.
func dsn(path string) string {
	if path == memoryDatabase {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// NewDatabase opens and pings the SQLite database at path, which may be ":memory:".
//
// An in-memory database lives in a single connection, so its pool is capped at one.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryDatabase {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// ConfigureDatabase sets connection pool limits. Non-positive values keep the driver defaults.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}

// OpenDatabase opens the configured database, creating its directory and applying pending migrations.
func OpenDatabase(cfg DatabaseConfig) (*sql.DB, error) {
	path := ExpandPath(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: database.path", ErrMissingConfig)
	}
	if path != memoryDatabase {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if path != memoryDatabase {
		ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
