// Package db implements the entity store on SQLite. All invariant
// validation lives here; read-side composition lives in the projection
// package.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps the database connection
type Store struct {
	conn *sqlx.DB
	path string
}

// Open opens (or creates) the database at dbPath and runs any pending
// migrations. Pass ":memory:" for an in-memory store.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Serialize writes through a single connection; SQLite handles one
	// writer at a time and WAL keeps readers unblocked.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, path: dbPath}

	if err := s.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// GetSchemaVersion returns the current schema version from the database
func (s *Store) GetSchemaVersion() (int, error) {
	var version int
	err := s.conn.Get(&version, "SELECT CAST(value AS INTEGER) FROM schema_info WHERE key = 'version'")
	if err != nil {
		// Table exists from the base schema; no row means version 1.
		return 1, nil
	}
	return version, nil
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

// runMigrations applies any outstanding migrations in order.
func (s *Store) runMigrations() error {
	current, err := s.GetSchemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if _, err := s.conn.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := s.setSchemaVersion(m.Version); err != nil {
			return fmt.Errorf("set schema version %d: %w", m.Version, err)
		}
		current = m.Version
	}

	if current < SchemaVersion {
		if err := s.setSchemaVersion(SchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// nowUTC returns the current time in UTC, truncated to microseconds so
// round-trips through SQLite compare cleanly.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// sqlxIn expands an IN (?) clause for a slice argument. SQLite uses ?
// placeholders natively, so no rebind is needed.
func sqlxIn(query string, args ...any) (string, []any, error) {
	return sqlx.In(query, args...)
}
