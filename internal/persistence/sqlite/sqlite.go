// Package sqlite implements the persistence repositories on SQLite using the
// pure-Go modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Storage provides SQLite-backed implementations of the persistence
// repositories. A single Storage value satisfies both SettingsRepository and
// TemplateRepository.
type Storage struct {
	db *sql.DB
}

// Open establishes the SQLite connection. Foreign keys are enabled so that a
// settings delete cascades to its reminder rows.
func Open(dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}

	// The modernc driver serialises access per connection; a single
	// connection avoids SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrations is the ordered schema history. Each entry runs at most once,
// tracked in schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS reminder_settings (
		user_id             TEXT PRIMARY KEY,
		enabled             INTEGER NOT NULL,
		notification_method TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES reminder_settings(user_id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		fire_time    TEXT NOT NULL,
		days         TEXT NOT NULL,
		enabled      INTEGER NOT NULL,
		message      TEXT NOT NULL,
		rule_pattern TEXT,
		rule_payload TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_user_position ON reminders (user_id, position)`,
	`CREATE TABLE IF NOT EXISTS reminder_templates (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		author      TEXT NOT NULL,
		public      INTEGER NOT NULL DEFAULT 0,
		likes       INTEGER NOT NULL DEFAULT 0,
		downloads   INTEGER NOT NULL DEFAULT 0,
		items       TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_author ON reminder_templates (author)`,
}

// Migrate applies any schema migrations that have not run yet.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	for version := current; version < len(migrations); version++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite: begin migration %d: %w", version+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: apply migration %d: %w", version+1, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: record migration %d: %w", version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlite: commit migration %d: %w", version+1, err)
		}
	}

	return nil
}
