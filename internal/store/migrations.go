package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// migration brings the schema to version by running its statements in one
// transaction.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{1, []string{
		// Accounts and their practice sessions.
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS practice_sessions (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at       TEXT NOT NULL,
			context          TEXT NOT NULL,
			purpose          TEXT,
			max_score        INTEGER NOT NULL,
			mood_before      TEXT,
			mood_after       TEXT,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			metrics_at_max   TEXT,
			evidence         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_created ON practice_sessions(user_id, created_at)`,
	}},
	{2, []string{
		// Per-device local storage.
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}},
}

// currentSchemaVersion is the version Migrate leaves the database at.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Migrate applies every migration newer than the recorded schema version.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}
	have, err := db.schemaVersion()
	if err != nil {
		return err
	}
	if have > currentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than this build (v%d)", have, currentSchemaVersion)
	}
	for _, m := range migrations {
		if m.version <= have {
			continue
		}
		if err := db.apply(m); err != nil {
			return fmt.Errorf("migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// schemaVersion is 0 for a fresh database.
func (db *DB) schemaVersion() (int, error) {
	var v int
	err := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (db *DB) apply(m migration) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		return err
	}
	return tx.Commit()
}
