package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the smilecoach SQLite database.
type DB struct {
	conn *sql.DB
}

// filePragmas apply to on-disk databases. busy_timeout makes a second
// process wait for the writer instead of failing with SQLITE_BUSY.
var filePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// Open opens or creates the SQLite database at the given path, creating
// the parent directory if needed, and runs pending migrations.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := open(dbPath, 0, filePragmas)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	return db, nil
}

// OpenInMemory opens a migrated in-memory database, useful for testing.
func OpenInMemory() (*DB, error) {
	// Every pooled connection to :memory: would see its own empty database.
	return open(":memory:", 1, []string{"PRAGMA foreign_keys=ON"})
}

func open(dsn string, maxConns int, pragmas []string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		conn.SetMaxOpenConns(maxConns)
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks that the database answers queries.
func (db *DB) Ping(ctx context.Context) error {
	var one int
	return db.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB for advanced queries.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
