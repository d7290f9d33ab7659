package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

// KVGet returns the value stored under key. ok is false when the key is
// absent.
func (db *DB) KVGet(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = db.conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// KVSet stores value under key, replacing any previous value.
func (db *DB) KVSet(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(timeLayout),
	)
	return err
}

// KVDelete removes key. Deleting an absent key is not an error.
func (db *DB) KVDelete(ctx context.Context, key string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

// KVIncr atomically increments the integer stored under key, starting from
// zero, and returns the new value.
func (db *DB) KVIncr(ctx context.Context, key string) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int64
	var raw []byte
	err = tx.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return 0, err
	default:
		n, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	n++

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, []byte(strconv.FormatInt(n, 10)), time.Now().UTC().Format(timeLayout),
	); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// KVKeys returns every key starting with prefix, in key order.
func (db *DB) KVKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key",
		len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
