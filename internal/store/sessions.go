package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

var _ history.RemoteStore = (*DB)(nil)

// SaveSession inserts or replaces a user's session record. Saving the same
// record twice is a no-op, so pending records can be retried safely.
func (db *DB) SaveSession(ctx context.Context, userID string, r history.Record) error {
	if userID == "" {
		return history.ErrUnauthenticated
	}
	metrics, err := marshalNullable(r.MetricsAtMax, len(r.MetricsAtMax) > 0)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	evidence, err := marshalNullable(r.Evidence, r.Evidence != nil)
	if err != nil {
		return fmt.Errorf("encoding evidence: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO practice_sessions
		(id, user_id, created_at, context, purpose, max_score, mood_before, mood_after,
		 duration_seconds, metrics_at_max, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			context = excluded.context,
			purpose = excluded.purpose,
			max_score = excluded.max_score,
			mood_before = excluded.mood_before,
			mood_after = excluded.mood_after,
			duration_seconds = excluded.duration_seconds,
			metrics_at_max = excluded.metrics_at_max,
			evidence = excluded.evidence
		WHERE practice_sessions.user_id = excluded.user_id`,
		r.ID, userID, r.CreatedAt.UTC().Format(timeLayout), string(r.Context), string(r.Purpose),
		r.MaxScore, string(r.MoodBefore), string(r.MoodAfter), r.DurationSeconds,
		metrics, evidence,
	)
	if err != nil {
		return err
	}
	// A conflicting id owned by another user updates nothing.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session id %s already in use", r.ID)
	}
	return nil
}

// ListSessions returns every session of the user, newest first.
func (db *DB) ListSessions(ctx context.Context, userID string) ([]history.Record, error) {
	if userID == "" {
		return nil, history.ErrUnauthenticated
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, created_at, context, purpose, max_score, mood_before, mood_after,
		 duration_seconds, metrics_at_max, evidence
		 FROM practice_sessions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []history.Record
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetSession returns one session, or nil if the user has no such session.
func (db *DB) GetSession(ctx context.Context, userID, id string) (*history.Record, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at, context, purpose, max_score, mood_before, mood_after,
		 duration_seconds, metrics_at_max, evidence
		 FROM practice_sessions WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	r, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateMoodAfter sets the post-session mood of one session.
func (db *DB) UpdateMoodAfter(ctx context.Context, userID, id string, mood history.Mood) error {
	if userID == "" {
		return history.ErrUnauthenticated
	}
	res, err := db.conn.ExecContext(ctx,
		"UPDATE practice_sessions SET mood_after = ? WHERE user_id = ? AND id = ?",
		string(mood), userID, id,
	)
	return expectOne(res, err)
}

// DeleteSession removes one session.
func (db *DB) DeleteSession(ctx context.Context, userID, id string) error {
	if userID == "" {
		return history.ErrUnauthenticated
	}
	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM practice_sessions WHERE user_id = ? AND id = ?",
		userID, id,
	)
	return expectOne(res, err)
}

// ClearSessions removes every session of the user.
func (db *DB) ClearSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return history.ErrUnauthenticated
	}
	_, err := db.conn.ExecContext(ctx, "DELETE FROM practice_sessions WHERE user_id = ?", userID)
	return err
}

// CountSessions returns the total number of stored sessions across users.
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM practice_sessions").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (history.Record, error) {
	var r history.Record
	var createdAt, ctxName string
	var purpose, moodBefore, moodAfter, metrics, evidence sql.NullString
	if err := s.Scan(&r.ID, &createdAt, &ctxName, &purpose, &r.MaxScore, &moodBefore,
		&moodAfter, &r.DurationSeconds, &metrics, &evidence); err != nil {
		return r, err
	}
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.Context = smile.Context(ctxName)
	r.Purpose = smile.Purpose(purpose.String)
	r.MoodBefore = history.Mood(moodBefore.String)
	r.MoodAfter = history.Mood(moodAfter.String)
	if metrics.Valid {
		if err := json.Unmarshal([]byte(metrics.String), &r.MetricsAtMax); err != nil {
			return r, fmt.Errorf("decoding metrics of %s: %w", r.ID, err)
		}
	}
	if evidence.Valid {
		r.Evidence = new(history.Evidence)
		if err := json.Unmarshal([]byte(evidence.String), r.Evidence); err != nil {
			return r, fmt.Errorf("decoding evidence of %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func marshalNullable(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return history.ErrSessionNotFound
	}
	return nil
}
