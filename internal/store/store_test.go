package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newUser(t *testing.T, db *DB, email string) *User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), email, "hash")
	require.NoError(t, err)
	return u
}

func sampleRecord(at time.Time, score int) history.Record {
	return history.Record{
		ID:              history.NewID(),
		CreatedAt:       at,
		Context:         smile.ContextSocial,
		Purpose:         smile.PurposeRelationship,
		MaxScore:        score,
		MoodBefore:      history.MoodNeutral,
		DurationSeconds: 42,
		MetricsAtMax:    map[string]int{smile.MetricAffinity: 80, smile.MetricTrust: 100, smile.MetricEase: 95},
		Evidence: &history.Evidence{
			Image: []byte{0xff, 0xd8, 0x01},
			Quality: smile.Quality{
				OverallScore:     0.92,
				Naturalness:      0.7,
				IndividualScores: map[string]int{smile.MetricAffinity: 80},
				Context:          smile.ContextSocial,
			},
			Snippets: []smile.Snippet{{Key: smile.SnippetPraisePerfect}},
		},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "smilecoach.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
	assert.NoError(t, db.Ping(context.Background()))

	var mode string
	require.NoError(t, db.Conn().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrate_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smilecoach.db")
	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Conn().Exec("UPDATE schema_version SET version = ?", currentSchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than this build")
}

func TestSessions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	u := newUser(t, db, "ana@example.com")

	rec := sampleRecord(time.Date(2026, 5, 1, 9, 30, 0, 123456789, time.UTC), 92)
	require.NoError(t, db.SaveSession(ctx, u.ID, rec))

	got, err := db.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])

	one, err := db.GetSession(ctx, u.ID, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, rec.MaxScore, one.MaxScore)

	missing, err := db.GetSession(ctx, u.ID, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessions_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	u := newUser(t, db, "ana@example.com")

	rec := sampleRecord(time.Now().UTC(), 70)
	require.NoError(t, db.SaveSession(ctx, u.ID, rec))
	require.NoError(t, db.SaveSession(ctx, u.ID, rec))

	n, err := db.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSessions_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	ana := newUser(t, db, "ana@example.com")
	ben := newUser(t, db, "ben@example.com")

	rec := sampleRecord(time.Now().UTC(), 70)
	require.NoError(t, db.SaveSession(ctx, ana.ID, rec))

	// Another user can neither overwrite, read, update nor delete it.
	assert.Error(t, db.SaveSession(ctx, ben.ID, rec))
	list, err := db.ListSessions(ctx, ben.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, db.UpdateMoodAfter(ctx, ben.ID, rec.ID, history.MoodBetter), history.ErrSessionNotFound)
	assert.ErrorIs(t, db.DeleteSession(ctx, ben.ID, rec.ID), history.ErrSessionNotFound)

	assert.ErrorIs(t, db.SaveSession(ctx, "", rec), history.ErrUnauthenticated)
	_, err = db.ListSessions(ctx, "")
	assert.ErrorIs(t, err, history.ErrUnauthenticated)
}

func TestSessions_NewestFirstAndMutations(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	u := newUser(t, db, "ana@example.com")

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	older := sampleRecord(base, 60)
	newer := sampleRecord(base.Add(500*time.Millisecond), 80)
	require.NoError(t, db.SaveSession(ctx, u.ID, older))
	require.NoError(t, db.SaveSession(ctx, u.ID, newer))

	list, err := db.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	require.NoError(t, db.UpdateMoodAfter(ctx, u.ID, older.ID, history.MoodBetter))
	got, err := db.GetSession(ctx, u.ID, older.ID)
	require.NoError(t, err)
	assert.Equal(t, history.MoodBetter, got.MoodAfter)

	require.NoError(t, db.DeleteSession(ctx, u.ID, newer.ID))
	assert.ErrorIs(t, db.DeleteSession(ctx, u.ID, newer.ID), history.ErrSessionNotFound)

	require.NoError(t, db.ClearSessions(ctx, u.ID))
	list, err = db.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	u := newUser(t, db, "  Ana@Example.com ")
	assert.Equal(t, "ana@example.com", u.Email)

	_, err := db.CreateUser(ctx, "ANA@example.com", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := db.GetUserByEmail(ctx, "ana@EXAMPLE.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	byID, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	none, err := db.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	_, ok, err := db.KVGet(ctx, "device:a:records")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.KVSet(ctx, "device:a:records", []byte("one")))
	require.NoError(t, db.KVSet(ctx, "device:a:records", []byte("two")))
	v, ok, err := db.KVGet(ctx, "device:a:records")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", string(v))

	for want := int64(1); want <= 3; want++ {
		n, err := db.KVIncr(ctx, "device:a:usage")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	require.NoError(t, db.KVSet(ctx, "device:b:records", []byte("x")))
	require.NoError(t, db.KVSet(ctx, "pending:u1", []byte("y")))
	keys, err := db.KVKeys(ctx, "device:")
	require.NoError(t, err)
	assert.Equal(t, []string{"device:a:records", "device:a:usage", "device:b:records"}, keys)

	require.NoError(t, db.KVDelete(ctx, "device:a:records"))
	require.NoError(t, db.KVDelete(ctx, "device:a:records"))
	_, ok, err = db.KVGet(ctx, "device:a:records")
	require.NoError(t, err)
	assert.False(t, ok)
}
