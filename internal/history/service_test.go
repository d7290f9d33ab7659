package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/smilecoach/internal/smile"
)

type memRemote struct {
	mu      sync.Mutex
	byUser  map[string][]Record
	failing bool
}

func newMemRemote() *memRemote {
	return &memRemote{byUser: make(map[string][]Record)}
}

func (m *memRemote) SaveSession(_ context.Context, userID string, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userID == "" {
		return ErrUnauthenticated
	}
	if m.failing {
		return errors.New("connection refused")
	}
	m.byUser[userID] = append(m.byUser[userID], r)
	return nil
}

func (m *memRemote) ListSessions(_ context.Context, userID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.byUser[userID]...), nil
}

func (m *memRemote) UpdateMoodAfter(_ context.Context, userID, id string, mood Mood) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.byUser[userID] {
		if r.ID == id {
			m.byUser[userID][i].MoodAfter = mood
			return nil
		}
	}
	return ErrSessionNotFound
}

func (m *memRemote) DeleteSession(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept, ok := without(m.byUser[userID], id)
	if !ok {
		return ErrSessionNotFound
	}
	m.byUser[userID] = kept
	return nil
}

func (m *memRemote) ClearSessions(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUser, userID)
	return nil
}

type memLocal struct {
	records map[string][]Record
	pending map[string][]Record
}

func newMemLocal() *memLocal {
	return &memLocal{records: make(map[string][]Record), pending: make(map[string][]Record)}
}

func (m *memLocal) Records(_ context.Context, deviceID string) ([]Record, error) {
	return append([]Record(nil), m.records[deviceID]...), nil
}

func (m *memLocal) PutRecords(_ context.Context, deviceID string, records []Record) error {
	m.records[deviceID] = records
	return nil
}

func (m *memLocal) Pending(_ context.Context, userID string) ([]Record, error) {
	return append([]Record(nil), m.pending[userID]...), nil
}

func (m *memLocal) PutPending(_ context.Context, userID string, records []Record) error {
	if len(records) == 0 {
		delete(m.pending, userID)
		return nil
	}
	m.pending[userID] = records
	return nil
}

func (m *memLocal) PendingUsers(_ context.Context) ([]string, error) {
	var out []string
	for u := range m.pending {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func sampleRecord(at time.Time, score int) Record {
	return Record{
		ID:              NewID(),
		CreatedAt:       at,
		Context:         smile.ContextSocial,
		Purpose:         smile.PurposeRelationship,
		MaxScore:        score,
		MoodBefore:      MoodNeutral,
		DurationSeconds: 42,
		MetricsAtMax:    map[string]int{smile.MetricAffinity: 80, smile.MetricTrust: 100, smile.MetricEase: 95},
	}
}

func TestService_GuestRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRemote(), newMemLocal())
	guest := Identity{DeviceID: "device-1"}

	r := sampleRecord(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), 88)
	require.NoError(t, svc.Save(ctx, guest, r))

	got, err := svc.List(ctx, guest)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r, got[0])
}

func TestService_SignedInSavesRemotely(t *testing.T) {
	ctx := context.Background()
	remote := newMemRemote()
	local := newMemLocal()
	svc := NewService(remote, local)
	user := Identity{UserID: "u1"}

	require.NoError(t, svc.Save(ctx, user, sampleRecord(time.Now().UTC(), 70)))
	assert.Len(t, remote.byUser["u1"], 1)
	assert.Empty(t, local.pending["u1"])
}

func TestService_RemoteFailureQueuesPending(t *testing.T) {
	ctx := context.Background()
	remote := newMemRemote()
	remote.failing = true
	local := newMemLocal()
	svc := NewService(remote, local)
	user := Identity{UserID: "u1"}

	r := sampleRecord(time.Now().UTC(), 77)
	err := svc.Save(ctx, user, r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteSaveFailed))

	// Still visible to the user.
	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)

	// Mood lands on the pending copy.
	require.NoError(t, svc.UpdateMoodAfter(ctx, user, r.ID, MoodBetter))
	assert.Equal(t, MoodBetter, local.pending["u1"][0].MoodAfter)

	remote.failing = false
	n, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, local.pending["u1"])
	require.Len(t, remote.byUser["u1"], 1)
	assert.Equal(t, MoodBetter, remote.byUser["u1"][0].MoodAfter)
}

func TestService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, newMemLocal())
	guest := Identity{DeviceID: "d"}
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, score := range []int{50, 60, 70} {
		require.NoError(t, svc.Save(ctx, guest, sampleRecord(base.Add(time.Duration(i)*time.Hour), score)))
	}
	got, err := svc.List(ctx, guest)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{70, 60, 50}, []int{got[0].MaxScore, got[1].MaxScore, got[2].MaxScore})
}

func TestService_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRemote(), newMemLocal())
	guest := Identity{DeviceID: "d"}

	a := sampleRecord(time.Now().UTC(), 50)
	b := sampleRecord(time.Now().UTC(), 60)
	require.NoError(t, svc.Save(ctx, guest, a))
	require.NoError(t, svc.Save(ctx, guest, b))

	require.NoError(t, svc.Delete(ctx, guest, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, guest, a.ID), ErrSessionNotFound)

	list, err := svc.List(ctx, guest)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	require.NoError(t, svc.Clear(ctx, guest))
	list, err = svc.List(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_AnonymousRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRemote(), newMemLocal())

	assert.ErrorIs(t, svc.Save(ctx, Identity{}, sampleRecord(time.Now(), 10)), ErrUnauthenticated)
	_, err := svc.List(ctx, Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.SyncPending(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNewID_TimeOrdered(t *testing.T) {
	a := NewID()
	time.Sleep(2 * time.Millisecond)
	b := NewID()
	assert.Less(t, a, b)
}

func TestParseMood(t *testing.T) {
	m, err := ParseMoodBefore("Happy")
	require.NoError(t, err)
	assert.Equal(t, MoodHappy, m)

	_, err = ParseMoodBefore("better")
	assert.Error(t, err)

	m, err = ParseMoodAfter(" tired ")
	require.NoError(t, err)
	assert.Equal(t, MoodTired, m)
}
