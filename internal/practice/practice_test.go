package practice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/inference"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from  State
		event Event
		want  State
		ok    bool
	}{
		{Idle, EventSelectPurpose, Selecting, true},
		{Idle, EventStartDetection, Idle, false},
		{Selecting, EventSelectMood, Selecting, true},
		{Selecting, EventConfirmContext, Selecting, true},
		{Selecting, EventStartDetection, Detecting, true},
		{Selecting, EventQuotaExhausted, Idle, true},
		{Selecting, EventStopDetection, Selecting, false},
		{Detecting, EventStopDetection, Reviewing, true},
		{Detecting, EventSelectPurpose, Detecting, false},
		{Reviewing, EventRecordPostMood, Finalized, true},
		{Reviewing, EventStartDetection, Reviewing, false},
		{Finalized, EventRecordPostMood, Finalized, false},
		{Detecting, EventReset, Idle, true},
		{Finalized, EventReset, Idle, true},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			assert.Equal(t, tt.want, got)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestRecordPolicy_SingleCaptureAtPeak(t *testing.T) {
	p := NewRecordPolicy(DefaultNaturalnessGate, DefaultCaptureMinScore)
	var raisedAt, capturedAt []int
	for _, score := range []float64{0.40, 0.55, 0.70, 0.60} {
		q := smile.Quality{OverallScore: score, Naturalness: 0.7}
		raised, captured := p.Observe(q, nil, nil, time.Time{})
		if raised {
			raisedAt = append(raisedAt, q.Score())
		}
		if captured {
			capturedAt = append(capturedAt, q.Score())
		}
	}
	assert.Equal(t, 70, p.Max())
	assert.Equal(t, []int{40, 55, 70}, raisedAt)
	assert.Equal(t, []int{70}, capturedAt)
	assert.Equal(t, 1, p.Captures())
	require.NotNil(t, p.Best())
	assert.Equal(t, 70, p.Best().Score)
}

func TestRecordPolicy_CaptureOverwrites(t *testing.T) {
	p := NewRecordPolicy(DefaultNaturalnessGate, 0)
	for _, score := range []float64{0.65, 0.8, 0.75, 0.9} {
		p.Observe(smile.Quality{OverallScore: score, Naturalness: 0.9}, nil, []byte{byte(score * 100)}, time.Time{})
	}
	assert.Equal(t, 3, p.Captures())
	assert.Equal(t, 90, p.Best().Score)
	assert.Equal(t, []byte{90}, p.Best().Image)
}

func TestRecordPolicy_NaturalnessGate(t *testing.T) {
	p := NewRecordPolicy(DefaultNaturalnessGate, DefaultCaptureMinScore)
	for _, score := range []float64{0.9, 0.95, 1.0} {
		raised, captured := p.Observe(smile.Quality{OverallScore: score, Naturalness: 0.55}, nil, nil, time.Time{})
		assert.False(t, raised)
		assert.False(t, captured)
	}
	assert.Equal(t, 0, p.Max())
	assert.Nil(t, p.Best())
}

// fakeClock advances one second per call.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fakeCamera struct {
	mu      sync.Mutex
	openErr error
	opens   int
	closes  int
}

func (c *fakeCamera) Open(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	return c.openErr
}

func (c *fakeCamera) Frame(context.Context) ([]byte, error) {
	return []byte("frame"), nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

type queueDetector struct {
	mu      sync.Mutex
	samples []*inference.Detection
	err     error
}

func (d *queueDetector) Ready(context.Context) error { return nil }

func (d *queueDetector) Detect(context.Context, []byte) (*inference.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if len(d.samples) == 0 {
		return nil, nil
	}
	next := d.samples[0]
	d.samples = d.samples[1:]
	return next, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	saved   []history.Record
	moods   map[string]history.Mood
	saveErr error
}

func (r *fakeRecorder) Save(_ context.Context, _ history.Identity, rec history.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, rec)
	return r.saveErr
}

func (r *fakeRecorder) UpdateMoodAfter(_ context.Context, _ history.Identity, id string, m history.Mood) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.moods == nil {
		r.moods = make(map[string]history.Mood)
	}
	r.moods[id] = m
	return nil
}

type fakeQuota struct {
	remaining int
	used      int
}

func (q *fakeQuota) Remaining(context.Context) (int, error) { return q.remaining - q.used, nil }
func (q *fakeQuota) Increment(context.Context) error        { q.used++; return nil }

func det(s smile.Sample) *inference.Detection {
	return &inference.Detection{Sample: s}
}

func newTestSession(deps Deps) (*Session, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)}
	return NewSession(Config{Now: clock.Now}, deps), clock
}

func selectAndStart(t *testing.T, s *Session, purpose smile.Purpose) {
	t.Helper()
	require.NoError(t, s.SelectPurpose(purpose))
	require.NoError(t, s.SelectMood(history.MoodNeutral))
	require.NoError(t, s.Start(context.Background()))
}

func TestSession_SocialScenario(t *testing.T) {
	ctx := context.Background()
	cam := &fakeCamera{}
	detector := &queueDetector{samples: []*inference.Detection{
		det(smile.Sample{Happy: 0.2, Neutral: 0.5}),
		det(smile.Sample{Happy: 0.6, Neutral: 0.3}),
		det(smile.Sample{Happy: 0.8, Neutral: 0.1}),
	}}
	rec := &fakeRecorder{}
	user := history.Identity{UserID: "u1"}
	s, _ := newTestSession(Deps{Camera: cam, Detector: detector, Recorder: rec, Identity: user})

	require.NoError(t, s.SelectPurpose(smile.PurposeRelationship))
	assert.Equal(t, smile.ContextSocial, s.View().Context)
	require.NoError(t, s.SelectMood(history.MoodNeutral))
	require.NoError(t, s.Start(ctx))
	assert.Equal(t, Detecting, s.State())

	var scores []int
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Tick(ctx))
		scores = append(scores, s.View().Score)
	}
	assert.Equal(t, []int{81, 89, 92}, scores)

	record, err := s.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, Reviewing, s.State())
	assert.Equal(t, 92, record.MaxScore)
	assert.Equal(t, smile.ContextSocial, record.Context)
	assert.Equal(t, smile.PurposeRelationship, record.Purpose)
	assert.Equal(t, history.MoodNeutral, record.MoodBefore)
	assert.Equal(t, map[string]int{smile.MetricAffinity: 80, smile.MetricTrust: 100, smile.MetricEase: 95}, record.MetricsAtMax)
	assert.Greater(t, record.DurationSeconds, 0)
	require.NotNil(t, record.Evidence)
	assert.Equal(t, []byte("frame"), record.Evidence.Image)
	assert.Equal(t, 1, cam.closes, "camera released on stop")

	require.Len(t, rec.saved, 1)
	assert.Equal(t, record.ID, rec.saved[0].ID)

	require.NoError(t, s.RecordPostMood(ctx, history.MoodBetter))
	assert.Equal(t, Finalized, s.State())
	assert.Equal(t, history.MoodBetter, rec.moods[record.ID])
	assert.Equal(t, history.MoodBetter, s.View().Record.MoodAfter)
}

func TestSession_NoQualifyingTickLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	s, _ := newTestSession(Deps{Recorder: rec, Identity: history.Identity{UserID: "u1"}})
	selectAndStart(t, s, smile.PurposeConfidence)

	// Full happiness with full anger: high score, naturalness stuck at 0.5.
	for i := 0; i < 5; i++ {
		require.True(t, s.Push(det(smile.Sample{Happy: 1, Angry: 1}), nil))
		assert.Greater(t, s.View().Score, 70)
	}

	record, err := s.Stop(ctx)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, rec.saved)
	assert.Equal(t, Reviewing, s.State())
}

func TestSession_GuestQuotaExhausted(t *testing.T) {
	cam := &fakeCamera{}
	s, _ := newTestSession(Deps{
		Camera:   cam,
		Detector: &queueDetector{},
		Quota:    &fakeQuota{remaining: 0},
		Identity: history.Identity{DeviceID: "d1"},
	})
	require.NoError(t, s.SelectPurpose(smile.PurposeHappiness))
	require.NoError(t, s.SelectMood(history.MoodHappy))

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrGuestQuotaExhausted)
	assert.Equal(t, Idle, s.State())
	assert.True(t, s.View().UpgradeRequired)
	assert.Equal(t, 0, cam.opens, "camera must not start")
}

func TestSession_GuestQuotaCountsRecords(t *testing.T) {
	ctx := context.Background()
	quota := &fakeQuota{remaining: 10}
	s, _ := newTestSession(Deps{Quota: quota, Recorder: &fakeRecorder{}, Identity: history.Identity{DeviceID: "d1"}})
	selectAndStart(t, s, smile.PurposeConfidence)
	require.True(t, s.Push(det(smile.Sample{Happy: 0.8, Neutral: 0.1}), nil))
	record, err := s.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 1, quota.used)
}

func TestSession_StaleTickDiscarded(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(Deps{Recorder: &fakeRecorder{}})
	selectAndStart(t, s, smile.PurposeConfidence)

	ticket, ok := s.Ticket()
	require.True(t, ok)
	_, err := s.Stop(ctx)
	require.NoError(t, err)

	assert.False(t, s.Apply(ticket, det(smile.Sample{Happy: 0.9}), nil))
	assert.Equal(t, 0, s.View().MaxScore)
}

func TestSession_StaleTicketFromPreviousRun(t *testing.T) {
	s, _ := newTestSession(Deps{})
	selectAndStart(t, s, smile.PurposeConfidence)
	old, _ := s.Ticket()

	s.Reset()
	selectAndStart(t, s, smile.PurposeConfidence)

	assert.False(t, s.Apply(old, det(smile.Sample{Happy: 0.9}), nil))
	assert.True(t, s.Push(det(smile.Sample{Happy: 0.9}), nil))
}

func TestSession_ResetReleasesCameraOnce(t *testing.T) {
	cam := &fakeCamera{}
	s, _ := newTestSession(Deps{Camera: cam, Detector: &queueDetector{}})
	selectAndStart(t, s, smile.PurposeConfidence)

	s.Reset()
	s.Release()
	s.Reset()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, cam.opens)
	assert.Equal(t, 1, cam.closes)
}

func TestSession_DeviceUnavailable(t *testing.T) {
	cam := &fakeCamera{openErr: errors.New("permission denied")}
	s, _ := newTestSession(Deps{Camera: cam, Detector: &queueDetector{}})
	require.NoError(t, s.SelectPurpose(smile.PurposeConfidence))
	require.NoError(t, s.SelectMood(history.MoodSad))

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, Selecting, s.State())

	cam.openErr = nil
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, Detecting, s.State())
}

func TestSession_StartNeedsSelection(t *testing.T) {
	s, _ := newTestSession(Deps{})
	require.NoError(t, s.SelectPurpose(smile.PurposeConfidence))
	assert.ErrorIs(t, s.Start(context.Background()), ErrIncompleteSelection)
	assert.Equal(t, Selecting, s.State())
}

func TestSession_SaveFailureStillAdvances(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{saveErr: history.ErrRemoteSaveFailed}
	s, _ := newTestSession(Deps{Recorder: rec, Identity: history.Identity{UserID: "u1"}})
	selectAndStart(t, s, smile.PurposeConfidence)
	s.Push(det(smile.Sample{Happy: 0.8, Neutral: 0.1}), nil)

	record, err := s.Stop(ctx)
	assert.ErrorIs(t, err, history.ErrRemoteSaveFailed)
	require.NotNil(t, record)
	assert.Equal(t, Reviewing, s.State())
	require.NotNil(t, s.View().Record)
}

func TestSession_NoFaceAsksToReposition(t *testing.T) {
	s, _ := newTestSession(Deps{})
	selectAndStart(t, s, smile.PurposeConfidence)

	require.True(t, s.Push(nil, nil))
	assert.True(t, s.View().Reposition)
	require.True(t, s.Push(det(smile.Sample{Happy: 0.5}), nil))
	assert.False(t, s.View().Reposition)
}

func TestSession_InferenceErrorIsSkipped(t *testing.T) {
	s, _ := newTestSession(Deps{Detector: &queueDetector{err: errors.New("timeout")}})
	selectAndStart(t, s, smile.PurposeConfidence)
	err := s.Tick(context.Background())
	require.Error(t, err)
	assert.Equal(t, Detecting, s.State())
}

func TestSession_PollReplayUntilExhausted(t *testing.T) {
	src, err := inference.LoadReplay(strings.NewReader(
		`{"happy":0.2,"neutral":0.5}` + "\n" +
			`{"happy":0.6,"neutral":0.3}` + "\n" +
			`{"happy":0.8,"neutral":0.1}` + "\n"))
	require.NoError(t, err)

	s := NewSession(Config{TickInterval: time.Millisecond}, Deps{Camera: src, Detector: src})
	selectAndStart(t, s, smile.PurposeRelationship)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = s.Poll(ctx)
	assert.ErrorIs(t, err, ErrSourceExhausted)
	assert.Equal(t, 92, s.View().MaxScore)
}

func TestSession_PollStopsWhenDetectionEnds(t *testing.T) {
	s := NewSession(Config{TickInterval: time.Millisecond}, Deps{Detector: &queueDetector{}})
	selectAndStart(t, s, smile.PurposeConfidence)

	done := make(chan error, 1)
	go func() { done <- s.Poll(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	s.Reset()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not stop after reset")
	}
}
