package practice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/inference"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

var (
	// ErrGuestQuotaExhausted is returned by Start when a guest has used every
	// free session. The session is back in Idle and no device was opened.
	ErrGuestQuotaExhausted = errors.New("guest session quota exhausted")
	// ErrDeviceUnavailable is returned by Start when the camera or the model
	// cannot be acquired. The session stays in Selecting so the caller can
	// retry.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrIncompleteSelection is returned by Start before a purpose and a mood
	// were chosen.
	ErrIncompleteSelection = errors.New("purpose and mood must be selected before starting")
	// ErrSourceExhausted is returned by Poll when the camera has no more
	// frames, as with a finished replay.
	ErrSourceExhausted = errors.New("frame source exhausted")
)

// Camera is the capture device. Close must be safe to call more than once.
type Camera interface {
	Open(ctx context.Context) error
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// GuestQuota counts the sessions a guest has completed.
type GuestQuota interface {
	Remaining(ctx context.Context) (int, error)
	Increment(ctx context.Context) error
}

// Recorder persists finalized records. *history.Service satisfies it.
type Recorder interface {
	Save(ctx context.Context, id history.Identity, r history.Record) error
	UpdateMoodAfter(ctx context.Context, id history.Identity, recordID string, mood history.Mood) error
}

// Config tunes a session.
type Config struct {
	NaturalnessGate float64
	// CaptureMinScore is the score a new best must exceed to be captured.
	// Zero captures every new best.
	CaptureMinScore int
	TickInterval    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Deps are the collaborators of a session. Camera may be nil when samples
// are pushed by the caller instead of polled. Quota is consulted only for
// guest identities.
type Deps struct {
	Evaluator *smile.Evaluator
	Camera    Camera
	Detector  inference.Detector
	Recorder  Recorder
	Quota     GuestQuota
	Identity  history.Identity
}

// View is a read-only snapshot of a session for rendering.
type View struct {
	State            State              `json:"state"`
	Purpose          smile.Purpose      `json:"purpose,omitempty"`
	Context          smile.Context      `json:"context,omitempty"`
	Labels           smile.MetricLabels `json:"labels"`
	MoodBefore       history.Mood       `json:"mood_before,omitempty"`
	Score            int                `json:"score"`
	MaxScore         int                `json:"max_score"`
	IndividualScores map[string]int     `json:"individual_scores,omitempty"`
	Snippets         []smile.Snippet    `json:"snippets,omitempty"`
	Reposition       bool               `json:"reposition"`
	UpgradeRequired  bool               `json:"upgrade_required"`
	ElapsedSeconds   int                `json:"elapsed_seconds"`
	Record           *history.Record    `json:"record,omitempty"`
}

// Session is the controller for one practice session. All methods are safe
// for concurrent use; ticks that complete after the session has left
// Detecting are discarded.
type Session struct {
	cfg  Config
	deps Deps

	mu         sync.Mutex
	state      State
	purpose    smile.Purpose
	context    smile.Context
	moodBefore history.Mood
	upgrade    bool

	startedAt  time.Time
	generation uint64
	detectCtx  context.Context
	stopDetect context.CancelFunc
	cameraOpen bool

	policy     *RecordPolicy
	last       *smile.Quality
	snippets   []smile.Snippet
	reposition bool
	record     *history.Record
}

// NewSession creates a session in Idle.
func NewSession(cfg Config, deps Deps) *Session {
	if cfg.NaturalnessGate == 0 {
		cfg.NaturalnessGate = DefaultNaturalnessGate
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 500 * time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Evaluator == nil {
		deps.Evaluator = smile.NewEvaluator(smile.DefaultWeights())
	}
	return &Session{
		cfg:    cfg,
		deps:   deps,
		state:  Idle,
		policy: NewRecordPolicy(cfg.NaturalnessGate, cfg.CaptureMinScore),
	}
}

// apply moves the state machine; callers hold mu.
func (s *Session) apply(e Event) error {
	next, err := Transition(s.state, e)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// SelectPurpose chooses what to practice for and derives the context.
func (s *Session) SelectPurpose(p smile.Purpose) error {
	ctx, ok := smile.ContextFor(p)
	if !ok {
		return fmt.Errorf("unknown purpose %q", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(EventSelectPurpose); err != nil {
		return err
	}
	s.purpose = p
	s.context = ctx
	s.upgrade = false
	return nil
}

// SelectMood records the pre-session mood.
func (s *Session) SelectMood(m history.Mood) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(EventSelectMood); err != nil {
		return err
	}
	s.moodBefore = m
	return nil
}

// ConfirmContext confirms, or overrides, the context derived from the
// purpose.
func (s *Session) ConfirmContext(c smile.Context) error {
	if !c.Valid() {
		return fmt.Errorf("unknown practice context %q", c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(EventConfirmContext); err != nil {
		return err
	}
	s.context = c
	return nil
}

// Start enters Detecting. It checks the guest quota, then acquires the model
// and the camera. On quota exhaustion the session returns to Idle with the
// upgrade flag set; on device failure it stays in Selecting.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := Transition(s.state, EventStartDetection); err != nil {
		return err
	}
	if s.purpose == "" || s.moodBefore == "" {
		return ErrIncompleteSelection
	}

	if s.deps.Identity.Guest() && s.deps.Quota != nil {
		left, err := s.deps.Quota.Remaining(ctx)
		if err != nil {
			return fmt.Errorf("reading guest quota: %w", err)
		}
		if left <= 0 {
			s.upgrade = true
			_ = s.apply(EventQuotaExhausted)
			return ErrGuestQuotaExhausted
		}
	}

	if s.deps.Detector != nil {
		if err := s.deps.Detector.Ready(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	}
	if s.deps.Camera != nil {
		if err := s.deps.Camera.Open(ctx); err != nil {
			_ = s.deps.Camera.Close()
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		s.cameraOpen = true
	}

	_ = s.apply(EventStartDetection)
	s.startedAt = s.cfg.Now()
	s.generation++
	s.detectCtx, s.stopDetect = context.WithCancel(context.Background())
	s.policy.Reset()
	s.last = nil
	s.snippets = nil
	s.reposition = false
	s.record = nil
	return nil
}

// endDetection stops polling and releases the camera; callers hold mu.
// Calling it twice is safe.
func (s *Session) endDetection() {
	s.generation++
	if s.stopDetect != nil {
		s.stopDetect()
		s.stopDetect = nil
	}
	s.releaseCamera()
}

func (s *Session) releaseCamera() {
	if !s.cameraOpen || s.deps.Camera == nil {
		return
	}
	s.cameraOpen = false
	if err := s.deps.Camera.Close(); err != nil {
		log.Printf("practice: releasing camera: %v", err)
	}
}

// Release frees the capture device without changing state. It is safe to
// call at teardown and more than once.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endDetection()
}

// Ticket identifies the detection run a tick belongs to.
type Ticket uint64

// Ticket returns the current detection run, and false outside Detecting.
func (s *Session) Ticket() (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket(s.generation), s.state == Detecting
}

// Apply feeds one detection result produced under ticket t. It reports
// whether the result was accepted; stale results are dropped.
func (s *Session) Apply(t Ticket, det *inference.Detection, frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Detecting || uint64(t) != s.generation {
		return false
	}
	if det == nil {
		s.reposition = true
		return true
	}
	s.reposition = false

	q := s.deps.Evaluator.Evaluate(det.Sample, s.context)
	snippets := smile.Snippets(det.Sample, q)
	s.last = &q
	s.snippets = snippets
	s.policy.Observe(q, snippets, frame, s.cfg.Now())
	return true
}

// Push feeds a result for the current run. It is the entry point for
// callers that produce samples themselves.
func (s *Session) Push(det *inference.Detection, frame []byte) bool {
	t, ok := s.Ticket()
	if !ok {
		return false
	}
	return s.Apply(t, det, frame)
}

// Tick grabs one frame, runs the detector and applies the result.
func (s *Session) Tick(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Detecting {
		s.mu.Unlock()
		return nil
	}
	t := Ticket(s.generation)
	detectCtx := s.detectCtx
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(detectCtx, cancel)
	defer stop()

	var frame []byte
	if s.deps.Camera != nil {
		f, err := s.deps.Camera.Frame(ctx)
		if errors.Is(err, io.EOF) {
			return ErrSourceExhausted
		}
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}
		frame = f
	}
	if s.deps.Detector == nil {
		return errors.New("no detector configured")
	}
	det, err := s.deps.Detector.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("detecting: %w", err)
	}
	s.Apply(t, det, frame)
	return nil
}

// Poll runs the detection loop at the configured interval until the
// session leaves Detecting or ctx is cancelled. A failed tick is logged and
// skipped. It returns ErrSourceExhausted when the camera runs out of frames.
func (s *Session) Poll(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Detecting {
		s.mu.Unlock()
		return fmt.Errorf("%w: poll in %s", ErrInvalidTransition, s.state)
	}
	done := s.detectCtx.Done()
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-ticker.C:
			err := s.Tick(ctx)
			if errors.Is(err, ErrSourceExhausted) {
				return err
			}
			if err != nil {
				log.Printf("practice: tick skipped: %v", err)
			}
		}
	}
}

// Stop ends detection and moves to Reviewing. When a tick cleared the gate
// a record is assembled and saved; a save error is returned alongside the
// record but does not undo the transition. Without a qualifying tick the
// session is discarded and the record is nil.
func (s *Session) Stop(ctx context.Context) (*history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(EventStopDetection); err != nil {
		return nil, err
	}
	s.endDetection()

	if s.policy.Max() == 0 {
		return nil, nil
	}

	now := s.cfg.Now()
	rec := &history.Record{
		ID:              history.NewID(),
		CreatedAt:       now.UTC(),
		Context:         s.context,
		Purpose:         s.purpose,
		MaxScore:        s.policy.Max(),
		MoodBefore:      s.moodBefore,
		DurationSeconds: max(0, int(now.Sub(s.startedAt)/time.Second)),
		MetricsAtMax:    s.policy.MetricsAtMax(),
	}
	if best := s.policy.Best(); best != nil {
		rec.Evidence = &history.Evidence{
			Image:    best.Image,
			Quality:  best.Quality,
			Snippets: best.Snippets,
		}
	}
	s.record = rec

	var saveErr error
	if s.deps.Recorder != nil {
		saveErr = s.deps.Recorder.Save(ctx, s.deps.Identity, *rec)
		if saveErr != nil {
			log.Printf("practice: saving session %s: %v", rec.ID, saveErr)
		}
	}
	if s.deps.Identity.Guest() && s.deps.Quota != nil {
		if err := s.deps.Quota.Increment(ctx); err != nil {
			log.Printf("practice: incrementing guest quota: %v", err)
		}
	}
	out := *rec
	return &out, saveErr
}

// RecordPostMood attaches the post-session mood and finalizes the session.
func (s *Session) RecordPostMood(ctx context.Context, m history.Mood) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(EventRecordPostMood); err != nil {
		return err
	}
	if s.record == nil {
		return nil
	}
	s.record.MoodAfter = m
	if s.deps.Recorder == nil {
		return nil
	}
	return s.deps.Recorder.UpdateMoodAfter(ctx, s.deps.Identity, s.record.ID, m)
}

// Reset returns to Idle from any state and releases the camera.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.apply(EventReset)
	s.endDetection()
	s.purpose = ""
	s.context = ""
	s.moodBefore = ""
	s.policy.Reset()
	s.last = nil
	s.snippets = nil
	s.reposition = false
	s.record = nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Captures returns how many times the best capture was replaced in the
// current run.
func (s *Session) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Captures()
}

// View returns a snapshot for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:           s.state,
		Purpose:         s.purpose,
		Context:         s.context,
		MoodBefore:      s.moodBefore,
		MaxScore:        s.policy.Max(),
		Snippets:        s.snippets,
		Reposition:      s.reposition,
		UpgradeRequired: s.upgrade,
	}
	if s.context != "" {
		v.Labels = smile.LabelsFor(s.context)
	}
	if s.last != nil {
		v.Score = s.last.Score()
		v.IndividualScores = s.last.IndividualScores
	}
	if s.state == Detecting {
		v.ElapsedSeconds = int(s.cfg.Now().Sub(s.startedAt) / time.Second)
	}
	if s.record != nil {
		r := *s.record
		v.Record = &r
	}
	return v
}
