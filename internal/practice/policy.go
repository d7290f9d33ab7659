package practice

import (
	"time"

	"github.com/blackwell-systems/smilecoach/internal/smile"
)

const (
	// DefaultNaturalnessGate is the naturalness a tick must exceed before its
	// score can become the session best.
	DefaultNaturalnessGate = 0.6
	// DefaultCaptureMinScore is the score a new best must exceed before
	// evidence is captured for it.
	DefaultCaptureMinScore = 60
)

// Capture is the evidence retained for the session best.
type Capture struct {
	Score    int
	Quality  smile.Quality
	Snippets []smile.Snippet
	Image    []byte
	At       time.Time
}

// RecordPolicy tracks the running maximum of one session and keeps a single
// capture for it. It is owned by one session and is not safe for concurrent
// use on its own.
type RecordPolicy struct {
	gate       float64
	captureMin int

	max      int
	atMax    map[string]int
	best     *Capture
	captures int
}

// NewRecordPolicy creates a policy. A tick must have naturalness above gate
// to be credited; a credited best above captureMin replaces the capture.
func NewRecordPolicy(gate float64, captureMin int) *RecordPolicy {
	return &RecordPolicy{gate: gate, captureMin: captureMin}
}

// Observe feeds one evaluated tick. raised reports a new maximum; captured
// reports that the evidence capture was replaced.
func (p *RecordPolicy) Observe(q smile.Quality, snippets []smile.Snippet, image []byte, at time.Time) (raised, captured bool) {
	score := q.Score()
	if score <= p.max || q.Naturalness <= p.gate {
		return false, false
	}
	p.max = score
	p.atMax = q.IndividualScores
	if score <= p.captureMin {
		return true, false
	}
	p.captures++
	p.best = &Capture{
		Score:    score,
		Quality:  q,
		Snippets: snippets,
		Image:    image,
		At:       at,
	}
	return true, true
}

// Max returns the best credited score, 0 when no tick qualified.
func (p *RecordPolicy) Max() int { return p.max }

// MetricsAtMax returns the labeled metrics of the tick that set Max.
func (p *RecordPolicy) MetricsAtMax() map[string]int { return p.atMax }

// Best returns the retained capture, or nil.
func (p *RecordPolicy) Best() *Capture { return p.best }

// Captures returns how many times the capture was replaced.
func (p *RecordPolicy) Captures() int { return p.captures }

// Reset clears the running maximum and capture.
func (p *RecordPolicy) Reset() {
	p.max = 0
	p.atMax = nil
	p.best = nil
	p.captures = 0
}
