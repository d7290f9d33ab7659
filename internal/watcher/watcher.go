// Package watcher monitors practice history in the background and emits
// reminders, personal-best and streak alerts.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/analyzer"
	"github.com/blackwell-systems/smilecoach/internal/history"
)

// Source loads the history being watched.
type Source func(ctx context.Context) ([]history.Record, error)

// WatchState captures a point-in-time summary of practice history.
type WatchState struct {
	Timestamp     time.Time
	TotalSessions int
	TodayCount    int
	BestScore     int
	CurrentStreak int
	LongestStreak int
	LastSessionID string

	records []history.Record
}

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string // "info", "warning", "critical"
	Title   string
	Message string
	Time    time.Time
}

// Watcher polls history at a regular interval and emits alerts when
// something notable changed.
type Watcher struct {
	source        Source
	interval      time.Duration
	previous      *WatchState
	alertFn       func(Alert)
	lastAlertKeys map[string]bool // suppress repeated identical alerts

	// ReminderHour is the local hour from which a day without practice
	// triggers a reminder. Negative disables reminders.
	ReminderHour int
	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a Watcher over the given history source.
func New(source Source, interval time.Duration, alertFn func(Alert)) *Watcher {
	return &Watcher{
		source:        source,
		interval:      interval,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
		ReminderHour:  18,
		Now:           time.Now,
	}
}

// Run takes an initial snapshot, then checks at every interval. It blocks
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	initial, err := w.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	w.previous = initial

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, a := range w.Check(ctx) {
				if w.alertFn != nil {
					w.alertFn(a)
				}
			}
		}
	}
}

// Check takes a new snapshot, compares it with the previous one and returns
// any alerts. An alert identical to one from the last cycle is suppressed
// until the underlying data changes.
func (w *Watcher) Check(ctx context.Context) []Alert {
	now := w.Now()
	curr, err := w.Snapshot(ctx)
	if err != nil {
		return []Alert{{
			Level:   "warning",
			Title:   "Snapshot failed",
			Message: fmt.Sprintf("Could not read practice history: %v", err),
			Time:    now,
		}}
	}

	var raw []Alert
	if w.previous != nil {
		raw = Compare(w.previous, curr)
	}
	raw = append(raw, w.reminders(curr, now)...)

	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys

	w.previous = curr
	return alerts
}

// reminders fire once the reminder hour has passed on a day without
// practice. A running streak raises the level.
func (w *Watcher) reminders(curr *WatchState, now time.Time) []Alert {
	if w.ReminderHour < 0 || curr.TodayCount > 0 || now.Hour() < w.ReminderHour {
		return nil
	}
	if curr.CurrentStreak > 0 {
		return []Alert{{
			Level:   "warning",
			Title:   "Streak at risk",
			Message: fmt.Sprintf("Practice today to keep your %d-day streak going", curr.CurrentStreak),
			Time:    now,
		}}
	}
	return []Alert{{
		Level:   "info",
		Title:   "Time to practice",
		Message: "Five minutes of smile practice is enough for today",
		Time:    now,
	}}
}

// Snapshot summarizes the current history.
func (w *Watcher) Snapshot(ctx context.Context) (*WatchState, error) {
	records, err := w.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	now := w.Now()
	a := analyzer.Analyze(records, now)
	state := &WatchState{
		Timestamp:     now,
		TotalSessions: len(records),
		TodayCount:    analyzer.Today(records, now).SessionCount,
		CurrentStreak: a.CurrentStreak,
		LongestStreak: a.LongestStreak,
		records:       records,
	}

	var latest time.Time
	for _, r := range records {
		if r.MaxScore > state.BestScore && r.MaxScore <= 100 {
			state.BestScore = r.MaxScore
		}
		if r.CreatedAt.After(latest) {
			latest = r.CreatedAt
			state.LastSessionID = r.ID
		}
	}
	return state, nil
}
