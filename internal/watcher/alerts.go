package watcher

import (
	"fmt"
	"time"
)

// streakMilestones are the streak lengths that earn an alert.
var streakMilestones = []int{3, 7, 14, 30, 60, 100}

// Compare detects notable changes between two watch states.
func Compare(prev, curr *WatchState) []Alert {
	var alerts []Alert

	alerts = append(alerts, compareWarning(prev, curr)...)
	alerts = append(alerts, compareInfo(prev, curr)...)

	return alerts
}

func compareWarning(prev, curr *WatchState) []Alert {
	var alerts []Alert
	now := curr.Timestamp

	if prev.CurrentStreak > 1 && curr.CurrentStreak == 0 {
		alerts = append(alerts, Alert{
			Level:   "warning",
			Title:   "Streak ended",
			Message: fmt.Sprintf("Your %d-day streak ended. Start a new one today", prev.CurrentStreak),
			Time:    now,
		})
	}

	return alerts
}

func compareInfo(prev, curr *WatchState) []Alert {
	var alerts []Alert
	now := curr.Timestamp

	// The prior best is the baseline for every new session in this cycle,
	// so two sessions beating it both count.
	for _, s := range findNewSessions(prev, curr) {
		alerts = append(alerts, Alert{
			Level:   "info",
			Title:   fmt.Sprintf("Session completed: %s", s.Context),
			Message: fmt.Sprintf("Best score %d in %s", s.MaxScore, formatDuration(s.DurationSeconds)),
			Time:    now,
		})
		if prev.BestScore > 0 && s.MaxScore > prev.BestScore {
			alerts = append(alerts, Alert{
				Level:   "info",
				Title:   "New personal best",
				Message: fmt.Sprintf("Scored %d, up from %d", s.MaxScore, prev.BestScore),
				Time:    now,
			})
		}
	}

	for _, m := range streakMilestones {
		if prev.CurrentStreak < m && curr.CurrentStreak >= m {
			alerts = append(alerts, Alert{
				Level:   "info",
				Title:   "Streak milestone",
				Message: fmt.Sprintf("%d days of practice in a row", m),
				Time:    now,
			})
		}
	}

	return alerts
}

// sessionInfo is a lightweight summary of a session for alert generation.
type sessionInfo struct {
	ID              string
	Context         string
	MaxScore        int
	DurationSeconds int
}

// findNewSessions returns records present in curr but not in prev.
func findNewSessions(prev, curr *WatchState) []sessionInfo {
	prevIDs := make(map[string]bool, len(prev.records))
	for _, r := range prev.records {
		prevIDs[r.ID] = true
	}

	var out []sessionInfo
	for _, r := range curr.records {
		if !prevIDs[r.ID] {
			out = append(out, sessionInfo{
				ID:              r.ID,
				Context:         string(r.Context),
				MaxScore:        r.MaxScore,
				DurationSeconds: r.DurationSeconds,
			})
		}
	}
	return out
}

func formatDuration(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
