// Package analyzer derives practice statistics from session history: rolling
// windows, streaks, growth, weakest metric and time-of-day preference.
package analyzer

import "github.com/blackwell-systems/smilecoach/internal/smile"

// TimeOfDay is a practice-time bucket.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // 06:00-12:00
	Afternoon TimeOfDay = "afternoon" // 12:00-18:00
	Evening   TimeOfDay = "evening"   // 18:00-24:00
)

// HistoryAnalysis is recomputed from history on every read.
type HistoryAnalysis struct {
	// TotalSessions counts every record, including malformed ones.
	TotalSessions int `json:"total_sessions"`

	// Last7Count and Last30Count count sessions less than 7 and 30 days old.
	Last7Count  int `json:"last_7_count"`
	Last30Count int `json:"last_30_count"`

	// Last7Average and Last30Average are rounded mean max scores of the
	// windows, 0 when a window is empty.
	Last7Average  int `json:"last_7_average"`
	Last30Average int `json:"last_30_average"`

	// ContextStats holds per-context session counts and mean max score.
	ContextStats map[smile.Context]ContextStats `json:"context_stats"`

	// MetricAverages maps confidence, stability and naturalness to their
	// rounded means over the records that carry them.
	MetricAverages map[string]int `json:"metric_averages"`

	// WeakestMetric is the lowest-averaging metric, empty when none is known.
	WeakestMetric string `json:"weakest_metric,omitempty"`
	WeakestScore  int    `json:"weakest_score,omitempty"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	// GrowthRate is the percent change of the last-7-day mean over the
	// prior 7 days. Nil until history spans 14 days and both windows have
	// sessions.
	GrowthRate *int `json:"growth_rate,omitempty"`

	TimeOfDay     map[TimeOfDay]int `json:"time_of_day"`
	PreferredTime TimeOfDay         `json:"preferred_time,omitempty"`
}

// ContextStats summarizes one practice context.
type ContextStats struct {
	Count    int `json:"count"`
	AvgScore int `json:"avg_score"`
}

// DaySummary is one calendar day with practice.
type DaySummary struct {
	Date         string `json:"date"`
	SessionCount int    `json:"session_count"`
	MaxScore     int    `json:"max_score"`
	TotalSeconds int    `json:"total_seconds"`
}
