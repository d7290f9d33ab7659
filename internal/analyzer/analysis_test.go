package analyzer

import (
	"testing"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

var testNow = time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)

func rec(daysAgo int, hour int, score int) history.Record {
	d := testNow.AddDate(0, 0, -daysAgo)
	return history.Record{
		ID:        history.NewID(),
		CreatedAt: time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC),
		Context:   smile.ContextPractice,
		MaxScore:  score,
	}
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil, testNow)
	if a.TotalSessions != 0 || a.CurrentStreak != 0 || a.LongestStreak != 0 {
		t.Errorf("expected zero analysis, got %+v", a)
	}
	if a.GrowthRate != nil {
		t.Errorf("expected nil growth rate, got %d", *a.GrowthRate)
	}
	if a.WeakestMetric != "" {
		t.Errorf("expected no weakest metric, got %q", a.WeakestMetric)
	}
	if a.PreferredTime != "" {
		t.Errorf("expected no preferred time, got %q", a.PreferredTime)
	}
}

func TestAnalyze_StreakBreaksAtGap(t *testing.T) {
	records := []history.Record{rec(0, 9, 70), rec(1, 10, 72), rec(3, 11, 65)}
	a := Analyze(records, testNow)
	if a.CurrentStreak != 2 {
		t.Errorf("current streak: got %d, want 2", a.CurrentStreak)
	}
	if a.LongestStreak != 2 {
		t.Errorf("longest streak: got %d, want 2", a.LongestStreak)
	}
}

func TestAnalyze_StreakSurvivesUntilTodayEnds(t *testing.T) {
	records := []history.Record{rec(1, 9, 70), rec(2, 9, 70), rec(3, 9, 70)}
	a := Analyze(records, testNow)
	if a.CurrentStreak != 3 {
		t.Errorf("current streak: got %d, want 3", a.CurrentStreak)
	}

	stale := []history.Record{rec(2, 9, 70), rec(3, 9, 70)}
	if got := Analyze(stale, testNow).CurrentStreak; got != 0 {
		t.Errorf("streak ending two days ago: got %d, want 0", got)
	}
}

func TestAnalyze_LongestStreak(t *testing.T) {
	records := []history.Record{
		rec(0, 9, 70),
		rec(10, 9, 70), rec(11, 9, 70), rec(12, 9, 70), rec(13, 9, 70),
		rec(20, 9, 70),
	}
	a := Analyze(records, testNow)
	if a.CurrentStreak != 1 {
		t.Errorf("current streak: got %d, want 1", a.CurrentStreak)
	}
	if a.LongestStreak != 4 {
		t.Errorf("longest streak: got %d, want 4", a.LongestStreak)
	}
}

func TestAnalyze_GrowthRateNeedsFourteenDays(t *testing.T) {
	records := []history.Record{rec(0, 9, 80), rec(2, 9, 70), rec(5, 9, 60)}
	a := Analyze(records, testNow)
	if a.GrowthRate != nil {
		t.Errorf("expected nil growth rate for a 5-day history, got %d", *a.GrowthRate)
	}
}

func TestAnalyze_GrowthRate(t *testing.T) {
	records := []history.Record{rec(2, 9, 80), rec(10, 9, 60), rec(15, 9, 50)}
	a := Analyze(records, testNow)
	if a.GrowthRate == nil {
		t.Fatal("expected growth rate")
	}
	// (80 - 60) / 60 = 33.3%
	if *a.GrowthRate != 33 {
		t.Errorf("growth rate: got %d, want 33", *a.GrowthRate)
	}
}

func TestAnalyze_GrowthRateNeedsPriorWindow(t *testing.T) {
	records := []history.Record{rec(2, 9, 80), rec(20, 9, 50)}
	if g := Analyze(records, testNow).GrowthRate; g != nil {
		t.Errorf("expected nil growth rate without prior-week sessions, got %d", *g)
	}
}

func TestAnalyze_Windows(t *testing.T) {
	records := []history.Record{rec(1, 9, 80), rec(6, 9, 70), rec(8, 9, 60), rec(29, 9, 50), rec(31, 9, 40)}
	a := Analyze(records, testNow)
	if a.Last7Count != 2 || a.Last7Average != 75 {
		t.Errorf("last 7: got %d sessions avg %d, want 2 avg 75", a.Last7Count, a.Last7Average)
	}
	if a.Last30Count != 4 || a.Last30Average != 65 {
		t.Errorf("last 30: got %d sessions avg %d, want 4 avg 65", a.Last30Count, a.Last30Average)
	}
	if a.TotalSessions != 5 {
		t.Errorf("total: got %d, want 5", a.TotalSessions)
	}
}

func TestAnalyze_WeakestMetric(t *testing.T) {
	records := []history.Record{rec(0, 9, 70), rec(1, 9, 70)}
	records[0].MetricsAtMax = map[string]int{smile.MetricConfidence: 90, smile.MetricStability: 50, smile.MetricNaturalness: 70}
	records[1].MetricsAtMax = map[string]int{smile.MetricConfidence: 70, smile.MetricStability: 70, smile.MetricNaturalness: 150}

	a := Analyze(records, testNow)
	if a.WeakestMetric != smile.MetricStability || a.WeakestScore != 60 {
		t.Errorf("weakest: got %s=%d, want stability=60", a.WeakestMetric, a.WeakestScore)
	}
	// The out-of-range naturalness is excluded, not clamped.
	if a.MetricAverages[smile.MetricNaturalness] != 70 {
		t.Errorf("naturalness avg: got %d, want 70", a.MetricAverages[smile.MetricNaturalness])
	}
}

func TestAnalyze_MalformedRecordsExcluded(t *testing.T) {
	records := []history.Record{
		rec(0, 9, 80),
		rec(1, 9, 0),
		{ID: "no-time", MaxScore: 90},
	}
	a := Analyze(records, testNow)
	if a.TotalSessions != 3 {
		t.Errorf("total: got %d, want 3", a.TotalSessions)
	}
	if a.Last7Count != 1 || a.Last7Average != 80 {
		t.Errorf("last 7: got %d avg %d, want 1 avg 80", a.Last7Count, a.Last7Average)
	}
	if a.ContextStats[smile.ContextPractice].Count != 1 {
		t.Errorf("context count: got %d, want 1", a.ContextStats[smile.ContextPractice].Count)
	}
}

func TestAnalyze_ContextStats(t *testing.T) {
	social := rec(0, 9, 90)
	social.Context = smile.ContextSocial
	records := []history.Record{rec(0, 9, 60), rec(1, 9, 71), social}

	a := Analyze(records, testNow)
	if got := a.ContextStats[smile.ContextPractice]; got.Count != 2 || got.AvgScore != 66 {
		t.Errorf("practice stats: got %+v, want 2 sessions avg 66", got)
	}
	if got := a.ContextStats[smile.ContextSocial]; got.Count != 1 || got.AvgScore != 90 {
		t.Errorf("social stats: got %+v", got)
	}
}

func TestAnalyze_PreferredTime(t *testing.T) {
	tests := []struct {
		name  string
		hours []int
		want  TimeOfDay
	}{
		{"evening wins", []int{19, 20, 8}, Evening},
		{"tie goes to morning", []int{7, 13}, Morning},
		{"night only", []int{2, 3}, ""},
		{"afternoon", []int{12, 17, 18}, Afternoon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []history.Record
			for _, h := range tt.hours {
				records = append(records, rec(0, h, 70))
			}
			if got := Analyze(records, testNow).PreferredTime; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToday(t *testing.T) {
	records := []history.Record{rec(0, 8, 60), rec(0, 12, 81), rec(1, 9, 99)}
	records[0].DurationSeconds = 30
	records[1].DurationSeconds = 45

	agg := Today(records, testNow)
	if agg.SessionCount != 2 {
		t.Errorf("sessions: got %d, want 2", agg.SessionCount)
	}
	if agg.MaxScore != 81 {
		t.Errorf("max: got %d, want 81", agg.MaxScore)
	}
	if agg.AvgScore != 71 {
		t.Errorf("avg: got %d, want 71", agg.AvgScore)
	}
	if agg.TotalSeconds != 75 {
		t.Errorf("seconds: got %d, want 75", agg.TotalSeconds)
	}
}

func TestCalendar(t *testing.T) {
	records := []history.Record{rec(0, 8, 60), rec(0, 12, 81), rec(1, 9, 99), rec(40, 9, 50)}
	days := Calendar(records, testNow)
	if len(days) != 2 {
		t.Fatalf("days: got %d, want 2", len(days))
	}
	if days[0].Date != "2026-06-09" || days[0].MaxScore != 99 {
		t.Errorf("first day: got %+v", days[0])
	}
	if days[1].Date != "2026-06-10" || days[1].SessionCount != 2 || days[1].MaxScore != 81 {
		t.Errorf("second day: got %+v", days[1])
	}
}
