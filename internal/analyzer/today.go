package analyzer

import (
	"sort"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/history"
)

// Today aggregates the sessions on now's calendar day.
func Today(records []history.Record, now time.Time) history.TodayAggregate {
	var agg history.TodayAggregate
	today := dateKey(now)
	var scores []int

	for _, r := range records {
		if r.CreatedAt.IsZero() || dateKey(r.CreatedAt.In(now.Location())) != today {
			continue
		}
		agg.SessionCount++
		if r.DurationSeconds > 0 {
			agg.TotalSeconds += r.DurationSeconds
		}
		if !validScore(r.MaxScore) {
			continue
		}
		scores = append(scores, r.MaxScore)
		if r.MaxScore > agg.MaxScore {
			agg.MaxScore = r.MaxScore
		}
	}
	agg.AvgScore = mean(scores)
	return agg
}

// GroupByDate buckets records by calendar day in loc, keyed YYYY-MM-DD.
func GroupByDate(records []history.Record, loc *time.Location) map[string][]history.Record {
	out := make(map[string][]history.Record)
	for _, r := range records {
		if r.CreatedAt.IsZero() {
			continue
		}
		k := dateKey(r.CreatedAt.In(loc))
		out[k] = append(out[k], r)
	}
	return out
}

// Calendar summarizes the practice days of the month containing month, in
// month's location, in date order.
func Calendar(records []history.Record, month time.Time) []DaySummary {
	prefix := month.Format("2006-01")
	var out []DaySummary
	for date, rs := range GroupByDate(records, month.Location()) {
		if date[:7] != prefix {
			continue
		}
		d := DaySummary{Date: date, SessionCount: len(rs)}
		for _, r := range rs {
			if validScore(r.MaxScore) && r.MaxScore > d.MaxScore {
				d.MaxScore = r.MaxScore
			}
			if r.DurationSeconds > 0 {
				d.TotalSeconds += r.DurationSeconds
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
