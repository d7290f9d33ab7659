package analyzer

import (
	"math"
	"sort"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

const day = 24 * time.Hour

// trackedMetrics are the metrics averaged for weakest-metric detection.
var trackedMetrics = []string{smile.MetricConfidence, smile.MetricStability, smile.MetricNaturalness}

// Analyze computes the history analysis as of now. Calendar days are taken
// in now's location. Records without a creation time or with a max score
// outside (0,100] are left out of every average and window.
func Analyze(records []history.Record, now time.Time) HistoryAnalysis {
	a := HistoryAnalysis{
		TotalSessions:  len(records),
		ContextStats:   make(map[smile.Context]ContextStats),
		MetricAverages: make(map[string]int),
		TimeOfDay:      map[TimeOfDay]int{Morning: 0, Afternoon: 0, Evening: 0},
	}

	var last7, prev7, last30 []int
	contextTotals := make(map[smile.Context][2]int) // sum, count
	metricTotals := make(map[string][2]int)
	var earliest time.Time

	for _, r := range records {
		if r.CreatedAt.IsZero() {
			continue
		}
		local := r.CreatedAt.In(now.Location())
		if bucket := bucketFor(local.Hour()); bucket != "" {
			a.TimeOfDay[bucket]++
		}

		if !validScore(r.MaxScore) {
			continue
		}
		if earliest.IsZero() || r.CreatedAt.Before(earliest) {
			earliest = r.CreatedAt
		}

		age := daysDiff(now, r.CreatedAt)
		if age < 7 {
			last7 = append(last7, r.MaxScore)
		} else if age < 14 {
			prev7 = append(prev7, r.MaxScore)
		}
		if age < 30 {
			last30 = append(last30, r.MaxScore)
		}

		ctx := r.Context
		if !ctx.Valid() {
			ctx = smile.ContextPractice
		}
		t := contextTotals[ctx]
		contextTotals[ctx] = [2]int{t[0] + r.MaxScore, t[1] + 1}

		for _, m := range trackedMetrics {
			v, ok := r.MetricsAtMax[m]
			if !ok || v < 0 || v > 100 {
				continue
			}
			t := metricTotals[m]
			metricTotals[m] = [2]int{t[0] + v, t[1] + 1}
		}
	}

	a.Last7Count, a.Last7Average = len(last7), mean(last7)
	a.Last30Count, a.Last30Average = len(last30), mean(last30)

	for ctx, t := range contextTotals {
		a.ContextStats[ctx] = ContextStats{Count: t[1], AvgScore: round(float64(t[0]) / float64(t[1]))}
	}

	a.WeakestScore = 100
	for _, m := range trackedMetrics {
		t, ok := metricTotals[m]
		if !ok {
			continue
		}
		avg := round(float64(t[0]) / float64(t[1]))
		a.MetricAverages[m] = avg
		if avg < a.WeakestScore {
			a.WeakestMetric = m
			a.WeakestScore = avg
		}
	}
	if a.WeakestMetric == "" {
		a.WeakestScore = 0
	}

	if !earliest.IsZero() && now.Sub(earliest) >= 14*day && len(last7) > 0 && len(prev7) > 0 {
		recent, prev := meanFloat(last7), meanFloat(prev7)
		g := round((recent - prev) / prev * 100)
		a.GrowthRate = &g
	}

	a.CurrentStreak, a.LongestStreak = streaks(records, now)
	a.PreferredTime = preferred(a.TimeOfDay)
	return a
}

// daysDiff is the number of whole 24h periods between t and now.
func daysDiff(now, t time.Time) int {
	return int(math.Floor(float64(now.Sub(t)) / float64(day)))
}

func bucketFor(hour int) TimeOfDay {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	case hour >= 18:
		return Evening
	}
	return ""
}

// preferred picks the busiest bucket. Ties go to the earlier bucket; no
// sessions at all gives no preference.
func preferred(counts map[TimeOfDay]int) TimeOfDay {
	best, n := TimeOfDay(""), 0
	for _, b := range []TimeOfDay{Morning, Afternoon, Evening} {
		if counts[b] > n {
			best, n = b, counts[b]
		}
	}
	return best
}

// streaks returns the current and longest runs of consecutive practice days.
// The current run may end yesterday: a streak is not broken until a full
// day passes without practice.
func streaks(records []history.Record, now time.Time) (current, longest int) {
	loc := now.Location()
	days := make(map[string]bool)
	for _, r := range records {
		if r.CreatedAt.IsZero() {
			continue
		}
		days[dateKey(r.CreatedAt.In(loc))] = true
	}
	if len(days) == 0 {
		return 0, 0
	}

	cursor := now
	if !days[dateKey(cursor)] {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for days[dateKey(cursor)] {
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	run := 0
	var prev time.Time
	for _, k := range keys {
		d, _ := time.ParseInLocation(dateLayout, k, loc)
		if !prev.IsZero() && dateKey(prev.AddDate(0, 0, 1)) == k {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
	}
	return current, longest
}

const dateLayout = "2006-01-02"

func dateKey(t time.Time) string {
	return t.Format(dateLayout)
}

func validScore(s int) bool {
	return s > 0 && s <= 100
}

func mean(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	return round(meanFloat(vals))
}

func meanFloat(vals []int) float64 {
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

// round rounds half up, so -2.5 becomes -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
