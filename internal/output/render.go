package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blackwell-systems/smilecoach/internal/analyzer"
	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

// Message renders a coaching message.
func Message(m coach.Message) string {
	return Text(m.Key, m.Params)
}

// RenderQuality renders one evaluation: the overall bar, the context's three
// metrics and the coaching snippets.
func RenderQuality(q smile.Quality, snippets []smile.Snippet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Section("Smile quality: "+string(q.Context)))
	fmt.Fprintf(&b, " %s %s\n", StyleLabel.Render("Overall"), ScoreBar(q.Score(), 20))
	for _, name := range smile.LabelsFor(q.Context).Names() {
		fmt.Fprintf(&b, " %s %s\n", StyleLabel.Render(MetricName(name)), ScoreBar(q.IndividualScores[name], 20))
	}
	fmt.Fprintf(&b, " %s %s\n", StyleLabel.Render("Naturalness"), StyleValue.Render(strconv.Itoa(smile.Percent(q.Naturalness))))
	fmt.Fprintf(&b, " %s %s\n", StyleLabel.Render("Wellness"), StyleValue.Render(strconv.Itoa(smile.Percent(q.Wellness))))
	b.WriteString("\n")
	for _, s := range snippets {
		fmt.Fprintf(&b, " %s\n", StyleAccent.Render(Text(s.Key, s.Params)))
	}
	return b.String()
}

// RenderAdvice renders personalized advice and the tip of the day.
func RenderAdvice(a coach.Advice, tip coach.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Section("Today's coaching"))
	fmt.Fprintf(&b, " %s\n\n", StyleBold.Render(Message(a.MainMessage)))

	b.WriteString(" " + StyleHeader.Render("Tips") + "\n")
	for _, t := range a.TechnicalTips {
		fmt.Fprintf(&b, "   • %s\n", Message(t))
	}
	fmt.Fprintf(&b, "\n %s\n", StyleHeader.Render("Exercises ("+string(a.ExerciseTier)+")"))
	for i, e := range a.Exercises {
		fmt.Fprintf(&b, "   %d. %s\n", i+1, Message(e))
	}
	fmt.Fprintf(&b, "\n %s %s\n", StyleLabel.Render("Next goal"), Message(a.NextGoal))
	fmt.Fprintf(&b, " %s %s\n", StyleLabel.Render("When"), Message(a.RecommendedTime))
	fmt.Fprintf(&b, "\n %s\n", StyleAccent.Render("“"+Message(a.MotivationalQuote)+"”"))
	if tip.Key != "" {
		fmt.Fprintf(&b, " %s %s\n", StyleMuted.Render("Tip of the day:"), Message(tip))
	}
	return b.String()
}

// RenderReport renders the weekly report.
func RenderReport(r coach.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Section("Weekly report"))
	fmt.Fprintf(&b, " %s\n", StyleBold.Render(Message(r.Summary)))

	list := func(title string, style func(...string) string, msgs []coach.Message) {
		if len(msgs) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n %s\n", StyleHeader.Render(title))
		for _, m := range msgs {
			fmt.Fprintf(&b, "   %s\n", style("• "+Message(m)))
		}
	}
	list("Achievements", StyleSuccess.Render, r.Achievements)
	list("To improve", StyleWarning.Render, r.Improvements)
	list("Next week", StyleBold.Render, r.NextWeekGoals)
	return b.String()
}

// RenderAnalysis renders the history analysis and today's totals.
func RenderAnalysis(a analyzer.HistoryAnalysis, today history.TodayAggregate) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, " %s %s\n", StyleLabel.Render(label), StyleValue.Render(value))
	}

	fmt.Fprintf(&b, "%s\n", Section("Practice analysis"))
	row("Total sessions", strconv.Itoa(a.TotalSessions))
	row("Last 7 days", fmt.Sprintf("%d (avg %d)", a.Last7Count, a.Last7Average))
	row("Last 30 days", fmt.Sprintf("%d (avg %d)", a.Last30Count, a.Last30Average))
	row("Current streak", fmt.Sprintf("%d days", a.CurrentStreak))
	row("Longest streak", fmt.Sprintf("%d days", a.LongestStreak))
	fmt.Fprintf(&b, " %s %s\n", StyleLabel.Render("Growth"), TrendArrowPercent(a.GrowthRate))
	if a.WeakestMetric != "" {
		row("Weakest metric", fmt.Sprintf("%s (%d)", MetricName(a.WeakestMetric), a.WeakestScore))
	}
	if a.PreferredTime != "" {
		row("Preferred time", string(a.PreferredTime))
	}

	if len(a.ContextStats) > 0 {
		fmt.Fprintf(&b, "\n")
		tbl := NewTable("Context", "Sessions", "Avg score")
		for _, c := range smile.Contexts {
			if st, ok := a.ContextStats[c]; ok {
				tbl.AddRow(string(c), strconv.Itoa(st.Count), strconv.Itoa(st.AvgScore))
			}
		}
		b.WriteString(indent(tbl.Render()))
	}

	fmt.Fprintf(&b, "%s\n", Section("Today"))
	row("Sessions", strconv.Itoa(today.SessionCount))
	row("Best score", strconv.Itoa(today.MaxScore))
	row("Average", strconv.Itoa(today.AvgScore))
	row("Practice time", fmt.Sprintf("%dm%02ds", today.TotalSeconds/60, today.TotalSeconds%60))
	return b.String()
}

// SessionsTable lists records, newest first as given.
func SessionsTable(records []history.Record) *Table {
	tbl := NewTable("ID", "When", "Context", "Score", "Mood", "Duration").AlignRight(3, 5)
	for _, r := range records {
		mood := string(r.MoodBefore)
		if r.MoodAfter != "" {
			mood += " → " + string(r.MoodAfter)
		}
		tbl.AddRow(
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.Context),
			ScoreStyle(r.MaxScore).Render(strconv.Itoa(r.MaxScore)),
			mood,
			fmt.Sprintf("%ds", r.DurationSeconds),
		)
	}
	return tbl
}

// CalendarTable lists practice days.
func CalendarTable(days []analyzer.DaySummary) *Table {
	sorted := append([]analyzer.DaySummary(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	tbl := NewTable("Date", "Sessions", "Best", "Time").AlignRight(1, 2, 3)
	for _, d := range sorted {
		tbl.AddRow(d.Date, strconv.Itoa(d.SessionCount), strconv.Itoa(d.MaxScore), fmt.Sprintf("%ds", d.TotalSeconds))
	}
	return tbl
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
