package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/smilecoach/internal/analyzer"
	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show streaks, trends and breakdowns",
	Long: `Analyze your practice history: totals, averages, current and longest
streaks, week-over-week trends, growth rate, and breakdowns by context and
time of day.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Get personalized coaching",
	Long: `Get advice chosen from your history: a motivation nudge when you have
not practiced lately, celebration when you reach your goals, or targeted
exercises for your weakest metric. Includes the tip of the day.`,
	Args: cobra.NoArgs,
	RunE: runAdvise,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the weekly report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(analyzeCmd, adviseCmd, reportCmd)
}

// analyze computes the history analysis and today's aggregate at t.
func analyze(records []history.Record, t time.Time) (analyzer.HistoryAnalysis, history.TodayAggregate) {
	return analyzer.Analyze(records, t), analyzer.Today(records, t)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	records, _, err := rt.records(cmd.Context())
	if err != nil {
		return err
	}
	a, today := analyze(records, now())
	if flagJSON {
		return printJSON(map[string]any{"analysis": a, "today": today})
	}
	fmt.Print(output.RenderAnalysis(a, today))
	return nil
}

type adviceOutput struct {
	Advice      coach.Advice           `json:"advice"`
	Today       history.TodayAggregate `json:"today"`
	TipOfTheDay coach.Message          `json:"tip_of_the_day"`
}

func runAdvise(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	records, _, err := rt.records(cmd.Context())
	if err != nil {
		return err
	}
	t := now()
	a, today := analyze(records, t)
	out := adviceOutput{
		Advice:      rt.coach.Advise(a, today),
		Today:       today,
		TipOfTheDay: coach.TipOfTheDay(t),
	}
	if flagJSON {
		return printJSON(out)
	}
	fmt.Print(output.RenderAdvice(out.Advice, out.TipOfTheDay))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	records, _, err := rt.records(cmd.Context())
	if err != nil {
		return err
	}
	a, _ := analyze(records, now())
	r := rt.coach.WeeklyReport(a)
	if flagJSON {
		return printJSON(r)
	}
	fmt.Print(output.RenderReport(r))
	return nil
}
