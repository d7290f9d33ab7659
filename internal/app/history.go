package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/smilecoach/internal/analyzer"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/output"
)

var (
	historyFlagLimit int
	historyFlagMonth string
	historyFlagYes   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, sync and manage past sessions",
	Long: `Show your practice sessions, newest first. Signed-in users see their
account history merged with anything still waiting to sync; guests see the
sessions stored on this device.

Examples:
  smilecoach history                     # last 15 sessions
  smilecoach history --limit 50
  smilecoach history calendar --month 2026-09
  smilecoach history mood <id> better
  smilecoach history delete <id>
  smilecoach history sync                # retry sessions that failed to upload`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every session",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

var historySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload sessions that failed to save remotely",
	Args:  cobra.NoArgs,
	RunE:  runHistorySync,
}

var historyCalendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show practice per day for one month",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCalendar,
}

var historyMoodCmd = &cobra.Command{
	Use:   "mood <id> <better|same|tired>",
	Short: "Record how you felt after a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryMood,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 15, "Maximum sessions to display (0 = all)")
	historyCalendarCmd.Flags().StringVar(&historyFlagMonth, "month", "", "Month as YYYY-MM (default: this month)")
	historyClearCmd.Flags().BoolVar(&historyFlagYes, "yes", false, "Confirm deleting all sessions")
	historyCmd.AddCommand(historyDeleteCmd, historyClearCmd, historySyncCmd, historyCalendarCmd, historyMoodCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	records, _, err := rt.records(cmd.Context())
	if err != nil {
		return err
	}
	if historyFlagLimit > 0 && historyFlagLimit < len(records) {
		records = records[:historyFlagLimit]
	}

	if flagJSON {
		if records == nil {
			records = []history.Record{}
		}
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Println("No sessions yet. Start one with 'smilecoach practice'.")
		return nil
	}
	output.SessionsTable(records).Print()
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.identity()
	if err != nil {
		return err
	}
	if err := rt.history.Delete(cmd.Context(), id, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if !historyFlagYes {
		return errors.New("this deletes every session; pass --yes to confirm")
	}
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.identity()
	if err != nil {
		return err
	}
	if err := rt.history.Clear(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Println("History cleared.")
	return nil
}

func runHistorySync(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.identity()
	if err != nil {
		return err
	}
	if !id.SignedIn() {
		return errors.New("guest sessions are stored on this device only; sign in to sync")
	}
	n, err := rt.history.SyncPending(cmd.Context(), id.UserID)
	if flagJSON {
		if jerr := printJSON(map[string]int{"synced": n}); jerr != nil {
			return jerr
		}
		return err
	}
	fmt.Printf("Synced %d pending sessions.\n", n)
	return err
}

func runHistoryCalendar(cmd *cobra.Command, args []string) error {
	t := now()
	month := t
	if historyFlagMonth != "" {
		m, err := time.ParseInLocation("2006-01", historyFlagMonth, t.Location())
		if err != nil {
			return fmt.Errorf("invalid --month %q: want YYYY-MM", historyFlagMonth)
		}
		month = m
	}

	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	records, _, err := rt.records(cmd.Context())
	if err != nil {
		return err
	}
	days := analyzer.Calendar(records, month)

	if flagJSON {
		if days == nil {
			days = []analyzer.DaySummary{}
		}
		return printJSON(map[string]any{"month": month.Format("2006-01"), "days": days})
	}
	fmt.Println(output.Section("Practice in " + month.Format("January 2006")))
	if len(days) == 0 {
		fmt.Println(output.StyleMuted.Render(" No sessions this month."))
		return nil
	}
	output.CalendarTable(days).Print()
	return nil
}

func runHistoryMood(cmd *cobra.Command, args []string) error {
	mood, err := history.ParseMoodAfter(args[1])
	if err != nil {
		return err
	}
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.identity()
	if err != nil {
		return err
	}
	if err := rt.history.UpdateMoodAfter(cmd.Context(), id, args[0], mood); err != nil {
		return err
	}
	fmt.Printf("Recorded mood %q for session %s\n", mood, args[0])
	return nil
}
