// Package app contains the Cobra command tree for smilecoach.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagToken   string
	flagDevice  string
)

var rootCmd = &cobra.Command{
	Use:   "smilecoach",
	Short: "Smile practice with real-time feedback and coaching",
	Long: `smilecoach scores smiles from facial-expression samples, runs timed
practice sessions that keep the best attempt, and turns your practice
history into streaks, trends and personalized advice.

Sessions are stored per account when signed in, or per device in guest
mode. Run 'smilecoach' with no arguments to see today's summary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSummary,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/smilecoach/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token to act as a signed-in user (default: saved login)")
	rootCmd.PersistentFlags().StringVar(&flagDevice, "device", "", "Device id for guest mode (default: this installation's id)")
}

// runSummary prints today's practice and the current streak.
func runSummary(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	records, id, err := rt.records(cmd.Context())
	if err != nil {
		return err
	}
	t := now()
	a, today := analyze(records, t)

	if flagJSON {
		return printJSON(map[string]any{"identity": id, "today": today, "current_streak": a.CurrentStreak})
	}

	fmt.Println("smilecoach", appVersion)
	fmt.Println()
	if id.SignedIn() {
		fmt.Printf("Signed in as %s\n", id.UserID)
	} else {
		fmt.Printf("Guest device %s\n", id.DeviceID)
	}
	fmt.Printf("Today: %d sessions, best %d, streak %d days\n", today.SessionCount, today.MaxScore, a.CurrentStreak)
	fmt.Println()
	fmt.Println("Use a subcommand:")
	fmt.Println("  practice  Run a practice session")
	fmt.Println("  evaluate  Score one expression sample")
	fmt.Println("  history   List, sync and manage past sessions")
	fmt.Println("  analyze   Show streaks, trends and breakdowns")
	fmt.Println("  advise    Get personalized coaching")
	fmt.Println("  report    Show the weekly report")
	fmt.Println("  serve     Run the HTTP and WebSocket server")
	fmt.Println("  watch     Remind and celebrate from the background")
	return nil
}
