package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/smilecoach/internal/config"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/output"
	"github.com/blackwell-systems/smilecoach/internal/watcher"
)

var (
	watchDaemon   bool
	watchInterval string
	watchStop     bool
	watchQuiet    bool
	watchNoRemind bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Remind and celebrate from the background",
	Long: `Run a background monitor that periodically checks your practice
history. It celebrates completed sessions, personal bests and streak
milestones, warns when a streak ends, and reminds you in the evening when
you have not practiced today.

Examples:
  smilecoach watch                     # run in foreground (ctrl-c to stop)
  smilecoach watch --daemon            # run in background, write PID file
  smilecoach watch --interval 10m      # check every 10 minutes (default: watch.interval)
  smilecoach watch --no-remind         # only celebrate, never nag
  smilecoach watch --stop              # stop the background daemon`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "Check interval as duration string (e.g. 5m, 1h)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().BoolVar(&watchNoRemind, "no-remind", false, "Disable practice reminders")
	rootCmd.AddCommand(watchCmd)
}

func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon()
	}

	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	interval := rt.cfg.Watch.Interval
	if watchInterval != "" {
		if interval, err = time.ParseDuration(watchInterval); err != nil {
			return fmt.Errorf("invalid interval %q: %w", watchInterval, err)
		}
	}
	if interval < 30*time.Second {
		return fmt.Errorf("interval must be at least 30s, got %s", interval)
	}

	id, err := rt.identity()
	if err != nil {
		return err
	}
	source := func(ctx context.Context) ([]history.Record, error) {
		return rt.history.List(ctx, id)
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if watchDaemon {
		release, err := claimPIDFile()
		if err != nil {
			return err
		}
		defer release()

		logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logFile.Close()
		return runDaemon(ctx, rt, source, interval, logFile)
	}
	return runForeground(ctx, rt, source, interval)
}

func newWatcher(rt *runtime, source watcher.Source, interval time.Duration, alertFn func(watcher.Alert)) *watcher.Watcher {
	w := watcher.New(source, interval, alertFn)
	w.ReminderHour = rt.cfg.Watch.ReminderHour
	if watchNoRemind {
		w.ReminderHour = -1
	}
	return w
}

// runForeground prints a baseline, then each alert as it fires.
func runForeground(ctx context.Context, rt *runtime, source watcher.Source, interval time.Duration) error {
	w := newWatcher(rt, source, interval, func(a watcher.Alert) {
		_ = watcher.Notify(a)
		if !watchQuiet {
			printAlert(a)
		}
	})

	initial, err := w.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot failed: %w", err)
	}
	if !watchQuiet {
		fmt.Printf("smilecoach watching... (checking every %s)\n", interval)
		fmt.Printf("[%s] %s %d sessions, %d today, streak %d days\n",
			time.Now().Format("15:04:05"), checkMark(),
			initial.TotalSessions, initial.TodayCount, initial.CurrentStreak)
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Println("\nStopped.")
		}
		return nil
	}
	return err
}

// runDaemon logs alerts to logw instead of the terminal. Backgrounding is
// left to the caller (nohup, a service manager) since Go cannot reliably
// fork.
func runDaemon(ctx context.Context, rt *runtime, source watcher.Source, interval time.Duration, logw io.Writer) error {
	writeLog(logw, "smilecoach daemon started (PID %d, interval %s)", os.Getpid(), interval)

	w := newWatcher(rt, source, interval, func(a watcher.Alert) {
		_ = watcher.Notify(a)
		writeLog(logw, "[%s] %s: %s", a.Level, a.Title, a.Message)
	})

	err := w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		writeLog(logw, "daemon stopped")
		return nil
	}
	writeLog(logw, "daemon failed: %v", err)
	return err
}

// claimPIDFile writes this process's PID, refusing when a live daemon
// already holds the file. The returned func removes it.
func claimPIDFile() (func(), error) {
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if pid, err := readPID(); err == nil && processExists(pid) {
		return nil, fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
	}
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("writing PID file: %w", err)
	}
	return func() { _ = os.Remove(pidFilePath()) }, nil
}

// stopDaemon terminates the daemon named in the PID file. A stale file is
// cleaned up.
func stopDaemon() error {
	pid, err := readPID()
	if err != nil {
		return fmt.Errorf("no daemon running (could not read PID file: %v)", err)
	}
	if !processExists(pid) {
		_ = os.Remove(pidFilePath())
		return fmt.Errorf("no daemon running (PID %d is not active, cleaned up stale PID file)", pid)
	}
	if err := terminate(pid); err != nil {
		return fmt.Errorf("failed to stop daemon (PID %d): %w", pid, err)
	}
	_ = os.Remove(pidFilePath())
	fmt.Printf("Stopped daemon (PID %d)\n", pid)
	return nil
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func writeLog(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
}

func printAlert(a watcher.Alert) {
	fmt.Printf("[%s] %s %s\n", a.Time.Format("15:04:05"), alertIcon(a.Level), a.Title)
	if a.Message != "" {
		fmt.Println(output.StyleMuted.Render("         " + a.Message))
	}
}

func alertIcon(level string) string {
	switch level {
	case "warning":
		return output.StyleWarning.Render("⚠")
	case "info":
		return output.StyleSuccess.Render(checkMark())
	default:
		return " "
	}
}

func checkMark() string {
	return "✓"
}
