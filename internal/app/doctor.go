package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/smilecoach/internal/config"
	"github.com/blackwell-systems/smilecoach/internal/inference"
	"github.com/blackwell-systems/smilecoach/internal/localstore"
	"github.com/blackwell-systems/smilecoach/internal/output"
	"github.com/blackwell-systems/smilecoach/internal/store"
)

var doctorFlagModel bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether the smilecoach setup is healthy",
	Long: `Run a series of health checks against your smilecoach configuration,
database, local store and optional services. Prints a pass/fail line for
each check and a summary of how many checks passed.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFlagModel, "model", false, "Also check the gRPC expression model")
	rootCmd.AddCommand(doctorCmd)
}

// doctorCheck holds the result of a single health check.
type doctorCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// doctorOutput is the JSON-serializable result of the doctor command.
type doctorOutput struct {
	Checks      []doctorCheck `json:"checks"`
	PassedCount int           `json:"passed"`
	TotalCount  int           `json:"total"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if flagNoColor {
		output.SetNoColor(true)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		// A broken config is itself the finding.
		return renderDoctor([]doctorCheck{{Name: "Configuration", Message: err.Error()}})
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	checks := []doctorCheck{checkConfigFile(), checkDataDir(cfg.DataDir)}

	db, dbCheck := checkDatabase(ctx, cfg.DatabasePath)
	checks = append(checks, dbCheck)
	if db != nil {
		defer db.Close()
		checks = append(checks, checkLocalStore(ctx, cfg.LocalStore, db))
	}

	checks = append(checks, checkAccounts(cfg.Server))
	if doctorFlagModel {
		checks = append(checks, checkModel(ctx, cfg.Inference))
	}
	checks = append(checks, checkWatchDaemon())

	return renderDoctor(checks)
}

func renderDoctor(checks []doctorCheck) error {
	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	if flagJSON {
		return printJSON(doctorOutput{
			Checks:      checks,
			PassedCount: passed,
			TotalCount:  len(checks),
		})
	}

	fmt.Println(output.Section("Doctor"))
	fmt.Println()

	for _, c := range checks {
		renderDoctorCheck(c)
	}

	fmt.Println()
	summary := fmt.Sprintf("%d/%d checks passed", passed, len(checks))
	if passed == len(checks) {
		fmt.Printf(" %s\n\n", output.StyleSuccess.Render(summary))
	} else {
		fmt.Printf(" %s\n\n", output.StyleWarning.Render(summary))
	}
	return nil
}

// renderDoctorCheck prints a single check result line.
func renderDoctorCheck(c doctorCheck) {
	var indicator string
	if c.Passed {
		indicator = output.StyleSuccess.Render("✓")
	} else {
		indicator = output.StyleWarning.Render("✗")
	}
	label := output.StyleBold.Render(c.Name)
	detail := output.StyleMuted.Render(c.Message)
	fmt.Printf("  %s  %-30s %s\n", indicator, label, detail)
}

func checkConfigFile() doctorCheck {
	path := flagConfig
	if path == "" {
		path = filepath.Join(config.ConfigDir(), config.DefaultConfigFile)
	}
	if _, err := os.Stat(path); err != nil {
		return doctorCheck{Name: "Config file", Passed: true, Message: "using defaults (no " + path + ")"}
	}
	return doctorCheck{Name: "Config file", Passed: true, Message: path}
}

// checkDataDir verifies the data directory exists or can be created and
// accepts writes.
func checkDataDir(dir string) doctorCheck {
	const name = "Data directory"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return doctorCheck{Name: name, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return doctorCheck{Name: name, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return doctorCheck{Name: name, Passed: true, Message: dir}
}

// checkDatabase opens and migrates the database. The open handle is
// returned for later checks.
func checkDatabase(ctx context.Context, path string) (*store.DB, doctorCheck) {
	const name = "SQLite database"
	db, err := store.Open(path)
	if err != nil {
		return nil, doctorCheck{Name: name, Message: err.Error()}
	}
	if err := db.Ping(ctx); err != nil {
		return db, doctorCheck{Name: name, Message: err.Error()}
	}
	n, err := db.CountSessions(ctx)
	if err != nil {
		return db, doctorCheck{Name: name, Message: err.Error()}
	}
	return db, doctorCheck{Name: name, Passed: true, Message: fmt.Sprintf("%s (%d account sessions)", path, n)}
}

// checkLocalStore reaches the configured backend and reports sessions
// still waiting to upload.
func checkLocalStore(ctx context.Context, cfg config.LocalStore, db *store.DB) doctorCheck {
	const name = "Local store"
	var kv localstore.KV = localstore.NewSQLiteKV(db)
	where := "sqlite"
	if cfg.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return doctorCheck{Name: name, Message: fmt.Sprintf("redis at %s: %v", cfg.RedisAddr, err)}
		}
		kv = localstore.NewRedisKV(client, cfg.RedisNamespace)
		where = "redis at " + cfg.RedisAddr
	}

	users, err := localstore.New(kv).PendingUsers(ctx)
	if err != nil {
		return doctorCheck{Name: name, Message: err.Error()}
	}
	if len(users) > 0 {
		return doctorCheck{Name: name, Message: fmt.Sprintf("%s, %d accounts have sessions waiting to sync (run 'smilecoach history sync')", where, len(users))}
	}
	return doctorCheck{Name: name, Passed: true, Message: where + ", nothing waiting to sync"}
}

func checkAccounts(cfg config.Server) doctorCheck {
	if cfg.JWTSecret == "" {
		return doctorCheck{Name: "Accounts", Message: "disabled: set server.jwt_secret or SMILECOACH_SERVER_JWT_SECRET"}
	}
	if len(cfg.JWTSecret) < 16 {
		return doctorCheck{Name: "Accounts", Message: "enabled, but the JWT secret is shorter than 16 characters"}
	}
	return doctorCheck{Name: "Accounts", Passed: true, Message: fmt.Sprintf("enabled, tokens valid for %s", cfg.TokenTTL)}
}

func checkModel(ctx context.Context, cfg config.Inference) doctorCheck {
	const name = "Expression model"
	det, err := inference.Dial(cfg.Address, inference.Options{Timeout: cfg.Timeout, Landmarks: cfg.Landmarks})
	if err != nil {
		return doctorCheck{Name: name, Message: err.Error()}
	}
	defer det.Close()
	if err := det.Ready(ctx); err != nil {
		return doctorCheck{Name: name, Message: fmt.Sprintf("%s: %v", cfg.Address, err)}
	}
	return doctorCheck{Name: name, Passed: true, Message: "serving at " + cfg.Address}
}

// checkWatchDaemon reports whether the watch daemon is running.
func checkWatchDaemon() doctorCheck {
	pid, err := readPID()
	if err != nil {
		return doctorCheck{Name: "Watch daemon", Message: "not running (no PID file)"}
	}
	if !processExists(pid) {
		return doctorCheck{Name: "Watch daemon", Message: fmt.Sprintf("PID %d is not running (stale PID file)", pid)}
	}
	return doctorCheck{Name: "Watch daemon", Passed: true, Message: fmt.Sprintf("running (PID %d)", pid)}
}
