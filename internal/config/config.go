package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

// Config is the top-level smilecoach configuration.
type Config struct {
	DataDir      string `mapstructure:"data_dir"`
	DatabasePath string `mapstructure:"database_path"`

	Scoring    smile.Weights   `mapstructure:"scoring"`
	Policy     Policy          `mapstructure:"policy"`
	Guest      Guest           `mapstructure:"guest"`
	Goals      coach.Goals     `mapstructure:"goals"`
	Exercises  coach.Exercises `mapstructure:"exercises"`
	LocalStore LocalStore      `mapstructure:"local_store"`
	Inference  Inference       `mapstructure:"inference"`
	Server     Server          `mapstructure:"server"`
	Watch      Watch           `mapstructure:"watch"`
	Output     Output          `mapstructure:"output"`
}

// Policy tunes the per-session record policy.
type Policy struct {
	NaturalnessGate float64       `mapstructure:"naturalness_gate"`
	CaptureMinScore int           `mapstructure:"capture_min_score"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
}

// Guest tunes guest mode.
type Guest struct {
	SessionLimit int `mapstructure:"session_limit"`
}

// LocalStore selects the device storage backend.
type LocalStore struct {
	Backend        string `mapstructure:"backend"` // sqlite or redis
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisNamespace string `mapstructure:"redis_namespace"`
	RetentionDays  int    `mapstructure:"retention_days"`
}

// Retention returns the guest record retention, zero when disabled.
func (l LocalStore) Retention() time.Duration {
	return time.Duration(max(l.RetentionDays, 0)) * 24 * time.Hour
}

// Inference configures the expression-model client.
type Inference struct {
	Address   string        `mapstructure:"address"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Landmarks bool          `mapstructure:"landmarks"`
}

// Server configures the HTTP API.
type Server struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SyncInterval   time.Duration `mapstructure:"sync_interval"`
	PruneInterval  time.Duration `mapstructure:"prune_interval"`
}

// Watch configures the reminder watcher.
type Watch struct {
	Interval     time.Duration `mapstructure:"interval"`
	ReminderHour int           `mapstructure:"reminder_hour"`
}

// Output defines output preferences.
type Output struct {
	Color string `mapstructure:"color"` // auto, always or never
	Width int    `mapstructure:"width"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. A .env file in the
// working directory and SMILECOACH_* environment variables override file
// values.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// A missing config file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.DataDir = expandPath(cfg.DataDir)
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, DefaultDBName)
	}
	cfg.DatabasePath = expandPath(cfg.DatabasePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) error {
	v.SetDefault("data_dir", DefaultConfigDir)
	v.SetDefault("database_path", "")

	// Every leaf gets its own default so each one can be overridden from
	// the environment.
	for prefix, value := range map[string]any{
		"scoring":   smile.DefaultWeights(),
		"goals":     coach.DefaultGoals(),
		"exercises": coach.DefaultExercises(),
	} {
		if err := setStructDefaults(v, prefix, value); err != nil {
			return err
		}
	}

	v.SetDefault("policy.naturalness_gate", DefaultPolicy.NaturalnessGate)
	v.SetDefault("policy.capture_min_score", DefaultPolicy.CaptureMinScore)
	v.SetDefault("policy.tick_interval", DefaultPolicy.TickInterval)
	v.SetDefault("guest.session_limit", DefaultGuest.SessionLimit)
	v.SetDefault("local_store.backend", DefaultLocalStore.Backend)
	v.SetDefault("local_store.redis_addr", DefaultLocalStore.RedisAddr)
	v.SetDefault("local_store.redis_db", DefaultLocalStore.RedisDB)
	v.SetDefault("local_store.redis_namespace", DefaultLocalStore.RedisNamespace)
	v.SetDefault("local_store.retention_days", DefaultLocalStore.RetentionDays)
	v.SetDefault("inference.address", DefaultInference.Address)
	v.SetDefault("inference.timeout", DefaultInference.Timeout)
	v.SetDefault("inference.landmarks", DefaultInference.Landmarks)
	v.SetDefault("server.listen_addr", DefaultServer.ListenAddr)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", DefaultServer.TokenTTL)
	v.SetDefault("server.allowed_origins", DefaultServer.AllowedOrigins)
	v.SetDefault("server.sync_interval", DefaultServer.SyncInterval)
	v.SetDefault("server.prune_interval", DefaultServer.PruneInterval)
	v.SetDefault("watch.interval", DefaultWatch.Interval)
	v.SetDefault("watch.reminder_hour", DefaultWatch.ReminderHour)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	return nil
}

// setStructDefaults registers one default per leaf field of value, keyed by
// its mapstructure path under prefix.
func setStructDefaults(v *viper.Viper, prefix string, value any) error {
	var m map[string]any
	if err := mapstructure.Decode(value, &m); err != nil {
		return fmt.Errorf("flattening %s defaults: %w", prefix, err)
	}
	for k, val := range m {
		key := prefix + "." + k
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range nested {
				v.SetDefault(key+"."+nk, nv)
			}
			continue
		}
		v.SetDefault(key, val)
	}
	return nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	switch c.LocalStore.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("local_store.backend must be sqlite or redis, got %q", c.LocalStore.Backend)
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color must be auto, always or never, got %q", c.Output.Color)
	}
	if c.Policy.NaturalnessGate < 0 || c.Policy.NaturalnessGate >= 1 {
		return fmt.Errorf("policy.naturalness_gate must be in [0,1), got %v", c.Policy.NaturalnessGate)
	}
	if c.Guest.SessionLimit <= 0 {
		return fmt.Errorf("guest.session_limit must be positive, got %d", c.Guest.SessionLimit)
	}
	return nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
