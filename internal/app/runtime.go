package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/blackwell-systems/smilecoach/internal/auth"
	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/config"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/localstore"
	"github.com/blackwell-systems/smilecoach/internal/output"
	"github.com/blackwell-systems/smilecoach/internal/smile"
	"github.com/blackwell-systems/smilecoach/internal/store"
)

const (
	deviceFile = "device_id"
	tokenFile  = "token"
)

// runtime holds the services one command needs.
type runtime struct {
	cfg       *config.Config
	db        *store.DB
	redis     *redis.Client
	local     *localstore.Store
	history   *history.Service
	auth      *auth.Service // nil without a JWT secret
	evaluator *smile.Evaluator
	coach     *coach.Engine
}

// openRuntime loads config, applies output flags and opens the stores.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	output.ConfigureColor(cfg.Output.Color)
	if flagNoColor {
		output.SetNoColor(true)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	rt := &runtime{
		cfg:       cfg,
		db:        db,
		evaluator: smile.NewEvaluator(cfg.Scoring),
		coach:     coach.NewEngine(cfg.Goals, cfg.Exercises),
	}

	var kv localstore.KV = localstore.NewSQLiteKV(db)
	if cfg.LocalStore.Backend == "redis" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr: cfg.LocalStore.RedisAddr,
			DB:   cfg.LocalStore.RedisDB,
		})
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.LocalStore.RedisAddr, err)
		}
		kv = localstore.NewRedisKV(rt.redis, cfg.LocalStore.RedisNamespace)
	}
	rt.local = localstore.New(kv)
	rt.history = history.NewService(db, rt.local)

	if cfg.Server.JWTSecret != "" {
		a, err := auth.NewService(db, cfg.Server.JWTSecret, cfg.Server.TokenTTL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.auth = a
	}
	return rt, nil
}

// Close releases the stores.
func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

// identity resolves who the command runs as: a signed-in user when a token
// is given by flag or saved by "user login", otherwise this device as a
// guest.
func (rt *runtime) identity() (history.Identity, error) {
	device, err := rt.deviceID()
	if err != nil {
		return history.Identity{}, err
	}

	token := flagToken
	if token == "" {
		token = rt.savedToken()
	}
	if token == "" {
		return history.Identity{DeviceID: device}, nil
	}
	if rt.auth == nil {
		return history.Identity{}, errors.New("a token was given but server.jwt_secret is not configured")
	}
	id, err := rt.auth.Validate(token)
	if err != nil {
		return history.Identity{}, fmt.Errorf("%w (run 'smilecoach user login' again)", err)
	}
	id.DeviceID = device
	return id, nil
}

// deviceID returns the --device flag or this installation's persistent
// device id, creating it on first use.
func (rt *runtime) deviceID() (string, error) {
	if flagDevice != "" {
		return flagDevice, nil
	}
	path := filepath.Join(rt.cfg.DataDir, deviceFile)
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	if err := os.MkdirAll(rt.cfg.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("saving device id: %w", err)
	}
	return id, nil
}

func (rt *runtime) savedToken() string {
	data, err := os.ReadFile(filepath.Join(rt.cfg.DataDir, tokenFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (rt *runtime) saveToken(token string) error {
	if err := os.MkdirAll(rt.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	return os.WriteFile(filepath.Join(rt.cfg.DataDir, tokenFile), []byte(token+"\n"), 0o600)
}

func (rt *runtime) forgetToken() error {
	err := os.Remove(filepath.Join(rt.cfg.DataDir, tokenFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// records lists the caller's history, newest first.
func (rt *runtime) records(ctx context.Context) ([]history.Record, history.Identity, error) {
	id, err := rt.identity()
	if err != nil {
		return nil, id, err
	}
	records, err := rt.history.List(ctx, id)
	return records, id, err
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// verbosef prints to stderr when --verbose is set.
func verbosef(format string, args ...any) {
	if flagVerbose {
		fmt.Fprintln(os.Stderr, output.StyleMuted.Render(fmt.Sprintf(format, args...)))
	}
}

// now is replaced in tests.
var now = time.Now

// ensureGuestAccepted requires guests to have accepted guest mode, either
// earlier or now via --accept-guest.
func (rt *runtime) ensureGuestAccepted(ctx context.Context, id history.Identity) error {
	if !id.Guest() {
		return nil
	}
	if practiceFlagAcceptGuest {
		return rt.local.AcceptGuestMode(ctx, id.DeviceID)
	}
	accepted, err := rt.local.GuestAccepted(ctx, id.DeviceID)
	if err != nil {
		return err
	}
	if !accepted {
		return errors.New("guest mode not accepted: pass --accept-guest or sign in with 'smilecoach user login'")
	}
	return nil
}
