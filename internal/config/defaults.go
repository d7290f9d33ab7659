// Package config provides configuration loading and defaults for smilecoach.
package config

import "time"

// DefaultConfigDir is the default location for smilecoach configuration and
// data.
const DefaultConfigDir = "~/.config/smilecoach"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "smilecoach.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. SMILECOACH_SERVER_LISTEN_ADDR.
const EnvPrefix = "SMILECOACH"

// DefaultPolicy holds the record policy defaults.
var DefaultPolicy = Policy{
	NaturalnessGate: 0.6,
	CaptureMinScore: 60,
	TickInterval:    500 * time.Millisecond,
}

// DefaultGuest holds the guest-mode defaults.
var DefaultGuest = Guest{
	SessionLimit: 10,
}

// DefaultLocalStore keeps device data in the SQLite database.
var DefaultLocalStore = LocalStore{
	Backend:        "sqlite",
	RedisAddr:      "localhost:6379",
	RedisDB:        0,
	RedisNamespace: "smilecoach",
	RetentionDays:  30,
}

// DefaultInference holds the model client defaults.
var DefaultInference = Inference{
	Address:   "localhost:50051",
	Timeout:   2 * time.Second,
	Landmarks: true,
}

// DefaultServer holds the HTTP server defaults.
var DefaultServer = Server{
	ListenAddr:     ":8080",
	TokenTTL:       30 * 24 * time.Hour,
	AllowedOrigins: []string{},
	SyncInterval:   5 * time.Minute,
	PruneInterval:  24 * time.Hour,
}

// DefaultWatch holds the watcher defaults.
var DefaultWatch = Watch{
	Interval:     5 * time.Minute,
	ReminderHour: 18,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: "auto",
	Width: 80,
}
