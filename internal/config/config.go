package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

// Store backends selectable through QUEUECTL_STORE.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config is the process configuration, read from QUEUECTL_* variables.
type Config struct {
	DataDir string `envconfig:"DATA_DIR" default:"./.queuectl"`
	Store   string `envconfig:"STORE" default:"file"`
	DSN     string `envconfig:"DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisKey  string `envconfig:"REDIS_KEY" default:"queuectl:jobs"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	JobTimeout   time.Duration `envconfig:"JOB_TIMEOUT" default:"30s"`
	ClaimLease   time.Duration `envconfig:"CLAIM_LEASE" default:"0s"`
	Shell        string        `envconfig:"JOB_SHELL" default:"sh"`

	NSQDAddr     string `envconfig:"NSQD_ADDR"`
	OTelEndpoint string `envconfig:"OTEL_ENDPOINT"`
	HTTPAddr     string `envconfig:"HTTP_ADDR"`
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("queuectl", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	case StoreMySQL, StorePostgres:
		if c.DSN == "" {
			return fmt.Errorf("%w: QUEUECTL_DSN for store %s", ErrMissingRequired, c.Store)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: QUEUECTL_REDIS_ADDR", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: QUEUECTL_DATA_DIR", ErrMissingRequired)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: QUEUECTL_POLL_INTERVAL must be positive", ErrInvalid)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: QUEUECTL_JOB_TIMEOUT must be positive", ErrInvalid)
	}
	if c.ClaimLease < 0 || (c.ClaimLease > 0 && c.ClaimLease <= c.JobTimeout) {
		return fmt.Errorf("%w: QUEUECTL_CLAIM_LEASE must be 0 or longer than QUEUECTL_JOB_TIMEOUT", ErrInvalid)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: QUEUECTL_LOG_FORMAT must be text or json", ErrInvalid)
	}
	return nil
}

// JobsFile is where the file store keeps jobs.
func (c *Config) JobsFile() string { return filepath.Join(c.DataDir, "jobs.json") }

// SettingsFile is where the persisted queue settings live.
func (c *Config) SettingsFile() string { return filepath.Join(c.DataDir, "config.json") }

// SQLiteDSN is the database file used when QUEUECTL_STORE=sqlite and no DSN
// is given.
func (c *Config) SQLiteDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "file:" + filepath.Join(c.DataDir, "queuectl.db") + "?_busy_timeout=5000"
}
