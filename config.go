package queuectl

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPollInterval is how long an idle worker sleeps before looking again.
const DefaultPollInterval = time.Second

// LogEvent captures information about a logging event.
type LogEvent struct {
	// A human-readable message about the event.
	Message string

	// The ID of the worker that triggered the log (if any).
	WorkerID string

	// The Job ID, if available.
	JobID string

	// The command of the job, if available.
	Command string

	// Attempts and MaxRetries of the job after the event, if relevant.
	Attempts   *int
	MaxRetries *int

	// Any error associated with the event.
	Err error

	// How long the job or operation took, if relevant.
	Duration *time.Duration
}

// Config holds the collaborators and settings needed by the queue.
type Config struct {
	// Store is where job records live. Required.
	Store Store

	// Settings provides max_retries and backoff_base. Defaults to an
	// in-memory store with DefaultSettings.
	Settings SettingsStore

	// Runner executes job commands. Defaults to ShellRunner.
	Runner Runner

	// Publisher, if set, receives an event when a job completes or dies.
	Publisher Publisher

	// PollInterval is how long an idle worker waits before checking again.
	PollInterval time.Duration

	// JobTimeout is how long a single command may run before it is killed
	// and counted as a failed attempt.
	JobTimeout time.Duration

	// ClaimLease, when non-zero, lets workers reclaim processing jobs whose
	// claim is older than the lease. Zero keeps stuck jobs where they are.
	ClaimLease time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Tracer defaults to the global otel tracer named "queuectl".
	Tracer trace.Tracer

	// Now defaults to time.Now.
	Now func() time.Time
}

func (c *Config) withDefaults() error {
	if c.Store == nil {
		return errors.New("queuectl: Config.Store is required")
	}
	if c.Settings == nil {
		c.Settings = NewMemorySettings(DefaultSettings())
	}
	if c.Runner == nil {
		c.Runner = ShellRunner{}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	if c.ClaimLease < 0 {
		c.ClaimLease = 0
	}
	if c.ClaimLease > 0 && c.ClaimLease <= c.JobTimeout {
		return errors.New("queuectl: ClaimLease must be longer than JobTimeout")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer("queuectl")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}
