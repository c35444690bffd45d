package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nsqio/go-nsq"

	"github.com/sky93/queuectl"
	"github.com/sky93/queuectl/internal/config"
	"github.com/sky93/queuectl/internal/telemetry"
	"github.com/sky93/queuectl/settings"
	"github.com/sky93/queuectl/store/filestore"
	"github.com/sky93/queuectl/store/memstore"
	"github.com/sky93/queuectl/store/redisstore"
	"github.com/sky93/queuectl/store/sqlstore"
)

// Session is everything one command invocation needs.
type Session struct {
	Queue  *queuectl.Queue
	Config *config.Config
	Logger *slog.Logger

	closers []func()
}

// Close releases the store, the producer and the tracer, last opened first.
func (s *Session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Opener builds a Session. Tests swap it for one backed by memory.
type Opener func(ctx context.Context) (*Session, error)

// OpenFromEnv loads the process configuration and opens the configured store.
func OpenFromEnv(ctx context.Context) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Open(ctx, cfg, buildLogger(cfg.LogLevel, cfg.LogFormat))
}

// Open wires a Queue from cfg.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	s := &Session{Config: cfg, Logger: logger}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, "queuectl", cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	s.closers = append(s.closers, shutdownTracer)

	store, err := openStore(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}

	var publisher queuectl.Publisher
	if cfg.NSQDAddr != "" {
		producer, err := nsq.NewProducer(cfg.NSQDAddr, nsq.NewConfig())
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		s.closers = append(s.closers, producer.Stop)
		publisher = producer
	}

	q, err := queuectl.New(queuectl.Config{
		Store:        store,
		Settings:     settings.NewFileStore(cfg.SettingsFile(), logger),
		Runner:       queuectl.ShellRunner{Shell: cfg.Shell},
		Publisher:    publisher,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		ClaimLease:   cfg.ClaimLease,
		Logger:       logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Queue = q
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config, s *Session) (queuectl.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StoreRedis:
		st := redisstore.New(redisstore.NewClient(cfg.RedisAddr), cfg.RedisKey)
		s.closers = append(s.closers, func() { _ = st.Close() })
		return st, nil
	case config.StoreSQLite, config.StoreMySQL, config.StorePostgres:
		d, err := sqlstore.DialectFor(cfg.Store)
		if err != nil {
			return nil, err
		}
		dsn := cfg.DSN
		if cfg.Store == config.StoreSQLite {
			dsn = cfg.SQLiteDSN()
		}
		st, err := sqlstore.Open(ctx, d, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
		}
		s.closers = append(s.closers, func() { _ = st.Close() })
		return st, nil
	default:
		return filestore.New(cfg.JobsFile()), nil
	}
}

func buildLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
