package queuectl

import (
	"context"
	"log/slog"
)

func (ev LogEvent) attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 7)
	if ev.WorkerID != "" {
		attrs = append(attrs, slog.String("worker_id", ev.WorkerID))
	}
	if ev.JobID != "" {
		attrs = append(attrs, slog.String("job_id", ev.JobID))
	}
	if ev.Command != "" {
		attrs = append(attrs, slog.String("command", ev.Command))
	}
	if ev.Attempts != nil {
		attrs = append(attrs, slog.Int("attempts", *ev.Attempts))
	}
	if ev.MaxRetries != nil {
		attrs = append(attrs, slog.Int("max_retries", *ev.MaxRetries))
	}
	if ev.Duration != nil {
		attrs = append(attrs, slog.Duration("duration", *ev.Duration))
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}
	return attrs
}

// Helper methods to invoke logging
func (c *Config) logInfo(ev LogEvent) {
	c.Logger.LogAttrs(context.Background(), slog.LevelInfo, ev.Message, ev.attrs()...)
}

func (c *Config) logWarn(ev LogEvent) {
	c.Logger.LogAttrs(context.Background(), slog.LevelWarn, ev.Message, ev.attrs()...)
}

func (c *Config) logError(ev LogEvent) {
	c.Logger.LogAttrs(context.Background(), slog.LevelError, ev.Message, ev.attrs()...)
}

func (c *Config) logDebug(ev LogEvent) {
	c.Logger.LogAttrs(context.Background(), slog.LevelDebug, ev.Message, ev.attrs()...)
}
