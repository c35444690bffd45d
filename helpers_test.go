package queuectl_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky93/queuectl"
	"github.com/sky93/queuectl/store/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scriptedRunner succeeds for every command in ok and fails the rest.
type scriptedRunner struct {
	mu    sync.Mutex
	ok    map[string]bool
	calls []string
	hook  func(command string)
}

func (r *scriptedRunner) Run(_ context.Context, command string, _ time.Duration) queuectl.RunResult {
	r.mu.Lock()
	r.calls = append(r.calls, command)
	hook := r.hook
	ok := r.ok[command]
	r.mu.Unlock()

	if hook != nil {
		hook(command)
	}
	if ok {
		return queuectl.RunResult{Success: true, Stdout: "ok\n"}
	}
	return queuectl.RunResult{ExitCode: 1, Failure: queuectl.FailureExit, Err: "exit status 1"}
}

func (r *scriptedRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type queueOpts struct {
	store    queuectl.Store
	runner   queuectl.Runner
	settings queuectl.Settings
	clock    *fakeClock
	pub      queuectl.Publisher
}

func newTestQueue(t *testing.T, o queueOpts) *queuectl.Queue {
	t.Helper()
	if o.store == nil {
		o.store = memstore.New()
	}
	if o.runner == nil {
		o.runner = &scriptedRunner{}
	}
	if o.settings == (queuectl.Settings{}) {
		o.settings = queuectl.DefaultSettings()
	}
	if o.clock == nil {
		o.clock = newFakeClock()
	}
	q, err := queuectl.New(queuectl.Config{
		Store:        o.store,
		Settings:     queuectl.NewMemorySettings(o.settings),
		Runner:       o.runner,
		Publisher:    o.pub,
		PollInterval: 10 * time.Millisecond,
		Logger:       discardLogger(),
		Now:          o.clock.Now,
	})
	require.NoError(t, err)
	return q
}
