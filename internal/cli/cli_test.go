package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sky93/queuectl"
	"github.com/sky93/queuectl/internal/cli"
	"github.com/sky93/queuectl/internal/config"
)

func fileOpener(t *testing.T) cli.Opener {
	t.Helper()
	cfg := &config.Config{
		DataDir:      t.TempDir(),
		Store:        config.StoreFile,
		LogLevel:     "error",
		LogFormat:    "text",
		PollInterval: 10 * time.Millisecond,
		JobTimeout:   5 * time.Second,
		Shell:        "sh",
	}
	require.NoError(t, cfg.Validate())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return func(ctx context.Context) (*cli.Session, error) {
		return cli.Open(ctx, cfg, logger)
	}
}

func run(t *testing.T, ctx context.Context, open cli.Opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cli.NewRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestCLI_EnqueueListGet(t *testing.T) {
	open := fileOpener(t)
	ctx := context.Background()

	out, err := run(t, ctx, open, "--json", "enqueue", "--max-retries", "2", "echo", "hi")
	require.NoError(t, err)
	var job queuectl.JobRecord
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, "echo hi", job.Command)
	assert.Equal(t, 2, job.MaxRetries)

	out, err = run(t, ctx, open, "--json", "list", "--state", "pending")
	require.NoError(t, err)
	var jobs []queuectl.JobRecord
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	out, err = run(t, ctx, open, "list")
	require.NoError(t, err)
	assert.Contains(t, out, job.ID)
	assert.Contains(t, out, "0/2")

	out, err = run(t, ctx, open, "get", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "state:")
	assert.Contains(t, out, "pending")

	out, err = run(t, ctx, open, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending:")
	assert.Contains(t, out, "workers:")

	_, err = run(t, ctx, open, "list", "--state", "bogus")
	assert.Error(t, err)

	_, err = run(t, ctx, open, "get", "missing")
	assert.ErrorIs(t, err, queuectl.ErrJobNotFound)
}

func TestCLI_Config(t *testing.T) {
	open := fileOpener(t)
	ctx := context.Background()

	out, err := run(t, ctx, open, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_retries")
	assert.Contains(t, out, "backoff_base")

	out, err = run(t, ctx, open, "config", "set", "max_retries", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "max_retries = 5")

	out, err = run(t, ctx, open, "config", "get", "max_retries")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, err = run(t, ctx, open, "config", "set", "max_retries", "0")
	assert.ErrorIs(t, err, queuectl.ErrInvalidSetting)

	_, err = run(t, ctx, open, "config", "get", "color")
	assert.ErrorIs(t, err, queuectl.ErrUnknownSetting)

	out, err = run(t, ctx, open, "--json", "enqueue", "true")
	require.NoError(t, err)
	var job queuectl.JobRecord
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, 5, job.MaxRetries)

	out, err = run(t, ctx, open, "--json", "enqueue", "--max_retries", "4", "true")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, 4, job.MaxRetries)
}

func TestCLI_WorkerAndDLQ(t *testing.T) {
	open := fileOpener(t)
	ctx := context.Background()

	_, err := run(t, ctx, open, "config", "set", "backoff_base", "1")
	require.NoError(t, err)

	out, err := run(t, ctx, open, "--json", "enqueue", "echo done")
	require.NoError(t, err)
	var ok queuectl.JobRecord
	require.NoError(t, json.Unmarshal([]byte(out), &ok))

	out, err = run(t, ctx, open, "--json", "enqueue", "-r", "2", "exit 1")
	require.NoError(t, err)
	var bad queuectl.JobRecord
	require.NoError(t, json.Unmarshal([]byte(out), &bad))

	_, err = run(t, ctx, open, "dlq", "retry", bad.ID)
	assert.ErrorIs(t, err, queuectl.ErrJobNotFound)

	workerCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := run(t, workerCtx, open, "worker", "start", "-c", "2")
		done <- err
	}()

	require.Eventually(t, func() bool {
		s, err := open(ctx)
		if err != nil {
			return false
		}
		defer s.Close()
		dlq, err := s.Queue.ListDLQ(ctx)
		if err != nil || len(dlq) != 1 {
			return false
		}
		j, err := s.Queue.GetJob(ctx, ok.ID)
		return err == nil && j.State == queuectl.JobCompleted
	}, 5*time.Second, 20*time.Millisecond)

	stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker start did not return after cancel")
	}

	out, err = run(t, ctx, open, "dlq", "list")
	require.NoError(t, err)
	assert.Contains(t, out, bad.ID)

	out, err = run(t, ctx, open, "dlq", "retry", bad.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "moved from DLQ to pending")

	out, err = run(t, ctx, open, "dlq", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Dead letter queue is empty.")
}
