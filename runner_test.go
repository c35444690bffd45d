package queuectl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sky93/queuectl"
)

func TestShellRunner_Success(t *testing.T) {
	res := queuectl.ShellRunner{}.Run(context.Background(), "echo out; echo err >&2", time.Second)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, queuectl.FailureNone, res.Failure)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, "out\nerr\n", res.Summary())
}

func TestShellRunner_NonZeroExit(t *testing.T) {
	res := queuectl.ShellRunner{}.Run(context.Background(), "exit 3", time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, queuectl.FailureExit, res.Failure)
	assert.NotEmpty(t, res.Err)
}

func TestShellRunner_UnknownCommand(t *testing.T) {
	res := queuectl.ShellRunner{}.Run(context.Background(), "definitely-not-a-command-xyz", time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, queuectl.FailureExit, res.Failure)
	assert.Equal(t, 127, res.ExitCode)
}

func TestShellRunner_Timeout(t *testing.T) {
	start := time.Now()
	res := queuectl.ShellRunner{}.Run(context.Background(), "sleep 5", 100*time.Millisecond)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, queuectl.FailureTimeout, res.Failure)
	assert.Equal(t, "timeout", res.Err)
}

func TestShellRunner_StartFailure(t *testing.T) {
	res := queuectl.ShellRunner{Shell: "/nonexistent/shell"}.Run(context.Background(), "true", time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, queuectl.FailureStart, res.Failure)
	assert.Equal(t, -1, res.ExitCode)
	assert.NotEmpty(t, res.Err)
}

func TestRunResult_Summary(t *testing.T) {
	assert.Equal(t, "", queuectl.RunResult{Success: true}.Summary())
	assert.Equal(t, "timeout", queuectl.RunResult{Err: "timeout"}.Summary())
	assert.Equal(t, "partial\ntimeout", queuectl.RunResult{Stdout: "partial", Err: "timeout"}.Summary())
}
