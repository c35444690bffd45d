package queuectl

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultJobTimeout bounds a single command execution.
const DefaultJobTimeout = 30 * time.Second

// FailureKind tells the reasons a command did not succeed apart.
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureExit    FailureKind = "exit"
	FailureTimeout FailureKind = "timeout"
	FailureStart   FailureKind = "start"
)

// RunResult is the outcome of one command execution. Every failure mode is
// reported here; Run never returns a Go error.
type RunResult struct {
	Success  bool        `json:"success"`
	Stdout   string      `json:"stdout,omitempty"`
	Stderr   string      `json:"stderr,omitempty"`
	ExitCode int         `json:"exit_code"`
	Failure  FailureKind `json:"failure,omitempty"`
	Err      string      `json:"error,omitempty"`
}

// Summary is what gets stored on the job record as its output.
func (r RunResult) Summary() string {
	var b bytes.Buffer
	b.WriteString(r.Stdout)
	b.WriteString(r.Stderr)
	if r.Err != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Err)
	}
	return b.String()
}

// Runner executes a command string.
type Runner interface {
	Run(ctx context.Context, command string, timeout time.Duration) RunResult
}

// ShellRunner runs commands through a POSIX shell.
type ShellRunner struct {
	// Shell defaults to "sh".
	Shell string
}

func (r ShellRunner) Run(ctx context.Context, command string, timeout time.Duration) RunResult {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the pipes must not keep Wait blocked past the kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.Failure = FailureTimeout
		res.Err = "timeout"
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Success = true
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.Failure = FailureExit
		res.ExitCode = exitErr.ExitCode()
		res.Err = exitErr.Error()
	default:
		res.Failure = FailureStart
		res.Err = err.Error()
	}
	return res
}
