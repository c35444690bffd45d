package queuectl

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id does not exist, or does not
	// exist in the state an operation requires.
	ErrJobNotFound = errors.New("job not found")

	// ErrCorruptStore is returned by Store implementations when persisted
	// data cannot be decoded. The queue treats it as an empty collection.
	ErrCorruptStore = errors.New("job store is corrupt")

	// ErrInvalidTransition marks a state change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid job state transition")

	ErrUnknownSetting    = errors.New("unknown setting")
	ErrInvalidSetting    = errors.New("invalid setting value")
	ErrInvalidMaxRetries = errors.New("max retries must be at least 1")
	ErrEmptyCommand      = errors.New("command must not be empty")

	// ErrWorkersStopping is returned by StartWorkers while a Wait is still
	// draining earlier workers.
	ErrWorkersStopping = errors.New("workers are still stopping")
)

// TransitionError describes a rejected state change.
type TransitionError struct {
	JobID string
	From  JobState
	To    JobState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: cannot move from %s to %s", e.JobID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InvalidStateError is returned when a state filter is not a known state.
type InvalidStateError struct {
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("unknown job state %q", e.State)
}
