package queuectl

import (
	"time"
)

// JobState enumerates the possible states of a job.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
	JobDead       JobState = "dead"
)

// States lists every job state in lifecycle order.
var States = []JobState{JobPending, JobProcessing, JobCompleted, JobFailed, JobDead}

// Valid reports whether s is one of the known states.
func (s JobState) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed, JobDead:
		return true
	}
	return false
}

// ParseState converts user input into a JobState. The empty string is
// accepted and means "no filter".
func ParseState(s string) (JobState, error) {
	st := JobState(s)
	if s == "" || st.Valid() {
		return st, nil
	}
	return "", &InvalidStateError{State: s}
}

// JobRecord is one entry of the persisted job collection.
type JobRecord struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	State       JobState   `json:"state"`
	Attempts    int        `json:"attempts"`
	MaxRetries  int        `json:"max_retries"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`

	// Output holds the captured output of the last execution.
	Output string `json:"output,omitempty"`
}

// Clone returns a deep copy so callers never alias store-owned records.
func (j JobRecord) Clone() JobRecord {
	if j.NextRetryAt != nil {
		t := *j.NextRetryAt
		j.NextRetryAt = &t
	}
	return j
}

// Settings are the persisted, process-wide queue tunables.
type Settings struct {
	MaxRetries  int     `json:"max_retries"`
	BackoffBase float64 `json:"backoff_base"`
	WorkerCount int     `json:"worker_count"`
}

// DefaultSettings returns the values written on first run.
func DefaultSettings() Settings {
	return Settings{
		MaxRetries:  3,
		BackoffBase: 2,
		WorkerCount: 1,
	}
}

// QueueStatus is a point-in-time summary of the queue.
type QueueStatus struct {
	Counts        map[JobState]int `json:"counts"`
	Total         int              `json:"total"`
	ActiveWorkers int              `json:"workers"`

	// StoreWarning is set when the last store read found corrupt data and
	// the collection was treated as empty.
	StoreWarning string `json:"store_warning,omitempty"`
}
