package queuectl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sky93/queuectl/internal/telemetry"
)

// maxOutputBytes caps the captured output kept on a job record.
const maxOutputBytes = 4096

// errNoChange aborts a read-modify-write cycle without saving.
var errNoChange = errors.New("no change")

// Queue is the job queue: it owns the store lock, the worker manager and the
// operations exposed to the control surface.
type Queue struct {
	cfg *Config

	// mu serializes every read-modify-write cycle against the store.
	mu sync.Mutex

	mgr    *Manager
	wakeup chan struct{}

	warnMu       sync.Mutex
	storeWarning string
}

// New validates cfg, fills in defaults and returns a Queue.
func New(cfg Config) (*Queue, error) {
	if err := cfg.withDefaults(); err != nil {
		return nil, err
	}
	q := &Queue{
		cfg:    &cfg,
		wakeup: make(chan struct{}, 1),
	}
	q.mgr = newManager(q)
	return q, nil
}

// EnqueueOption customises a job at creation.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	maxRetries *int
}

// WithMaxRetries overrides the configured max_retries for one job.
func WithMaxRetries(n int) EnqueueOption {
	return func(o *enqueueOptions) { o.maxRetries = &n }
}

// Enqueue adds a new pending job running command.
func (q *Queue) Enqueue(ctx context.Context, command string, opts ...EnqueueOption) (*JobRecord, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	var o enqueueOptions
	for _, opt := range opts {
		opt(&o)
	}

	maxRetries := 0
	if o.maxRetries != nil {
		if *o.maxRetries < 1 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxRetries, *o.maxRetries)
		}
		maxRetries = *o.maxRetries
	} else {
		settings, err := q.cfg.Settings.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		maxRetries = settings.Normalize().MaxRetries
	}

	now := q.cfg.Now()
	job := JobRecord{
		ID:         uuid.NewString(),
		Command:    command,
		State:      JobPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := q.mutate(ctx, func(jobs []JobRecord) ([]JobRecord, error) {
		return append(jobs, job), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	telemetry.JobsEnqueued.Inc()
	q.cfg.logInfo(LogEvent{
		Message:    "job enqueued",
		JobID:      job.ID,
		Command:    job.Command,
		MaxRetries: &job.MaxRetries,
	})

	// Let an idle worker check immediately.
	select {
	case q.wakeup <- struct{}{}:
	default:
	}
	return &job, nil
}

// ListJobs returns the jobs in store order, filtered by state unless state
// is empty.
func (q *Queue) ListJobs(ctx context.Context, state JobState) ([]JobRecord, error) {
	jobs, err := q.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]JobRecord, 0, len(jobs))
	for _, j := range jobs {
		if state == "" || j.State == state {
			out = append(out, j.Clone())
		}
	}
	return out, nil
}

// ListDLQ returns the dead jobs.
func (q *Queue) ListDLQ(ctx context.Context) ([]JobRecord, error) {
	return q.ListJobs(ctx, JobDead)
}

// GetJob returns the job with the given id or ErrJobNotFound.
func (q *Queue) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	jobs, err := q.read(ctx)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.ID == id {
			c := j.Clone()
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// RequeueDLQ moves a dead job back to pending. Jobs that do not exist or are
// not dead yield ErrJobNotFound and leave the store untouched.
func (q *Queue) RequeueDLQ(ctx context.Context, id string) (*JobRecord, error) {
	var requeued JobRecord
	err := q.mutate(ctx, func(jobs []JobRecord) ([]JobRecord, error) {
		for i := range jobs {
			if jobs[i].ID != id || jobs[i].State != JobDead {
				continue
			}
			if err := Requeue(&jobs[i], q.cfg.Now()); err != nil {
				return nil, err
			}
			requeued = jobs[i].Clone()
			return jobs, nil
		}
		return nil, fmt.Errorf("%w in DLQ: %s", ErrJobNotFound, id)
	})
	if err != nil {
		return nil, err
	}

	telemetry.JobsRequeued.Inc()
	q.cfg.logInfo(LogEvent{Message: "job moved from DLQ to pending", JobID: id})
	select {
	case q.wakeup <- struct{}{}:
	default:
	}
	return &requeued, nil
}

// Status counts jobs per state and reports the active worker count.
func (q *Queue) Status(ctx context.Context) (*QueueStatus, error) {
	jobs, err := q.read(ctx)
	if err != nil {
		return nil, err
	}
	st := &QueueStatus{
		Counts:        make(map[JobState]int, len(States)),
		Total:         len(jobs),
		ActiveWorkers: q.mgr.active(),
		StoreWarning:  q.warning(),
	}
	for _, s := range States {
		st.Counts[s] = 0
	}
	for _, j := range jobs {
		st.Counts[j.State]++
	}
	return st, nil
}

// Settings returns the persisted settings.
func (q *Queue) Settings(ctx context.Context) (Settings, error) {
	return q.cfg.Settings.Load(ctx)
}

// SetSetting updates and persists one setting.
func (q *Queue) SetSetting(ctx context.Context, key, value string) (Settings, error) {
	s, err := q.cfg.Settings.Set(ctx, key, value)
	if err != nil {
		return s, err
	}
	q.cfg.logInfo(LogEvent{Message: fmt.Sprintf("config updated: %s = %s", key, value)})
	return s, nil
}

// StartWorkers launches workers worker-1..worker-n. Ids that are already
// running are left alone. It returns once the goroutines are started.
func (q *Queue) StartWorkers(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", n)
	}
	started, err := q.mgr.start(ctx, n)
	if err != nil {
		return err
	}
	q.cfg.logInfo(LogEvent{Message: fmt.Sprintf("started %d worker(s)", started)})
	return nil
}

// StopWorkers asks every worker to stop after its current job. It does not
// wait; use Wait to join.
func (q *Queue) StopWorkers() {
	stopped := q.mgr.stop()
	q.cfg.logInfo(LogEvent{Message: fmt.Sprintf("stopped %d worker(s)", stopped)})
}

// Wait blocks until every worker goroutine has returned or ctx is done.
// Call it after StopWorkers or after canceling the context passed to
// StartWorkers. Until the workers have drained, StartWorkers fails with
// ErrWorkersStopping.
func (q *Queue) Wait(ctx context.Context) error {
	return q.mgr.wait(ctx)
}

// ActiveWorkers is the number of workers started and not yet stopped.
func (q *Queue) ActiveWorkers() int {
	return q.mgr.active()
}

// claimNext picks the next eligible job and moves it to processing.
// It returns nil when nothing is eligible.
func (q *Queue) claimNext(ctx context.Context) (*JobRecord, error) {
	var claimed *JobRecord
	err := q.mutate(ctx, func(jobs []JobRecord) ([]JobRecord, error) {
		now := q.cfg.Now()
		i := SelectNext(jobs, now, q.cfg.ClaimLease)
		if i < 0 {
			return nil, errNoChange
		}
		var err error
		if jobs[i].State == JobProcessing {
			err = Reclaim(&jobs[i], now, q.cfg.ClaimLease)
		} else {
			err = Claim(&jobs[i], now)
		}
		if err != nil {
			return nil, err
		}
		c := jobs[i].Clone()
		claimed = &c
		return jobs, nil
	})
	return claimed, err
}

// applyOutcome records the result of executing job id. A job that vanished
// while its command ran is reported as (nil, nil) and nothing is written.
func (q *Queue) applyOutcome(ctx context.Context, id string, res RunResult) (*JobRecord, error) {
	settings, err := q.cfg.Settings.Load(ctx)
	if err != nil {
		q.cfg.logWarn(LogEvent{Message: "could not load settings, using defaults", JobID: id, Err: err})
		settings = DefaultSettings()
	}
	settings = settings.Normalize()

	var updated *JobRecord
	err = q.mutate(ctx, func(jobs []JobRecord) ([]JobRecord, error) {
		for i := range jobs {
			if jobs[i].ID != id {
				continue
			}
			now := q.cfg.Now()
			var err error
			if res.Success {
				err = Complete(&jobs[i], now)
			} else {
				err = Fail(&jobs[i], now, settings.BackoffBase)
			}
			if err != nil {
				return nil, err
			}
			jobs[i].Output = truncateOutput(res.Summary())
			c := jobs[i].Clone()
			updated = &c
			return jobs, nil
		}
		return nil, errNoChange
	})
	return updated, err
}

// mutate runs one locked read-modify-write cycle. fn returning errNoChange
// skips the save.
func (q *Queue) mutate(ctx context.Context, fn func(jobs []JobRecord) ([]JobRecord, error)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs, err := q.load(ctx)
	if err != nil {
		return err
	}
	jobs, err = fn(jobs)
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := q.cfg.Store.SaveAll(ctx, jobs); err != nil {
		return fmt.Errorf("save jobs: %w", err)
	}
	return nil
}

func (q *Queue) read(ctx context.Context) ([]JobRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// load reads the collection. Corrupt data degrades to an empty collection
// and is remembered as the store warning.
func (q *Queue) load(ctx context.Context) ([]JobRecord, error) {
	jobs, err := q.cfg.Store.LoadAll(ctx)
	if errors.Is(err, ErrCorruptStore) {
		telemetry.StoreCorruptTotal.Inc()
		q.setWarning(err.Error())
		q.cfg.logWarn(LogEvent{Message: "job store is corrupt, treating it as empty", Err: err})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	q.setWarning("")
	return jobs, nil
}

func (q *Queue) setWarning(w string) {
	q.warnMu.Lock()
	q.storeWarning = w
	q.warnMu.Unlock()
}

func (q *Queue) warning() string {
	q.warnMu.Lock()
	defer q.warnMu.Unlock()
	return q.storeWarning
}

// truncateOutput keeps the tail of s, which is where errors usually are.
func truncateOutput(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return "..." + s[len(s)-maxOutputBytes:]
}
