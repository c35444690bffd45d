package queuectl_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sky93/queuectl"
	"github.com/sky93/queuectl/store/memstore"
)

func waitForState(t *testing.T, q *queuectl.Queue, id string, want queuectl.JobState) *queuectl.JobRecord {
	t.Helper()
	var last *queuectl.JobRecord
	require.Eventually(t, func() bool {
		j, err := q.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		last = j
		return j.State == want
	}, 3*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return last
}

func stopAndWait(t *testing.T, q *queuectl.Queue) {
	t.Helper()
	q.StopWorkers()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func TestWorker_CompletesJob(t *testing.T) {
	runner := &scriptedRunner{ok: map[string]bool{"echo ok": true}}
	q := newTestQueue(t, queueOpts{runner: runner})
	ctx := context.Background()

	j, err := q.Enqueue(ctx, "echo ok")
	require.NoError(t, err)
	require.NoError(t, q.StartWorkers(ctx, 1))
	defer stopAndWait(t, q)

	done := waitForState(t, q, j.ID, queuectl.JobCompleted)
	assert.Equal(t, 0, done.Attempts)
	assert.Nil(t, done.NextRetryAt)
	assert.Equal(t, "ok\n", done.Output)
}

func TestWorker_RetriesThenDLQ(t *testing.T) {
	clock := newFakeClock()
	q := newTestQueue(t, queueOpts{clock: clock})
	ctx := context.Background()

	j, err := q.Enqueue(ctx, "false", queuectl.WithMaxRetries(2))
	require.NoError(t, err)
	require.NoError(t, q.StartWorkers(ctx, 1))
	defer stopAndWait(t, q)

	failed := waitForState(t, q, j.ID, queuectl.JobFailed)
	assert.Equal(t, 1, failed.Attempts)
	require.NotNil(t, failed.NextRetryAt)
	assert.Equal(t, t0.Add(2*time.Second), *failed.NextRetryAt)

	// Not due yet: the worker keeps polling without touching it.
	time.Sleep(50 * time.Millisecond)
	still, err := q.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, queuectl.JobFailed, still.State)

	clock.Advance(2 * time.Second)
	dead := waitForState(t, q, j.ID, queuectl.JobDead)
	assert.Equal(t, 2, dead.Attempts)
	assert.Nil(t, dead.NextRetryAt)

	dlq, err := q.ListDLQ(ctx)
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.Equal(t, j.ID, dlq[0].ID)
}

func TestWorker_ConcurrentWorkersRunEachJobOnce(t *testing.T) {
	runner := &scriptedRunner{ok: map[string]bool{}}
	var ids []string
	for i := 0; i < 25; i++ {
		runner.ok[string(rune('a'+i))] = true
	}
	q := newTestQueue(t, queueOpts{runner: runner})
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		j, err := q.Enqueue(ctx, string(rune('a'+i)))
		require.NoError(t, err)
		ids = append(ids, j.ID)
	}
	require.NoError(t, q.StartWorkers(ctx, 4))
	assert.Equal(t, 4, q.ActiveWorkers())

	for _, id := range ids {
		waitForState(t, q, id, queuectl.JobCompleted)
	}
	stopAndWait(t, q)

	calls := runner.Calls()
	assert.Len(t, calls, 25)
	seen := map[string]int{}
	for _, c := range calls {
		seen[c]++
	}
	for cmd, n := range seen {
		assert.Equal(t, 1, n, "command %s ran %d times", cmd, n)
	}
}

func TestWorker_StopFinishesRunningJob(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runner := &scriptedRunner{
		ok: map[string]bool{"slow": true, "next": true},
		hook: func(cmd string) {
			if cmd == "slow" {
				close(started)
				<-release
			}
		},
	}
	q := newTestQueue(t, queueOpts{runner: runner})
	ctx := context.Background()

	slow, err := q.Enqueue(ctx, "slow")
	require.NoError(t, err)
	next, err := q.Enqueue(ctx, "next")
	require.NoError(t, err)

	require.NoError(t, q.StartWorkers(ctx, 1))
	<-started

	q.StopWorkers()
	assert.Equal(t, 0, q.ActiveWorkers())
	close(release)

	waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(waitCtx))

	got, err := q.GetJob(ctx, slow.ID)
	require.NoError(t, err)
	assert.Equal(t, queuectl.JobCompleted, got.State)

	got, err = q.GetJob(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, queuectl.JobPending, got.State)
	assert.Equal(t, []string{"slow"}, runner.Calls())
}

func TestWorker_CancelParentContextStops(t *testing.T) {
	q := newTestQueue(t, queueOpts{})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.StartWorkers(ctx, 2))
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer waitCancel()
	require.NoError(t, q.Wait(waitCtx))
	assert.Equal(t, 0, q.ActiveWorkers())
}

func TestStartWorkers_Idempotent(t *testing.T) {
	q := newTestQueue(t, queueOpts{})
	ctx := context.Background()

	require.NoError(t, q.StartWorkers(ctx, 2))
	require.NoError(t, q.StartWorkers(ctx, 2))
	assert.Equal(t, 2, q.ActiveWorkers())

	require.NoError(t, q.StartWorkers(ctx, 3))
	assert.Equal(t, 3, q.ActiveWorkers())

	assert.Error(t, q.StartWorkers(ctx, 0))

	stopAndWait(t, q)
	assert.Equal(t, 0, q.ActiveWorkers())

	st, err := q.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.ActiveWorkers)
}

func TestStartWorkers_RefusedWhileWaiting(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runner := &scriptedRunner{
		ok: map[string]bool{"slow": true},
		hook: func(cmd string) {
			if cmd == "slow" {
				close(started)
				<-release
			}
		},
	}
	q := newTestQueue(t, queueOpts{runner: runner})
	ctx := context.Background()

	slow, err := q.Enqueue(ctx, "slow")
	require.NoError(t, err)
	require.NoError(t, q.StartWorkers(ctx, 1))
	<-started
	q.StopWorkers()

	// The slow job keeps the worker alive past this deadline, so the
	// Wait is still draining when StartWorkers runs.
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(shortCtx), context.DeadlineExceeded)

	assert.ErrorIs(t, q.StartWorkers(ctx, 1), queuectl.ErrWorkersStopping)
	assert.Equal(t, 0, q.ActiveWorkers())

	close(release)
	waitCtx, cancelWait := context.WithTimeout(ctx, 3*time.Second)
	defer cancelWait()
	require.NoError(t, q.Wait(waitCtx))
	waitForState(t, q, slow.ID, queuectl.JobCompleted)

	require.Eventually(t, func() bool {
		return q.StartWorkers(ctx, 1) == nil
	}, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, q.ActiveWorkers())
	stopAndWait(t, q)
}

type panicRunner struct {
	panicked atomic.Bool
}

func (r *panicRunner) Run(_ context.Context, command string, _ time.Duration) queuectl.RunResult {
	if command == "boom" {
		r.panicked.Store(true)
		panic("runner exploded")
	}
	return queuectl.RunResult{Success: true}
}

func TestWorker_SurvivesPanic(t *testing.T) {
	runner := &panicRunner{}
	q := newTestQueue(t, queueOpts{runner: runner})
	ctx := context.Background()

	boom, err := q.Enqueue(ctx, "boom")
	require.NoError(t, err)
	fine, err := q.Enqueue(ctx, "fine")
	require.NoError(t, err)

	require.NoError(t, q.StartWorkers(ctx, 1))
	defer stopAndWait(t, q)

	waitForState(t, q, fine.ID, queuectl.JobCompleted)
	assert.True(t, runner.panicked.Load())
	assert.Equal(t, 1, q.ActiveWorkers())

	// Without a claim lease the interrupted job stays claimed.
	got, err := q.GetJob(ctx, boom.ID)
	require.NoError(t, err)
	assert.Equal(t, queuectl.JobProcessing, got.State)
}

func TestWorker_ReclaimsAfterLease(t *testing.T) {
	clock := newFakeClock()
	q, err := queuectl.New(queuectl.Config{
		Store:        memstore.New(),
		Runner:       &scriptedRunner{ok: map[string]bool{"true": true}},
		PollInterval: 10 * time.Millisecond,
		JobTimeout:   time.Second,
		ClaimLease:   time.Minute,
		Logger:       discardLogger(),
		Now:          clock.Now,
	})
	require.NoError(t, err)
	ctx := context.Background()

	j, err := q.Enqueue(ctx, "true")
	require.NoError(t, err)
	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	require.Equal(t, j.ID, claimed.ID)

	again, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)

	clock.Advance(time.Minute)
	require.NoError(t, q.StartWorkers(ctx, 1))
	defer stopAndWait(t, q)
	waitForState(t, q, j.ID, queuectl.JobCompleted)
}

func TestWorker_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	q, err := queuectl.New(queuectl.Config{
		Store:        memstore.New(),
		Runner:       &scriptedRunner{},
		PollInterval: 10 * time.Millisecond,
		Logger:       discardLogger(),
		Tracer:       tp.Tracer("test"),
	})
	require.NoError(t, err)
	ctx := context.Background()

	j, err := q.Enqueue(ctx, "false", queuectl.WithMaxRetries(1))
	require.NoError(t, err)
	require.NoError(t, q.StartWorkers(ctx, 1))
	waitForState(t, q, j.ID, queuectl.JobDead)
	stopAndWait(t, q)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "queuectl.execute", span.Name())
	assert.Contains(t, span.Attributes(), attribute.String("job.id", j.ID))
	assert.Contains(t, span.Attributes(), attribute.String("worker.id", "worker-1"))
	assert.Contains(t, span.Attributes(), attribute.Int("job.exit_code", 1))
}

func TestWorker_ShellRunner(t *testing.T) {
	q, err := queuectl.New(queuectl.Config{
		Store:        memstore.New(),
		PollInterval: 10 * time.Millisecond,
		JobTimeout:   5 * time.Second,
		Logger:       discardLogger(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	j, err := q.Enqueue(ctx, "echo hello")
	require.NoError(t, err)
	require.NoError(t, q.StartWorkers(ctx, 1))
	defer stopAndWait(t, q)

	done := waitForState(t, q, j.ID, queuectl.JobCompleted)
	assert.Equal(t, "hello\n", done.Output)
}
