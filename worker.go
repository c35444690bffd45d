package queuectl

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sky93/queuectl/internal/telemetry"
)

// Worker repeatedly claims one eligible job, runs it and records the outcome.
type Worker struct {
	id    string
	cfg   *Config
	queue *Queue
}

// Run keeps processing jobs until ctx is canceled. A command that is already
// running when ctx is canceled finishes and its outcome is recorded.
func (w *Worker) Run(ctx context.Context) {
	w.cfg.logInfo(LogEvent{
		Message:  fmt.Sprintf("Worker %s started.", w.id),
		WorkerID: w.id,
	})

	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			w.cfg.logInfo(LogEvent{
				Message:  fmt.Sprintf("Worker %s context canceled, stopping.", w.id),
				WorkerID: w.id,
			})
			return
		}

		if w.fetchAndProcess(ctx) {
			continue
		}

		timer.Reset(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
		case <-w.queue.wakeup:
		case <-timer.C:
		}
	}
}

// fetchAndProcess handles at most one job and reports whether it did. Errors
// and panics stop here so the loop keeps going.
func (w *Worker) fetchAndProcess(ctx context.Context) (processed bool) {
	defer func() {
		if r := recover(); r != nil {
			w.cfg.logError(LogEvent{
				Message:  fmt.Sprintf("Worker %s recovered from panic", w.id),
				WorkerID: w.id,
				Err:      fmt.Errorf("panic: %v", r),
			})
			processed = false
		}
	}()

	jobRec, err := w.queue.claimNext(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.cfg.logError(LogEvent{
				Message:  fmt.Sprintf("Error claiming job for worker %s", w.id),
				WorkerID: w.id,
				Err:      err,
			})
		}
		return false
	}
	if jobRec == nil {
		return false
	}

	// The command and its outcome must survive a stop request.
	execCtx := context.WithoutCancel(ctx)
	execCtx, span := w.cfg.Tracer.Start(execCtx, "queuectl.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", jobRec.ID),
		attribute.String("worker.id", w.id),
		attribute.Int("job.attempts", jobRec.Attempts),
	)

	w.cfg.logInfo(LogEvent{
		Message:  fmt.Sprintf("Processing job %s", jobRec.ID),
		WorkerID: w.id,
		JobID:    jobRec.ID,
		Command:  jobRec.Command,
	})

	start := time.Now()
	res := w.execute(execCtx, jobRec)
	elapsed := time.Since(start)
	telemetry.JobDurationSeconds.Observe(elapsed.Seconds())

	if !res.Success {
		span.SetStatus(codes.Error, string(res.Failure))
		span.SetAttributes(attribute.Int("job.exit_code", res.ExitCode))
	}

	updated, err := w.queue.applyOutcome(execCtx, jobRec.ID, res)
	if err != nil {
		span.RecordError(err)
		w.cfg.logError(LogEvent{
			Message:  fmt.Sprintf("Error finishing job %s", jobRec.ID),
			WorkerID: w.id,
			JobID:    jobRec.ID,
			Duration: &elapsed,
			Err:      err,
		})
		return true
	}
	if updated == nil {
		w.cfg.logWarn(LogEvent{
			Message:  fmt.Sprintf("Job %s disappeared while running, outcome dropped", jobRec.ID),
			WorkerID: w.id,
			JobID:    jobRec.ID,
			Duration: &elapsed,
		})
		return true
	}

	telemetry.JobsProcessed.WithLabelValues(string(updated.State)).Inc()
	w.logOutcome(updated, res, elapsed)
	w.queue.publish(updated, res)
	return true
}

func (w *Worker) execute(ctx context.Context, j *JobRecord) RunResult {
	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()
	return w.cfg.Runner.Run(ctx, j.Command, w.cfg.JobTimeout)
}

func (w *Worker) logOutcome(j *JobRecord, res RunResult, elapsed time.Duration) {
	ev := LogEvent{
		WorkerID:   w.id,
		JobID:      j.ID,
		Attempts:   &j.Attempts,
		MaxRetries: &j.MaxRetries,
		Duration:   &elapsed,
	}
	if res.Err != "" {
		ev.Err = fmt.Errorf("%s: %s", res.Failure, res.Err)
	}

	switch j.State {
	case JobCompleted:
		ev.Message = fmt.Sprintf("Job %s COMPLETED in %v", j.ID, elapsed)
		w.cfg.logInfo(ev)
	case JobFailed:
		delay := j.NextRetryAt.Sub(j.UpdatedAt).Round(time.Millisecond)
		ev.Message = fmt.Sprintf("Job %s FAILED (attempt %d/%d), retrying in %v", j.ID, j.Attempts, j.MaxRetries, delay)
		w.cfg.logWarn(ev)
	case JobDead:
		ev.Message = fmt.Sprintf("Job %s moved to DLQ after %d attempts", j.ID, j.Attempts)
		w.cfg.logError(ev)
	default:
		ev.Message = fmt.Sprintf("Job %s is %s", j.ID, j.State)
		w.cfg.logDebug(ev)
	}
}
