package queuectl

import (
	"math"
	"time"
)

// Claim moves a pending job, or a failed job whose retry is due, into
// processing. next_retry_at is cleared because it is only meaningful while
// the job is failed.
func Claim(j *JobRecord, now time.Time) error {
	switch {
	case j.State == JobPending:
	case j.State == JobFailed && retryDue(j, now):
	default:
		return &TransitionError{JobID: j.ID, From: j.State, To: JobProcessing}
	}
	j.State = JobProcessing
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

// Reclaim refreshes the claim on a processing job whose previous claim
// outlived the lease.
func Reclaim(j *JobRecord, now time.Time, lease time.Duration) error {
	if j.State != JobProcessing || !leaseExpired(j, now, lease) {
		return &TransitionError{JobID: j.ID, From: j.State, To: JobProcessing}
	}
	j.UpdatedAt = now
	return nil
}

// Complete records a successful execution.
func Complete(j *JobRecord, now time.Time) error {
	if j.State != JobProcessing {
		return &TransitionError{JobID: j.ID, From: j.State, To: JobCompleted}
	}
	j.State = JobCompleted
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

// Fail records an unsuccessful execution. The job is scheduled for retry
// after Backoff(base, attempts) while attempts stay below max_retries and is
// moved to the DLQ otherwise.
func Fail(j *JobRecord, now time.Time, base float64) error {
	if j.State != JobProcessing {
		return &TransitionError{JobID: j.ID, From: j.State, To: JobFailed}
	}
	j.Attempts++
	j.UpdatedAt = now
	if j.Attempts >= j.MaxRetries {
		j.State = JobDead
		j.NextRetryAt = nil
		return nil
	}
	next := now.Add(Backoff(base, j.Attempts))
	j.State = JobFailed
	j.NextRetryAt = &next
	return nil
}

// Requeue moves a dead job back to pending with a fresh retry budget.
func Requeue(j *JobRecord, now time.Time) error {
	if j.State != JobDead {
		return &TransitionError{JobID: j.ID, From: j.State, To: JobPending}
	}
	j.State = JobPending
	j.Attempts = 0
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

// Backoff returns base^attempts seconds. There is no jitter and no upper
// bound; the result only saturates where time.Duration would overflow.
func Backoff(base float64, attempts int) time.Duration {
	d := math.Pow(base, float64(attempts)) * float64(time.Second)
	if math.IsNaN(d) || d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// SelectNext returns the index of the job a worker should claim, or -1.
// The first pending job in store order wins; otherwise the first failed job
// whose retry is due. With a non-zero lease, processing jobs whose claim is
// older than the lease come last.
func SelectNext(jobs []JobRecord, now time.Time, lease time.Duration) int {
	for i := range jobs {
		if jobs[i].State == JobPending {
			return i
		}
	}
	for i := range jobs {
		if jobs[i].State == JobFailed && retryDue(&jobs[i], now) {
			return i
		}
	}
	if lease > 0 {
		for i := range jobs {
			if jobs[i].State == JobProcessing && leaseExpired(&jobs[i], now, lease) {
				return i
			}
		}
	}
	return -1
}

func retryDue(j *JobRecord, now time.Time) bool {
	return j.NextRetryAt != nil && !now.Before(*j.NextRetryAt)
}

func leaseExpired(j *JobRecord, now time.Time, lease time.Duration) bool {
	return lease > 0 && !now.Before(j.UpdatedAt.Add(lease))
}
