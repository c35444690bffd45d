package queuectl

import "context"

// ClaimNext exposes the locked claim step to the external test package.
func (q *Queue) ClaimNext(ctx context.Context) (*JobRecord, error) {
	return q.claimNext(ctx)
}

// ApplyOutcome exposes the locked outcome step to the external test package.
func (q *Queue) ApplyOutcome(ctx context.Context, id string, res RunResult) (*JobRecord, error) {
	return q.applyOutcome(ctx, id, res)
}

const MaxOutputBytes = maxOutputBytes
