package poller

import (
	"context"
	"time"

	"github.com/a2vstudio/a2v/internal/api"
)

// JobSource fetches single-job status.
type JobSource interface {
	JobStatus(ctx context.Context, jobID string) (api.JobStatus, error)
}

// BatchSource fetches aggregate batch status.
type BatchSource interface {
	BatchStatus(ctx context.Context, batchID string) (api.BatchStatus, error)
}

// JobHandle polls one job.
type JobHandle = Handle[api.JobStatus]

// BatchHandle polls one batch.
type BatchHandle = Handle[api.BatchStatus]

// StartJob polls GET /jobs/{id}/status until the job succeeds or fails.
func StartJob(ctx context.Context, src JobSource, jobID string, interval time.Duration) *JobHandle {
	fetch := func(ctx context.Context) (api.JobStatus, error) {
		return src.JobStatus(ctx, jobID)
	}
	return Start(ctx, fetch, interval, func(s api.JobStatus) bool {
		return s.State.Terminal()
	})
}

// StartBatch polls GET /batch/{id}/status until every member is terminal.
// Member statuses are passed through unchanged.
func StartBatch(ctx context.Context, src BatchSource, batchID string, interval time.Duration) *BatchHandle {
	fetch := func(ctx context.Context) (api.BatchStatus, error) {
		return src.BatchStatus(ctx, batchID)
	}
	return Start(ctx, fetch, interval, api.BatchStatus.AllTerminal)
}
