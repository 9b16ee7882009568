package queue

import (
	"context"
	"errors"
	"time"

	"github.com/nodeflowgo/nodeflow/engine"
	"github.com/nodeflowgo/nodeflow/log"
	"github.com/nodeflowgo/nodeflow/queue/store"
	"github.com/nodeflowgo/nodeflow/runtime"
)

// Worker pulls jobs off a Queue and delegates them to an Engine, one at a
// time. There are no retries: a failed job is logged via its own storage's
// event bus (and, if a store.JobStore is attached, recorded as a failed
// JobRecord) and the worker moves on to the next job.
type Worker struct {
	queue  *Queue
	engine *engine.Engine
	store  store.JobStore // optional; nil disables snapshot persistence
	logger *log.Logger
}

// NewWorker builds a worker that executes jobs from q through eng. store
// may be nil to skip snapshot persistence entirely.
func NewWorker(q *Queue, eng *engine.Engine, jobStore store.JobStore) *Worker {
	return &Worker{queue: q, engine: eng, store: jobStore, logger: log.Default().With("component", "queue.worker")}
}

// Run pulls and executes jobs until ctx is done or the queue is closed and
// drained.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			var qerr *QueueError
			if errors.As(err, &qerr) {
				return nil
			}
			return err
		}
		w.runOne(ctx, job)
	}
}

func (w *Worker) runOne(ctx context.Context, job *Job) {
	w.recordStatus(ctx, job, store.StatusRunning, nil)

	err := w.engine.Execute(ctx, job.Nodes, job.Connections, job.Storage, job.Options)
	if err != nil {
		w.logger.Error("job %s failed: %v", job.ID, err)
		job.Storage.EventBus().Publish(runtime.Event{
			Kind:      runtime.Feedback,
			Message:   err.Error(),
			Tag:       "queue.job_failed",
			Timestamp: time.Now(),
		})
		w.recordStatus(ctx, job, store.StatusFailed, err)
		return
	}
	w.recordStatus(ctx, job, store.StatusSucceeded, nil)
}

func (w *Worker) recordStatus(ctx context.Context, job *Job, status string, cause error) {
	if w.store == nil {
		return
	}
	record := &store.JobRecord{
		ID:        job.ID,
		BatchID:   job.BatchID,
		Status:    status,
		Timestamp: time.Now(),
		Version:   1,
	}
	if cause != nil {
		record.Metadata = map[string]any{"error": cause.Error()}
	}
	if err := w.store.Save(ctx, record); err != nil {
		w.logger.Warn("failed to persist job record for %s: %v", job.ID, err)
	}
}
