// Package queue is the background FIFO a caller enqueues prebuilt
// execution jobs onto for asynchronous processing by one or more Workers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nodeflowgo/nodeflow/engine"
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/runtime"
)

// Job is a prebuilt, not-yet-executed graph run: everything engine.Execute
// needs, captured so it can be handed to a worker goroutine later instead
// of run synchronously. BatchID groups related jobs for store.JobStore's
// List/Clear (e.g. every job submitted from one editor session); it may be
// left empty for a standalone job.
type Job struct {
	ID          string
	BatchID     string
	Nodes       []*node.Data
	Connections []node.Connection
	Storage     runtime.Storage
	Options     engine.Options
}

// QueueError reports a problem enqueuing or dequeuing a Job.
type QueueError struct {
	Message string
}

func (e *QueueError) Error() string { return "queue: " + e.Message }

// Queue is a multi-producer, multi-consumer FIFO of Jobs. Enqueue is
// async-safe; Dequeue blocks until a job is available, the queue is
// closed, or ctx is done.
type Queue struct {
	mu     sync.Mutex
	items  chan *Job
	closed bool
}

// New creates a queue buffering up to capacity not-yet-claimed jobs.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{items: make(chan *Job, capacity)}
}

// Enqueue submits job for later processing. If job.ID is empty, a fresh
// uuid is assigned. Returns a QueueError if the queue has been closed.
func (q *Queue) Enqueue(job *Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return &QueueError{Message: fmt.Sprintf("enqueue %s after shutdown", job.ID)}
	}

	select {
	case q.items <- job:
		return nil
	default:
		return &QueueError{Message: fmt.Sprintf("queue full, rejecting job %s", job.ID)}
	}
}

// Dequeue blocks until a job is available, ctx is done, or the queue is
// closed and drained.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job, ok := <-q.items:
		if !ok {
			return nil, &QueueError{Message: "queue closed"}
		}
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops further Enqueue calls from succeeding and unblocks any
// Dequeue call once buffered jobs are drained. Safe to call once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}
