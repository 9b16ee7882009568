// Package store defines the snapshot persistence contract background jobs
// are recorded through, plus five interchangeable backends.
package store

import (
	"context"
	"time"
)

// JobRecord is a durable snapshot of a background job's status: written
// when a worker starts a job (status running) and overwritten once it
// finishes or fails, not the live job
// itself (which carries a context.Context and a runtime.Storage, neither
// serialisable).
type JobRecord struct {
	ID        string         `json:"id"`
	BatchID   string         `json:"batch_id"`
	Status    string         `json:"status"`
	Result    any            `json:"result"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
}

// Status values a JobRecord.Status may hold.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// JobStore persists JobRecords. Every backend (memory, file, sqlite,
// postgres, redis) implements the same contract so a worker can be pointed
// at any of them interchangeably.
type JobStore interface {
	// Save inserts or overwrites a record by ID.
	Save(ctx context.Context, record *JobRecord) error

	// Load retrieves a record by ID, erroring if it is not found.
	Load(ctx context.Context, id string) (*JobRecord, error)

	// List returns every record sharing a BatchID, ordered by Timestamp.
	List(ctx context.Context, batchID string) ([]*JobRecord, error)

	// Delete removes a single record. Deleting a missing id is a no-op.
	Delete(ctx context.Context, id string) error

	// Clear removes every record sharing a BatchID.
	Clear(ctx context.Context, batchID string) error
}
