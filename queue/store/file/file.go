// Package file is a store.JobStore backed by one JSON file per record in a
// directory, for single-host durability without a database dependency.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nodeflowgo/nodeflow/queue/store"
)

// Store implements store.JobStore by writing one <id>.json file per record
// under dir, guarded by an in-process mutex (file-level locking is not
// attempted: concurrent multi-process writers are out of scope).
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a file-backed store rooted at dir, creating it if missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: unable to create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) Save(_ context.Context, record *store.JobRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("file: failed to marshal record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(record.ID), data, 0o644); err != nil {
		return fmt.Errorf("file: failed to write record: %w", err)
	}
	return nil
}

func (s *Store) Load(_ context.Context, id string) (*store.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file: job record not found: %s", id)
		}
		return nil, fmt.Errorf("file: failed to read record: %w", err)
	}
	var r store.JobRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("file: failed to unmarshal record: %w", err)
	}
	return &r, nil
}

func (s *Store) List(_ context.Context, batchID string) ([]*store.JobRecord, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("file: failed to list store directory: %w", err)
	}

	var out []*store.JobRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		s.mu.Lock()
		data, readErr := os.ReadFile(filepath.Join(s.dir, e.Name()))
		s.mu.Unlock()
		if readErr != nil {
			continue
		}
		var r store.JobRecord
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if r.BatchID == batchID {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file: failed to delete record: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, batchID string) error {
	matches, err := s.List(ctx, batchID)
	if err != nil {
		return err
	}
	for _, r := range matches {
		if err := s.Delete(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}
