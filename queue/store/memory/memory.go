// Package memory is an in-process store.JobStore backed by a guarded map,
// for tests and single-process deployments with no durability requirement.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nodeflowgo/nodeflow/queue/store"
)

// Store implements store.JobStore entirely in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]*store.JobRecord
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]*store.JobRecord)}
}

func (s *Store) Save(_ context.Context, record *store.JobRecord) error {
	cp := *record
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = &cp
	return nil
}

func (s *Store) Load(_ context.Context, id string) (*store.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("memory: job record not found: %s", id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) List(_ context.Context, batchID string) ([]*store.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.JobRecord
	for _, r := range s.records {
		if r.BatchID == batchID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *Store) Clear(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.BatchID == batchID {
			delete(s.records, id)
		}
	}
	return nil
}
