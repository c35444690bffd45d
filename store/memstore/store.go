// Package memstore keeps the job collection in process memory.
package memstore

import (
	"context"
	"sync"

	"github.com/sky93/queuectl"
)

// Store is an in-memory queuectl.Store. Records are copied on the way in and
// out so callers never share them.
type Store struct {
	mu   sync.RWMutex
	jobs []queuectl.JobRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) LoadAll(_ context.Context) ([]queuectl.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.jobs), nil
}

func (s *Store) SaveAll(_ context.Context, jobs []queuectl.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = cloneAll(jobs)
	return nil
}

func cloneAll(jobs []queuectl.JobRecord) []queuectl.JobRecord {
	out := make([]queuectl.JobRecord, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out
}
