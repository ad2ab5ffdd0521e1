package results

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-memory map.
type MemoryStore struct {
	runs map[string]*Run
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

// Save stores a copy of run.
func (s *MemoryStore) Save(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return storageError("memory", "save", errMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run.clone()
	return nil
}

// Get returns a copy of the run with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

// sorted returns matching runs newest first. Callers hold the lock.
func (s *MemoryStore) sorted(query *Query) []*Run {
	var out []*Run
	for _, r := range s.runs {
		if query.matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID > out[j].ID
		}
		return out[i].Started.After(out[j].Started)
	})
	return out
}

// List returns matching runs, newest first.
func (s *MemoryStore) List(ctx context.Context, query *Query) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sorted(query)
	start := 0
	if query != nil {
		start = query.Offset
	}
	if start >= len(all) {
		return []*Run{}, nil
	}
	end := start + query.limit()
	if end > len(all) {
		end = len(all)
	}

	out := make([]*Run, 0, end-start)
	for _, r := range all[start:end] {
		out = append(out, r.clone())
	}
	return out, nil
}

// Count returns the number of matching runs.
func (s *MemoryStore) Count(ctx context.Context, query *Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sorted(query))), nil
}

// DeleteBefore removes runs started before cutoff.
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.runs {
		if r.Started.Before(cutoff) {
			delete(s.runs, id)
			n++
		}
	}
	return n, nil
}

// DeleteOldest removes the oldest runs until at most keep remain.
func (s *MemoryStore) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted(nil)
	if int64(len(all)) <= keep {
		return 0, nil
	}
	var n int64
	for _, r := range all[keep:] {
		delete(s.runs, r.ID)
		n++
	}
	return n, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
