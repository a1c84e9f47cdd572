package history

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// InMemoryStore is a thread-safe Store that keeps runs for the life of the
// process.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs []Run
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

var _ Store = (*InMemoryStore)(nil)

// SaveRun appends run, replacing any earlier run with the same ID.
func (s *InMemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.Messages = slices.Clone(run.Messages)
	run.ToolCalls = slices.Clone(run.ToolCalls)

	s.runs = slices.DeleteFunc(s.runs, func(r Run) bool { return r.ID == run.ID })
	s.runs = append(s.runs, run)
	return nil
}

// ListRuns returns runs newest first.
func (s *InMemoryStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		r := s.runs[i]
		r.Messages = nil
		out = append(out, r)
	}
	return out, nil
}

// GetRun resolves id as an exact match or a unique prefix.
func (s *InMemoryStore) GetRun(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" {
		return Run{}, ErrNotFound
	}

	var (
		found Run
		n     int
	)
	for _, r := range s.runs {
		if r.ID == id {
			return cloneRun(r), nil
		}
		if strings.HasPrefix(r.ID, id) {
			found = r
			n++
		}
	}
	switch n {
	case 0:
		return Run{}, ErrNotFound
	case 1:
		return cloneRun(found), nil
	default:
		return Run{}, ErrAmbiguous
	}
}

// Len returns the number of stored runs.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func cloneRun(r Run) Run {
	r.Messages = slices.Clone(r.Messages)
	r.ToolCalls = slices.Clone(r.ToolCalls)
	return r
}
