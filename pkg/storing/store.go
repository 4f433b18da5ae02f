// Package storing persists the log of model runs.
package storing

import (
	"context"
	"errors"
	"sort"
	"sync"

	"UsageForecaster/pkg/models"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit bounds List when the filter sets no limit.
const DefaultListLimit = 100

// Filter narrows a run listing.
type Filter struct {
	Model string
	Limit int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store defines the run log operations.
type Store interface {
	// Save inserts a run or replaces the stored run with the same id.
	Save(ctx context.Context, run models.RunResult) error
	Get(ctx context.Context, id string) (models.RunResult, error)
	// List returns runs newest first.
	List(ctx context.Context, filter Filter) ([]models.RunResult, error)
	Close() error
}

// MemoryStore keeps the most recent runs in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]models.RunResult
	order    []string
	capacity int
}

// NewMemoryStore returns a store holding at most capacity runs; the oldest
// finished run is evicted first. capacity <= 0 means unbounded.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]models.RunResult),
		capacity: capacity,
	}
}

func (s *MemoryStore) Save(_ context.Context, run models.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run
	s.evict()
	return nil
}

// evict drops the oldest finished runs until the store fits its capacity.
// Runs still in flight are never dropped.
func (s *MemoryStore) evict() {
	if s.capacity <= 0 {
		return
	}
	for i := 0; len(s.order) > s.capacity && i < len(s.order); {
		id := s.order[i]
		if !s.runs[id].Done() {
			i++
			continue
		}
		delete(s.runs, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return models.RunResult{}, ErrRunNotFound
	}
	return run, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]models.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RunResult
	for i := len(s.order) - 1; i >= 0; i-- {
		run := s.runs[s.order[i]]
		if filter.Model != "" && run.Model != filter.Model {
			continue
		}
		out = append(out, run)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
