package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/gestura/internal/domain/model"
	"github.com/okian/gestura/pkg/metrics"
)

// Default store configuration.
const (
	defaultMaxRuns       = 1000
	defaultRetention     = time.Hour
	defaultSweepInterval = time.Minute
)

// MemoryStore is an in-memory Store with capacity- and age-based eviction of
// finished runs.
type MemoryStore struct {
	mu            sync.RWMutex
	runs          map[string]*model.Run
	order         []string // ids by creation, oldest first
	maxRuns       int
	retention     time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a store and starts its retention sweeper, which
// runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		runs:          make(map[string]*model.Run),
		maxRuns:       defaultMaxRuns,
		retention:     defaultRetention,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.retention > 0 {
		s.startSweeper(ctx)
	}
	return s
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Sweep evicts finished runs older than the retention period and returns
// how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.retention <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range slices.Clone(s.order) {
		r := s.runs[id]
		if r.Status.IsTerminal() && r.FinishedAt.Before(cutoff) {
			s.removeLocked(id)
			metrics.RecordRunEvicted()
			removed++
		}
	}
	metrics.UpdateRunsStored(len(s.runs))
	return removed
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		metrics.RecordErrorByComponent("repository", "conflict")
		return fmt.Errorf("%w: %s", ErrConflict, run.ID)
	}
	if s.maxRuns > 0 && len(s.runs) >= s.maxRuns {
		if !s.evictOldestFinishedLocked() {
			metrics.RecordErrorByComponent("repository", "full")
			return fmt.Errorf("%w: %d unfinished runs", ErrStoreFull, len(s.runs))
		}
	}

	s.runs[run.ID] = run.Clone()
	s.order = append(s.order, run.ID)
	metrics.UpdateRunsStored(len(s.runs))
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*model.Run) error) (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := r.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.runs[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.removeLocked(id)
	metrics.UpdateRunsStored(len(s.runs))
	return nil
}

func (s *MemoryStore) List(ctx context.Context) []*model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Run, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.runs[id].Clone())
	}
	return out
}

func (s *MemoryStore) CountByStatus(ctx context.Context) map[model.RunStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[model.RunStatus]int)
	for _, r := range s.runs {
		out[r.Status]++
	}
	return out
}

func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// evictOldestFinishedLocked removes the oldest terminal run. Must be called
// with s.mu held.
func (s *MemoryStore) evictOldestFinishedLocked() bool {
	for _, id := range s.order {
		if s.runs[id].Status.IsTerminal() {
			s.removeLocked(id)
			metrics.RecordRunEvicted()
			return true
		}
	}
	return false
}

// removeLocked must be called with s.mu held.
func (s *MemoryStore) removeLocked(id string) {
	delete(s.runs, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

var _ Store = (*MemoryStore)(nil)
