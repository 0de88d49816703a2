// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/gestura/internal/adapters/mq/queue"
	workerpool "github.com/okian/gestura/internal/adapters/mq/worker"
	"github.com/okian/gestura/internal/adapters/preview"
	"github.com/okian/gestura/internal/adapters/repository"
	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/internal/domain/dedupe"
	"github.com/okian/gestura/internal/domain/model"
	"github.com/okian/gestura/internal/domain/pipeline"
	"github.com/okian/gestura/internal/domain/trajectory"
	"github.com/okian/gestura/internal/domain/transform"
	"github.com/okian/gestura/internal/domain/types"
	"github.com/okian/gestura/pkg/logger"
	"github.com/okian/gestura/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service accepts augmentation runs, executes them on a worker pool and keeps
// their results in memory until they expire.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *repository.MemoryStore
	registry dedupe.Registry
	queue    eventqueue.Queue
	pool     *workerpool.Pool
	driver   *augment.Driver

	// Configuration
	workerCount     int
	queueSize       int
	maxRuns         int
	retention       time.Duration
	dedupeSize      int
	runWorkers      int
	defaultReps     int
	maxReps         int
	maxAttempts     int
	policy          augment.FailurePolicy
	params          transform.Params
	seed            uint64
	normalizePoints int
	maxNormalize    int
	maxOutput       int

	// State
	started   bool
	startedAt time.Time

	cancelMu sync.Mutex
	cancels  map[string]context.CancelCauseFunc

	activeRuns atomic.Int64
	generated  atomic.Int64

	now    func() time.Time
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   256,
		maxRuns:     1000,
		retention:   time.Hour,
		dedupeSize:  dedupe.DefaultMaxSize,
		runWorkers:  runtime.NumCPU(),
		defaultReps: augment.DefaultRepetitions,
		maxReps:     10_000,
		maxAttempts: pipeline.DefaultMaxAttempts,
		policy:      augment.Abort,
		params:      transform.DefaultParams(),

		maxNormalize: augment.DefaultMaxNormalizePoints,
		maxOutput:    augment.DefaultMaxOutputPoints,

		cancels:     make(map[string]context.CancelCauseFunc),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. Runs execute until
// ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting augmentation service...")

	s.store = repository.NewMemoryStore(ctx,
		repository.WithMaxRuns(s.maxRuns),
		repository.WithRetention(s.retention),
	)
	s.registry = dedupe.NewInMemoryRegistry(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.driver = augment.NewDriver(
		augment.WithParams(s.params),
		augment.WithWorkers(s.runWorkers),
		augment.WithMaxAttempts(s.maxAttempts),
		augment.WithFailurePolicy(s.policy),
		augment.WithMaxNormalizePoints(s.maxNormalize),
		augment.WithMaxOutputPoints(s.maxOutput),
		augment.WithLogger(s.logger.Named("driver")),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "augmentation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("run_workers", s.runWorkers),
		logger.Int("queue_size", s.queueSize),
		logger.String("failure_policy", string(s.policy)),
	)

	return nil
}

// Stop cancels running runs, drains the worker pool and marks runs that never
// started as cancelled.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping augmentation service...")

	// Queued runs are cancelled first so a worker that dequeues one drops it.
	for _, r := range s.store.List(ctx) {
		if r.Status != model.StatusQueued {
			continue
		}
		_, err := s.store.Update(ctx, r.ID, func(r *model.Run) error {
			if r.Status != model.StatusQueued {
				return ErrAlreadyFinished
			}
			r.Error = errShuttingDown.Error()
			return r.Transition(model.StatusCancelled, s.now())
		})
		if err == nil {
			metrics.RecordRunFinished(string(model.StatusCancelled))
		}
	}

	s.cancelMu.Lock()
	for _, c := range s.cancels {
		c(errShuttingDown)
	}
	s.cancelMu.Unlock()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "augmentation service stopped")
}

// Started reports whether the service accepts runs.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) components() (*repository.MemoryStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Submit validates a request, stores it as a queued run and enqueues it.
// When req.RequestID was already used the existing run is returned with
// duplicate set to true.
func (s *Service) Submit(ctx context.Context, req types.SubmitRunRequest) (run *model.Run, duplicate bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, false, ErrNotStarted
	}

	run, err = s.newRun(req)
	if err != nil {
		return nil, false, err
	}

	key := strings.TrimSpace(req.RequestID)
	if key != "" {
		if existing, ok := s.claim(ctx, key, run.ID); ok {
			metrics.RecordDuplicateRequest()
			s.logger.Debug(ctx, "duplicate request", logger.String("request_id", key), logger.String("run_id", existing.ID))
			return existing, true, nil
		}
	}

	if err := s.store.Create(ctx, run); err != nil {
		s.release(ctx, key)
		if errors.Is(err, repository.ErrStoreFull) {
			return nil, false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return nil, false, err
	}

	if err := s.queue.Enqueue(ctx, model.Job{RunID: run.ID, EnqueuedAt: s.now()}); err != nil {
		_ = s.store.Delete(ctx, run.ID)
		s.release(ctx, key)
		if errors.Is(err, eventqueue.ErrQueueFull) {
			return nil, false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return nil, false, err
	}

	metrics.RecordRunSubmitted(run.Chain)
	s.logger.Info(ctx, "run queued",
		logger.String("run_id", run.ID),
		logger.String("chain", run.Chain),
		logger.Int("exemplars", len(run.Exemplars)),
		logger.Int("repetitions", run.Repetitions),
	)
	return run, false, nil
}

// newRun applies service defaults to req and validates it against the driver.
func (s *Service) newRun(req types.SubmitRunRequest) (*model.Run, error) {
	reps := req.Repetitions
	if reps == 0 {
		reps = s.defaultReps
	}
	if reps > s.maxReps {
		return nil, fmt.Errorf("%w: repetitions %d exceed the limit of %d", augment.ErrInvalidConfig, reps, s.maxReps)
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.seed
	}
	normalize := req.NormalizePoints
	if normalize == 0 {
		normalize = s.normalizePoints
	}

	chain, err := s.driver.Validate(augment.Request{
		Exemplars:       req.Exemplars,
		Chain:           req.Chain,
		Repetitions:     reps,
		Seed:            seed,
		NormalizePoints: normalize,
	})
	if err != nil {
		return nil, err
	}

	return &model.Run{
		ID:              uuid.NewString(),
		RequestID:       strings.TrimSpace(req.RequestID),
		Chain:           string(chain.ID()),
		Repetitions:     reps,
		Seed:            seed,
		NormalizePoints: normalize,
		Exemplars:       req.Exemplars,
		Status:          model.StatusQueued,
		Total:           len(req.Exemplars) * reps,
		CreatedAt:       s.now(),
	}, nil
}

// claim binds key to runID. It returns the earlier run when key is already
// bound to one that is still stored; a binding whose run has expired is
// replaced.
func (s *Service) claim(ctx context.Context, key, runID string) (*model.Run, bool) {
	for range 2 {
		existingID, dup := s.registry.Claim(ctx, key, runID)
		if !dup {
			return nil, false
		}
		if existing, err := s.store.Get(ctx, existingID); err == nil {
			return existing, true
		}
		s.registry.Release(ctx, key)
	}
	return nil, false
}

func (s *Service) release(ctx context.Context, key string) {
	if key != "" {
		s.registry.Release(ctx, key)
	}
}

// Execute runs one queued job. It implements worker.Executor. Outcomes of the
// augmentation itself are recorded on the run; only storage failures are
// returned.
func (s *Service) Execute(ctx context.Context, job model.Job) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	s.cancelMu.Lock()
	s.cancels[job.RunID] = cancel
	s.cancelMu.Unlock()
	defer func() {
		s.cancelMu.Lock()
		delete(s.cancels, job.RunID)
		s.cancelMu.Unlock()
		cancel(nil)
	}()

	run, err := s.store.Update(ctx, job.RunID, func(r *model.Run) error {
		return r.Transition(model.StatusRunning, s.now())
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug(ctx, "job dropped", logger.String("run_id", job.RunID), logger.Error(err))
			return nil
		}
		return err
	}

	metrics.UpdateActiveRuns(int(s.activeRuns.Add(1)))
	defer func() { metrics.UpdateActiveRuns(int(s.activeRuns.Add(-1))) }()

	s.logger.Info(ctx, "run started",
		logger.String("run_id", run.ID),
		logger.Duration("queued_for", s.now().Sub(job.EnqueuedAt)),
	)

	progress := func(done, _ int) {
		_, _ = s.store.Update(ctx, run.ID, func(r *model.Run) error {
			r.Progress = done
			return nil
		})
	}

	res, runErr := s.driver.Augment(runCtx, augment.Request{
		Exemplars:       run.Exemplars,
		Chain:           run.Chain,
		Repetitions:     run.Repetitions,
		Seed:            run.Seed,
		NormalizePoints: run.NormalizePoints,
	}, progress)

	status := model.StatusSucceeded
	switch {
	case errors.Is(runErr, augment.ErrCancelled):
		status = model.StatusCancelled
	case runErr != nil:
		status = model.StatusFailed
	}

	final, err := s.store.Update(ctx, run.ID, func(r *model.Run) error {
		switch status {
		case model.StatusSucceeded:
			r.Samples = res.Samples
			r.Skipped = res.Skipped
			r.Retries = res.Retries
			r.Seed = res.Seed
			r.Progress = len(res.Samples)
		case model.StatusCancelled:
			r.Error = context.Cause(runCtx).Error()
		default:
			r.Error = runErr.Error()
		}
		return r.Transition(status, s.now())
	})
	if err != nil {
		return err
	}

	if res != nil {
		s.generated.Add(int64(len(res.Samples)))
	}
	metrics.RecordRunFinished(string(status))
	metrics.RecordRunDuration(final.FinishedAt.Sub(final.StartedAt).Seconds())
	s.logger.Info(ctx, "run finished",
		logger.String("run_id", final.ID),
		logger.String("status", string(final.Status)),
		logger.Int("samples", len(final.Samples)),
		logger.Int("skipped", len(final.Skipped)),
		logger.String("error", final.Error),
	)
	return nil
}

// Run returns the stored run.
func (s *Service) Run(ctx context.Context, id string) (*model.Run, error) {
	store, err := s.components()
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, id)
}

// Runs lists stored runs, oldest first.
func (s *Service) Runs(ctx context.Context) ([]*model.Run, error) {
	store, err := s.components()
	if err != nil {
		return nil, err
	}
	return store.List(ctx), nil
}

// Samples returns the samples of a succeeded run, or ErrNotReady.
func (s *Service) Samples(ctx context.Context, id string) (types.SamplesView, error) {
	run, err := s.Run(ctx, id)
	if err != nil {
		return types.SamplesView{}, err
	}
	if run.Status != model.StatusSucceeded {
		return types.SamplesView{}, fmt.Errorf("%w: run %s is %s", ErrNotReady, id, run.Status)
	}
	return types.SamplesView{
		RunID:   run.ID,
		Seed:    run.Seed,
		Count:   len(run.Samples),
		Samples: run.Samples,
		Skipped: run.Skipped,
	}, nil
}

// Preview writes a PNG plot of a succeeded run to w. An empty label draws
// every label; limit caps the samples drawn per label.
func (s *Service) Preview(ctx context.Context, id string, w io.Writer, label string, limit int) error {
	run, err := s.Run(ctx, id)
	if err != nil {
		return err
	}
	if run.Status != model.StatusSucceeded {
		return fmt.Errorf("%w: run %s is %s", ErrNotReady, id, run.Status)
	}
	exemplars, err := plotExemplars(run.Exemplars, run.NormalizePoints)
	if err != nil {
		return err
	}
	return preview.RenderPNG(w, fmt.Sprintf("%s (%s)", run.Chain, run.ID), exemplars, run.Samples,
		preview.WithLabel(label),
		preview.WithLimit(limit),
	)
}

// plotExemplars puts exemplars on the same axes as the samples. A run with a
// normalized length stores standardized samples, so its exemplars get the same
// treatment for the plot; the stored run keeps the originals.
func plotExemplars(exemplars []trajectory.Exemplar, normalize int) ([]trajectory.Exemplar, error) {
	if normalize <= 0 {
		return exemplars, nil
	}
	out := make([]trajectory.Exemplar, len(exemplars))
	for i, ex := range exemplars {
		pts, err := transform.Normalize(ex.Points, normalize)
		if err != nil {
			return nil, fmt.Errorf("normalize exemplar %q for preview: %w", ex.Label, err)
		}
		out[i] = trajectory.Exemplar{Label: ex.Label, Points: pts}
	}
	return out, nil
}

// Cancel stops a queued or running run. A queued run is cancelled at once; a
// running one is cancelled by its worker shortly after.
func (s *Service) Cancel(ctx context.Context, id string) (*model.Run, error) {
	store, err := s.components()
	if err != nil {
		return nil, err
	}

	run, err := store.Update(ctx, id, func(r *model.Run) error {
		switch r.Status {
		case model.StatusQueued:
			r.Error = errCancelledByClient.Error()
			return r.Transition(model.StatusCancelled, s.now())
		case model.StatusRunning:
			return nil
		}
		return fmt.Errorf("%w: run %s is %s", ErrAlreadyFinished, r.ID, r.Status)
	})
	if err != nil {
		return nil, err
	}

	switch run.Status {
	case model.StatusCancelled:
		metrics.RecordRunFinished(string(model.StatusCancelled))
	case model.StatusRunning:
		s.cancelMu.Lock()
		if c, ok := s.cancels[id]; ok {
			c(errCancelledByClient)
		}
		s.cancelMu.Unlock()
	}
	s.logger.Info(ctx, "run cancel requested", logger.String("run_id", id), logger.String("status", string(run.Status)))
	return run, nil
}

// Chains lists the available chains.
func (s *Service) Chains() []types.ChainInfo {
	return pipeline.Catalog()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Runs:             make(map[string]int),
		QueueCapacity:    s.queueSize,
		Workers:          s.workerCount,
		SamplesGenerated: s.generated.Load(),
	}
	if !s.started {
		return stats
	}

	for status, n := range s.store.CountByStatus(ctx) {
		stats.Runs[string(status)] = n
	}
	stats.StoredRuns = s.store.Count(ctx)
	stats.ActiveRuns = int(s.activeRuns.Load())
	stats.QueueSize = s.queue.Len(ctx)
	stats.Uptime = s.now().Sub(s.startedAt).Round(time.Second).String()
	return stats
}

var _ workerpool.Executor = (*Service)(nil)
