// Package augment expands gesture exemplars into a labeled training set by
// applying a resolved chain repeatedly to every exemplar.
package augment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/okian/gestura/internal/domain/pipeline"
	"github.com/okian/gestura/internal/domain/trajectory"
	"github.com/okian/gestura/internal/domain/transform"
	"github.com/okian/gestura/pkg/logger"
	"github.com/okian/gestura/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// DefaultRepetitions is the number of samples generated per exemplar when the
// host does not choose one.
const DefaultRepetitions = 300

// Output limits applied when the host does not choose its own.
const (
	// DefaultMaxNormalizePoints caps Request.NormalizePoints.
	DefaultMaxNormalizePoints = 4096
	// DefaultMaxOutputPoints caps the points a whole run may produce, counting
	// each sample at its longest possible length.
	DefaultMaxOutputPoints = 20_000_000
)

// FailurePolicy decides what happens to a run when one sample fails.
type FailurePolicy string

// Failure policies.
const (
	// Abort stops the run and discards everything produced so far.
	Abort FailurePolicy = "abort"
	// Skip drops the failed sample and records it in Result.Skipped.
	Skip FailurePolicy = "skip"
)

// ParseFailurePolicy maps "abort" or "skip" (any case) to a policy. An empty
// string selects Abort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Abort):
		return Abort, nil
	case string(Skip):
		return Skip, nil
	}
	return "", fmt.Errorf("%w: unknown failure policy %q", ErrInvalidConfig, s)
}

// ProgressFunc receives the number of samples produced so far and the number
// planned. It is called from a single goroutine, once per produced sample,
// with done strictly increasing.
type ProgressFunc func(done, total int)

// Request describes one augmentation run.
type Request struct {
	Exemplars   []trajectory.Exemplar
	Chain       string
	Repetitions int
	// Seed fixes every random draw of the run. Zero picks a random seed,
	// which is reported back in Result.Seed.
	Seed uint64
	// NormalizePoints, when positive, standardizes each sample and resamples
	// it to this many points after the chain has run.
	NormalizePoints int
}

// SkippedSample records a sample dropped under the Skip policy.
type SkippedSample struct {
	Index      int    `json:"index"`
	Exemplar   int    `json:"exemplar"`
	Repetition int    `json:"repetition"`
	Label      string `json:"label"`
	Error      string `json:"error"`
}

// Result is the output of a completed run. Samples are ordered by exemplar,
// then repetition.
type Result struct {
	Samples []trajectory.Sample
	Skipped []SkippedSample
	Seed    uint64
	Retries int
	Elapsed time.Duration
}

// Driver runs augmentation requests.
type Driver struct {
	params      transform.Params
	workers     int
	maxAttempts int
	policy      FailurePolicy
	logger      logger.Logger

	maxNormalize int
	maxOutput    int
}

// NewDriver creates a driver with default parameters, a single worker and the
// Abort policy.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		params:      transform.DefaultParams(),
		workers:     1,
		maxAttempts: pipeline.DefaultMaxAttempts,
		policy:      Abort,
		logger:      logger.Get().Named("augment"),

		maxNormalize: DefaultMaxNormalizePoints,
		maxOutput:    DefaultMaxOutputPoints,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Params returns the transform bounds the driver applies.
func (d *Driver) Params() transform.Params { return d.params }

// Validate checks a request without running it and returns the resolved
// chain. Errors wrap ErrInvalidConfig; an exemplar without points also wraps
// ErrInvalidTrajectory.
func (d *Driver) Validate(req Request) (*pipeline.Chain, error) {
	if d.policy != Abort && d.policy != Skip {
		return nil, fmt.Errorf("%w: unknown failure policy %q", ErrInvalidConfig, d.policy)
	}
	if err := d.params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	chain, err := pipeline.Resolve(req.Chain, d.params, pipeline.WithMaxAttempts(d.maxAttempts))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if req.Repetitions < 1 {
		return nil, fmt.Errorf("%w: repetitions %d must be >= 1", ErrInvalidConfig, req.Repetitions)
	}
	if req.NormalizePoints < 0 {
		return nil, fmt.Errorf("%w: normalize points %d must be >= 0", ErrInvalidConfig, req.NormalizePoints)
	}
	if req.NormalizePoints > d.maxNormalize {
		return nil, fmt.Errorf("%w: normalize points %d exceed the limit of %d", ErrInvalidConfig, req.NormalizePoints, d.maxNormalize)
	}
	if len(req.Exemplars) == 0 {
		return nil, fmt.Errorf("%w: no exemplars", ErrInvalidConfig)
	}
	for i, ex := range req.Exemplars {
		if strings.TrimSpace(ex.Label) == "" {
			return nil, fmt.Errorf("%w: exemplar %d has an empty label", ErrInvalidConfig, i)
		}
		if len(ex.Points) == 0 {
			return nil, fmt.Errorf("%w: %w: exemplar %d (%q) has no points", ErrInvalidConfig, ErrInvalidTrajectory, i, ex.Label)
		}
		if chain.Resamples() {
			if lo, hi := d.params.ResampleRange(len(ex.Points)); lo >= hi {
				return nil, fmt.Errorf("%w: exemplar %d (%q) has %d points; resampling needs fewer than %d as the minimum, got %d",
					ErrInvalidConfig, i, ex.Label, len(ex.Points), hi, lo)
			}
		}
	}
	if n := d.outputBound(chain, req); n > d.maxOutput {
		return nil, fmt.Errorf("%w: run may produce up to %d points, over the limit of %d", ErrInvalidConfig, n, d.maxOutput)
	}
	return chain, nil
}

// outputBound is the most points req can produce: every sample at its
// longest length. It saturates just above maxOutput.
func (d *Driver) outputBound(chain *pipeline.Chain, req Request) int {
	perRep := 0
	for _, ex := range req.Exemplars {
		n := len(ex.Points)
		switch {
		case req.NormalizePoints > 0:
			n = req.NormalizePoints
		case chain.Resamples():
			_, hi := d.params.ResampleRange(n)
			n = hi - 1
		}
		perRep += n
		if perRep > d.maxOutput {
			return d.maxOutput + 1
		}
	}
	if perRep > 0 && req.Repetitions > d.maxOutput/perRep {
		return d.maxOutput + 1
	}
	return perRep * req.Repetitions
}

type slot struct {
	points  trajectory.Trajectory
	err     error
	retries int
}

// Augment produces len(req.Exemplars) × req.Repetitions samples. Each sample
// draws from its own random stream derived from the run seed and its index,
// so the output for a given seed does not depend on the worker count.
//
// Once ctx is cancelled Augment stops issuing samples and returns
// ErrCancelled with a nil result. Under the Abort policy the first failing sample ends the run
// with ErrSampleFailed.
func (d *Driver) Augment(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	chain, err := d.Validate(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	seed := req.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}
	reps := req.Repetitions
	total := len(req.Exemplars) * reps
	start := time.Now()

	d.logger.Debug(ctx, "augmentation started",
		logger.String("chain", string(chain.ID())),
		logger.Int("exemplars", len(req.Exemplars)),
		logger.Int("repetitions", reps),
		logger.Int("workers", d.workers),
		logger.Uint64("seed", seed),
	)

	slots := make([]slot, total)
	produced := make(chan struct{}, d.workers)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		done := 0
		for range produced {
			done++
			if progress != nil {
				progress(done, total)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	issued := 0
	for i := 0; i < total; i++ {
		if gctx.Err() != nil {
			break
		}
		issued++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ex := req.Exemplars[i/reps]
			pts, retries, err := d.sample(chain, seed, i, ex.Points, req.NormalizePoints)
			slots[i].retries = retries
			if err != nil {
				if d.policy == Skip {
					slots[i].err = err
					metrics.RecordSampleSkipped()
					d.logger.Warn(gctx, "sample skipped",
						logger.Int("index", i),
						logger.String("label", ex.Label),
						logger.Error(err),
					)
					return nil
				}
				metrics.RecordErrorByComponent("driver", "sample_failed")
				return fmt.Errorf("%w: sample %d of %q: %w", ErrSampleFailed, i, ex.Label, err)
			}
			slots[i].points = pts
			metrics.RecordSampleGenerated()
			produced <- struct{}{}
			return nil
		})
	}
	waitErr := g.Wait()
	close(produced)
	<-collected

	// A run cancelled at any point never returns samples, even if every
	// sample finished before the cancellation was observed.
	switch {
	case ctx.Err() != nil:
		d.logger.Info(ctx, "augmentation cancelled", logger.Int("issued", issued), logger.Int("total", total))
		return nil, fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	case waitErr != nil:
		d.logger.Error(ctx, "augmentation aborted", logger.Error(waitErr))
		return nil, waitErr
	}

	res := &Result{Samples: make([]trajectory.Sample, 0, total), Seed: seed}
	for i, s := range slots {
		res.Retries += s.retries
		label := req.Exemplars[i/reps].Label
		if s.err != nil {
			res.Skipped = append(res.Skipped, SkippedSample{
				Index:      i,
				Exemplar:   i / reps,
				Repetition: i % reps,
				Label:      label,
				Error:      s.err.Error(),
			})
			continue
		}
		res.Samples = append(res.Samples, trajectory.Sample{Label: label, Points: s.points})
	}
	res.Elapsed = time.Since(start)
	metrics.RecordStageRetries(res.Retries)

	d.logger.Info(ctx, "augmentation finished",
		logger.String("chain", string(chain.ID())),
		logger.Int("samples", len(res.Samples)),
		logger.Int("skipped", len(res.Skipped)),
		logger.Int("retries", res.Retries),
		logger.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (d *Driver) sample(chain *pipeline.Chain, seed uint64, index int, src trajectory.Trajectory, normalize int) (trajectory.Trajectory, int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSampleLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	rng := rand.New(rand.NewPCG(seed, uint64(index)))
	out, retries, err := chain.Apply(rng, src)
	if err != nil {
		return nil, retries, err
	}
	if normalize > 0 {
		if out, err = transform.Normalize(out, normalize); err != nil {
			return nil, retries, err
		}
	}
	return out, retries, nil
}

// Augment runs chain over exemplars with default parameters, the Abort
// policy and a random seed, and returns the samples.
func Augment(ctx context.Context, exemplars []trajectory.Exemplar, chain string, repetitions int, progress ProgressFunc) ([]trajectory.Sample, error) {
	res, err := NewDriver().Augment(ctx, Request{
		Exemplars:   exemplars,
		Chain:       chain,
		Repetitions: repetitions,
	}, progress)
	if err != nil {
		return nil, err
	}
	return res.Samples, nil
}
