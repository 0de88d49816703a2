// Package pipeline composes transforms into the named augmentation chains.
//
// A chain is resolved once per run into a fixed list of stages. Each call to
// Apply draws fresh random parameters from the supplied source.
package pipeline

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/okian/gestura/internal/domain/trajectory"
	"github.com/okian/gestura/internal/domain/transform"
)

// ID identifies a registered chain.
type ID string

// Registered chains.
const (
	AVC      ID = "AVC"
	Simple   ID = "Simple"
	Gaussian ID = "Gaussian"
	None     ID = "None"
)

// Stage names as reported by Chain.Stages.
const (
	StageNoise       = "add_gaussian_noise"
	StageSkipFrames  = "skip_frames"
	StageResample    = "spatial_resampling"
	StagePerspective = "perspective_change"
	StageRotate      = "rotate"
	StageScaling     = "scaling"
)

// Info describes a chain for listings.
type Info struct {
	ID     ID       `json:"id"`
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

type definition struct {
	name   string
	stages []string
}

var registry = map[ID]definition{
	AVC: {name: "AVC", stages: []string{
		StageNoise, StageSkipFrames, StageResample, StagePerspective, StageRotate, StageScaling,
	}},
	Simple:   {name: "Simple Chain", stages: []string{StageRotate, StageScaling, StageNoise}},
	Gaussian: {name: "Gaussian", stages: []string{StageNoise}},
	None:     {name: "None"},
}

var order = []ID{AVC, Simple, Gaussian, None}

// Names returns the registered chain identifiers in display order.
func Names() []ID {
	out := make([]ID, len(order))
	copy(out, order)
	return out
}

// Catalog describes every registered chain in display order.
func Catalog() []Info {
	out := make([]Info, 0, len(order))
	for _, id := range order {
		def := registry[id]
		out = append(out, Info{ID: id, Name: def.name, Stages: append([]string{}, def.stages...)})
	}
	return out
}

// Parse maps an identifier or display name to its ID, ignoring case and
// surrounding whitespace.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	for _, id := range order {
		if strings.EqualFold(s, string(id)) || strings.EqualFold(s, registry[id].name) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChain, s)
}

type stage struct {
	name string
	run  func(rng *rand.Rand, t trajectory.Trajectory) (trajectory.Trajectory, error)
	// requires is checked on the stage input before it runs.
	requires func(t trajectory.Trajectory) error
	// retryable stages are re-run with fresh draws while the following
	// stage's precondition fails.
	retryable bool
}

// Chain is a resolved, ordered list of stages bound to one set of Params.
// It is safe for concurrent use as long as each goroutine passes its own
// random source.
type Chain struct {
	id          ID
	params      transform.Params
	stages      []stage
	maxAttempts int
}

// Resolve builds the chain named by id. The name is matched as in Parse.
func Resolve(id string, p transform.Params, opts ...Option) (*Chain, error) {
	cid, err := Parse(id)
	if err != nil {
		return nil, err
	}
	c := &Chain{id: cid, params: p, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(c)
	}
	for _, name := range registry[cid].stages {
		c.stages = append(c.stages, newStage(name, p))
	}
	return c, nil
}

func newStage(name string, p transform.Params) stage {
	pure := func(f func(*rand.Rand, trajectory.Trajectory, transform.Params) trajectory.Trajectory) func(*rand.Rand, trajectory.Trajectory) (trajectory.Trajectory, error) {
		return func(rng *rand.Rand, t trajectory.Trajectory) (trajectory.Trajectory, error) {
			return f(rng, t, p), nil
		}
	}
	switch name {
	case StageNoise:
		return stage{name: name, run: pure(transform.AddGaussianNoise)}
	case StageSkipFrames:
		return stage{name: name, run: pure(transform.SkipFrames), retryable: true}
	case StageResample:
		return stage{
			name: name,
			run: func(rng *rand.Rand, t trajectory.Trajectory) (trajectory.Trajectory, error) {
				return transform.SpatialResample(rng, t, p)
			},
			requires: func(t trajectory.Trajectory) error { return transform.CheckResample(t, p) },
		}
	case StagePerspective:
		return stage{name: name, run: pure(transform.PerspectiveChange)}
	case StageRotate:
		return stage{name: name, run: pure(transform.Rotate)}
	case StageScaling:
		return stage{name: name, run: pure(transform.Scale)}
	}
	panic("pipeline: unregistered stage " + name)
}

// ID returns the chain identifier.
func (c *Chain) ID() ID { return c.id }

// Name returns the chain display name.
func (c *Chain) Name() string { return registry[c.id].name }

// Params returns the bounds the chain was resolved with.
func (c *Chain) Params() transform.Params { return c.params }

// MaxAttempts returns the attempt budget for retryable stages.
func (c *Chain) MaxAttempts() int { return c.maxAttempts }

// Stages returns the stage names in application order.
func (c *Chain) Stages() []string {
	out := make([]string, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.name
	}
	return out
}

// Resamples reports whether the chain contains spatial resampling.
func (c *Chain) Resamples() bool {
	for _, s := range c.stages {
		if s.name == StageResample {
			return true
		}
	}
	return false
}

// Apply runs every stage on t in order and returns the result together with
// the number of retries spent on retryable stages. t is never modified.
//
// When a retryable stage produces output that the next stage cannot accept,
// it is re-run on the same input up to MaxAttempts times in total. If the
// budget runs out the error wraps transform.ErrInvalidTrajectory and names the
// stage that rejected the input.
func (c *Chain) Apply(rng *rand.Rand, t trajectory.Trajectory) (trajectory.Trajectory, int, error) {
	cur := t.Clone()
	retries := 0
	for i, st := range c.stages {
		if st.requires != nil {
			if err := st.requires(cur); err != nil {
				return nil, retries, fmt.Errorf("chain %s: stage %s: %w", c.id, st.name, err)
			}
		}

		out, err := st.run(rng, cur)
		if err != nil {
			return nil, retries, fmt.Errorf("chain %s: stage %s: %w", c.id, st.name, err)
		}

		if st.retryable && i+1 < len(c.stages) && c.stages[i+1].requires != nil {
			next := c.stages[i+1]
			for attempt := 1; attempt < c.maxAttempts && next.requires(out) != nil; attempt++ {
				retries++
				if out, err = st.run(rng, cur); err != nil {
					return nil, retries, fmt.Errorf("chain %s: stage %s: %w", c.id, st.name, err)
				}
			}
			if err := next.requires(out); err != nil {
				return nil, retries, fmt.Errorf("chain %s: stage %s after %d attempts of %s: %w",
					c.id, next.name, c.maxAttempts, st.name, err)
			}
		}
		cur = out
	}
	return cur, retries, nil
}
