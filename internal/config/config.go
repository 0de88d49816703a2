// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Loading layers a YAML file and GESTURA_* environment variables on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/internal/domain/pipeline"
	"github.com/okian/gestura/internal/domain/transform"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerCount sets how many runs execute concurrently.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the number of runs waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	// MaxRuns caps how many runs the store keeps, finished or not.
	MaxRuns int `koanf:"max_runs"`

	// RunRetention is how long a finished run stays readable.
	RunRetention time.Duration `koanf:"run_retention"`

	// DedupeSize sets the size of the request id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RunWorkers is the per-run sample parallelism.
	RunWorkers int `koanf:"run_workers"`

	DefaultRepetitions int `koanf:"default_repetitions"`
	MaxRepetitions     int `koanf:"max_repetitions"`

	// MaxStageAttempts bounds how often skip_frames is re-run when it leaves
	// too few points for the next stage.
	MaxStageAttempts int `koanf:"max_stage_attempts"`

	// FailurePolicy is "abort" or "skip".
	FailurePolicy string `koanf:"failure_policy"`

	// Seed, when non-zero, is used for runs that do not pick their own.
	Seed uint64 `koanf:"seed"`

	NoiseSigma          float64 `koanf:"noise_sigma"`
	ScalingLowerBound   float64 `koanf:"scaling_lower_bound"`
	ScalingUpperBound   float64 `koanf:"scaling_upper_bound"`
	ResampleMinPoints   int     `koanf:"resample_min_points"`
	PerspectiveMinAngle int     `koanf:"perspective_min_angle"`
	PerspectiveMaxAngle int     `koanf:"perspective_max_angle"`
	RotationMinAngle    int     `koanf:"rotation_min_angle"`
	RotationMaxAngle    int     `koanf:"rotation_max_angle"`
	SkipFrameChance     float64 `koanf:"skip_frame_chance"`

	// NormalizePoints is the default output length for runs that ask for
	// normalization without naming one. Zero disables it.
	NormalizePoints int `koanf:"normalize_points"`

	// MaxNormalizePoints caps the normalized length a run may request.
	MaxNormalizePoints int `koanf:"max_normalize_points"`

	// MaxOutputPoints caps the points one run may produce, counting every
	// sample at its longest possible length.
	MaxOutputPoints int `koanf:"max_output_points"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           256,
		MaxRuns:             1000,
		RunRetention:        time.Hour,
		DedupeSize:          10_000,
		RunWorkers:          runtime.NumCPU(),
		DefaultRepetitions:  augment.DefaultRepetitions,
		MaxRepetitions:      10_000,
		MaxStageAttempts:    pipeline.DefaultMaxAttempts,
		FailurePolicy:       string(augment.Abort),
		NoiseSigma:          transform.DefaultNoiseSigma,
		ScalingLowerBound:   transform.DefaultScaleLower,
		ScalingUpperBound:   transform.DefaultScaleUpper,
		ResampleMinPoints:   transform.DefaultResampleMin,
		PerspectiveMinAngle: transform.DefaultPerspectiveMinAngle,
		PerspectiveMaxAngle: transform.DefaultPerspectiveMaxAngle,
		RotationMinAngle:    transform.DefaultRotationMinAngle,
		RotationMaxAngle:    transform.DefaultRotationMaxAngle,
		SkipFrameChance:     transform.DefaultSkipProbability,
		MaxNormalizePoints:  augment.DefaultMaxNormalizePoints,
		MaxOutputPoints:     augment.DefaultMaxOutputPoints,
	}
}

// Params returns the transform bounds described by the config.
func (c *Config) Params() transform.Params {
	return transform.Params{
		NoiseSigma:          c.NoiseSigma,
		ScaleLower:          c.ScalingLowerBound,
		ScaleUpper:          c.ScalingUpperBound,
		ResampleMin:         c.ResampleMinPoints,
		PerspectiveMinAngle: c.PerspectiveMinAngle,
		PerspectiveMaxAngle: c.PerspectiveMaxAngle,
		RotationMinAngle:    c.RotationMinAngle,
		RotationMaxAngle:    c.RotationMaxAngle,
		SkipProbability:     c.SkipFrameChance,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	case c.DefaultRepetitions < 1:
		return fmt.Errorf("%w: default_repetitions %d must be >= 1", ErrInvalidConfig, c.DefaultRepetitions)
	case c.MaxRepetitions < c.DefaultRepetitions:
		return fmt.Errorf("%w: max_repetitions %d is below default_repetitions %d", ErrInvalidConfig, c.MaxRepetitions, c.DefaultRepetitions)
	case c.MaxStageAttempts < 1:
		return fmt.Errorf("%w: max_stage_attempts %d must be >= 1", ErrInvalidConfig, c.MaxStageAttempts)
	case c.NormalizePoints < 0:
		return fmt.Errorf("%w: normalize_points %d must be >= 0", ErrInvalidConfig, c.NormalizePoints)
	case c.MaxNormalizePoints < 1:
		return fmt.Errorf("%w: max_normalize_points %d must be >= 1", ErrInvalidConfig, c.MaxNormalizePoints)
	case c.NormalizePoints > c.MaxNormalizePoints:
		return fmt.Errorf("%w: normalize_points %d exceeds max_normalize_points %d", ErrInvalidConfig, c.NormalizePoints, c.MaxNormalizePoints)
	case c.MaxOutputPoints < 1:
		return fmt.Errorf("%w: max_output_points %d must be >= 1", ErrInvalidConfig, c.MaxOutputPoints)
	case c.RunRetention < 0:
		return fmt.Errorf("%w: run_retention must not be negative", ErrInvalidConfig)
	}
	if _, err := augment.ParseFailurePolicy(c.FailurePolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
