package service

import (
	"time"

	"github.com/okian/gestura/internal/config"
	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/internal/domain/transform"
	"github.com/okian/gestura/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets how many runs execute concurrently.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many runs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxRuns caps the number of stored runs.
func WithMaxRuns(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRuns = n
		}
	}
}

// WithRunRetention sets how long finished runs stay readable. Zero keeps
// them until capacity eviction.
func WithRunRetention(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// WithDedupeSize sets the size of the request id registry.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRunWorkers sets the per-run sample parallelism.
func WithRunWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.runWorkers = n
		}
	}
}

// WithRepetitions sets the repetitions used when a request names none and the
// most a request may ask for.
func WithRepetitions(def, max int) Option {
	return func(s *Service) {
		if def > 0 && max >= def {
			s.defaultReps = def
			s.maxReps = max
		}
	}
}

// WithMaxStageAttempts bounds the skip_frames retry loop.
func WithMaxStageAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithFailurePolicy sets what a run does when a sample fails.
func WithFailurePolicy(p augment.FailurePolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithParams sets the transform bounds.
func WithParams(p transform.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

// WithSeed fixes the seed of runs that do not choose their own.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithNormalizePoints sets the output length for runs that do not choose one.
func WithNormalizePoints(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.normalizePoints = n
		}
	}
}

// WithOutputLimits caps the normalized length a run may request and the
// total points one run may produce. Values below 1 keep the driver defaults.
func WithOutputLimits(maxNormalize, maxOutput int) Option {
	return func(s *Service) {
		if maxNormalize > 0 {
			s.maxNormalize = maxNormalize
		}
		if maxOutput > 0 {
			s.maxOutput = maxOutput
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig applies every service setting of a loaded config. The config is
// expected to have passed Validate.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		policy, _ := augment.ParseFailurePolicy(cfg.FailurePolicy)
		for _, opt := range []Option{
			WithWorkerCount(cfg.WorkerCount),
			WithQueueSize(cfg.QueueSize),
			WithMaxRuns(cfg.MaxRuns),
			WithRunRetention(cfg.RunRetention),
			WithDedupeSize(cfg.DedupeSize),
			WithRunWorkers(cfg.RunWorkers),
			WithRepetitions(cfg.DefaultRepetitions, cfg.MaxRepetitions),
			WithMaxStageAttempts(cfg.MaxStageAttempts),
			WithFailurePolicy(policy),
			WithParams(cfg.Params()),
			WithSeed(cfg.Seed),
			WithNormalizePoints(cfg.NormalizePoints),
			WithOutputLimits(cfg.MaxNormalizePoints, cfg.MaxOutputPoints),
		} {
			opt(s)
		}
	}
}
