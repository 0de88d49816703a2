package augment

import (
	"github.com/okian/gestura/internal/domain/transform"
	"github.com/okian/gestura/pkg/logger"
)

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithParams sets the transform bounds used by every chain.
func WithParams(p transform.Params) Option {
	return func(d *Driver) {
		d.params = p
	}
}

// WithWorkers sets how many samples are processed concurrently.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithMaxAttempts sets the attempt budget for retryable stages.
func WithMaxAttempts(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithFailurePolicy sets what happens when a sample cannot be produced.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(d *Driver) {
		if p != "" {
			d.policy = p
		}
	}
}

// WithLogger sets a custom logger for the driver.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMaxNormalizePoints caps the normalized length a request may ask for.
func WithMaxNormalizePoints(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxNormalize = n
		}
	}
}

// WithMaxOutputPoints caps the total points a run may produce.
func WithMaxOutputPoints(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxOutput = n
		}
	}
}
