package pipeline

// DefaultMaxAttempts bounds how many times a retryable stage runs before the
// chain gives up on an unusable trajectory.
const DefaultMaxAttempts = 5

// Option applies a configuration option to a Chain.
type Option func(*Chain)

// WithMaxAttempts sets the attempt budget for retryable stages. Values below
// one are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Chain) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}
