// Package dedupe maps client request ids to the runs they created.
package dedupe

// Option applies a configuration option to the in-memory registry.
type Option func(*inMemoryRegistry)

// WithMaxSize sets the maximum number of request ids to remember.
// If maxSize > 0: bounded mode, the oldest claim is evicted first.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(r *inMemoryRegistry) {
		r.maxSize = maxSize
	}
}
