// Package queue defines the contract for enqueuing and consuming run jobs.
package queue

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets how many run jobs may wait for a worker. Enqueue beyond
// it fails with ErrQueueFull, which the service reports as backpressure.
// Values below 1 keep the default.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
