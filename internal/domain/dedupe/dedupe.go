// Package dedupe maps client request ids to the runs they created.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultMaxSize bounds the registry when no option is given.
const DefaultMaxSize = 10000

// Registry makes run submission idempotent on a client-chosen request id.
type Registry interface {
	// Claim atomically binds key to runID unless key is already bound.
	// It returns the run id bound to key and whether that binding existed
	// before the call.
	Claim(ctx context.Context, key, runID string) (string, bool)

	// Lookup returns the run id bound to key, if any.
	Lookup(ctx context.Context, key string) (string, bool)

	// Release removes a binding so the key can be claimed again. It is used
	// when a claimed submission could not be enqueued.
	Release(ctx context.Context, key string)

	Size() int64
}

// node is one binding in the insertion-ordered list.
type node struct {
	key        string
	runID      string
	prev, next *node
}

func (n *node) reset() {
	n.key = ""
	n.runID = ""
	n.prev = nil
	n.next = nil
}

// inMemoryRegistry keeps bindings in a map plus a doubly linked list ordered
// from newest (head) to oldest (tail). In bounded mode the tail is evicted
// when the registry is full.
type inMemoryRegistry struct {
	mu       sync.Mutex
	entries  map[string]*node
	head     *node
	tail     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryRegistry creates a registry with configuration options.
func NewInMemoryRegistry(opts ...Option) Registry {
	r := &inMemoryRegistry{
		maxSize: DefaultMaxSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.entries = make(map[string]*node)
	r.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}

	return r
}

func (r *inMemoryRegistry) Claim(ctx context.Context, key, runID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, exists := r.entries[key]; exists {
		return n.runID, true
	}

	if r.maxSize > 0 && len(r.entries) >= r.maxSize {
		r.evictOldest()
	}

	n := r.nodePool.Get().(*node)
	n.key = key
	n.runID = runID
	n.next = r.head
	if r.head != nil {
		r.head.prev = n
	}
	r.head = n
	if r.tail == nil {
		r.tail = n
	}
	r.entries[key] = n
	r.size.Add(1)
	return runID, false
}

func (r *inMemoryRegistry) Lookup(ctx context.Context, key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, exists := r.entries[key]; exists {
		return n.runID, true
	}
	return "", false
}

func (r *inMemoryRegistry) Release(ctx context.Context, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, exists := r.entries[key]; exists {
		r.remove(n)
	}
}

// evictOldest drops the tail binding. Must be called with r.mu held.
func (r *inMemoryRegistry) evictOldest() {
	if r.tail != nil {
		r.remove(r.tail)
	}
}

// remove unlinks n and returns it to the pool. Must be called with r.mu held.
func (r *inMemoryRegistry) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		r.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		r.tail = n.prev
	}
	delete(r.entries, n.key)
	n.reset()
	r.nodePool.Put(n)
	r.size.Add(-1)
}

// Size returns the current number of bindings.
func (r *inMemoryRegistry) Size() int64 {
	return r.size.Load()
}
