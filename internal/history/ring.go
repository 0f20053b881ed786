// Package history keeps bounded, in-memory time series.
package history

import "sync"

// Ring is a thread-safe circular buffer. When full, Add overwrites the
// oldest entry.
type Ring[T any] struct {
	mu       sync.RWMutex
	data     []T
	capacity int
	size     int
	head     int
}

// NewRing creates a ring with the given capacity. Capacities below 1 are
// raised to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity), capacity: capacity}
}

// Add inserts v and reports whether an older entry was evicted.
func (r *Ring[T]) Add(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := r.size == r.capacity
	r.data[r.head] = v
	r.head = (r.head + 1) % r.capacity
	if !evicted {
		r.size++
	}
	return evicted
}

// Snapshot returns a copy of the entries, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyLocked()
}

// Drain returns a copy of the entries, oldest first, and empties the ring.
func (r *Ring[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.copyLocked()
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.size, r.head = 0, 0
	return out
}

// Requeue puts items back in front of the current entries, keeping
// oldest-first order. When the result exceeds capacity the oldest are dropped.
// It returns how many entries were dropped.
func (r *Ring[T]) Requeue(items []T) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := append(append(make([]T, 0, len(items)+r.size), items...), r.copyLocked()...)
	dropped := 0
	if len(all) > r.capacity {
		dropped = len(all) - r.capacity
		all = all[dropped:]
	}
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	copy(r.data, all)
	r.size = len(all)
	r.head = r.size % r.capacity
	return dropped
}

// Last returns the newest entry.
func (r *Ring[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.data[(r.head-1+r.capacity)%r.capacity], true
}

func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring[T]) Capacity() int { return r.capacity }

func (r *Ring[T]) copyLocked() []T {
	out := make([]T, r.size)
	// oldest entry sits at head once the ring has wrapped
	start := 0
	if r.size == r.capacity {
		start = r.head
	}
	for i := 0; i < r.size; i++ {
		out[i] = r.data[(start+i)%r.capacity]
	}
	return out
}
