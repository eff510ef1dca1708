// Package ring implements a bounded single-producer single-consumer queue.
//
// The producer owns head and the consumer owns tail. Each side publishes its
// counter with an atomic store after touching the slot, and reads the other
// side's counter with an atomic load before touching a slot. Counters grow
// monotonically; a slot index is counter & mask.
//
// Concurrent producers must be serialized by the caller.
package ring

import (
	"math/bits"
	"sync/atomic"
)

// Ring is a fixed capacity FIFO of values of type T
type Ring[T any] struct {
	slots []T
	mask  uint64

	head    atomic.Uint64 // next slot to write, producer-owned
	tail    atomic.Uint64 // next slot to read, consumer-owned
	dropped atomic.Uint64 // pushes rejected because the ring was full
}

// nextPow2 rounds x up to a power of two, minimum 2
func nextPow2(x uint64) uint64 {
	if x <= 2 {
		return 2
	}
	return 1 << (64 - bits.LeadingZeros64(x-1))
}

// New creates a ring holding at least capacity values
func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	size := nextPow2(uint64(capacity))
	return &Ring[T]{
		slots: make([]T, size),
		mask:  size - 1,
	}
}

// TryPush copies v into the next free slot.
// Returns false and counts a drop if the ring is full; the ring is unchanged.
func (r *Ring[T]) TryPush(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail == uint64(len(r.slots)) {
		r.dropped.Add(1)
		return false
	}
	r.slots[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// TryPop removes the oldest value.
// Returns the zero value and false if the ring is empty.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	tail := r.tail.Load()
	head := r.head.Load()
	if head == tail {
		return zero, false
	}
	idx := tail & r.mask
	v := r.slots[idx]
	r.slots[idx] = zero // release references held by the slot
	r.tail.Store(tail + 1)
	return v, true
}

// Len returns the number of queued values. Approximate under concurrency.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the ring capacity
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}

// Dropped returns the number of rejected pushes since creation
func (r *Ring[T]) Dropped() uint64 {
	return r.dropped.Load()
}
