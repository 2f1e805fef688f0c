// Package ring provides a bounded lock-free multi-producer/multi-consumer queue.
//
// The queue follows Dmitry Vyukov's sequence-numbered cell design: every cell
// carries a sequence that tells producers and consumers whether it is free for
// writing or holds a value ready to be taken. Head and tail live on separate
// cache lines.
package ring

import "sync/atomic"

const cacheLinePad = 64

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// Ring is a bounded MPMC queue. The zero value is not usable; call New.
type Ring[T any] struct {
	head  atomic.Uint64
	_     [cacheLinePad]byte
	tail  atomic.Uint64
	_     [cacheLinePad]byte
	mask  uint64
	cells []cell[T]
}

// New creates a ring with capacity rounded up to a power of two (minimum 2).
func New[T any](capacity int) *Ring[T] {
	size := uint64(2)
	for size < uint64(capacity) {
		size <<= 1
	}
	r := &Ring[T]{
		mask:  size - 1,
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// Enqueue adds val; returns false if the ring is full.
func (r *Ring[T]) Enqueue(val T) bool {
	for {
		tail := r.tail.Load()
		c := &r.cells[tail&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)

		switch {
		case dif == 0:
			if r.tail.CompareAndSwap(tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false
		}
		// tail moved, retry
	}
}

// Dequeue removes and returns the oldest value; ok is false if the ring is empty.
func (r *Ring[T]) Dequeue() (val T, ok bool) {
	for {
		head := r.head.Load()
		c := &r.cells[head&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)

		switch {
		case dif == 0:
			if r.head.CompareAndSwap(head, head+1) {
				val = c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return val, true
			}
		case dif < 0:
			var zero T
			return zero, false
		}
		// head moved, retry
	}
}

// Len returns an approximate number of queued values.
func (r *Ring[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.cells)
}
