package core

import (
	"sync/atomic"

	"github.com/Swind/go-job-system/internal/ring"
)

const cacheLinePad = 64

// WorkQueue is one worker's job queue.
//
// The owning worker uses Push and Pop on the bottom of a Chase-Lev deque
// (LIFO, so freshly forked children run hot in cache). Any thread may Steal
// from the top; a thief that loses the race for an item reports empty instead
// of retrying, so stealing never blocks the owner.
//
// Jobs submitted from other threads go through Inject into a lock-free inbox
// that the owner and thieves both drain. Both the deque and the inbox are
// sized to the allocator capacity, which bounds the number of jobs in flight,
// so neither can overflow.
type WorkQueue struct {
	top    atomic.Int64
	_      [cacheLinePad]byte
	bottom atomic.Int64
	_      [cacheLinePad]byte
	mask   int64
	items  []atomic.Uint64
	inbox  *ring.Ring[JobID]
}

// NewWorkQueue creates a queue able to hold capacity jobs in each of its
// deque and inbox.
func NewWorkQueue(capacity int) *WorkQueue {
	inbox := ring.New[JobID](capacity)
	size := inbox.Cap()
	return &WorkQueue{
		mask:  int64(size - 1),
		items: make([]atomic.Uint64, size),
		inbox: inbox,
	}
}

// Push adds a job at the owner's end. Owner only.
func (q *WorkQueue) Push(id JobID) {
	b := q.bottom.Load()
	t := q.top.Load()
	if b-t >= int64(len(q.items)) {
		panic("WorkQueue: deque overflow, capacity must cover every in-flight job")
	}
	q.items[b&q.mask].Store(uint64(id))
	q.bottom.Store(b + 1)
}

// Pop takes the most recently pushed job, falling back to the inbox. Owner only.
func (q *WorkQueue) Pop() (JobID, bool) {
	b := q.bottom.Load() - 1
	q.bottom.Store(b)
	t := q.top.Load()

	if t > b {
		// Deque empty
		q.bottom.Store(b + 1)
		return q.inbox.Dequeue()
	}

	id := JobID(q.items[b&q.mask].Load())
	if t == b {
		// Last item: race thieves for it
		won := q.top.CompareAndSwap(t, t+1)
		q.bottom.Store(b + 1)
		if !won {
			return q.inbox.Dequeue()
		}
	}
	return id, true
}

// Steal takes the oldest job from the deque, falling back to the inbox.
// Safe from any thread.
func (q *WorkQueue) Steal() (JobID, bool) {
	t := q.top.Load()
	b := q.bottom.Load()
	if t < b {
		id := JobID(q.items[t&q.mask].Load())
		if q.top.CompareAndSwap(t, t+1) {
			return id, true
		}
		// Lost to the owner or another thief
	}
	return q.inbox.Dequeue()
}

// Inject adds a job from a thread that does not own this queue.
func (q *WorkQueue) Inject(id JobID) {
	if !q.inbox.Enqueue(id) {
		panic("WorkQueue: inbox overflow, capacity must cover every in-flight job")
	}
}

// Len returns an approximate number of queued jobs.
func (q *WorkQueue) Len() int {
	n := q.bottom.Load() - q.top.Load()
	if n < 0 {
		n = 0
	}
	return int(n) + q.inbox.Len()
}

// IsEmpty reports whether Len is zero.
func (q *WorkQueue) IsEmpty() bool {
	return q.Len() == 0
}
