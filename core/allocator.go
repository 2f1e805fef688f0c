package core

import (
	"math"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/Swind/go-job-system/internal/ring"
)

// JobStatus is the liveness of a handle as seen by the allocator.
type JobStatus int

const (
	// JobStatusNeverIssued: the handle was never returned by AllocateJob
	JobStatusNeverIssued JobStatus = iota

	// JobStatusLive: the handle names an allocated job
	JobStatusLive

	// JobStatusReleased: the job completed (or was destroyed) and its slot was freed
	JobStatusReleased
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusLive:
		return "live"
	case JobStatusReleased:
		return "released"
	default:
		return "never_issued"
	}
}

// jobSlot pairs a Job record with its generation word: generation<<1 | liveBit.
type jobSlot struct {
	state atomic.Uint64
	job   Job
}

const liveBit = 1

// JobAllocator is a fixed-capacity arena of Job records. It is the single
// source of truth for JobID -> Job. Lookups never lock; allocation and release
// go through a lock-free ring of free slot indices.
type JobAllocator struct {
	slots []jobSlot
	free  *ring.Ring[uint32]
	live  atomic.Int64
}

// NewJobAllocator creates an allocator able to hold capacity live jobs.
// Panics if capacity is not in [1, MaxUint32].
func NewJobAllocator(capacity int) *JobAllocator {
	if capacity < 1 {
		panic("JobAllocator: capacity must be at least 1")
	}
	if uint64(capacity) > math.MaxUint32 {
		panic("JobAllocator: capacity exceeds the JobID index range")
	}

	a := &JobAllocator{
		slots: make([]jobSlot, capacity),
		free:  ring.New[uint32](capacity),
	}
	for i := range capacity {
		a.free.Enqueue(uint32(i))
	}
	return a
}

// AllocateJob hands out a reset Job record and a handle unique among live jobs.
// Running out of slots is fatal: the scheduler has no backpressure for creation.
func (a *JobAllocator) AllocateJob() (*Job, JobID) {
	index, ok := a.free.Dequeue()
	if !ok {
		panic(errors.Wrapf(ErrJobPoolExhausted, "capacity %d", len(a.slots)))
	}

	slot := &a.slots[index]
	generation := uint32(slot.state.Load()>>1) + 1
	if generation == 0 {
		generation = 1
	}
	slot.state.Store(uint64(generation)<<1 | liveBit)
	a.live.Add(1)

	return &slot.job, newJobID(index, generation)
}

// GetJobFromID returns the record for a live handle. It panics with
// ErrInvalidJobID or ErrStaleJobID otherwise.
func (a *JobAllocator) GetJobFromID(id JobID) *Job {
	slot := a.slotFor(id)
	if slot.state.Load() != uint64(id.generation())<<1|liveBit {
		panic(errors.Wrapf(ErrStaleJobID, "lookup %s", id))
	}
	return &slot.job
}

// FreeJob releases a live handle's slot for reuse. Freeing a handle that is
// not live panics, which is how double frees surface.
func (a *JobAllocator) FreeJob(id JobID) {
	slot := a.slotFor(id)
	want := uint64(id.generation())<<1 | liveBit
	if !slot.state.CompareAndSwap(want, want&^liveBit) {
		panic(errors.Wrapf(ErrStaleJobID, "free %s", id))
	}

	slot.job.reset()
	a.live.Add(-1)
	a.free.Enqueue(id.index())
}

// Status reports the liveness of id without panicking (except for handles
// that could never be valid).
func (a *JobAllocator) Status(id JobID) JobStatus {
	if id == InvalidJobID || int(id.index()) >= len(a.slots) {
		return JobStatusNeverIssued
	}

	state := a.slots[id.index()].state.Load()
	current := uint32(state >> 1)
	switch {
	case current == id.generation() && state&liveBit != 0:
		return JobStatusLive
	case int32(id.generation()-current) <= 0:
		return JobStatusReleased
	default:
		return JobStatusNeverIssued
	}
}

// IsLive reports whether id currently names an allocated job.
func (a *JobAllocator) IsLive(id JobID) bool {
	return a.Status(id) == JobStatusLive
}

// LiveCount returns the number of allocated jobs.
func (a *JobAllocator) LiveCount() int {
	return int(a.live.Load())
}

// Capacity returns the maximum number of simultaneously live jobs.
func (a *JobAllocator) Capacity() int {
	return len(a.slots)
}

func (a *JobAllocator) slotFor(id JobID) *jobSlot {
	if id == InvalidJobID {
		panic(errors.Wrap(ErrInvalidJobID, "InvalidJobID"))
	}
	if int(id.index()) >= len(a.slots) {
		panic(errors.Wrapf(ErrInvalidJobID, "%s outside capacity %d", id, len(a.slots)))
	}
	return &a.slots[id.index()]
}
