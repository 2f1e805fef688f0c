package core

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Work is the unit of work carried by a Job. It is invoked exactly once.
// The context identifies the executing thread (worker or main thread) so that
// nested WaitForJob calls can help from the right queues.
type Work func(ctx context.Context)

// =============================================================================
// ExecutionPolicy: which thread family runs a job
// =============================================================================

type ExecutionPolicy int

const (
	// ExecutionPolicyWorkerThread: Run on the worker pool (default)
	ExecutionPolicyWorkerThread ExecutionPolicy = iota

	// ExecutionPolicyMainThread: Run only when the application drains the
	// main-thread queue. Used for work that is only legal on one specific
	// thread (windowing, UI, graphics API calls).
	ExecutionPolicyMainThread
)

func (p ExecutionPolicy) String() string {
	switch p {
	case ExecutionPolicyWorkerThread:
		return "worker_thread"
	case ExecutionPolicyMainThread:
		return "main_thread"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// =============================================================================
// JobID: generation-tagged slot handle
// =============================================================================

// JobID is an opaque handle to a live Job: the slot index in the low 32 bits
// and the slot generation in the high 32 bits. Generations start at 1, so the
// zero value never names a job.
type JobID uint64

// InvalidJobID denotes "no job" and "no parent".
const InvalidJobID JobID = 0

func newJobID(index uint32, generation uint32) JobID {
	return JobID(uint64(generation)<<32 | uint64(index))
}

func (id JobID) index() uint32      { return uint32(id) }
func (id JobID) generation() uint32 { return uint32(id >> 32) }

// IsValid reports whether id is not InvalidJobID. It says nothing about liveness.
func (id JobID) IsValid() bool { return id != InvalidJobID }

func (id JobID) String() string {
	if id == InvalidJobID {
		return "job(invalid)"
	}
	return fmt.Sprintf("job(%d:%d)", id.index(), id.generation())
}

// =============================================================================
// Job: record owned by the JobAllocator
// =============================================================================

// Job is the scheduler's bookkeeping for one unit of work. Records live in the
// allocator's arena; everything else refers to them by JobID.
type Job struct {
	work   Work
	parent JobID
	policy ExecutionPolicy

	// unfinished starts at 1 for the job itself and gains one per child. The
	// job is complete when it reaches zero.
	unfinished atomic.Int32

	queued atomic.Bool
}

// Policy returns the job's execution policy.
func (j *Job) Policy() ExecutionPolicy { return j.policy }

// Parent returns the parent handle, or InvalidJobID.
func (j *Job) Parent() JobID { return j.parent }

// Unfinished returns the current outstanding count (self plus unfinished children).
func (j *Job) Unfinished() int32 { return j.unfinished.Load() }

func (j *Job) reset() {
	j.work = nil
	j.parent = InvalidJobID
	j.policy = ExecutionPolicyWorkerThread
	j.unfinished.Store(0)
	j.queued.Store(false)
}
