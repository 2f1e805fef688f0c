package core

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/Swind/go-job-system/internal/osthread"
)

const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

const (
	mainQueueName = "main"
	stoppedReason = "job system stopped"
)

// JobSystem is a fork-join, work-stealing job scheduler.
//
// Jobs are created against a fixed-capacity allocator, run on a pool of worker
// threads (or on the application's main thread for ExecutionPolicyMainThread),
// and complete when their own work and every child created against them has
// finished. Nothing joins explicitly: completion is a count-to-zero protocol.
//
// A JobSystem is started once and stopped once. All job operations are safe
// to call from any goroutine.
type JobSystem struct {
	allocator *JobAllocator
	queues    []*WorkQueue
	mainQueue *MainThreadQueue
	workers   []*worker

	nextQueue atomic.Uint32
	queued    atomic.Int64 // jobs sitting in worker queues
	active    atomic.Int32
	executed  atomic.Int64
	stolen    atomic.Int64
	rejected  atomic.Int64

	// Sleep/wake signal. The lock guards only the sleep predicate.
	wakeMu   sync.Mutex
	wakeCond *sync.Cond
	alive    atomic.Bool

	state       atomic.Int32
	lifecycleMu sync.Mutex
	wg          sync.WaitGroup
	cancel      context.CancelFunc

	config       JobSystemConfig
	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
	rejectedJobs RejectedJobHandler
	history      *executionHistory
}

// NewJobSystem creates a stopped job system. Call Start to spin up the workers.
// A nil config uses DefaultJobSystemConfig.
func NewJobSystem(config *JobSystemConfig) *JobSystem {
	if config == nil {
		config = DefaultJobSystemConfig()
	}
	cfg := *config

	if cfg.ReservedCores < 0 {
		cfg.ReservedCores = 0
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = defaultMaxJobs
	}
	if cfg.ThreadNamePrefix == "" {
		cfg.ThreadNamePrefix = defaultThreadNamePrefix
	}

	cpus := osthread.AllowedCPUs()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = max(len(cpus)-cfg.ReservedCores, 1)
	}

	js := &JobSystem{
		allocator:    NewJobAllocator(cfg.MaxJobs),
		mainQueue:    NewMainThreadQueue(),
		config:       cfg,
		logger:       cfg.Logger,
		panicHandler: cfg.PanicHandler,
		metrics:      cfg.Metrics,
		rejectedJobs: cfg.RejectedJobHandler,
		history:      newExecutionHistory(cfg.HistoryCapacity),
	}
	js.wakeCond = sync.NewCond(&js.wakeMu)

	// Use defaults if not provided
	if js.logger == nil {
		js.logger = NewNoOpLogger()
	}
	if js.panicHandler == nil {
		js.panicHandler = &DefaultPanicHandler{}
	}
	if js.metrics == nil {
		js.metrics = &NilMetrics{}
	}
	if js.rejectedJobs == nil {
		js.rejectedJobs = &DefaultRejectedJobHandler{}
	}

	js.queues = make([]*WorkQueue, cfg.WorkerCount)
	js.workers = make([]*worker, cfg.WorkerCount)
	for i := range cfg.WorkerCount {
		js.queues[i] = NewWorkQueue(cfg.MaxJobs)
		js.workers[i] = &worker{
			id:     i,
			cpu:    cpus[(i+cfg.ReservedCores)%len(cpus)],
			system: js,
		}
	}
	return js
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start launches the worker threads. Repeated calls are no-ops; starting a
// stopped job system panics.
func (js *JobSystem) Start(ctx context.Context) {
	js.lifecycleMu.Lock()
	defer js.lifecycleMu.Unlock()

	switch js.state.Load() {
	case stateRunning:
		return
	case stateStopped:
		panic(errors.Wrap(ErrJobSystemStopped, "Start"))
	}

	runCtx, cancel := context.WithCancel(ctx)
	js.cancel = cancel
	js.alive.Store(true)
	js.state.Store(stateRunning)

	js.logger.Info("job system starting",
		F("workers", len(js.workers)),
		F("capacity", js.allocator.Capacity()),
		F("reserved_cores", js.config.ReservedCores),
	)

	// Cancelling the parent context shuts the workers down like Stop does.
	context.AfterFunc(runCtx, js.wakeAll)

	for _, w := range js.workers {
		js.wg.Add(1)
		go w.run(runCtx)
	}
}

// wakeAll clears the liveness flag and releases every sleeping worker.
func (js *JobSystem) wakeAll() {
	js.alive.Store(false)
	js.wakeMu.Lock()
	js.wakeCond.Broadcast()
	js.wakeMu.Unlock()
}

// Stop clears the liveness flag, wakes every sleeping worker and joins them.
// Jobs still queued are rejected without running, which releases their slots
// and completes their parents. Repeated calls are no-ops. Stop must not be
// called from inside a job.
func (js *JobSystem) Stop() {
	js.lifecycleMu.Lock()
	defer js.lifecycleMu.Unlock()

	if js.state.Load() != stateRunning {
		js.state.Store(stateStopped)
		return
	}

	js.wakeAll()
	js.cancel()
	js.wg.Wait()
	js.state.Store(stateStopped)

	dropped := 0
	for _, id := range js.mainQueue.Clear() {
		js.reject(id, stoppedReason)
		dropped++
	}
	for _, q := range js.queues {
		for {
			id, ok := q.Steal()
			if !ok {
				break
			}
			js.reject(id, stoppedReason)
			dropped++
		}
	}
	js.queued.Store(0)

	js.logger.Info("job system stopped",
		F("executed", js.executed.Load()),
		F("dropped", dropped),
	)
}

// IsRunning returns whether the workers are running
func (js *JobSystem) IsRunning() bool {
	return js.state.Load() == stateRunning
}

// WorkerCount returns the number of worker threads
func (js *JobSystem) WorkerCount() int {
	return len(js.workers)
}

// Allocator exposes the job arena for diagnostics.
func (js *JobSystem) Allocator() *JobAllocator {
	return js.allocator
}

// MainThreadContext marks ctx as belonging to the designated main thread.
// WaitForJob called with such a context also drains the main-thread queue,
// which prevents the main thread from waiting on main-thread work it owns.
func (js *JobSystem) MainThreadContext(ctx context.Context) context.Context {
	return withThreadIdentity(ctx, threadIdentity{system: js, workerID: -1, mainThread: true})
}

// =============================================================================
// Job creation
// =============================================================================

// CreateJob allocates a job without running it. A nil work creates an empty
// job, useful as a parent that only groups children.
func (js *JobSystem) CreateJob(policy ExecutionPolicy, work Work) JobID {
	return js.allocateJob(policy, InvalidJobID, work)
}

// CreateAndRunJob allocates a job and enqueues it.
func (js *JobSystem) CreateAndRunJob(ctx context.Context, policy ExecutionPolicy, work Work) JobID {
	id := js.CreateJob(policy, work)
	js.RunJob(ctx, id)
	return id
}

// CreateJobAsChild allocates a job whose completion is required for parent to
// complete. The parent's count is raised before the child exists, so the
// parent can never reach zero while a registered child is outstanding.
// Panics if parent is not a live job.
func (js *JobSystem) CreateJobAsChild(policy ExecutionPolicy, parent JobID, work Work) JobID {
	if parent == InvalidJobID {
		panic(errors.Wrap(ErrInvalidJobID, "CreateJobAsChild: the parent job must be a valid job ID"))
	}
	return js.allocateJob(policy, parent, work)
}

// CreateAndRunJobAsChild is CreateJobAsChild followed by RunJob.
func (js *JobSystem) CreateAndRunJobAsChild(ctx context.Context, policy ExecutionPolicy, parent JobID, work Work) JobID {
	id := js.CreateJobAsChild(policy, parent, work)
	js.RunJob(ctx, id)
	return id
}

func (js *JobSystem) allocateJob(policy ExecutionPolicy, parent JobID, work Work) JobID {
	var parentJob *Job
	if parent != InvalidJobID {
		parentJob = js.allocator.GetJobFromID(parent)
	}

	job, id := js.allocator.AllocateJob()
	job.work = work
	job.policy = policy
	job.parent = parent
	job.unfinished.Store(1)

	if parentJob != nil {
		parentJob.unfinished.Add(1)
	}
	return id
}

// =============================================================================
// Running and waiting
// =============================================================================

// RunJob enqueues a created job: worker jobs go to a round-robin selected
// worker queue and wake one sleeping worker, main-thread jobs go to the
// main-thread queue. Running a job twice panics.
//
// When the caller is the target worker itself the job is pushed onto the
// owner end of its deque. Every other caller, including goroutines that were
// handed a worker's ctx, goes through the queue's inbox.
func (js *JobSystem) RunJob(ctx context.Context, id JobID) {
	job := js.allocator.GetJobFromID(id)
	if !job.queued.CompareAndSwap(false, true) {
		panic(errors.Wrapf(ErrJobAlreadyRun, "RunJob %s", id))
	}

	if js.state.Load() == stateStopped {
		js.reject(id, stoppedReason)
		return
	}

	if job.policy == ExecutionPolicyMainThread {
		js.mainQueue.Push(id)
		js.metrics.RecordQueueDepth(mainQueueName, js.mainQueue.Len())
		return
	}

	target := int((js.nextQueue.Add(1) - 1) % uint32(len(js.queues)))
	js.queued.Add(1)
	if js.callingWorker(ctx) == target {
		js.queues[target].Push(id)
	} else {
		js.queues[target].Inject(id)
	}
	js.metrics.RecordQueueDepth(js.workers[target].name(), js.queues[target].Len())

	js.wakeMu.Lock()
	js.wakeCond.Signal()
	js.wakeMu.Unlock()
}

// WaitForJob returns once the job and its entire subtree have finished.
//
// The caller does not block: while the job is outstanding it executes other
// available jobs (its own queue first when called on a worker's thread, the
// main-thread queue when ctx belongs to the main thread, otherwise by
// stealing). This keeps a waiting worker productive and prevents nested
// fork-join from starving the pool.
//
// Waiting on a job that was created but never run does not return.
func (js *JobSystem) WaitForJob(ctx context.Context, id JobID) {
	if id == InvalidJobID {
		panic(errors.Wrap(ErrInvalidJobID, "WaitForJob: the job id must be a valid job ID"))
	}
	if js.allocator.Status(id) == JobStatusNeverIssued {
		panic(errors.Wrapf(ErrInvalidJobID, "WaitForJob %s was never issued", id))
	}

	identity, ok := threadIdentityFrom(ctx)
	if !ok || identity.system != js {
		identity = threadIdentity{workerID: -1}
	}

	owner := js.callingWorker(ctx)
	for js.allocator.IsLive(id) {
		if !js.helpOnce(ctx, identity, owner) {
			runtime.Gosched()
		}
	}
}

// IsJobFinished reports whether a previously issued job has completed.
func (js *JobSystem) IsJobFinished(id JobID) bool {
	return js.allocator.Status(id) == JobStatusReleased
}

// DestroyJob frees a job that was created but never run. Its claim on its
// parent is released so the parent can still complete. Destroying a job that
// was passed to RunJob panics with ErrJobAlreadyRun; destroying one that
// still has unfinished children is a programming error.
func (js *JobSystem) DestroyJob(id JobID) {
	if id == InvalidJobID {
		panic(errors.Wrap(ErrInvalidJobID, "DestroyJob: the job id must be a valid job ID"))
	}
	if js.allocator.GetJobFromID(id).queued.Load() {
		panic(errors.Wrapf(ErrJobAlreadyRun, "DestroyJob %s", id))
	}
	js.release(id)
}

// ExecuteMainThreadJobs drains the main-thread queue on the calling thread,
// including jobs enqueued while draining, and returns how many ran.
// Call it from the application's main loop, once per frame or tick.
func (js *JobSystem) ExecuteMainThreadJobs(ctx context.Context) int {
	if !IsMainThreadContext(ctx) {
		ctx = js.MainThreadContext(ctx)
	}

	count := 0
	for {
		id, ok := js.mainQueue.Pop()
		if !ok {
			return count
		}
		js.executeJob(ctx, id, -1)
		count++
	}
}

// =============================================================================
// Scheduling internals
// =============================================================================

// helpOnce executes at most one job on behalf of a waiting caller. owner is
// the caller's worker index from callingWorker, or -1.
func (js *JobSystem) helpOnce(ctx context.Context, identity threadIdentity, owner int) bool {
	if owner >= 0 {
		if id, ok := js.tryGetJob(owner); ok {
			js.executeJob(ctx, id, owner)
			return true
		}
		return false
	}

	if identity.system == js && identity.mainThread {
		if id, ok := js.mainQueue.Pop(); ok {
			js.executeJob(ctx, id, -1)
			return true
		}
	}

	if id, ok := js.stealAny(); ok {
		js.executeJob(ctx, id, -1)
		return true
	}
	return false
}

// callingWorker returns the index of the worker whose locked thread is running
// the caller, or -1. The ctx identity narrows the candidate; the thread check
// rejects goroutines that merely carry a worker's ctx.
func (js *JobSystem) callingWorker(ctx context.Context) int {
	identity, ok := threadIdentityFrom(ctx)
	if !ok || identity.system != js || identity.mainThread {
		return -1
	}
	if identity.workerID < 0 || identity.workerID >= len(js.workers) {
		return -1
	}
	if !js.workers[identity.workerID].onOwnThread() {
		return -1
	}
	return identity.workerID
}

// tryGetJob pops from the worker's own queue, then steal-scans the others
// starting at the next index and wrapping back to self. Only the worker's own
// goroutine may call it.
func (js *JobSystem) tryGetJob(workerID int) (JobID, bool) {
	if id, ok := js.queues[workerID].Pop(); ok {
		js.queued.Add(-1)
		return id, true
	}

	n := len(js.queues)
	for i := (workerID + 1) % n; i != workerID; i = (i + 1) % n {
		if id, ok := js.queues[i].Steal(); ok {
			js.queued.Add(-1)
			js.stolen.Add(1)
			js.metrics.RecordJobStolen(workerID)
			return id, true
		}
	}
	return InvalidJobID, false
}

// stealAny scans every worker queue from a thread that owns none of them.
func (js *JobSystem) stealAny() (JobID, bool) {
	n := len(js.queues)
	start := int(js.nextQueue.Load() % uint32(n))
	for i := range n {
		if id, ok := js.queues[(start+i)%n].Steal(); ok {
			js.queued.Add(-1)
			return id, true
		}
	}
	return InvalidJobID, false
}

// sleep blocks the calling worker until work is queued or shutdown begins.
func (js *JobSystem) sleep() {
	js.wakeMu.Lock()
	for js.alive.Load() && js.queued.Load() <= 0 {
		js.wakeCond.Wait()
	}
	js.wakeMu.Unlock()
}

func (js *JobSystem) executeJob(ctx context.Context, id JobID, workerID int) {
	job := js.allocator.GetJobFromID(id)
	work, policy := job.work, job.policy

	startedAt := time.Now()
	js.active.Add(1)
	panicked := js.invoke(ctx, id, workerID, policy, work)
	js.active.Add(-1)
	finishedAt := time.Now()

	js.metrics.RecordJobDuration(policy, finishedAt.Sub(startedAt))
	js.history.Add(JobExecutionRecord{
		ID:         id,
		Policy:     policy,
		WorkerID:   workerID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   finishedAt.Sub(startedAt),
		Panicked:   panicked,
	})
	js.executed.Add(1)

	js.finishJob(id)
}

func (js *JobSystem) invoke(ctx context.Context, id JobID, workerID int, policy ExecutionPolicy, work Work) (panicked bool) {
	if work == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			js.metrics.RecordJobPanic(policy, r)
			js.panicHandler.HandlePanic(ctx, id, workerID, r, debug.Stack())
		}
	}()
	work(ctx)
	return false
}

// finishJob drops one outstanding unit from the job. The transition to zero
// frees the slot and is propagated to the parent, all without locks.
func (js *JobSystem) finishJob(id JobID) {
	for id != InvalidJobID {
		job := js.allocator.GetJobFromID(id)
		remaining := job.unfinished.Add(-1)
		if remaining > 0 {
			return
		}
		if remaining < 0 {
			panic(errors.Wrapf(ErrCounterUnderflow, "%s", id))
		}

		parent := job.parent
		js.allocator.FreeJob(id)
		id = parent
	}
}

// release frees a never-run job and hands its completion unit to the parent.
func (js *JobSystem) release(id JobID) {
	parent := js.allocator.GetJobFromID(id).parent
	js.allocator.FreeJob(id)
	if parent != InvalidJobID {
		js.finishJob(parent)
	}
}

// reject completes a job without running its work. Dropping only the job's
// own unit keeps children that are still outstanding attached, so the slot is
// freed once they have been rejected or run as well.
func (js *JobSystem) reject(id JobID, reason string) {
	js.rejected.Add(1)
	js.rejectedJobs.HandleRejectedJob(id, reason)
	js.metrics.RecordJobRejected(reason)
	js.finishJob(id)
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns current observability data for this job system.
func (js *JobSystem) Stats() JobSystemStats {
	return JobSystemStats{
		Workers:          len(js.workers),
		Capacity:         js.allocator.Capacity(),
		Live:             js.allocator.LiveCount(),
		Queued:           int(max(js.queued.Load(), 0)),
		MainThreadQueued: js.mainQueue.Len(),
		Active:           int(js.active.Load()),
		Executed:         js.executed.Load(),
		Stolen:           js.stolen.Load(),
		Rejected:         js.rejected.Load(),
		Running:          js.IsRunning(),
	}
}

// RecentJobs returns completed job execution records in newest-first order.
func (js *JobSystem) RecentJobs(limit int) []JobExecutionRecord {
	return js.history.Recent(limit)
}

// LastJob returns the most recent execution record.
func (js *JobSystem) LastJob() (JobExecutionRecord, bool) {
	return js.history.Last()
}

func (js *JobSystem) String() string {
	return fmt.Sprintf("JobSystem(workers=%d, capacity=%d)", len(js.workers), js.allocator.Capacity())
}
