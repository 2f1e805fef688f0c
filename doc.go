// Package jobsystem provides a fork-join, work-stealing job scheduler for Go.
//
// Work is expressed as Jobs: a callable plus a completion counter. Jobs run on
// a fixed pool of worker threads, each pinned to its own core and fed by its
// own queue. Idle workers steal from their peers. A job can be created as the
// child of another job; the parent only completes once its own work and all of
// its children have finished, so whole job graphs are awaited through a single
// handle without join channels or wait groups.
//
// # Quick Start
//
//	js := jobsystem.New(jobsystem.DefaultConfig())
//	js.Start(ctx)
//	defer js.Stop()
//
//	root := js.CreateJob(jobsystem.WorkerThread, nil)
//	for _, chunk := range chunks {
//		js.CreateAndRunJobAsChild(ctx, jobsystem.WorkerThread, root, func(ctx context.Context) {
//			process(chunk)
//		})
//	}
//	js.RunJob(ctx, root)
//	js.WaitForJob(ctx, root)
//
// # Key Concepts
//
// JobID: An opaque, generation-tagged handle. A handle stays valid until its job
// completes; afterwards it is reported as finished and can never alias a newer job.
//
// ExecutionPolicy: WorkerThread jobs run on the pool. MainThread jobs run only
// when the application calls ExecuteMainThreadJobs, for work that must happen
// on one specific thread.
//
// Helping wait: WaitForJob never parks the caller. A waiting worker keeps
// executing queued jobs until the awaited job completes, so jobs may freely
// wait on the children they spawn.
//
// # Thread Safety
//
// All JobSystem methods are safe for concurrent use. The context handed to a
// job identifies the thread it runs on; pass it to nested RunJob and WaitForJob
// calls and do not hand it to other goroutines.
//
// # Misuse
//
// Scheduler misuse (waiting on an invalid handle, running a job twice, running
// out of job slots) panics with an error matching one of the Err* sentinels.
package jobsystem
