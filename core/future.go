package core

import (
	"context"
)

// Future holds the result of a job submitted through SubmitJob.
type Future[T any] struct {
	system *JobSystem
	id     JobID
	result T
}

// SubmitJob creates and runs a job that computes a value. The value is
// available from Future.Wait once the job has finished.
func SubmitJob[T any](ctx context.Context, js *JobSystem, policy ExecutionPolicy, fn func(ctx context.Context) T) *Future[T] {
	f := &Future[T]{system: js}
	f.id = js.CreateAndRunJob(ctx, policy, func(ctx context.Context) {
		f.result = fn(ctx)
	})
	return f
}

// Wait helps run jobs until the submitted job has finished and returns its
// value. If the work panicked, the zero value is returned.
func (f *Future[T]) Wait(ctx context.Context) T {
	f.system.WaitForJob(ctx, f.id)
	return f.result
}

// Done reports whether the job has finished without waiting.
func (f *Future[T]) Done() bool {
	return f.system.IsJobFinished(f.id)
}

// JobID returns the handle of the underlying job, e.g. to wait on it together
// with other jobs or to create children against it before it finishes.
func (f *Future[T]) JobID() JobID {
	return f.id
}
