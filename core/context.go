package core

import "context"

// threadIdentity tells the scheduler which thread a context belongs to. A
// worker identity is only a candidate: RunJob and WaitForJob confirm it
// against the worker's locked thread before touching its private queue end.
type threadIdentity struct {
	system     *JobSystem
	workerID   int
	mainThread bool
}

type threadKeyType struct{}

var threadKey threadKeyType

func withThreadIdentity(ctx context.Context, identity threadIdentity) context.Context {
	return context.WithValue(ctx, threadKey, identity)
}

func threadIdentityFrom(ctx context.Context) (threadIdentity, bool) {
	if ctx == nil {
		return threadIdentity{}, false
	}
	identity, ok := ctx.Value(threadKey).(threadIdentity)
	return identity, ok
}

// WorkerIDFromContext returns the worker index when ctx was handed to a job
// running on a worker thread.
func WorkerIDFromContext(ctx context.Context) (int, bool) {
	identity, ok := threadIdentityFrom(ctx)
	if !ok || identity.mainThread {
		return -1, false
	}
	return identity.workerID, true
}

// IsMainThreadContext reports whether ctx belongs to the designated main thread.
func IsMainThreadContext(ctx context.Context) bool {
	identity, ok := threadIdentityFrom(ctx)
	return ok && identity.mainThread
}
