package core

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

// newTestJobSystem returns a started job system that is stopped on cleanup.
// Workers are neither pinned nor reprioritized so tests run unprivileged.
func newTestJobSystem(t *testing.T, workers int, maxJobs int) *JobSystem {
	t.Helper()
	js := NewJobSystem(&JobSystemConfig{
		WorkerCount:    workers,
		MaxJobs:        maxJobs,
		WorkerPriority: ThreadPriorityNormal,
		Logger:         NewNoOpLogger(),
	})
	js.Start(context.Background())
	t.Cleanup(js.Stop)
	return js
}

// expectPanicIs runs fn and fails unless it panics with an error matching target.
func expectPanicIs(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %v, got none", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic = %v, want %v", r, target)
		}
	}()
	fn()
}
