package jobsystem

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Swind/go-job-system/config"
	"github.com/Swind/go-job-system/core"
)

// New creates a stopped JobSystem. A nil config uses DefaultConfig.
func New(cfg *Config) *JobSystem {
	return core.NewJobSystem(cfg)
}

// NewFromFile loads a config file (plus <envPrefix>_* overrides) and creates a
// stopped JobSystem from it, logging through logger.
func NewFromFile(path string, envPrefix string, logger *logrus.Logger) (*JobSystem, error) {
	c, err := config.Load(path, envPrefix)
	if err != nil {
		return nil, err
	}
	return core.NewJobSystem(c.ToJobSystemConfig(logger)), nil
}

// Submit runs fn as a job and returns a Future for its result.
func Submit[T any](ctx context.Context, js *JobSystem, policy ExecutionPolicy, fn func(ctx context.Context) T) *Future[T] {
	return core.SubmitJob(ctx, js, policy, fn)
}

// ParallelFor runs body(i) for every i in [0, n) as children of one job and
// waits for all of them, helping from ctx's thread meanwhile.
func ParallelFor(ctx context.Context, js *JobSystem, n int, body func(ctx context.Context, i int)) {
	root := js.CreateJob(WorkerThread, nil)
	for i := range n {
		js.CreateAndRunJobAsChild(ctx, WorkerThread, root, func(ctx context.Context) {
			body(ctx, i)
		})
	}
	js.RunJob(ctx, root)
	js.WaitForJob(ctx, root)
}
