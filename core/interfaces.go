package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// PanicHandler: Interface for handling job panics
// =============================================================================

// PanicHandler is called when a job's work panics. The job is still completed
// afterwards so that waiters and parents are released.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a job panics.
	//
	// Parameters:
	// - ctx: The context the job ran with
	// - id: The job that panicked
	// - workerID: The worker index, or -1 for the main thread and helping callers
	// - panicInfo: The recovered panic value
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, id JobID, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs the panic through the standard logrus logger.
type DefaultPanicHandler struct{}

// HandlePanic logs panic information at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, id JobID, workerID int, panicInfo any, stackTrace []byte) {
	logrus.WithFields(logrus.Fields{
		"job":    id.String(),
		"worker": workerID,
		"panic":  panicInfo,
	}).Errorf("job panicked\n%s", stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting job execution metrics.
// Methods should be non-blocking and fast; they run on the scheduling path.
type Metrics interface {
	// RecordJobDuration records how long a job's work took.
	RecordJobDuration(policy ExecutionPolicy, duration time.Duration)

	// RecordJobPanic records that a job panicked during execution.
	RecordJobPanic(policy ExecutionPolicy, panicInfo any)

	// RecordQueueDepth records the current depth of a named queue
	// ("worker-N" or "main").
	RecordQueueDepth(queue string, depth int)

	// RecordJobRejected records that a job was rejected (e.g., after Stop).
	RecordJobRejected(reason string)

	// RecordJobStolen records that a worker took a job from another worker's queue.
	RecordJobStolen(thiefWorkerID int)
}

// NilMetrics provides a no-op metrics implementation.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordJobDuration(policy ExecutionPolicy, duration time.Duration) {}
func (m *NilMetrics) RecordJobPanic(policy ExecutionPolicy, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(queue string, depth int)                         {}
func (m *NilMetrics) RecordJobRejected(reason string)                                  {}
func (m *NilMetrics) RecordJobStolen(thiefWorkerID int)                                {}

// =============================================================================
// RejectedJobHandler: Interface for handling rejected jobs
// =============================================================================

// RejectedJobHandler is called for each job that will not run: jobs passed to
// RunJob on a stopped job system and jobs still queued when Stop runs. The
// job completes without running its work.
type RejectedJobHandler interface {
	HandleRejectedJob(id JobID, reason string)
}

// DefaultRejectedJobHandler logs rejected jobs at warn level.
type DefaultRejectedJobHandler struct{}

func (h *DefaultRejectedJobHandler) HandleRejectedJob(id JobID, reason string) {
	logrus.WithField("job", id.String()).Warnf("job rejected: %s", reason)
}

// =============================================================================
// ThreadPriority
// =============================================================================

// ThreadPriority is the scheduling priority requested for worker threads.
type ThreadPriority int

const (
	ThreadPriorityNormal ThreadPriority = iota
	ThreadPriorityHigh
	ThreadPriorityLow
)

// =============================================================================
// JobSystemConfig: Configuration for JobSystem
// =============================================================================

const (
	defaultReservedCores    = 2
	defaultMaxJobs          = 4096
	defaultThreadNamePrefix = "jsworker-"
)

// JobSystemConfig holds configuration options for JobSystem.
// All handlers are optional; if not provided, default implementations will be used.
type JobSystemConfig struct {
	// WorkerCount is the number of worker threads. Zero derives it from
	// the number of usable CPUs minus ReservedCores (at least 1).
	WorkerCount int

	// ReservedCores is the number of cores left for the main and render
	// threads. Workers are pinned starting after them.
	ReservedCores int

	// MaxJobs is the fixed capacity of in-flight jobs.
	MaxJobs int

	// PinWorkers pins each worker thread to its own core.
	PinWorkers bool

	// WorkerPriority is the scheduling priority requested for worker threads.
	WorkerPriority ThreadPriority

	// ThreadNamePrefix names worker threads "<prefix><index>".
	ThreadNamePrefix string

	// HistoryCapacity bounds the execution history. Defaults to 100.
	HistoryCapacity int

	// Logger receives lifecycle and diagnostic messages. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a job panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records job execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedJobHandler is called when a job is rejected. Defaults to DefaultRejectedJobHandler.
	RejectedJobHandler RejectedJobHandler
}

// DefaultJobSystemConfig returns a config with default handlers.
func DefaultJobSystemConfig() *JobSystemConfig {
	return &JobSystemConfig{
		ReservedCores:      defaultReservedCores,
		MaxJobs:            defaultMaxJobs,
		PinWorkers:         true,
		WorkerPriority:     ThreadPriorityHigh,
		ThreadNamePrefix:   defaultThreadNamePrefix,
		HistoryCapacity:    defaultJobHistoryCapacity,
		Logger:             NewNoOpLogger(),
		PanicHandler:       &DefaultPanicHandler{},
		Metrics:            &NilMetrics{},
		RejectedJobHandler: &DefaultRejectedJobHandler{},
	}
}
