package jobsystem

import "github.com/Swind/go-job-system/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the jobsystem package for most use cases.

// JobSystem is the fork-join scheduler
type JobSystem = core.JobSystem

// JobID is an opaque handle to a job
type JobID = core.JobID

// Work is the callable carried by a job
type Work = core.Work

// ExecutionPolicy selects which thread family runs a job
type ExecutionPolicy = core.ExecutionPolicy

// Config holds JobSystem options
type Config = core.JobSystemConfig

// Stats is a snapshot of JobSystem state
type Stats = core.JobSystemStats

// JobExecutionRecord describes one completed execution
type JobExecutionRecord = core.JobExecutionRecord

// Future holds the result of SubmitJob
type Future[T any] = core.Future[T]

// Handler and logging interfaces
type (
	Logger             = core.Logger
	Metrics            = core.Metrics
	PanicHandler       = core.PanicHandler
	RejectedJobHandler = core.RejectedJobHandler
	ThreadPriority     = core.ThreadPriority
)

// InvalidJobID denotes "no job" and "no parent"
const InvalidJobID = core.InvalidJobID

// Policy constants
const (
	WorkerThread ExecutionPolicy = core.ExecutionPolicyWorkerThread
	MainThread   ExecutionPolicy = core.ExecutionPolicyMainThread
)

// Priority constants
const (
	ThreadPriorityNormal = core.ThreadPriorityNormal
	ThreadPriorityHigh   = core.ThreadPriorityHigh
	ThreadPriorityLow    = core.ThreadPriorityLow
)

// Misuse sentinels, matched with errors.Is on the recovered panic value
var (
	ErrInvalidJobID     = core.ErrInvalidJobID
	ErrStaleJobID       = core.ErrStaleJobID
	ErrJobPoolExhausted = core.ErrJobPoolExhausted
	ErrJobAlreadyRun    = core.ErrJobAlreadyRun
	ErrJobSystemStopped = core.ErrJobSystemStopped
)

// Convenience functions
var (
	DefaultConfig       = core.DefaultJobSystemConfig
	WorkerIDFromContext = core.WorkerIDFromContext
	IsMainThreadContext = core.IsMainThreadContext
	F                   = core.F
)
