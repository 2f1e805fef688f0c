package core

import "time"

// JobExecutionRecord captures a completed job execution event.
type JobExecutionRecord struct {
	ID         JobID
	Policy     ExecutionPolicy
	WorkerID   int // -1 for the main thread and helping callers
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
}

// JobSystemStats represents runtime observability state for a job system.
type JobSystemStats struct {
	Workers          int
	Capacity         int
	Live             int
	Queued           int
	MainThreadQueued int
	Active           int
	Executed         int64
	Stolen           int64
	Rejected         int64
	Running          bool
}
