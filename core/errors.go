package core

import "github.com/pkg/errors"

// Misuse of the job system is a programming error in the caller's job graph.
// These values are raised with panic (wrapped with context), never returned;
// recover() plus errors.Is classifies them.
var (
	// ErrInvalidJobID indicates InvalidJobID or an index outside the arena
	ErrInvalidJobID = errors.New("invalid job id")

	// ErrStaleJobID indicates a handle whose job already completed or was destroyed
	ErrStaleJobID = errors.New("stale job id")

	// ErrJobPoolExhausted indicates more jobs in flight than the configured capacity
	ErrJobPoolExhausted = errors.New("job pool exhausted")

	// ErrJobAlreadyRun indicates RunJob was called twice for the same job
	ErrJobAlreadyRun = errors.New("job already run")

	// ErrCounterUnderflow indicates a job finished more times than it was registered
	ErrCounterUnderflow = errors.New("job unfinished counter underflow")

	// ErrJobSystemStopped indicates a lifecycle call after Stop
	ErrJobSystemStopped = errors.New("job system is stopped")
)
