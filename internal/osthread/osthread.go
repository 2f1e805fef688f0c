// Package osthread configures the OS thread backing the calling goroutine:
// core affinity, scheduling priority and a diagnostic name.
//
// Every function acts on the current OS thread, so callers must hold
// runtime.LockOSThread for the settings to stay attached to their goroutine.
// Platform-specific implementations live in osthread_linux.go and
// osthread_other.go.
package osthread

import (
	"runtime"

	"github.com/pkg/errors"
)

// ErrNotSupported is returned on platforms without a thread configuration backend.
var ErrNotSupported = errors.New("osthread: not supported on this platform")

// Priority is a coarse scheduling priority for a thread.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// maxNameLen is the kernel's limit for thread names, excluding the terminator.
const maxNameLen = 15

// NumCPU returns the number of logical CPUs usable by the process.
func NumCPU() int {
	return runtime.NumCPU()
}

// AllowedCPUs lists the logical CPU indices the process may run on, in
// ascending order. Inside containers this is often a subset of the machine.
func AllowedCPUs() []int {
	if cpus := allowedCPUs(); len(cpus) > 0 {
		return cpus
	}
	cpus := make([]int, NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus
}

// PinToCore restricts the current thread to a single logical CPU.
func PinToCore(cpu int) error {
	if cpu < 0 {
		return errors.Errorf("osthread: negative cpu %d", cpu)
	}
	return errors.Wrapf(pinToCore(cpu), "osthread: pin to cpu %d", cpu)
}

// SetPriority changes the scheduling priority of the current thread.
// Raising priority usually requires elevated privileges.
func SetPriority(p Priority) error {
	return errors.Wrapf(setPriority(p), "osthread: set priority %s", p)
}

// SetName names the current thread for debuggers and profilers. Names longer
// than the platform limit are truncated.
func SetName(name string) error {
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return errors.Wrapf(setName(name), "osthread: set name %q", name)
}

// CurrentThreadID returns the kernel id of the current thread. ok is false on
// platforms where thread ids are not available.
func CurrentThreadID() (tid int, ok bool) {
	return currentThreadID()
}
