//go:build linux

package osthread

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Nice values used for each priority. Negative values need CAP_SYS_NICE.
var niceValues = map[Priority]int{
	PriorityNormal: 0,
	PriorityHigh:   -5,
	PriorityLow:    10,
}

func allowedCPUs() []int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil
	}
	n := set.Count()
	cpus := make([]int, 0, n)
	for cpu := 0; len(cpus) < n; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}

func pinToCore(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 addresses the calling thread.
	return unix.SchedSetaffinity(0, &set)
}

func setPriority(p Priority) error {
	// With PRIO_PROCESS, Linux applies a thread id to that single thread.
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), niceValues[p])
}

func setName(name string) error {
	ptr, err := unix.BytePtrFromString(name)
	if err != nil {
		return err
	}
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(ptr)), 0, 0, 0)
}

func currentThreadID() (int, bool) {
	return unix.Gettid(), true
}
