package core

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/Swind/go-job-system/internal/osthread"
)

// worker owns one WorkQueue and runs on its own locked OS thread.
type worker struct {
	id     int
	cpu    int
	system *JobSystem

	// Kernel id of the locked thread, 0 until run starts or where unsupported.
	tid atomic.Int64
}

func (w *worker) name() string {
	return fmt.Sprintf("worker-%d", w.id)
}

// run is the worker's main loop: pop own work, steal, or sleep until woken.
func (w *worker) run(ctx context.Context) {
	defer w.system.wg.Done()

	// Never unlocked: the runtime retires the thread when this goroutine
	// exits, so affinity and priority changes do not leak to other goroutines.
	runtime.LockOSThread()
	if tid, ok := osthread.CurrentThreadID(); ok {
		w.tid.Store(int64(tid))
	}
	w.configureThread()

	js := w.system
	ctx = withThreadIdentity(ctx, threadIdentity{system: js, workerID: w.id})

	js.logger.Debug("worker started", F("worker", w.id), F("cpu", w.cpu))
	for js.alive.Load() {
		if id, ok := js.tryGetJob(w.id); ok {
			js.executeJob(ctx, id, w.id)
			continue
		}
		js.sleep()
	}
	js.logger.Debug("worker stopped", F("worker", w.id))
}

// configureThread applies affinity, priority and name. Failures are logged
// and the worker keeps running unconfigured.
func (w *worker) configureThread() {
	cfg := w.system.config
	logger := w.system.logger

	if cfg.PinWorkers {
		if err := osthread.PinToCore(w.cpu); err != nil {
			logger.Warn("failed to pin worker thread", F("worker", w.id), F("cpu", w.cpu), F("error", err))
		}
	}
	if err := osthread.SetPriority(toOSPriority(cfg.WorkerPriority)); err != nil {
		logger.Warn("failed to set worker priority", F("worker", w.id), F("error", err))
	}
	if err := osthread.SetName(fmt.Sprintf("%s%d", cfg.ThreadNamePrefix, w.id)); err != nil {
		logger.Warn("failed to name worker thread", F("worker", w.id), F("error", err))
	}
}

// onOwnThread reports whether the caller is running on this worker's locked
// thread. A locked thread runs no other goroutine, so a match proves the
// caller is the worker goroutine itself and may use the owner end of its queue.
func (w *worker) onOwnThread() bool {
	want := w.tid.Load()
	if want == 0 {
		return false
	}
	tid, ok := osthread.CurrentThreadID()
	return ok && int64(tid) == want
}

func toOSPriority(p ThreadPriority) osthread.Priority {
	switch p {
	case ThreadPriorityHigh:
		return osthread.PriorityHigh
	case ThreadPriorityLow:
		return osthread.PriorityLow
	default:
		return osthread.PriorityNormal
	}
}
