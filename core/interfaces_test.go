package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test Metrics
// =============================================================================

// TestMetrics is a mock metrics collector for testing
type TestMetrics struct {
	mu          sync.Mutex
	durations   map[ExecutionPolicy]int
	panics      int
	queueDepths map[string]int
	rejections  []string
	steals      int
}

func NewTestMetrics() *TestMetrics {
	return &TestMetrics{
		durations:   make(map[ExecutionPolicy]int),
		queueDepths: make(map[string]int),
	}
}

func (m *TestMetrics) RecordJobDuration(policy ExecutionPolicy, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[policy]++
}

func (m *TestMetrics) RecordJobPanic(policy ExecutionPolicy, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics++
}

func (m *TestMetrics) RecordQueueDepth(queue string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepths[queue] = depth
}

func (m *TestMetrics) RecordJobRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, reason)
}

func (m *TestMetrics) RecordJobStolen(thiefWorkerID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steals++
}

func (m *TestMetrics) Durations(policy ExecutionPolicy) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durations[policy]
}

func (m *TestMetrics) Panics() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.panics
}

func (m *TestMetrics) QueueRecorded(queue string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.queueDepths[queue]
	return ok
}

func TestNilMetrics(t *testing.T) {
	m := &NilMetrics{}

	// Should not panic
	m.RecordJobDuration(ExecutionPolicyWorkerThread, time.Second)
	m.RecordJobPanic(ExecutionPolicyMainThread, "test panic")
	m.RecordQueueDepth("worker-0", 10)
	m.RecordJobRejected("stopped")
	m.RecordJobStolen(1)
}

// TestJobSystem_ReportsMetrics verifies the scheduler feeds the Metrics interface
// Given: A job system with a recording Metrics
// When: A worker job, a panicking job and a main-thread job run
// Then: Durations are recorded per policy, the panic is counted and queue depths are reported
func TestJobSystem_ReportsMetrics(t *testing.T) {
	// Arrange
	metrics := NewTestMetrics()
	js := NewJobSystem(&JobSystemConfig{
		WorkerCount:  2,
		MaxJobs:      8,
		Metrics:      metrics,
		PanicHandler: &recordingPanicHandler{},
	})
	js.Start(context.Background())
	defer js.Stop()
	ctx := js.MainThreadContext(context.Background())

	// Act
	js.WaitForJob(ctx, js.CreateAndRunJob(ctx, ExecutionPolicyWorkerThread, nil))
	js.WaitForJob(ctx, js.CreateAndRunJob(ctx, ExecutionPolicyWorkerThread, func(ctx context.Context) { panic("x") }))
	js.WaitForJob(ctx, js.CreateAndRunJob(ctx, ExecutionPolicyMainThread, nil))

	// Assert
	if got := metrics.Durations(ExecutionPolicyWorkerThread); got != 2 {
		t.Errorf("worker durations = %d, want 2", got)
	}
	if got := metrics.Durations(ExecutionPolicyMainThread); got != 1 {
		t.Errorf("main durations = %d, want 1", got)
	}
	if metrics.Panics() != 1 {
		t.Errorf("panics = %d, want 1", metrics.Panics())
	}
	if !metrics.QueueRecorded("main") || !metrics.QueueRecorded("worker-0") {
		t.Error("queue depths for main and worker-0 not recorded")
	}
}

func TestDefaultPanicHandler(t *testing.T) {
	h := &DefaultPanicHandler{}

	// Should not panic
	h.HandlePanic(context.Background(), newJobID(0, 1), 2, "test panic", []byte("stack"))
}

func TestDefaultRejectedJobHandler(t *testing.T) {
	h := &DefaultRejectedJobHandler{}

	// Should not panic
	h.HandleRejectedJob(newJobID(0, 1), "stopped")
}

// =============================================================================
// Test JobSystemConfig
// =============================================================================

func TestDefaultJobSystemConfig(t *testing.T) {
	config := DefaultJobSystemConfig()

	if config.ReservedCores != defaultReservedCores {
		t.Errorf("ReservedCores = %d, want %d", config.ReservedCores, defaultReservedCores)
	}
	if config.MaxJobs != defaultMaxJobs {
		t.Errorf("MaxJobs = %d, want %d", config.MaxJobs, defaultMaxJobs)
	}
	if !config.PinWorkers || config.WorkerPriority != ThreadPriorityHigh {
		t.Errorf("PinWorkers=%v WorkerPriority=%v, want true/high", config.PinWorkers, config.WorkerPriority)
	}
	if config.Logger == nil || config.PanicHandler == nil || config.Metrics == nil || config.RejectedJobHandler == nil {
		t.Error("default handlers should not be nil")
	}
}

// TestNewJobSystem_FillsDefaults verifies zero-valued config fields are resolved
// Given: An empty config
// When: NewJobSystem is called
// Then: At least one worker exists, capacity is the default and handlers are set
func TestNewJobSystem_FillsDefaults(t *testing.T) {
	js := NewJobSystem(&JobSystemConfig{})

	if js.WorkerCount() < 1 {
		t.Errorf("WorkerCount() = %d, want >= 1", js.WorkerCount())
	}
	if js.Allocator().Capacity() != defaultMaxJobs {
		t.Errorf("Capacity() = %d, want %d", js.Allocator().Capacity(), defaultMaxJobs)
	}
	if js.logger == nil || js.panicHandler == nil || js.metrics == nil || js.rejectedJobs == nil {
		t.Error("nil handlers were not replaced with defaults")
	}
	if js.IsRunning() {
		t.Error("new job system should not be running")
	}

	if NewJobSystem(nil).WorkerCount() < 1 {
		t.Error("nil config should produce a usable job system")
	}
}
