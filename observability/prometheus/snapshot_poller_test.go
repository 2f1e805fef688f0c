package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Swind/go-job-system/core"
)

type systemStub struct {
	stats core.JobSystemStats
}

func (s systemStub) Stats() core.JobSystemStats { return s.stats }

func TestSnapshotPoller_CollectsJobSystemStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("jobsystem", reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddJobSystem("engine", systemStub{stats: core.JobSystemStats{
		Workers:          6,
		Capacity:         4096,
		Live:             12,
		Queued:           5,
		MainThreadQueued: 2,
		Active:           3,
		Executed:         100,
		Running:          true,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		live := testutil.ToFloat64(poller.live.WithLabelValues("engine"))
		queued := testutil.ToFloat64(poller.queued.WithLabelValues("engine"))
		return live == 12 && queued == 5
	})

	if got := testutil.ToFloat64(poller.running.WithLabelValues("engine")); got != 1 {
		t.Fatalf("running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.mainThreadQueued.WithLabelValues("engine")); got != 2 {
		t.Fatalf("main thread queued gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.workers.WithLabelValues("engine")); got != 6 {
		t.Fatalf("workers gauge = %v, want 6", got)
	}
}

func TestSnapshotPoller_RealJobSystem(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("", reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	js := core.NewJobSystem(&core.JobSystemConfig{WorkerCount: 2, MaxJobs: 16})
	poller.AddJobSystem("", js)

	poller.Start(context.Background())
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(poller.capacity.WithLabelValues("default")) == 16
	})
	if got := testutil.ToFloat64(poller.running.WithLabelValues("default")); got != 0 {
		t.Fatalf("running gauge = %v, want 0 for an unstarted job system", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("jobsystem", reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
