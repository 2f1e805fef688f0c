package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-job-system/core"
)

// JobSystemSnapshotProvider provides current job system stats snapshots.
type JobSystemSnapshotProvider interface {
	Stats() core.JobSystemStats
}

// SnapshotPoller periodically exports job system Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	systemsMu sync.RWMutex
	systems   map[string]JobSystemSnapshotProvider

	live             *prom.GaugeVec
	capacity         *prom.GaugeVec
	queued           *prom.GaugeVec
	mainThreadQueued *prom.GaugeVec
	active           *prom.GaugeVec
	executed         *prom.GaugeVec
	workers          *prom.GaugeVec
	running          *prom.GaugeVec

	stateMu  sync.Mutex
	isActive bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "jobsystem"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"system"})
	}

	p := &SnapshotPoller{
		interval:         interval,
		systems:          make(map[string]JobSystemSnapshotProvider),
		live:             gauge("live_jobs", "Allocated jobs that have not completed."),
		capacity:         gauge("capacity", "Maximum number of simultaneously live jobs."),
		queued:           gauge("queued_jobs", "Jobs waiting in worker queues."),
		mainThreadQueued: gauge("main_thread_queued_jobs", "Jobs waiting for the main thread."),
		active:           gauge("active_jobs", "Jobs currently executing."),
		executed:         gauge("executed_jobs", "Executed job count snapshot."),
		workers:          gauge("workers", "Worker thread count."),
		running:          gauge("running", "Job system running state (1=running, 0=stopped)."),
	}

	for _, vec := range []**prom.GaugeVec{
		&p.live, &p.capacity, &p.queued, &p.mainThreadQueued,
		&p.active, &p.executed, &p.workers, &p.running,
	} {
		registered, err := registerCollector(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}
	return p, nil
}

// AddJobSystem adds or replaces a snapshot provider by name.
func (p *SnapshotPoller) AddJobSystem(name string, provider JobSystemSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "default")
	p.systemsMu.Lock()
	p.systems[name] = provider
	p.systemsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.isActive {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.isActive = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.isActive {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.isActive = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.systemsMu.RLock()
	defer p.systemsMu.RUnlock()

	for name, provider := range p.systems {
		stats := provider.Stats()
		p.live.WithLabelValues(name).Set(float64(stats.Live))
		p.capacity.WithLabelValues(name).Set(float64(stats.Capacity))
		p.queued.WithLabelValues(name).Set(float64(stats.Queued))
		p.mainThreadQueued.WithLabelValues(name).Set(float64(stats.MainThreadQueued))
		p.active.WithLabelValues(name).Set(float64(stats.Active))
		p.executed.WithLabelValues(name).Set(float64(stats.Executed))
		p.workers.WithLabelValues(name).Set(float64(stats.Workers))
		if stats.Running {
			p.running.WithLabelValues(name).Set(1)
		} else {
			p.running.WithLabelValues(name).Set(0)
		}
	}
}
