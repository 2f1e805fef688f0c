package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-job-system/config"
	"github.com/Swind/go-job-system/core"
	jsprom "github.com/Swind/go-job-system/observability/prometheus"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run a fork-join tree and report throughput",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (yaml, toml or json)",
			},
			&cli.StringFlag{
				Name:  "env-prefix",
				Value: "JOBSYSTEM",
				Usage: "Prefix of environment overrides",
			},
			&cli.IntFlag{
				Name:    "leaves",
				Aliases: []string{"n"},
				Value:   100000,
				Usage:   "Number of leaf jobs",
			},
			&cli.IntFlag{
				Name:    "fanout",
				Aliases: []string{"f"},
				Value:   8,
				Usage:   "Children per inner job",
			},
			&cli.IntFlag{
				Name:  "rounds",
				Value: 1,
				Usage: "Number of trees to run back to back",
			},
			&cli.DurationFlag{
				Name:  "leaf-work",
				Value: 0,
				Usage: "Busy time spent in every leaf",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve /metrics on this address (overrides config)",
			},
		},

		Action: RunAction,
	}
}

func RunAction(c *cli.Context) error {
	// 1. Get flags
	leaves := c.Int("leaves")
	fanout := c.Int("fanout")
	rounds := c.Int("rounds")

	// 2. Validate (format only)
	if leaves < 1 {
		return cli.Exit("leaves must be at least 1", 1)
	}
	if fanout < 2 {
		return cli.Exit("fanout must be at least 2", 1)
	}
	if rounds < 1 {
		return cli.Exit("rounds must be at least 1", 1)
	}

	cfg, err := config.Load(c.String("config"), c.String("env-prefix"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	if addr := c.String("metrics-addr"); addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = addr
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// 3. Run
	report, err := runBench(c.Context, cfg, logger, benchOptions{
		leaves:   leaves,
		fanout:   fanout,
		rounds:   rounds,
		leafWork: c.Duration("leaf-work"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	// 4. Format output
	fmt.Fprintln(c.App.Writer, report)
	return nil
}

type benchOptions struct {
	leaves   int
	fanout   int
	rounds   int
	leafWork time.Duration
}

type benchReport struct {
	jobs    int64
	elapsed time.Duration
	stats   core.JobSystemStats
}

func (r benchReport) String() string {
	rate := float64(r.jobs) / r.elapsed.Seconds()
	return fmt.Sprintf("✓ %d jobs on %d workers in %s (%.0f jobs/s, %d stolen)",
		r.jobs, r.stats.Workers, r.elapsed.Round(time.Microsecond), rate, r.stats.Stolen)
}

func runBench(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts benchOptions) (benchReport, error) {
	jsCfg := cfg.ToJobSystemConfig(logger)

	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		exporter, err := jsprom.NewMetricsExporter(cfg.Metrics.Namespace, reg, jsprom.ExporterOptions{})
		if err != nil {
			return benchReport{}, err
		}
		jsCfg.Metrics = exporter

		poller, err := jsprom.NewSnapshotPoller(cfg.Metrics.Namespace, reg, cfg.Metrics.PollInterval)
		if err != nil {
			return benchReport{}, err
		}
		defer poller.Stop()

		server := &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
		defer server.Close()

		js := core.NewJobSystem(jsCfg)
		poller.AddJobSystem("jobbench", js)
		poller.Start(ctx)
		return execute(ctx, js, opts)
	}

	return execute(ctx, core.NewJobSystem(jsCfg), opts)
}

func execute(ctx context.Context, js *core.JobSystem, opts benchOptions) (benchReport, error) {
	if need := treeSize(opts.leaves, opts.fanout); need > js.Allocator().Capacity() {
		return benchReport{}, errors.Errorf("tree of %d leaves needs %d job slots, capacity is %d",
			opts.leaves, need, js.Allocator().Capacity())
	}

	js.Start(ctx)
	defer js.Stop()

	mainCtx := js.MainThreadContext(ctx)
	var jobs int64
	started := time.Now()
	for range opts.rounds {
		root := spawnTree(mainCtx, js, opts.leaves, opts.fanout, opts.leafWork)
		js.WaitForJob(mainCtx, root)
		jobs += int64(treeSize(opts.leaves, opts.fanout))
	}

	return benchReport{jobs: jobs, elapsed: time.Since(started), stats: js.Stats()}, nil
}

// spawnTree builds a tree of fanout-ary inner jobs above n leaves. Inner jobs
// create their children when they run, so the tree unfolds across workers.
func spawnTree(ctx context.Context, js *core.JobSystem, n int, fanout int, leafWork time.Duration) core.JobID {
	if n == 1 {
		return js.CreateAndRunJob(ctx, core.ExecutionPolicyWorkerThread, leaf(leafWork))
	}

	var root core.JobID
	root = js.CreateJob(core.ExecutionPolicyWorkerThread, func(ctx context.Context) {
		forkChildren(ctx, js, root, n, fanout, leafWork)
	})
	js.RunJob(ctx, root)
	return root
}

func forkChildren(ctx context.Context, js *core.JobSystem, parent core.JobID, n int, fanout int, leafWork time.Duration) {
	for _, size := range split(n, fanout) {
		if size == 1 {
			js.CreateAndRunJobAsChild(ctx, core.ExecutionPolicyWorkerThread, parent, leaf(leafWork))
			continue
		}
		var child core.JobID
		child = js.CreateJobAsChild(core.ExecutionPolicyWorkerThread, parent, func(ctx context.Context) {
			forkChildren(ctx, js, child, size, fanout, leafWork)
		})
		js.RunJob(ctx, child)
	}
}

func leaf(work time.Duration) core.Work {
	if work <= 0 {
		return nil
	}
	return func(ctx context.Context) {
		deadline := time.Now().Add(work)
		for time.Now().Before(deadline) {
		}
	}
}

// split divides n into at most fanout near-equal positive parts.
func split(n int, fanout int) []int {
	parts := min(n, fanout)
	sizes := make([]int, parts)
	for i := range sizes {
		sizes[i] = n / parts
		if i < n%parts {
			sizes[i]++
		}
	}
	return sizes
}

// treeSize counts the jobs spawnTree creates for n leaves.
func treeSize(n int, fanout int) int {
	if n == 1 {
		return 1
	}
	total := 1
	for _, size := range split(n, fanout) {
		total += treeSize(size, fanout)
	}
	return total
}
