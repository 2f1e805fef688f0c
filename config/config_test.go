package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-job-system/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobsystem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 0, c.Workers)
	assert.Equal(t, 2, c.ReservedCores)
	assert.Equal(t, 4096, c.MaxJobs)
	assert.True(t, c.PinWorkers)
	assert.Equal(t, "high", c.WorkerPriority)
	assert.Equal(t, "jsworker-", c.ThreadNamePrefix)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, time.Second, c.Metrics.PollInterval)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
workers: 3
maxJobs: 512
workerPriority: low
metrics:
  enabled: true
  namespace: bench
  pollInterval: 250ms
`)
	t.Setenv("JOBTEST_MAXJOBS", "1024")
	t.Setenv("JOBTEST_METRICS_LISTENADDR", ":9100")

	c, err := Load(path, "JOBTEST")
	require.NoError(t, err)

	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, 1024, c.MaxJobs)
	assert.Equal(t, "low", c.WorkerPriority)
	assert.True(t, c.Metrics.Enabled)
	assert.Equal(t, "bench", c.Metrics.Namespace)
	assert.Equal(t, ":9100", c.Metrics.ListenAddr)
	assert.Equal(t, 250*time.Millisecond, c.Metrics.PollInterval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero capacity":    "maxJobs: 0\n",
		"unknown priority": "workerPriority: realtime\n",
		"bad log level":    "logLevel: loud\n",
		"long prefix":      "threadNamePrefix: much-too-long-prefix\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body), "")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestToJobSystemConfig(t *testing.T) {
	c, err := Load(writeConfig(t, "workers: 2\nmaxJobs: 64\nworkerPriority: normal\npinWorkers: false\n"), "")
	require.NoError(t, err)

	cfg := c.ToJobSystemConfig(logrus.New())

	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 64, cfg.MaxJobs)
	assert.False(t, cfg.PinWorkers)
	assert.Equal(t, core.ThreadPriorityNormal, cfg.WorkerPriority)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.PanicHandler)
	assert.NotNil(t, cfg.Metrics)
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, core.ThreadPriorityHigh, ParsePriority("HIGH"))
	assert.Equal(t, core.ThreadPriorityLow, ParsePriority("low"))
	assert.Equal(t, core.ThreadPriorityNormal, ParsePriority(""))
}
