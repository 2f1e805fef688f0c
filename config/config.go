// Package config loads job system settings from a file and the environment.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Swind/go-job-system/core"
)

// Config is the file/environment form of core.JobSystemConfig.
type Config struct {
	Workers          int           `mapstructure:"workers" validate:"gte=0"`
	ReservedCores    int           `mapstructure:"reservedCores" validate:"gte=0"`
	MaxJobs          int           `mapstructure:"maxJobs" validate:"gte=1,lte=4294967295"`
	PinWorkers       bool          `mapstructure:"pinWorkers"`
	WorkerPriority   string        `mapstructure:"workerPriority" validate:"oneof=normal high low"`
	ThreadNamePrefix string        `mapstructure:"threadNamePrefix" validate:"max=12"`
	HistoryCapacity  int           `mapstructure:"historyCapacity" validate:"gte=0"`
	LogLevel         string        `mapstructure:"logLevel" validate:"oneof=trace debug info warn error"`
	Metrics          MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Namespace    string        `mapstructure:"namespace" validate:"required_if=Enabled true"`
	ListenAddr   string        `mapstructure:"listenAddr" validate:"required_if=Enabled true"`
	PollInterval time.Duration `mapstructure:"pollInterval" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0)
	v.SetDefault("reservedCores", 2)
	v.SetDefault("maxJobs", 4096)
	v.SetDefault("pinWorkers", true)
	v.SetDefault("workerPriority", "high")
	v.SetDefault("threadNamePrefix", "jsworker-")
	v.SetDefault("historyCapacity", 100)
	v.SetDefault("logLevel", "info")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "jobsystem")
	v.SetDefault("metrics.listenAddr", ":2112")
	v.SetDefault("metrics.pollInterval", time.Second)
}

// Load reads the config file at path (any format viper understands; empty
// path means defaults only) and applies environment overrides named
// <envPrefix>_<KEY>, e.g. JOBSYSTEM_MAXJOBS or JOBSYSTEM_METRICS_ENABLED.
func Load(path string, envPrefix string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	validate := validator.New()
	return errors.Wrap(validate.Struct(c), "invalid config")
}

// ToJobSystemConfig converts to the scheduler's config, logging through logger.
// A nil logger uses the standard logrus logger at LogLevel.
func (c Config) ToJobSystemConfig(logger *logrus.Logger) *core.JobSystemConfig {
	if logger == nil {
		logger = logrus.StandardLogger()
		if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
			logger.SetLevel(level)
		}
	}

	cfg := core.DefaultJobSystemConfig()
	cfg.WorkerCount = c.Workers
	cfg.ReservedCores = c.ReservedCores
	cfg.MaxJobs = c.MaxJobs
	cfg.PinWorkers = c.PinWorkers
	cfg.WorkerPriority = ParsePriority(c.WorkerPriority)
	cfg.ThreadNamePrefix = c.ThreadNamePrefix
	cfg.HistoryCapacity = c.HistoryCapacity
	cfg.Logger = core.NewLogrusLogger(logrus.NewEntry(logger).WithField("component", "jobsystem"))
	return cfg
}

// ParsePriority maps "high" and "low" to thread priorities; anything else is normal.
func ParsePriority(s string) core.ThreadPriority {
	switch strings.ToLower(s) {
	case "high":
		return core.ThreadPriorityHigh
	case "low":
		return core.ThreadPriorityLow
	default:
		return core.ThreadPriorityNormal
	}
}
