package scheduler

import (
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
)

const (
	DefaultInterval         = 24 * time.Hour
	DefaultConcurrency      = 8
	DefaultUserTimeout      = 30 * time.Second
	DefaultDataRetryMax     = 3
	DefaultDataRetryInitial = 200 * time.Millisecond
	DefaultRedeliveryBatch  = 500
)

// Config controls a CycleScheduler.
type Config struct {
	Interval         time.Duration
	Concurrency      int
	UserTimeout      time.Duration
	DataRetryMax     int
	DataRetryInitial time.Duration
	RedeliveryBatch  int64
	// DryRun previews every user without writing or dispatching.
	DryRun bool
}

// ConfigFrom converts the scheduler section of the engine configuration.
func ConfigFrom(c pipeline.SchedulerConfig) Config {
	return Config{
		Interval:         time.Duration(c.DetectionFrequencyHours) * time.Hour,
		Concurrency:      c.Concurrency,
		UserTimeout:      time.Duration(c.UserTimeoutSeconds) * time.Second,
		DataRetryMax:     c.DataRetryMax,
		DataRetryInitial: time.Duration(c.DataRetryInitialMs) * time.Millisecond,
		RedeliveryBatch:  int64(c.RedeliveryBatch),
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.UserTimeout <= 0 {
		c.UserTimeout = DefaultUserTimeout
	}
	if c.DataRetryMax <= 0 {
		c.DataRetryMax = DefaultDataRetryMax
	}
	if c.DataRetryInitial <= 0 {
		c.DataRetryInitial = DefaultDataRetryInitial
	}
	if c.RedeliveryBatch <= 0 {
		c.RedeliveryBatch = DefaultRedeliveryBatch
	}
	return c
}
