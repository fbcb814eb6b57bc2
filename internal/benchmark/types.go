package benchmark

import (
	"errors"
	"fmt"
	"time"

	"fmubench/internal/monitor"
)

// SampleSet holds the measurements of one benchmark invocation.
type SampleSet struct {
	StepTimes   []float64 `json:"step_times"`   // seconds, one per executed step
	TotalTimes  []float64 `json:"total_time"`   // seconds, one per run
	MemoryUsage []float64 `json:"memory_usage"` // kilobytes, one per run
}

// Config describes one benchmark invocation.
type Config struct {
	Label        string
	Bundle       string
	WithMonitor  bool
	Spec         monitor.Spec
	Input        string
	Output       string
	ReadOutput   bool
	Runs         int
	StepSize     float64
	StopTime     float64
	InstanceName string
	WorkDir      string
}

func (c Config) Validate() error {
	var errs []error
	if c.Bundle == "" {
		errs = append(errs, errors.New("bundle path is empty"))
	}
	if c.Runs <= 0 {
		errs = append(errs, fmt.Errorf("runs must be positive, got: %d", c.Runs))
	}
	if c.StepSize <= 0 {
		errs = append(errs, fmt.Errorf("step size must be positive, got: %g", c.StepSize))
	}
	if c.StopTime <= c.StepSize {
		errs = append(errs, fmt.Errorf("stop time %g must exceed step size %g", c.StopTime, c.StepSize))
	}
	if c.WithMonitor {
		if err := c.Spec.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Record is one persisted baseline/monitor comparison.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	Label       string    `json:"label,omitempty"`
	BaselineFMU string    `json:"baseline_fmu"`
	MonitorFMU  string    `json:"monitor_fmu"`
	Runs        int       `json:"runs"`
	StepSize    float64   `json:"step_size"`
	StopTime    float64   `json:"stop_time"`
	Report      Report    `json:"report"`
}
