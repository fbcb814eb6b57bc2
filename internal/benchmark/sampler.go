package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fmubench/internal/fmi"
	"fmubench/internal/monitor"
)

// Observer receives measurements as they are taken.
type Observer interface {
	ObserveStep(label string, d time.Duration)
	ObserveRun(label string, total time.Duration, memoryKB float64)
}

// Observers fans every measurement out to each member.
type Observers []Observer

func (o Observers) ObserveStep(label string, d time.Duration) {
	for _, obs := range o {
		obs.ObserveStep(label, d)
	}
}

func (o Observers) ObserveRun(label string, total time.Duration, memoryKB float64) {
	for _, obs := range o {
		obs.ObserveRun(label, total, memoryKB)
	}
}

// Sampler runs fixed-length simulations and records their cost.
type Sampler struct {
	Open     fmi.OpenFunc
	Memory   func() (float64, error)
	Observer Observer
	Logger   *slog.Logger
}

// NewSampler returns a Sampler that loads real FMU binaries and reads this
// process's resident memory.
func NewSampler(logger *slog.Logger, observer Observer) *Sampler {
	return &Sampler{
		Open:     fmi.Open,
		Memory:   ProcessRSS,
		Observer: observer,
		Logger:   logger,
	}
}

type runSample struct {
	steps    []float64
	total    float64
	memoryKB float64
}

// Run executes cfg.Runs repetitions. Any failure aborts the whole invocation and the
// samples collected so far are dropped.
func (s *Sampler) Run(ctx context.Context, cfg Config) (*SampleSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid benchmark config: %w", err)
	}
	logger := s.logger().With("label", cfg.Label, "fmu", cfg.Bundle)

	set := &SampleSet{}
	for i := 0; i < cfg.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sample, err := s.runOnce(ctx, cfg)
		if err != nil {
			logger.Error("Benchmark run failed", "run", i+1, "runs", cfg.Runs, "error", err)
			return nil, fmt.Errorf("run %d/%d of %s failed: %w", i+1, cfg.Runs, cfg.Bundle, err)
		}
		set.StepTimes = append(set.StepTimes, sample.steps...)
		set.TotalTimes = append(set.TotalTimes, sample.total)
		set.MemoryUsage = append(set.MemoryUsage, sample.memoryKB)
		logger.Debug("Benchmark run complete", "run", i+1, "steps", len(sample.steps),
			"total_s", sample.total, "memory_kb", sample.memoryKB)
	}
	return set, nil
}

func (s *Sampler) runOnce(ctx context.Context, cfg Config) (sample runSample, err error) {
	start := time.Now()

	open := s.Open
	if open == nil {
		open = fmi.Open
	}
	unit, err := open(cfg.Bundle, fmi.Options{WorkDir: cfg.WorkDir})
	if err != nil {
		return sample, err
	}
	defer func() {
		err = errors.Join(err, unit.Close())
	}()

	slave := unit.Slave
	instanceName := cfg.InstanceName
	if instanceName == "" {
		instanceName = "instance1"
	}
	if err := slave.Instantiate(fmi.InstantiateOptions{InstanceName: instanceName}); err != nil {
		return sample, fmt.Errorf("failed to instantiate %s: %w", unit.Description.ModelIdentifier, err)
	}
	defer func() {
		if terr := slave.Terminate(); terr != nil && err == nil {
			err = fmt.Errorf("failed to terminate: %w", terr)
		}
		slave.FreeInstance()
	}()

	var ch *monitor.Channel
	if cfg.WithMonitor {
		ch, err = monitor.NewChannel(unit.Description, slave, cfg.Input, cfg.Output)
		if err != nil {
			return sample, err
		}
		if err := ch.Attach(cfg.Spec); err != nil {
			return sample, err
		}
	}

	if err := slave.EnterInitializationMode(0, 0); err != nil {
		return sample, err
	}
	if err := slave.ExitInitializationMode(); err != nil {
		return sample, err
	}

	// The last partial step is skipped: the loop stops once less than one full
	// step remains before the stop time.
	for t := 0.0; t < cfg.StopTime-cfg.StepSize; t += cfg.StepSize {
		if err := ctx.Err(); err != nil {
			return sample, err
		}
		stepStart := time.Now()
		if err := slave.DoStep(t, cfg.StepSize); err != nil {
			return sample, fmt.Errorf("step at t=%g failed: %w", t, err)
		}
		d := time.Since(stepStart)
		sample.steps = append(sample.steps, d.Seconds())
		if s.Observer != nil {
			s.Observer.ObserveStep(cfg.Label, d)
		}

		if ch != nil && cfg.ReadOutput {
			if _, err := ch.Output(); err != nil {
				return sample, err
			}
		}
	}

	total := time.Since(start)
	sample.total = total.Seconds()
	memory := s.Memory
	if memory == nil {
		memory = ProcessRSS
	}
	if sample.memoryKB, err = memory(); err != nil {
		return sample, fmt.Errorf("failed to read memory usage: %w", err)
	}
	if s.Observer != nil {
		s.Observer.ObserveRun(cfg.Label, total, sample.memoryKB)
	}
	return sample, nil
}

func (s *Sampler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
