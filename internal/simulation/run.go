// Package simulation drives a single traced co-simulation: it follows one
// observed variable, logs every monitor trigger and hot-swaps the monitor
// specification when the sentinel trigger fires.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fmubench/internal/fmi"
	"fmubench/internal/monitor"
	"fmubench/internal/telemetry"
)

// Observer is notified of monitor activity.
type Observer interface {
	TrackTrigger(id int)
	TrackSpecSwap()
}

// Config describes one traced simulation.
type Config struct {
	StepSize float64
	StopTime float64
	// Observe is the real variable read after every step.
	Observe string

	// Monitor attaches Spec through the Input/Output channel before initialization.
	Monitor bool
	Input   string
	Output  string
	Spec    monitor.Spec
	// Swap replaces Spec the first time Sentinel is reported. Nil disables swapping.
	Swap     *monitor.Spec
	Sentinel string

	InstanceName string
	Logger       *slog.Logger
	Observer     Observer
}

func (c Config) Validate() error {
	var errs []error
	if c.StepSize <= 0 {
		errs = append(errs, fmt.Errorf("step size must be positive, got: %g", c.StepSize))
	}
	if c.StopTime <= c.StepSize {
		errs = append(errs, fmt.Errorf("stop time %g must exceed step size %g", c.StopTime, c.StepSize))
	}
	if c.Observe == "" {
		errs = append(errs, errors.New("no variable to observe"))
	}
	if c.Monitor {
		if err := c.Spec.Validate(); err != nil {
			errs = append(errs, err)
		}
		if c.Swap != nil {
			if err := c.Swap.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Result summarizes a finished simulation.
type Result struct {
	Steps     int
	Time      float64 // communication point after the last step
	LastValue float64
	Events    []monitor.Event
	Swapped   bool
	SwapTime  float64
	Spec      monitor.Spec // active at the end of the run
}

// Run simulates unit from 0 to cfg.StopTime. The instance is always terminated
// and freed; closing unit stays with the caller.
func Run(ctx context.Context, unit *fmi.Unit, cfg Config) (res Result, err error) {
	if err := cfg.Validate(); err != nil {
		return res, fmt.Errorf("invalid simulation config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	md := unit.Description
	logger = logger.With("model", md.ModelName, "fmi", md.FMIVersion)

	observed, err := md.ValueReference(cfg.Observe)
	if err != nil {
		return res, err
	}

	instanceName := cfg.InstanceName
	if instanceName == "" {
		instanceName = "instance1"
	}
	slave := unit.Slave
	err = slave.Instantiate(fmi.InstantiateOptions{
		InstanceName: instanceName,
		LoggingOn:    true,
		Logger:       telemetry.FMULogFunc(logger),
	})
	if err != nil {
		return res, fmt.Errorf("failed to instantiate %s: %w", md.ModelIdentifier, err)
	}
	defer func() {
		if terr := slave.Terminate(); terr != nil {
			logger.Error("Terminate failed", "error", terr)
			if err == nil {
				err = fmt.Errorf("failed to terminate: %w", terr)
			}
		}
		slave.FreeInstance()
	}()

	var ch *monitor.Channel
	if cfg.Monitor {
		ch, err = monitor.NewChannel(md, slave, cfg.Input, cfg.Output)
		if err != nil {
			return res, err
		}
		if err := ch.Attach(cfg.Spec); err != nil {
			return res, err
		}
		logger.Info("Monitor attached", "spec", cfg.Spec.Path, "observed", cfg.Spec.Observed)
	}

	if err := slave.EnterInitializationMode(0, cfg.StopTime); err != nil {
		return res, err
	}
	if err := slave.ExitInitializationMode(); err != nil {
		return res, err
	}
	logger.Info("Simulation setup complete", "stop_time", cfg.StopTime, "step_size", cfg.StepSize)

	sentinel := cfg.Sentinel
	if sentinel == "" {
		sentinel = monitor.DefaultSentinel
	}

	t := 0.0
	for ; t < cfg.StopTime-cfg.StepSize; t += cfg.StepSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := slave.DoStep(t, cfg.StepSize); err != nil {
			return res, fmt.Errorf("step at t=%g failed: %w", t, err)
		}
		res.Steps++

		values, err := slave.GetFloat64([]fmi.ValueReference{observed})
		if err != nil {
			return res, fmt.Errorf("failed to read %s: %w", cfg.Observe, err)
		}
		res.LastValue = values[0]
		logger.Debug("Step complete", "t", t+cfg.StepSize, cfg.Observe, res.LastValue)

		if ch == nil {
			continue
		}
		out, err := ch.Output()
		if err != nil {
			return res, err
		}
		events := monitor.ParseTriggers(out)
		for _, ev := range events {
			logger.Info("Monitor trigger", "id", ev.ID, "message", ev.Message, "t", t+cfg.StepSize)
			if cfg.Observer != nil {
				cfg.Observer.TrackTrigger(ev.ID)
			}
		}
		res.Events = append(res.Events, events...)

		if res.Swapped || cfg.Swap == nil {
			continue
		}
		if ev, ok := monitor.FindSentinel(out, sentinel); ok {
			if err := ch.Swap(*cfg.Swap); err != nil {
				return res, err
			}
			res.Swapped = true
			res.SwapTime = t + cfg.StepSize
			logger.Info("Specification swapped", "trigger", ev.ID, "spec", cfg.Swap.Path, "observed", cfg.Swap.Observed)
			if cfg.Observer != nil {
				cfg.Observer.TrackSpecSwap()
			}
		}
	}
	res.Time = t
	if ch != nil {
		res.Spec = ch.Active()
	}
	return res, nil
}
