package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fmubench/internal/config"
	"fmubench/internal/fmi"
	"fmubench/internal/simulation"
	"fmubench/internal/telemetry"
)

var (
	simNoMonitor     bool
	simNoSwap        bool
	simCaptureNative bool
	simKeepExtracted bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one traced simulation and hot-swap the monitor specification",
	Long: `Runs a single co-simulation with FMU logging enabled. After every step the
observed variable and the monitor output are read; every trigger is logged,
and the first time the sentinel trigger fires the monitor is switched to the
swap specification. FMUs without a monitor channel are simulated plainly.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("fmu", "", "FMU to simulate (default BouncingBall.fmu)")
	simulateCmd.Flags().Float64("step-size", 0, "Communication step size in seconds (default 0.1)")
	simulateCmd.Flags().Float64("stop-time", 0, "Simulation stop time in seconds (default 1.0)")
	simulateCmd.Flags().String("observe", "", "Real variable read after every step (default h)")
	simulateCmd.Flags().String("sentinel", "", "Trigger message that causes the swap")
	addSharedFlags(simulateCmd)
	simulateCmd.Flags().String("swap-spec", "", "Specification swapped in on the sentinel")
	simulateCmd.Flags().StringSlice("swap-observed", nil, "Variables the swap specification observes")

	simulateCmd.Flags().BoolVar(&simNoMonitor, "no-monitor", false, "Do not attach a specification even if the FMU has a monitor")
	simulateCmd.Flags().BoolVar(&simNoSwap, "no-swap", false, "Never swap the specification")
	simulateCmd.Flags().BoolVar(&simCaptureNative, "capture-native", false, "Redirect native stdout/stderr of the FMU into the log file")
	simulateCmd.Flags().BoolVar(&simKeepExtracted, "keep-extracted", false, "Keep the extracted FMU directory")

	viper.BindPFlag("simulate.fmu", simulateCmd.Flags().Lookup("fmu"))
	viper.BindPFlag("simulate.step_size", simulateCmd.Flags().Lookup("step-size"))
	viper.BindPFlag("simulate.stop_time", simulateCmd.Flags().Lookup("stop-time"))
	viper.BindPFlag("simulate.observe", simulateCmd.Flags().Lookup("observe"))
	viper.BindPFlag("simulate.sentinel", simulateCmd.Flags().Lookup("sentinel"))
	viper.BindPFlag("simulate.swap.path", simulateCmd.Flags().Lookup("swap-spec"))
	viper.BindPFlag("simulate.swap.observed", simulateCmd.Flags().Lookup("swap-observed"))
}

func runSimulate(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Get()
	if err != nil {
		return err
	}
	sim := cfg.Simulate
	if fmuNotFound(cmd.OutOrStdout(), sim.FMU) {
		return nil
	}

	s, err := startSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	metrics := telemetry.NewMetrics()
	serveMetrics(ctx, cfg.MetricsPort, metrics, s.logger)

	unit, err := openFMU(sim.FMU, fmi.Options{WorkDir: cfg.WorkDir, KeepExtracted: simKeepExtracted})
	if err != nil {
		s.logger.Error("Failed to open FMU", "fmu", sim.FMU, "error", err)
		return err
	}
	defer func() {
		if cerr := unit.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, hasMonitor := unit.Description.Variable(cfg.Spec.Input)
	runCfg := simulation.Config{
		StepSize: sim.StepSize,
		StopTime: sim.StopTime,
		Observe:  sim.Observe,
		Monitor:  hasMonitor == nil && !simNoMonitor,
		Input:    cfg.Spec.Input,
		Output:   cfg.Spec.Output,
		Spec:     cfg.Spec.Spec,
		Sentinel: sim.Sentinel,
		Logger:   s.logger,
		Observer: metrics,
	}
	if !simNoSwap {
		swap := sim.Swap
		runCfg.Swap = &swap
	}

	var restore func() error
	if simCaptureNative {
		restore, err = s.log.CaptureNative()
		if err != nil {
			return fmt.Errorf("failed to capture native output: %w", err)
		}
		defer func() {
			if restore != nil {
				restore()
			}
		}()
		// fd 1 now points at the log file; avoid writing everything twice.
		s.out = s.log.File()
	}

	res, runErr := simulation.Run(ctx, unit, runCfg)

	if restore != nil {
		if rerr := restore(); rerr != nil {
			s.logger.Warn("Failed to restore stdout", "error", rerr)
		}
		restore = nil
		s.out = s.log
	}
	if runErr != nil {
		fmt.Fprintf(s.out, "An error occurred: %v\n", runErr)
		return runErr
	}

	md := unit.Description
	fmt.Fprintf(s.out, "Model Name: %s (FMI %s)\n", md.ModelName, md.FMIVersion)
	if simKeepExtracted {
		fmt.Fprintf(s.out, "Extracted to: %s\n", unit.Dir)
	}
	fmt.Fprintf(s.out, "Steps: %d, t = %g, %s = %g\n", res.Steps, res.Time, sim.Observe, res.LastValue)
	if runCfg.Monitor {
		fmt.Fprintf(s.out, "Triggers: %d\n", len(res.Events))
		if res.Swapped {
			fmt.Fprintf(s.out, "Specification swapped to %s at t = %g\n", res.Spec.Path, res.SwapTime)
		}
	}
	return nil
}
