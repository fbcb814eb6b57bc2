package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fmubench/internal/benchmark"
	"fmubench/internal/config"
	"fmubench/internal/notify"
	"fmubench/internal/telemetry"
	"fmubench/internal/ui"
)

var (
	benchLabel    string
	benchSave     bool
	benchCompare  bool
	benchMarkdown bool
	benchNoColor  bool
	benchNotify   bool
	benchProgress bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure the overhead of the embedded monitor",
	Long: `Runs the baseline FMU and the monitored FMU for the configured number of runs,
then prints the mean step time, total time and memory of each together with
the overhead of the monitored variant. Results are saved to the history store
and compared with the previous saved run.`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().String("baseline", "", "FMU without monitor (default fmus/BouncingBall.fmu)")
	benchCmd.Flags().String("monitor", "", "FMU with embedded monitor (default fmus_RTLola_FFI/BouncingBall.fmu)")
	benchCmd.Flags().Int("runs", 0, "Repetitions per variant (default 10)")
	benchCmd.Flags().Float64("step-size", 0, "Communication step size in seconds (default 0.001)")
	benchCmd.Flags().Float64("stop-time", 0, "Simulation stop time in seconds (default 5.0)")
	benchCmd.Flags().Bool("read-output", false, "Read the monitor output after every step")
	addSharedFlags(benchCmd)
	benchCmd.Flags().String("store", "", "History backend: json, sqlite, postgres or gcs")
	benchCmd.Flags().String("store-path", "", "History file, postgres connection string, or gs://bucket/object")

	benchCmd.Flags().StringVar(&benchLabel, "label", "", "Label stored with the result")
	benchCmd.Flags().BoolVar(&benchSave, "save", true, "Save the result to history")
	benchCmd.Flags().BoolVar(&benchCompare, "compare", true, "Compare with the previous saved result")
	benchCmd.Flags().BoolVar(&benchMarkdown, "markdown", false, "Also render the result as markdown")
	benchCmd.Flags().BoolVar(&benchNoColor, "no-color", false, "Disable colored overhead")
	benchCmd.Flags().BoolVar(&benchNotify, "notify", true, "Post the result to configured webhooks")
	benchCmd.Flags().BoolVar(&benchProgress, "progress", false, "Show a progress bar on stderr while sampling")

	viper.BindPFlag("baseline_fmu", benchCmd.Flags().Lookup("baseline"))
	viper.BindPFlag("monitor_fmu", benchCmd.Flags().Lookup("monitor"))
	viper.BindPFlag("runs", benchCmd.Flags().Lookup("runs"))
	viper.BindPFlag("step_size", benchCmd.Flags().Lookup("step-size"))
	viper.BindPFlag("stop_time", benchCmd.Flags().Lookup("stop-time"))
	viper.BindPFlag("read_output", benchCmd.Flags().Lookup("read-output"))
	viper.BindPFlag("store.type", benchCmd.Flags().Lookup("store"))
	viper.BindPFlag("store.path", benchCmd.Flags().Lookup("store-path"))
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}
	for _, path := range []string{cfg.BaselineFMU, cfg.MonitorFMU} {
		if fmuNotFound(cmd.OutOrStdout(), path) {
			return nil
		}
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

	observers := benchmark.Observers{metrics}
	if benchProgress {
		tracker := ui.StartProgress(cmd.ErrOrStderr(), 2*cfg.Runs)
		defer tracker.Stop()
		observers = append(observers, tracker)
	}
	sampler := &benchmark.Sampler{Open: openFMU, Memory: memoryUsage, Observer: observers, Logger: s.logger}
	base := benchmark.Config{
		Label:    "baseline",
		Bundle:   cfg.BaselineFMU,
		Runs:     cfg.Runs,
		StepSize: cfg.StepSize,
		StopTime: cfg.StopTime,
		WorkDir:  cfg.WorkDir,
	}
	treated := base
	treated.Label = "rtlola"
	treated.Bundle = cfg.MonitorFMU
	treated.WithMonitor = true
	treated.Spec = cfg.Spec.Spec
	treated.Input = cfg.Spec.Input
	treated.Output = cfg.Spec.Output
	treated.ReadOutput = cfg.ReadOutput

	fmt.Fprintln(s.out, "Running baseline (no RTLola)...")
	baseline, err := sampler.Run(ctx, base)
	if err != nil {
		s.logger.Error("Baseline benchmark failed", "error", err)
		return err
	}

	fmt.Fprintln(s.out, "Running with RTLola...")
	withMonitor, err := sampler.Run(ctx, treated)
	if err != nil {
		s.logger.Error("Monitored benchmark failed", "error", err)
		return err
	}

	report, err := benchmark.Analyze(baseline, withMonitor)
	if err != nil {
		return fmt.Errorf("failed to analyze overhead: %w", err)
	}
	if err := benchmark.WriteReport(s.out, report, !benchNoColor); err != nil {
		return err
	}

	rec := benchmark.Record{
		Timestamp:   time.Now().UTC(),
		Label:       benchLabel,
		BaselineFMU: cfg.BaselineFMU,
		MonitorFMU:  cfg.MonitorFMU,
		Runs:        cfg.Runs,
		StepSize:    cfg.StepSize,
		StopTime:    cfg.StopTime,
		Report:      report,
	}

	comps, err := recordHistory(s, cfg.Store, rec)
	if err != nil {
		return err
	}

	if benchMarkdown {
		rendered, err := benchmark.RenderMarkdown(benchmark.Markdown(rec), 80)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, rendered)
	}

	if benchNotify {
		manager := notify.NewManager(s.logger, cfg.Notify.Slack.WebhookURL, cfg.Notify.Discord.WebhookURL)
		if manager.Enabled() {
			if err := manager.Notify(ctx, notify.Summary(rec, comps)); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
		}
	}
	return nil
}

// recordHistory compares rec with the latest stored record and saves it.
func recordHistory(s *session, storeCfg benchmark.StoreConfig, rec benchmark.Record) ([]benchmark.Comparison, error) {
	if !benchSave && !benchCompare {
		return nil, nil
	}
	store, err := newStoreFunc(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	var comps []benchmark.Comparison
	if benchCompare {
		prev, err := store.LoadLatest()
		if err != nil {
			s.logger.Warn("Failed to load previous result", "error", err)
		} else if prev != nil {
			comps = benchmark.Compare(prev.Report, rec.Report)
			fmt.Fprintf(s.out, "\nCompared with %s:\n", prev.Timestamp.Local().Format("2006-01-02 15:04:05"))
			if err := benchmark.WriteComparison(s.out, comps, !benchNoColor); err != nil {
				return nil, err
			}
		}
	}

	if benchSave {
		if err := store.Save(rec); err != nil {
			return nil, fmt.Errorf("failed to save result: %w", err)
		}
		fmt.Fprintln(s.out, "\nResult saved to history.")
	}
	return comps, nil
}
