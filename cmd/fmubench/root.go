package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fmubench/internal/benchmark"
	"fmubench/internal/config"
	"fmubench/internal/fmi"
	"fmubench/internal/telemetry"
)

var exit = os.Exit
var cfgFile string

// Swapped out by tests.
var (
	openFMU      fmi.OpenFunc = fmi.Open
	memoryUsage               = benchmark.ProcessRSS
	newStoreFunc              = benchmark.NewStore
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fmubench",
	Short: "Measure the cost of runtime monitoring inside FMU co-simulations",
	Long: `fmubench runs Functional Mock-up Units with and without an embedded RTLola
monitor, measures step time, total time and memory, and reports the overhead
the monitor adds. It can also trace a single simulation and hot-swap the
monitor specification when a trigger fires.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		bindSharedFlags(cmd)
		if err := config.Load(cfgFile, cmd.ErrOrStderr()); err != nil {
			return err
		}
		return config.ValidateConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n=== CRITICAL ERROR: Command Execution Panic ===\n")
			fmt.Fprintf(os.Stderr, "Error: %v\n", r)
			exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Session log file (default fmu_output.log)")
	rootCmd.PersistentFlags().String("work-dir", "", "Parent directory for extracted FMUs (default system temp)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("work_dir", rootCmd.PersistentFlags().Lookup("work-dir"))
}

// addSharedFlags defines the flags that bench and simulate both map onto the same keys.
func addSharedFlags(cmd *cobra.Command) {
	cmd.Flags().String("spec", "", "Specification attached to the monitor at start")
	cmd.Flags().StringSlice("observed", nil, "Variables the start specification observes")
	cmd.Flags().Int("metrics-port", 0, "Serve Prometheus metrics on this port while running")
}

// bindSharedFlags binds the running command's copy of the shared flags. A key can only
// be bound to one flag at a time, so this happens when the command runs.
func bindSharedFlags(cmd *cobra.Command) {
	if cmd.Flags().Lookup("spec") == nil {
		return
	}
	viper.BindPFlag("spec.path", cmd.Flags().Lookup("spec"))
	viper.BindPFlag("spec.observed", cmd.Flags().Lookup("observed"))
	viper.BindPFlag("metrics_port", cmd.Flags().Lookup("metrics-port"))
}

// fmuNotFound prints the missing-bundle message and reports whether path is missing.
func fmuNotFound(w io.Writer, path string) bool {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(w, "Error: FMU file '%s' not found.\n", path)
			return true
		}
	}
	return false
}

// session bundles what every simulating command needs for its lifetime.
type session struct {
	log    *telemetry.Session
	logger *slog.Logger
	out    io.Writer
}

// startSession opens the session log and builds the logger. Console output of the
// command goes through out so it also lands in the log file.
func startSession(cmd *cobra.Command, cfg config.Config) (*session, error) {
	logSession, err := telemetry.OpenSession(cfg.LogFile, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	writers := []io.Writer{logSession.File()}
	if cfg.Verbose {
		writers = append(writers, cmd.ErrOrStderr())
	}
	logger := telemetry.NewLogger(telemetry.LoggerOptions{Debug: cfg.Verbose, Writers: writers})
	return &session{log: logSession, logger: logger, out: logSession}, nil
}

func (s *session) Close() error {
	return s.log.Close()
}

// serveMetrics starts the metrics endpoint when a port is configured. The server
// stops when ctx is done.
func serveMetrics(ctx context.Context, port int, m *telemetry.Metrics, logger *slog.Logger) {
	if port <= 0 {
		return
	}
	go func() {
		if err := telemetry.StartMetricsServer(ctx, fmt.Sprintf(":%d", port), m, logger); err != nil {
			logger.Warn("Metrics server stopped", "error", err)
		}
	}()
}
