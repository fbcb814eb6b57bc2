package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"fmubench/internal/benchmark"
	"fmubench/internal/monitor"
)

// EnvPrefix is prepended to every environment override, e.g. FMUBENCH_RUNS.
const EnvPrefix = "FMUBENCH"

// Config is the resolved configuration of one fmubench invocation.
type Config struct {
	BaselineFMU string                `mapstructure:"baseline_fmu"`
	MonitorFMU  string                `mapstructure:"monitor_fmu"`
	Runs        int                   `mapstructure:"runs"`
	StepSize    float64               `mapstructure:"step_size"`
	StopTime    float64               `mapstructure:"stop_time"`
	ReadOutput  bool                  `mapstructure:"read_output"`
	Spec        SpecConfig            `mapstructure:"spec"`
	WorkDir     string                `mapstructure:"work_dir"`
	LogFile     string                `mapstructure:"log_file"`
	Verbose     bool                  `mapstructure:"verbose"`
	Store       benchmark.StoreConfig `mapstructure:"store"`
	MetricsPort int                   `mapstructure:"metrics_port"`
	Notify      NotifyConfig          `mapstructure:"notify"`
	Simulate    SimulateConfig        `mapstructure:"simulate"`
}

// SpecConfig is the monitor channel and the specification attached at start.
type SpecConfig struct {
	Input        string `mapstructure:"input"`
	Output       string `mapstructure:"output"`
	monitor.Spec `mapstructure:",squash"`
}

type NotifyConfig struct {
	Slack   WebhookConfig `mapstructure:"slack"`
	Discord WebhookConfig `mapstructure:"discord"`
}

type WebhookConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// SimulateConfig drives the single traced simulation of the simulate command.
type SimulateConfig struct {
	FMU      string       `mapstructure:"fmu"`
	StepSize float64      `mapstructure:"step_size"`
	StopTime float64      `mapstructure:"stop_time"`
	Observe  string       `mapstructure:"observe"`
	Sentinel string       `mapstructure:"sentinel"`
	Swap     monitor.Spec `mapstructure:"swap"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("baseline_fmu", "fmus/BouncingBall.fmu")
	viper.SetDefault("monitor_fmu", "fmus_RTLola_FFI/BouncingBall.fmu")
	viper.SetDefault("runs", 10)
	viper.SetDefault("step_size", 0.001)
	viper.SetDefault("stop_time", 5.0)
	viper.SetDefault("read_output", false)
	viper.SetDefault("spec.input", monitor.DefaultInput)
	viper.SetDefault("spec.output", monitor.DefaultOutput)
	viper.SetDefault("spec.path", "specifications/bouncing_ball_spec.lola")
	viper.SetDefault("spec.observed", []string{"h"})
	viper.SetDefault("work_dir", "")
	viper.SetDefault("log_file", "fmu_output.log")
	viper.SetDefault("verbose", false)
	viper.SetDefault("store.type", "json")
	viper.SetDefault("store.path", benchmark.DefaultJSONPath)
	viper.SetDefault("metrics_port", 0)
	viper.SetDefault("notify.slack.webhook_url", "")
	viper.SetDefault("notify.discord.webhook_url", "")
	viper.SetDefault("simulate.fmu", "BouncingBall.fmu")
	viper.SetDefault("simulate.step_size", 0.1)
	viper.SetDefault("simulate.stop_time", 1.0)
	viper.SetDefault("simulate.observe", "h")
	viper.SetDefault("simulate.sentinel", monitor.DefaultSentinel)
	viper.SetDefault("simulate.swap.path", "specifications/new_ball_spec.lola")
	viper.SetDefault("simulate.swap.observed", []string{"h", "v"})
}

// Load initializes the configuration from .env, the config file and the environment.
// A missing config file is not an error; a malformed one is.
func Load(cfgFile string, stderr io.Writer) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()
	// Standard Slack variable used when the prefixed one is unset.
	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		viper.SetDefault("notify.slack.webhook_url", url)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if stderr != nil {
		fmt.Fprintln(stderr, "Using config file:", viper.ConfigFileUsed())
	}
	return nil
}

// Get decodes the current viper state.
func Get() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the current settings, with overrides applied on top, to
// path. An existing file is only replaced when overwrite is set. The global
// configuration is left untouched.
func WriteDefault(path string, overwrite bool, overrides map[string]any) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("config file %s already exists", path)
	}
	v := viper.New()
	if err := v.MergeConfigMap(viper.AllSettings()); err != nil {
		return fmt.Errorf("failed to copy settings: %w", err)
	}
	for key, value := range overrides {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
