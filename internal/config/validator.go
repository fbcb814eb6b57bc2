package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

var storeTypes = []string{"json", "sqlite", "sqlite3", "postgres", "postgresql", "gcs"}

// ValidateConfig validates configuration values and returns an error listing every
// invalid one. It must be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	if runs := viper.GetInt("runs"); runs <= 0 {
		errors = append(errors, fmt.Sprintf("runs must be positive, got: %d", runs))
	}

	errors = append(errors, validateTiming("", viper.GetFloat64("step_size"), viper.GetFloat64("stop_time"))...)
	errors = append(errors, validateTiming("simulate.", viper.GetFloat64("simulate.step_size"), viper.GetFloat64("simulate.stop_time"))...)

	if viper.GetString("spec.path") == "" {
		errors = append(errors, "spec.path must not be empty")
	}
	if len(viper.GetStringSlice("spec.observed")) == 0 {
		errors = append(errors, "spec.observed must name at least one variable")
	}
	if viper.GetString("simulate.observe") == "" {
		errors = append(errors, "simulate.observe must not be empty")
	}

	storeType := strings.ToLower(viper.GetString("store.type"))
	known := false
	for _, st := range storeTypes {
		if storeType == st {
			known = true
			break
		}
	}
	if !known {
		errors = append(errors, fmt.Sprintf("store.type must be one of %s, got: %q", strings.Join(storeTypes, ", "), storeType))
	}
	if strings.HasPrefix(storeType, "postgres") && viper.GetString("store.path") == "" {
		errors = append(errors, "store.path must hold a connection string for postgres")
	}
	if storeType == "gcs" && !strings.HasPrefix(viper.GetString("store.path"), "gs://") {
		errors = append(errors, "store.path must be a gs://bucket/object URL for gcs")
	}

	// 0 disables the metrics server
	if viper.IsSet("metrics_port") {
		port := viper.GetInt("metrics_port")
		if port < 0 || port > 65535 {
			errors = append(errors, fmt.Sprintf("metrics_port must be between 0 and 65535, got: %d", port))
		}
	}

	for _, key := range []string{"notify.slack.webhook_url", "notify.discord.webhook_url"} {
		hook := viper.GetString(key)
		if hook == "" {
			continue
		}
		if u, err := url.Parse(hook); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("%s is not a valid URL: %q", key, hook))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}
	return nil
}

func validateTiming(prefix string, step, stop float64) []string {
	var errors []string
	if step <= 0 {
		errors = append(errors, fmt.Sprintf("%sstep_size must be positive, got: %g", prefix, step))
	}
	if stop <= step {
		errors = append(errors, fmt.Sprintf("%sstop_time must exceed %sstep_size, got: %g <= %g", prefix, prefix, stop, step))
	}
	return errors
}
