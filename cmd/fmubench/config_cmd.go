package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fmubench/internal/config"
)

// askOneFunc is swapped in tests.
var askOneFunc = survey.AskOne

var (
	configInitPath        string
	configInitForce       bool
	configInitInteractive bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		overwrite := configInitForce
		if _, err := os.Stat(configInitPath); err == nil && !overwrite {
			if err := askOneFunc(&survey.Confirm{
				Message: fmt.Sprintf("File '%s' already exists. Overwrite?", configInitPath),
				Default: false,
			}, &overwrite); err != nil {
				return err
			}
			if !overwrite {
				fmt.Fprintln(out, "Operation cancelled.")
				return nil
			}
		}

		var overrides map[string]any
		if configInitInteractive {
			var err error
			if overrides, err = promptBenchSettings(); err != nil {
				return err
			}
		}

		if err := config.WriteDefault(configInitPath, overwrite, overrides); err != nil {
			return err
		}
		fmt.Fprintf(out, "Created configuration file: %s\n", configInitPath)
		return nil
	},
}

// promptBenchSettings asks for the values most runs change, defaulting to the
// current configuration.
func promptBenchSettings() (map[string]any, error) {
	overrides := map[string]any{}
	for _, key := range []string{"baseline_fmu", "monitor_fmu"} {
		value := viper.GetString(key)
		if err := askOneFunc(&survey.Input{
			Message: key + ":",
			Default: value,
		}, &value); err != nil {
			return nil, err
		}
		overrides[key] = value
	}

	runs := strconv.Itoa(viper.GetInt("runs"))
	if err := askOneFunc(&survey.Input{
		Message: "runs:",
		Default: runs,
	}, &runs, survey.WithValidator(positiveInt)); err != nil {
		return nil, err
	}
	overrides["runs"], _ = strconv.Atoi(runs)
	return overrides, nil
}

func positiveInt(ans interface{}) error {
	s, _ := ans.(string)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVar(&configInitPath, "path", "config.yaml", "Destination file")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file without asking")
	configInitCmd.Flags().BoolVarP(&configInitInteractive, "interactive", "i", false, "Prompt for FMU paths and run count")
}
