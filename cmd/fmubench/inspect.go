package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fmubench/internal/config"
	"fmubench/internal/fmi"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <fmu>",
	Short: "Show the model description of an FMU",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := args[0]
	if fmuNotFound(out, path) {
		return nil
	}
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	md, err := fmi.ReadModelDescription(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Model Name:  %s\n", md.ModelName)
	fmt.Fprintf(out, "FMI Version: %s\n", md.FMIVersion)
	fmt.Fprintf(out, "Identifier:  %s\n", md.ModelIdentifier)
	fmt.Fprintf(out, "GUID:        %s\n", md.GUID)
	if _, err := md.ValueReferences(cfg.Spec.Input, cfg.Spec.Output); err == nil {
		fmt.Fprintf(out, "Monitor:     %s -> %s\n", cfg.Spec.Input, cfg.Spec.Output)
	} else {
		fmt.Fprintln(out, "Monitor:     none")
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVR\tTYPE\tCAUSALITY\tVARIABILITY")
	for _, v := range md.Variables {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", v.Name, v.ValueReference, v.Type, dash(v.Causality), dash(v.Variability))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
