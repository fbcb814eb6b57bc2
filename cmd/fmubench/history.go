package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fmubench/internal/benchmark"
	"fmubench/internal/config"
)

var (
	historyLimit    int
	historyMarkdown bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved benchmark results",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Show at most this many recent results (0 for all)")
	historyCmd.Flags().BoolVar(&historyMarkdown, "markdown", false, "Render the latest result as markdown")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}
	store, err := newStoreFunc(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	records, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No saved benchmark results.")
		return nil
	}
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[len(records)-historyLimit:]
	}

	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tAGE\tLABEL\tRUNS\tSTEP OVERHEAD\tTOTAL OVERHEAD\tMEMORY OVERHEAD")
	now := time.Now()
	for _, rec := range records {
		label := rec.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04:05"), formatAge(rec.Timestamp, now), label, rec.Runs,
			overheadCell(rec.Report, benchmark.MetricAvgStepTime),
			overheadCell(rec.Report, benchmark.MetricTotalTime),
			overheadCell(rec.Report, benchmark.MetricMemory))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if historyMarkdown {
		rendered, err := benchmark.RenderMarkdown(benchmark.Markdown(records[len(records)-1]), 80)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
	}
	return nil
}

func overheadCell(r benchmark.Report, metric string) string {
	m, ok := r[metric]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", m.OverheadPct)
}

// formatAge renders how long before now ts was, in the largest whole unit.
func formatAge(ts, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	d := now.Sub(ts)
	if d < time.Minute {
		return "just now"
	}

	const day = 24 * time.Hour
	units := []struct {
		size   time.Duration
		suffix string
	}{
		{365 * day, "y"},
		{30 * day, "mo"},
		{7 * day, "w"},
		{day, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
	}
	for _, u := range units {
		if d >= u.size {
			return fmt.Sprintf("%d%s ago", d/u.size, u.suffix)
		}
	}
	return "just now"
}
