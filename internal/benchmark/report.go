package benchmark

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	slowerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	fasterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	headerStyle = lipgloss.NewStyle().Bold(true)

	titleCaser = cases.Title(language.English)
)

// MetricTitle turns "avg_step_time" into "Avg Step Time".
func MetricTitle(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func formatOverhead(pct float64, styled bool) string {
	s := fmt.Sprintf("%.2f%%", pct)
	if !styled {
		return s
	}
	switch {
	case pct > 0:
		return slowerStyle.Render(s)
	case pct < 0:
		return fasterStyle.Render(s)
	}
	return s
}

// WriteReport prints the overhead table. styled colors overhead by sign.
func WriteReport(w io.Writer, report Report, styled bool) error {
	header := "=== Performance Overhead Analysis ==="
	if styled {
		header = headerStyle.Render(header)
	}
	fmt.Fprintf(w, "\n%s\n", header)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tBASELINE\tRTLOLA\tOVERHEAD %")
	for _, name := range MetricOrder {
		m, ok := report[name]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.4f%s\t%.4f%s\t%s\n",
			MetricTitle(name), m.Base, m.Unit, m.RTLola, m.Unit, formatOverhead(m.OverheadPct, styled))
	}
	return tw.Flush()
}

// WriteComparison prints how overheads moved since a previous record. DELTA is the
// last column so its color codes do not count toward tabwriter cell widths.
func WriteComparison(w io.Writer, comparisons []Comparison, styled bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tPREV OVERHEAD\tOVERHEAD\tRTLOLA DIFF\tDELTA")
	for _, c := range comparisons {
		delta := fmt.Sprintf("%+.2f pp", c.OverheadDelta)
		if styled && c.OverheadDelta > 0 {
			delta = slowerStyle.Render(delta)
		} else if styled && c.OverheadDelta < 0 {
			delta = fasterStyle.Render(delta)
		}
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t%+.2f%%\t%s\n",
			MetricTitle(c.Name), c.Prev.OverheadPct, c.Curr.OverheadPct, c.RTLolaDiff, delta)
	}
	return tw.Flush()
}

// Markdown renders a record as a markdown document.
func Markdown(rec Record) string {
	var b strings.Builder
	title := "Performance Overhead Analysis"
	if rec.Label != "" {
		title += ": " + rec.Label
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !rec.Timestamp.IsZero() {
		fmt.Fprintf(&b, "_%s_\n\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "- Baseline: `%s`\n- Monitored: `%s`\n- Runs: %d, step %g s, stop %g s\n\n",
		rec.BaselineFMU, rec.MonitorFMU, rec.Runs, rec.StepSize, rec.StopTime)
	b.WriteString("| Metric | Baseline | RTLola | Overhead % |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, name := range MetricOrder {
		m, ok := rec.Report[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %.4f %s | %.4f %s | %.2f%% |\n",
			MetricTitle(name), m.Base, m.Unit, m.RTLola, m.Unit, m.OverheadPct)
	}
	return b.String()
}

// RenderMarkdown renders markdown for the terminal.
func RenderMarkdown(md string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
