package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fmubench/internal/benchmark"
)

// Manager fans a message out to every configured notifier.
type Manager struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewManager builds a Manager from webhook URLs; empty URLs are skipped.
func NewManager(logger *slog.Logger, slackURL, discordURL string) *Manager {
	m := &Manager{logger: logger}
	if slackURL != "" {
		m.notifiers = append(m.notifiers, NewSlackNotifier(slackURL))
	}
	if discordURL != "" {
		m.notifiers = append(m.notifiers, NewDiscordNotifier(discordURL))
	}
	return m
}

// Enabled reports whether at least one notifier is configured.
func (m *Manager) Enabled() bool {
	return len(m.notifiers) > 0
}

// Notify delivers message to every notifier. A failing provider does not stop the
// others; all failures are returned joined.
func (m *Manager) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, message); err != nil {
			if m.logger != nil {
				m.logger.Warn("Notification failed", "provider", n.Name(), "error", err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		if m.logger != nil {
			m.logger.Debug("Notification sent", "provider", n.Name())
		}
	}
	return errors.Join(errs...)
}

// Summary formats a benchmark record, and the change against the previous one
// when there is one, as a short chat message.
func Summary(rec benchmark.Record, comps []benchmark.Comparison) string {
	var b strings.Builder
	title := "RTLola overhead benchmark"
	if rec.Label != "" {
		title += ": " + rec.Label
	}
	fmt.Fprintf(&b, "*%s*\n", title)
	fmt.Fprintf(&b, "%d runs, step %g s, stop %g s\n", rec.Runs, rec.StepSize, rec.StopTime)
	for _, name := range benchmark.MetricOrder {
		s, ok := rec.Report[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "• %s: %.4f%s → %.4f%s (%+.2f%%)\n",
			benchmark.MetricTitle(name), s.Base, s.Unit, s.RTLola, s.Unit, s.OverheadPct)
	}
	if len(comps) > 0 {
		b.WriteString("Change since last run:\n")
		for _, c := range comps {
			fmt.Fprintf(&b, "• %s\n", c.String())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
