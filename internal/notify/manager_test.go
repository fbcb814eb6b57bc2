package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmubench/internal/benchmark"
)

type stubNotifier struct {
	name     string
	err      error
	messages []string
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(_ context.Context, message string) error {
	s.messages = append(s.messages, message)
	return s.err
}

func TestNewManager(t *testing.T) {
	assert.False(t, NewManager(nil, "", "").Enabled())

	m := NewManager(nil, "https://hooks.slack.com/x", "https://discord.com/api/webhooks/x")
	require.True(t, m.Enabled())
	require.Len(t, m.notifiers, 2)
	assert.Equal(t, "slack", m.notifiers[0].Name())
	assert.Equal(t, "discord", m.notifiers[1].Name())
}

func TestManager_Notify(t *testing.T) {
	var logs bytes.Buffer
	failing := &stubNotifier{name: "slack", err: errors.New("boom")}
	ok := &stubNotifier{name: "discord"}
	m := &Manager{notifiers: []Notifier{failing, ok}, logger: slog.New(slog.NewTextHandler(&logs, nil))}

	err := m.Notify(context.Background(), "done")
	assert.ErrorContains(t, err, "slack: boom")
	assert.Equal(t, []string{"done"}, ok.messages, "a failing provider must not block the others")
	assert.Contains(t, logs.String(), "Notification failed")
}

func TestManager_NotifySlackWebhook(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	require.NoError(t, NewManager(nil, server.URL, "").Notify(context.Background(), "done"))
	assert.Equal(t, 1, hits)
}

func TestSummary(t *testing.T) {
	rec := benchmark.Record{
		Label:    "nightly",
		Runs:     10,
		StepSize: 0.001,
		StopTime: 5,
		Report: benchmark.Report{
			benchmark.MetricAvgStepTime: {Base: 0.01, RTLola: 0.012, Unit: "ms", OverheadPct: 20},
			benchmark.MetricMemory:      {Base: 40, RTLola: 42, Unit: "MB", OverheadPct: 5},
		},
	}

	msg := Summary(rec, nil)
	assert.Contains(t, msg, "*RTLola overhead benchmark: nightly*")
	assert.Contains(t, msg, "10 runs, step 0.001 s, stop 5 s")
	assert.Contains(t, msg, "• Avg Step Time: 0.0100ms → 0.0120ms (+20.00%)")
	assert.Contains(t, msg, "• Memory: 40.0000MB → 42.0000MB (+5.00%)")
	assert.NotContains(t, msg, "Total Time")
	assert.NotContains(t, msg, "Change since last run")

	withComps := Summary(rec, []benchmark.Comparison{{Name: benchmark.MetricAvgStepTime, OverheadDelta: -3}})
	assert.Contains(t, withComps, "Change since last run:\n• avg_step_time: -3.00 pp overhead")
}
