package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"fmubench/internal/fmi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock handler to inspect log records
type mockHandler struct {
	mu       sync.Mutex
	records  []slog.Record
	attrs    []slog.Attr
	group    string
	enabled  bool
	handleFn func(slog.Record) error // Optional custom handle logic
}

func (h *mockHandler) Enabled(ctx context.Context, level slog.Level) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

func (h *mockHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.handleFn != nil {
		return h.handleFn(record)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return nil
}

// clone copies the configuration of h into a handler with its own mutex and no records.
func (h *mockHandler) clone() *mockHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &mockHandler{
		attrs:    append([]slog.Attr(nil), h.attrs...),
		group:    h.group,
		enabled:  h.enabled,
		handleFn: h.handleFn,
	}
}

func (h *mockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandler := h.clone()
	newHandler.attrs = append(newHandler.attrs, attrs...)
	return newHandler
}

func (h *mockHandler) WithGroup(name string) slog.Handler {
	newHandler := h.clone()
	if newHandler.group == "" {
		newHandler.group = name
	} else {
		newHandler.group = newHandler.group + "." + name
	}
	return newHandler
}

func (h *mockHandler) setEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = enabled
}

func (h *mockHandler) getRecords() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records
}

func TestMultiHandler(t *testing.T) {
	h1 := &mockHandler{enabled: true}
	h2 := &mockHandler{enabled: true}

	multi := &multiHandler{handlers: []slog.Handler{h1, h2}}

	t.Run("Enabled", func(t *testing.T) {
		assert.True(t, multi.Enabled(context.Background(), slog.LevelInfo))

		h1.setEnabled(false)
		assert.True(t, multi.Enabled(context.Background(), slog.LevelInfo))

		h2.setEnabled(false)
		assert.False(t, multi.Enabled(context.Background(), slog.LevelInfo))
	})

	t.Run("Handle", func(t *testing.T) {
		h1.setEnabled(true)
		h2.setEnabled(true)
		record := slog.NewRecord(time.Now(), slog.LevelInfo, "test message", 0)
		err := multi.Handle(context.Background(), record)
		assert.NoError(t, err)
		assert.Len(t, h1.getRecords(), 1)
		assert.Len(t, h2.getRecords(), 1)
		require.Len(t, h1.getRecords(), 1)
		assert.Equal(t, "test message", h1.getRecords()[0].Message)
	})

	t.Run("Handle skips disabled handlers", func(t *testing.T) {
		h1.setEnabled(true)
		h2.setEnabled(false)
		record := slog.NewRecord(time.Now(), slog.LevelInfo, "only first", 0)
		require.NoError(t, multi.Handle(context.Background(), record))

		require.Len(t, h1.getRecords(), 2)
		assert.Equal(t, "only first", h1.getRecords()[1].Message)
		assert.Len(t, h2.getRecords(), 1)
		h2.setEnabled(true)
	})

	t.Run("Handle returns handler error", func(t *testing.T) {
		failing := &mockHandler{enabled: true, handleFn: func(slog.Record) error { return assert.AnError }}
		after := &mockHandler{enabled: true}
		m := &multiHandler{handlers: []slog.Handler{failing, after}}

		err := m.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, after.getRecords())
	})

	t.Run("WithAttrs", func(t *testing.T) {
		attrs := []slog.Attr{slog.String("key", "value")}
		handlerWithAttrs := multi.WithAttrs(attrs)

		// Check if the new handler is a multiHandler
		newMulti, ok := handlerWithAttrs.(*multiHandler)
		require.True(t, ok, "WithAttrs should return a *multiHandler")

		// Check if underlying handlers have the attributes
		for _, h := range newMulti.handlers {
			mockH, ok := h.(*mockHandler)
			require.True(t, ok)
			assert.Equal(t, attrs, mockH.attrs)
		}
	})

	t.Run("WithGroup", func(t *testing.T) {
		handlerWithGroup := multi.WithGroup("my-group")

		newMulti, ok := handlerWithGroup.(*multiHandler)
		require.True(t, ok, "WithGroup should return a *multiHandler")

		for _, h := range newMulti.handlers {
			mockH, ok := h.(*mockHandler)
			require.True(t, ok)
			assert.Equal(t, "my-group", mockH.group)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Debug true", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{Debug: true, Writers: []io.Writer{&buf}})

		logger.Debug("debug message")
		assert.Contains(t, buf.String(), "debug message")
	})

	t.Run("Debug false drops debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{Writers: []io.Writer{&buf}})

		logger.Debug("hidden")
		logger.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("Fan out", func(t *testing.T) {
		var a, b bytes.Buffer
		logger := NewLogger(LoggerOptions{Writers: []io.Writer{&a, nil, &b}})
		logger.Info("both", "k", "v")

		assert.Contains(t, a.String(), "both")
		assert.Contains(t, b.String(), "k=v")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{JSON: true, Writers: []io.Writer{&buf}})
		logger.Info("hello, world")

		var logOutput map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &logOutput))
		assert.Equal(t, "hello, world", logOutput["msg"])
		assert.Equal(t, "INFO", logOutput["level"])
	})

	t.Run("No handlers", func(t *testing.T) {
		logger := NewLogger(LoggerOptions{})
		assert.NotNil(t, logger)
		logger.Info("this goes to dev/null")
	})
}

func TestFMULogFunc(t *testing.T) {
	tests := []struct {
		status fmi.Status
		level  string
	}{
		{fmi.StatusOK, "INFO"},
		{fmi.StatusWarning, "WARN"},
		{fmi.StatusDiscard, "WARN"},
		{fmi.StatusError, "ERROR"},
		{fmi.StatusFatal, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LoggerOptions{JSON: true, Writers: []io.Writer{&buf}})

			FMULogFunc(logger)(tt.status, "logEvents", "[Trigger] [#0] = Ball close to ground")

			var out map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
			assert.Equal(t, tt.level, out["level"])
			assert.Equal(t, "[logEvents] [Trigger] [#0] = Ball close to ground", out["msg"])
			assert.Equal(t, "fmu", out["source"])
		})
	}
}
