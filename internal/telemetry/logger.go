package telemetry

import (
	"context"
	"io"
	"log/slog"

	"fmubench/internal/fmi"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Debug bool
	JSON  bool
	// Writers each get their own handler; none means logs are discarded.
	Writers []io.Writer
}

// NewLogger builds a logger that fans records out to every writer.
func NewLogger(opts LoggerOptions) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	for _, w := range opts.Writers {
		if w == nil {
			continue
		}
		if opts.JSON {
			handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, handlerOpts))
		}
	}

	// Use a multi-handler if we have more than one
	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, handlerOpts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}
	return slog.New(handler)
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// FMULogFunc routes FMU log callbacks to logger, mapping FMI status to a level.
func FMULogFunc(logger *slog.Logger) fmi.LogFunc {
	return func(status fmi.Status, category, message string) {
		level := slog.LevelInfo
		switch status {
		case fmi.StatusWarning, fmi.StatusDiscard:
			level = slog.LevelWarn
		case fmi.StatusError, fmi.StatusFatal:
			level = slog.LevelError
		}
		logger.Log(context.Background(), level, "["+category+"] "+message, "source", "fmu", "status", status.String())
	}
}
