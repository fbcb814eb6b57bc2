package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Session is a log file opened for the lifetime of one command. Writes go to the
// file and to the console writer. Nothing global is redirected.
type Session struct {
	Path string

	mu      sync.Mutex
	file    *os.File
	console io.Writer
	closed  bool
}

// OpenSession opens path for appending and writes the session banner.
func OpenSession(path string, console io.Writer) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", abs, err)
	}

	s := &Session{Path: abs, file: f, console: console}
	sep := strings.Repeat("=", 50)
	if _, err := fmt.Fprintf(s, "\n\n%s\nNew session started. Logging to: %s\n%s\n\n", sep, abs, sep); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Write tees p to the log file and the console.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	if s.console != nil {
		if _, err := s.console.Write(p); err != nil {
			return 0, err
		}
	}
	return s.file.Write(p)
}

// File returns a writer that only reaches the log file.
func (s *Session) File() io.Writer {
	return fileOnly{s}
}

type fileOnly struct{ s *Session }

func (f fileOnly) Write(p []byte) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.closed {
		return 0, os.ErrClosed
	}
	return f.s.file.Write(p)
}

// Close flushes and closes the log file. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.file.Sync(), s.file.Close())
}

// CaptureNative redirects the process stdout and stderr descriptors into the
// log file until the returned func is called. Go code holding os.Stdout keeps
// writing to the same descriptor, so it is captured too.
func (s *Session) CaptureNative() (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, os.ErrClosed
	}
	return redirectStdio(int(s.file.Fd()))
}
