//go:build linux

package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSession_CaptureNative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "native.log")
	s, err := OpenSession(path, nil)
	require.NoError(t, err)
	defer s.Close()

	restore, err := s.CaptureNative()
	require.NoError(t, err)
	// Write straight to the descriptor, the way C code in a shared library would.
	_, werr := unix.Write(unix.Stdout, []byte("from native stdout\n"))
	_, eerr := unix.Write(unix.Stderr, []byte("from native stderr\n"))
	require.NoError(t, restore())
	require.NoError(t, werr)
	require.NoError(t, eerr)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "from native stdout")
	assert.Contains(t, string(content), "from native stderr")
}
