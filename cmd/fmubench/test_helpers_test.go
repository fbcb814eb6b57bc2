package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"fmubench/internal/benchmark"
	"fmubench/pkg/mocks"
)

// executeCommand executes a cobra command and returns its output.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	resetFlags(root)
	// Mock exit
	oldExit := exit
	exit = func(code int) {
		if code != 0 {
			panic(fmt.Sprintf("exit-%d", code))
		}
	}
	defer func() { exit = oldExit }()
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(string); ok && strings.HasPrefix(s, "exit-") {
				return
			}
			panic(r)
		}
	}()
	root.SetArgs(args)
	b := new(bytes.Buffer)
	root.SetOut(b)
	root.SetErr(b)
	root.SetIn(bytes.NewBufferString(""))
	err := root.Execute()
	return b.String(), err
}

// resetFlags resets all flags to their default values.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setupWorkspace moves the test into a fresh directory holding placeholder bundles at
// the default paths, and swaps in mock FMUs.
func setupWorkspace(t *testing.T, doc string, newSlave func() *mocks.MockSlave) *[]*mocks.MockSlave {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, p := range []string{"fmus/BouncingBall.fmu", "fmus_RTLola_FFI/BouncingBall.fmu", "BouncingBall.fmu"} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("placeholder"), 0644))
	}

	var opened []*mocks.MockSlave
	oldOpen, oldMemory, oldStore := openFMU, memoryUsage, newStoreFunc
	openFMU = mocks.Opener(doc, newSlave, &opened)
	memoryUsage = func() (float64, error) { return 50 * 1024, nil }
	t.Cleanup(func() {
		openFMU, memoryUsage, newStoreFunc = oldOpen, oldMemory, oldStore
		cfgFile = ""
	})
	return &opened
}

// sleepySlave takes measurable time per step so step means are never zero.
func sleepySlave() *mocks.MockSlave {
	s := mocks.NewMockSlave()
	s.OnStep = func(*mocks.MockSlave, float64, float64) { time.Sleep(50 * time.Microsecond) }
	return s
}

// writeFMUArchive writes a bundle holding only a model description.
func writeFMUArchive(t *testing.T, path, doc string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("modelDescription.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

type memoryStore struct {
	records []benchmark.Record
}

func (m *memoryStore) Save(rec benchmark.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryStore) LoadLatest() (*benchmark.Record, error) {
	if len(m.records) == 0 {
		return nil, nil
	}
	rec := m.records[len(m.records)-1]
	return &rec, nil
}

func (m *memoryStore) LoadAll() ([]benchmark.Record, error) {
	return m.records, nil
}

func (m *memoryStore) Close() error { return nil }
