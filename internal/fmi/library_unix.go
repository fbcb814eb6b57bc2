//go:build linux || darwin

package fmi

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

func sharedLibraryExt() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// platformDir returns the binaries/ subdirectory holding the shared library.
func platformDir(major int) (string, error) {
	if major == 3 {
		arch, ok := map[string]string{"amd64": "x86_64", "arm64": "aarch64", "386": "x86"}[runtime.GOARCH]
		if !ok {
			return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
		}
		return arch + "-" + runtime.GOOS, nil
	}

	switch runtime.GOARCH {
	case "amd64", "arm64":
		return runtime.GOOS + "64", nil
	case "386":
		return runtime.GOOS + "32", nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
}

func libraryPath(md *ModelDescription, dir string) (string, error) {
	platform, err := platformDir(md.MajorVersion())
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "binaries", platform, md.ModelIdentifier+sharedLibraryExt())
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("fmu has no binary for %s: %w", platform, err)
	}
	return path, nil
}

func loadSlave(md *ModelDescription, dir string) (Slave, func() error, error) {
	path, err := libraryPath(md, dir)
	if err != nil {
		return nil, nil, err
	}

	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	unload := func() error { return purego.Dlclose(lib) }

	var slave Slave
	if md.MajorVersion() == 3 {
		slave, err = newFMI3Slave(lib, md, dir)
	} else {
		slave, err = newFMI2Slave(lib, md, dir)
	}
	if err != nil {
		unload()
		return nil, nil, err
	}
	return slave, unload, nil
}

type symbolBinder struct {
	lib uintptr
	err error
}

func (b *symbolBinder) bind(fptr any, name string) {
	if b.err != nil {
		return
	}
	sym, err := purego.Dlsym(b.lib, name)
	if err != nil {
		b.err = fmt.Errorf("missing FMI function %s: %w", name, err)
		return
	}
	purego.RegisterFunc(fptr, sym)
}

func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	// p points into C memory owned by the FMU, which the Go GC never moves.
	return unix.BytePtrToString((*byte)(unsafe.Pointer(p)))
}

func cStrings(values []string) ([]*byte, error) {
	ptrs := make([]*byte, len(values))
	for i, v := range values {
		p, err := unix.BytePtrFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid string value %q: %w", v, err)
		}
		ptrs[i] = p
	}
	return ptrs, nil
}

// Log callbacks are created once per process; instances are told apart by the
// environment pointer, which carries a registry key.
var (
	logMu     sync.Mutex
	logFuncs  = map[uintptr]LogFunc{}
	nextLogID uintptr
)

func registerLogFunc(fn LogFunc) uintptr {
	if fn == nil {
		return 0
	}
	logMu.Lock()
	defer logMu.Unlock()
	nextLogID++
	logFuncs[nextLogID] = fn
	return nextLogID
}

func unregisterLogFunc(id uintptr) {
	if id == 0 {
		return
	}
	logMu.Lock()
	delete(logFuncs, id)
	logMu.Unlock()
}

func dispatchLog(id uintptr, status Status, category, message string) {
	logMu.Lock()
	fn := logFuncs[id]
	logMu.Unlock()
	if fn != nil {
		fn(status, category, message)
	}
}
