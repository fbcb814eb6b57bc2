//go:build linux || darwin

package fmi

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

const fmi2CoSimulation = 1

// fmi2Logger is variadic in C; the format arguments are ignored and the format
// string is logged as is.
var fmi2LogCallback = sync.OnceValue(func() uintptr {
	return purego.NewCallback(func(env, instanceName, status, category, message uintptr) {
		dispatchLog(env, Status(int32(status)), goString(category), goString(message))
	})
})

type libcFuncs struct {
	calloc     func(n, size uintptr) uintptr
	free       func(p uintptr)
	callocAddr uintptr
	freeAddr   uintptr
}

var loadLibc = sync.OnceValues(func() (*libcFuncs, error) {
	name := "libc.so.6"
	if runtime.GOOS == "darwin" {
		name = "/usr/lib/libSystem.B.dylib"
	}
	lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load libc: %w", err)
	}
	lc := &libcFuncs{}
	if lc.callocAddr, err = purego.Dlsym(lib, "calloc"); err != nil {
		return nil, err
	}
	if lc.freeAddr, err = purego.Dlsym(lib, "free"); err != nil {
		return nil, err
	}
	purego.RegisterFunc(&lc.calloc, lc.callocAddr)
	purego.RegisterFunc(&lc.free, lc.freeAddr)
	return lc, nil
})

type fmi2Slave struct {
	md               *ModelDescription
	resourceLocation string
	libc             *libcFuncs
	component        uintptr
	callbacks        uintptr
	logID            uintptr

	instantiate     func(instanceName string, fmuType int32, guid, resourceLocation string, functions uintptr, visible, loggingOn int32) uintptr
	freeInstance    func(c uintptr)
	setupExperiment func(c uintptr, toleranceDefined int32, tolerance, startTime float64, stopTimeDefined int32, stopTime float64) int32
	enterInit       func(c uintptr) int32
	exitInit        func(c uintptr) int32
	terminate       func(c uintptr) int32
	doStep          func(c uintptr, currentTime, stepSize float64, noSetFMUStatePriorToCurrentPoint int32) int32
	getReal         func(c uintptr, vrs *uint32, nvr uintptr, values *float64) int32
	setReal         func(c uintptr, vrs *uint32, nvr uintptr, values *float64) int32
	getString       func(c uintptr, vrs *uint32, nvr uintptr, values *uintptr) int32
	setString       func(c uintptr, vrs *uint32, nvr uintptr, values **byte) int32
}

func newFMI2Slave(lib uintptr, md *ModelDescription, dir string) (*fmi2Slave, error) {
	lc, err := loadLibc()
	if err != nil {
		return nil, err
	}
	resources := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(dir, "resources"))}
	s := &fmi2Slave{
		md:               md,
		resourceLocation: resources.String(),
		libc:             lc,
	}
	b := &symbolBinder{lib: lib}
	b.bind(&s.instantiate, "fmi2Instantiate")
	b.bind(&s.freeInstance, "fmi2FreeInstance")
	b.bind(&s.setupExperiment, "fmi2SetupExperiment")
	b.bind(&s.enterInit, "fmi2EnterInitializationMode")
	b.bind(&s.exitInit, "fmi2ExitInitializationMode")
	b.bind(&s.terminate, "fmi2Terminate")
	b.bind(&s.doStep, "fmi2DoStep")
	b.bind(&s.getReal, "fmi2GetReal")
	b.bind(&s.setReal, "fmi2SetReal")
	b.bind(&s.getString, "fmi2GetString")
	b.bind(&s.setString, "fmi2SetString")
	if b.err != nil {
		return nil, b.err
	}
	return s, nil
}

func fmi2Bool(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (s *fmi2Slave) Instantiate(opts InstantiateOptions) error {
	// fmi2CallbackFunctions: logger, allocateMemory, freeMemory, stepFinished,
	// componentEnvironment. The FMU keeps the pointer, so it lives in C memory.
	s.callbacks = s.libc.calloc(5, unsafe.Sizeof(uintptr(0)))
	if s.callbacks == 0 {
		return fmt.Errorf("failed to allocate fmi2 callbacks")
	}
	s.logID = registerLogFunc(opts.Logger)
	// s.callbacks is C heap from calloc, so the conversion from uintptr is safe.
	fields := unsafe.Slice((*uintptr)(unsafe.Pointer(s.callbacks)), 5)
	if s.logID != 0 {
		fields[0] = fmi2LogCallback()
	}
	fields[1] = s.libc.callocAddr
	fields[2] = s.libc.freeAddr
	fields[4] = s.logID

	s.component = s.instantiate(opts.InstanceName, fmi2CoSimulation, s.md.GUID, s.resourceLocation,
		s.callbacks, fmi2Bool(opts.Visible), fmi2Bool(opts.LoggingOn))
	if s.component == 0 {
		s.release()
		return &CallError{Call: "fmi2Instantiate", Status: StatusError}
	}
	return nil
}

func (s *fmi2Slave) EnterInitializationMode(start, stop float64) error {
	if s.component == 0 {
		return ErrNotInstantiated
	}
	status := s.setupExperiment(s.component, 0, 0, start, fmi2Bool(stop > start), stop)
	if err := checkStatus("fmi2SetupExperiment", Status(status)); err != nil {
		return err
	}
	return checkStatus("fmi2EnterInitializationMode", Status(s.enterInit(s.component)))
}

func (s *fmi2Slave) ExitInitializationMode() error {
	if s.component == 0 {
		return ErrNotInstantiated
	}
	return checkStatus("fmi2ExitInitializationMode", Status(s.exitInit(s.component)))
}

func (s *fmi2Slave) DoStep(currentTime, stepSize float64) error {
	if s.component == 0 {
		return ErrNotInstantiated
	}
	return checkStatus("fmi2DoStep", Status(s.doStep(s.component, currentTime, stepSize, 1)))
}

func (s *fmi2Slave) GetFloat64(vrs []ValueReference) ([]float64, error) {
	if s.component == 0 {
		return nil, ErrNotInstantiated
	}
	if len(vrs) == 0 {
		return nil, nil
	}
	values := make([]float64, len(vrs))
	if err := checkStatus("fmi2GetReal", Status(s.getReal(s.component, &vrs[0], uintptr(len(vrs)), &values[0]))); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *fmi2Slave) SetFloat64(vrs []ValueReference, values []float64) error {
	if s.component == 0 {
		return ErrNotInstantiated
	}
	if len(vrs) != len(values) {
		return fmt.Errorf("fmi2SetReal: %d references but %d values", len(vrs), len(values))
	}
	if len(vrs) == 0 {
		return nil
	}
	return checkStatus("fmi2SetReal", Status(s.setReal(s.component, &vrs[0], uintptr(len(vrs)), &values[0])))
}

func (s *fmi2Slave) GetString(vrs []ValueReference) ([]string, error) {
	if s.component == 0 {
		return nil, ErrNotInstantiated
	}
	if len(vrs) == 0 {
		return nil, nil
	}
	raw := make([]uintptr, len(vrs))
	if err := checkStatus("fmi2GetString", Status(s.getString(s.component, &vrs[0], uintptr(len(vrs)), &raw[0]))); err != nil {
		return nil, err
	}
	values := make([]string, len(raw))
	for i, p := range raw {
		values[i] = goString(p)
	}
	return values, nil
}

// SetString requires one value per reference; FMI 2.0 has no array variables.
func (s *fmi2Slave) SetString(vrs []ValueReference, values []string) error {
	if s.component == 0 {
		return ErrNotInstantiated
	}
	if len(vrs) != len(values) {
		return fmt.Errorf("fmi2SetString: %d references but %d values", len(vrs), len(values))
	}
	if len(vrs) == 0 {
		return nil
	}
	ptrs, err := cStrings(values)
	if err != nil {
		return err
	}
	status := s.setString(s.component, &vrs[0], uintptr(len(vrs)), &ptrs[0])
	runtime.KeepAlive(ptrs)
	return checkStatus("fmi2SetString", Status(status))
}

func (s *fmi2Slave) Terminate() error {
	if s.component == 0 {
		return ErrNotInstantiated
	}
	return checkStatus("fmi2Terminate", Status(s.terminate(s.component)))
}

func (s *fmi2Slave) FreeInstance() {
	if s.component != 0 {
		s.freeInstance(s.component)
		s.component = 0
	}
	s.release()
}

func (s *fmi2Slave) release() {
	if s.callbacks != 0 {
		s.libc.free(s.callbacks)
		s.callbacks = 0
	}
	unregisterLogFunc(s.logID)
	s.logID = 0
}
