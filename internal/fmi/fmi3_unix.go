//go:build linux || darwin

package fmi

import (
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

var fmi3LogCallback = sync.OnceValue(func() uintptr {
	return purego.NewCallback(func(env, status, category, message uintptr) {
		dispatchLog(env, Status(int32(status)), goString(category), goString(message))
	})
})

type fmi3Slave struct {
	md           *ModelDescription
	resourcePath string
	instance     uintptr
	logID        uintptr

	instantiate  func(instanceName, token, resourcePath string, visible, loggingOn, eventModeUsed, earlyReturnAllowed bool, required *uint32, nRequired uintptr, env, logMessage, intermediateUpdate uintptr) uintptr
	freeInstance func(instance uintptr)
	enterInit    func(instance uintptr, toleranceDefined bool, tolerance, startTime float64, stopTimeDefined bool, stopTime float64) int32
	exitInit     func(instance uintptr) int32
	terminate    func(instance uintptr) int32
	doStep       func(instance uintptr, currentTime, stepSize float64, noSetFMUStatePriorToCurrentPoint bool, eventHandlingNeeded, terminateSimulation, earlyReturn *bool, lastSuccessfulTime *float64) int32
	getFloat64   func(instance uintptr, vrs *uint32, nvr uintptr, values *float64, nValues uintptr) int32
	setFloat64   func(instance uintptr, vrs *uint32, nvr uintptr, values *float64, nValues uintptr) int32
	getString    func(instance uintptr, vrs *uint32, nvr uintptr, values *uintptr, nValues uintptr) int32
	setString    func(instance uintptr, vrs *uint32, nvr uintptr, values **byte, nValues uintptr) int32
}

func newFMI3Slave(lib uintptr, md *ModelDescription, dir string) (*fmi3Slave, error) {
	s := &fmi3Slave{
		md:           md,
		resourcePath: filepath.Join(dir, "resources") + string(filepath.Separator),
	}
	b := &symbolBinder{lib: lib}
	b.bind(&s.instantiate, "fmi3InstantiateCoSimulation")
	b.bind(&s.freeInstance, "fmi3FreeInstance")
	b.bind(&s.enterInit, "fmi3EnterInitializationMode")
	b.bind(&s.exitInit, "fmi3ExitInitializationMode")
	b.bind(&s.terminate, "fmi3Terminate")
	b.bind(&s.doStep, "fmi3DoStep")
	b.bind(&s.getFloat64, "fmi3GetFloat64")
	b.bind(&s.setFloat64, "fmi3SetFloat64")
	b.bind(&s.getString, "fmi3GetString")
	b.bind(&s.setString, "fmi3SetString")
	if b.err != nil {
		return nil, b.err
	}
	return s, nil
}

func (s *fmi3Slave) Instantiate(opts InstantiateOptions) error {
	s.logID = registerLogFunc(opts.Logger)
	var logCallback uintptr
	if s.logID != 0 {
		logCallback = fmi3LogCallback()
	}

	s.instance = s.instantiate(opts.InstanceName, s.md.GUID, s.resourcePath,
		opts.Visible, opts.LoggingOn, false, false, nil, 0, s.logID, logCallback, 0)
	if s.instance == 0 {
		unregisterLogFunc(s.logID)
		s.logID = 0
		return &CallError{Call: "fmi3InstantiateCoSimulation", Status: StatusError}
	}
	return nil
}

func (s *fmi3Slave) EnterInitializationMode(start, stop float64) error {
	if s.instance == 0 {
		return ErrNotInstantiated
	}
	return checkStatus("fmi3EnterInitializationMode",
		Status(s.enterInit(s.instance, false, 0, start, stop > start, stop)))
}

func (s *fmi3Slave) ExitInitializationMode() error {
	if s.instance == 0 {
		return ErrNotInstantiated
	}
	return checkStatus("fmi3ExitInitializationMode", Status(s.exitInit(s.instance)))
}

func (s *fmi3Slave) DoStep(currentTime, stepSize float64) error {
	if s.instance == 0 {
		return ErrNotInstantiated
	}
	var eventHandlingNeeded, terminateSimulation, earlyReturn bool
	var lastSuccessfulTime float64
	status := s.doStep(s.instance, currentTime, stepSize, true,
		&eventHandlingNeeded, &terminateSimulation, &earlyReturn, &lastSuccessfulTime)
	return checkStatus("fmi3DoStep", Status(status))
}

func (s *fmi3Slave) GetFloat64(vrs []ValueReference) ([]float64, error) {
	if s.instance == 0 {
		return nil, ErrNotInstantiated
	}
	if len(vrs) == 0 {
		return nil, nil
	}
	values := make([]float64, len(vrs))
	status := s.getFloat64(s.instance, &vrs[0], uintptr(len(vrs)), &values[0], uintptr(len(values)))
	if err := checkStatus("fmi3GetFloat64", Status(status)); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *fmi3Slave) SetFloat64(vrs []ValueReference, values []float64) error {
	if s.instance == 0 {
		return ErrNotInstantiated
	}
	if len(vrs) == 0 || len(values) == 0 {
		return nil
	}
	status := s.setFloat64(s.instance, &vrs[0], uintptr(len(vrs)), &values[0], uintptr(len(values)))
	return checkStatus("fmi3SetFloat64", Status(status))
}

func (s *fmi3Slave) GetString(vrs []ValueReference) ([]string, error) {
	if s.instance == 0 {
		return nil, ErrNotInstantiated
	}
	if len(vrs) == 0 {
		return nil, nil
	}
	raw := make([]uintptr, len(vrs))
	status := s.getString(s.instance, &vrs[0], uintptr(len(vrs)), &raw[0], uintptr(len(raw)))
	if err := checkStatus("fmi3GetString", Status(status)); err != nil {
		return nil, err
	}
	values := make([]string, len(raw))
	for i, p := range raw {
		values[i] = goString(p)
	}
	return values, nil
}

// SetString passes all values for the given references; an array variable such as a
// monitor spec input takes one reference and several values.
func (s *fmi3Slave) SetString(vrs []ValueReference, values []string) error {
	if s.instance == 0 {
		return ErrNotInstantiated
	}
	if len(vrs) == 0 || len(values) == 0 {
		return nil
	}
	ptrs, err := cStrings(values)
	if err != nil {
		return err
	}
	status := s.setString(s.instance, &vrs[0], uintptr(len(vrs)), &ptrs[0], uintptr(len(ptrs)))
	runtime.KeepAlive(ptrs)
	return checkStatus("fmi3SetString", Status(status))
}

func (s *fmi3Slave) Terminate() error {
	if s.instance == 0 {
		return ErrNotInstantiated
	}
	return checkStatus("fmi3Terminate", Status(s.terminate(s.instance)))
}

func (s *fmi3Slave) FreeInstance() {
	if s.instance != 0 {
		s.freeInstance(s.instance)
		s.instance = 0
	}
	unregisterLogFunc(s.logID)
	s.logID = 0
}
