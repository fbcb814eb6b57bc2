package fmi

import (
	"errors"
	"fmt"
)

// ValueReference identifies a model variable in FMI calls.
type ValueReference = uint32

// Status is the return code shared by FMI 2.0 and FMI 3.0 functions.
type Status int32

const (
	StatusOK Status = iota
	StatusWarning
	StatusDiscard
	StatusError
	StatusFatal
	StatusPending // FMI 2.0 only
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "Warning"
	case StatusDiscard:
		return "Discard"
	case StatusError:
		return "Error"
	case StatusFatal:
		return "Fatal"
	case StatusPending:
		return "Pending"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Failed reports whether the status must abort the simulation.
func (s Status) Failed() bool {
	return s != StatusOK && s != StatusWarning
}

var (
	// ErrUnsupportedPlatform is returned by Open when FMU binaries cannot be loaded
	// on the running OS.
	ErrUnsupportedPlatform = errors.New("loading FMU binaries is not supported on this platform")
	// ErrNotInstantiated is returned by slave calls made before Instantiate.
	ErrNotInstantiated = errors.New("fmu instance not instantiated")
	// ErrNoCoSimulation is returned when the model description has no CoSimulation element.
	ErrNoCoSimulation = errors.New("model description does not support co-simulation")
)

// MissingVariableError is returned when a variable name is absent from the model description.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("variable '%s' not found in the FMU model description", e.Name)
}

// CallError wraps a non-OK status returned by an FMI function.
type CallError struct {
	Call   string
	Status Status
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s failed with status %s", e.Call, e.Status)
}

func checkStatus(call string, status Status) error {
	if status.Failed() {
		return &CallError{Call: call, Status: status}
	}
	return nil
}
