package mocks

import (
	"fmt"
	"strings"

	"fmubench/internal/fmi"
)

// BouncingBallDescription is a FMI 3.0 model description with the monitor channel.
const BouncingBallDescription = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription fmiVersion="3.0" modelName="BouncingBall" instantiationToken="{1AE5E10D-9521-4DE3-80B9-D0EAAA7D5AF1}">
  <CoSimulation modelIdentifier="BouncingBall"/>
  <ModelVariables>
    <Float64 name="time" valueReference="0" causality="independent" variability="continuous"/>
    <Float64 name="h" valueReference="1" causality="output" variability="continuous"/>
    <Float64 name="v" valueReference="3" causality="output" variability="continuous"/>
    <String name="rtlola_spec" valueReference="10" causality="input" variability="discrete"/>
    <String name="rtlola_output" valueReference="11" causality="output" variability="discrete"/>
  </ModelVariables>
</fmiModelDescription>`

// PlainBallDescription has no monitor channel and no "h" variable.
const PlainBallDescription = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription fmiVersion="2.0" modelName="Plain" guid="{plain}">
  <CoSimulation modelIdentifier="Plain"/>
  <ModelVariables>
    <ScalarVariable name="v" valueReference="3"><Real/></ScalarVariable>
  </ModelVariables>
</fmiModelDescription>`

// Value references used by BouncingBallDescription.
const (
	HeightRef fmi.ValueReference = 1
	SpecRef   fmi.ValueReference = 10
	OutputRef fmi.ValueReference = 11
)

// MustDescription parses a model description or panics.
func MustDescription(doc string) *fmi.ModelDescription {
	md, err := fmi.ParseModelDescription(strings.NewReader(doc))
	if err != nil {
		panic(err)
	}
	return md
}

// MockSlave is an in-memory fmi.Slave that records the calls it receives.
type MockSlave struct {
	Calls     []string
	SpecSets  [][]string
	StepTimes []float64
	Floats    map[fmi.ValueReference]float64
	Outputs   []string // returned by successive reads of OutputRef

	InstantiateErr error
	InitErr        error
	TerminateErr   error
	StepErr        error
	FailAtStep     int // 1-based; 0 never fails
	OnStep         func(m *MockSlave, t, h float64)

	Logger       fmi.LogFunc
	Instantiated bool
	Freed        int
	outputReads  int
}

func NewMockSlave() *MockSlave {
	return &MockSlave{Floats: map[fmi.ValueReference]float64{}}
}

func (m *MockSlave) Instantiate(opts fmi.InstantiateOptions) error {
	m.Calls = append(m.Calls, "instantiate")
	if m.InstantiateErr != nil {
		return m.InstantiateErr
	}
	m.Logger = opts.Logger
	m.Instantiated = true
	return nil
}

func (m *MockSlave) EnterInitializationMode(start, stop float64) error {
	m.Calls = append(m.Calls, "enter_init")
	return m.InitErr
}

func (m *MockSlave) ExitInitializationMode() error {
	m.Calls = append(m.Calls, "exit_init")
	return nil
}

func (m *MockSlave) DoStep(currentTime, stepSize float64) error {
	m.StepTimes = append(m.StepTimes, currentTime)
	if m.FailAtStep > 0 && len(m.StepTimes) == m.FailAtStep {
		if m.StepErr != nil {
			return m.StepErr
		}
		return &fmi.CallError{Call: "fmi3DoStep", Status: fmi.StatusError}
	}
	if m.OnStep != nil {
		m.OnStep(m, currentTime, stepSize)
	}
	return nil
}

func (m *MockSlave) GetFloat64(vrs []fmi.ValueReference) ([]float64, error) {
	values := make([]float64, len(vrs))
	for i, vr := range vrs {
		values[i] = m.Floats[vr]
	}
	return values, nil
}

func (m *MockSlave) SetFloat64(vrs []fmi.ValueReference, values []float64) error {
	if len(vrs) != len(values) {
		return fmt.Errorf("mismatched lengths")
	}
	for i, vr := range vrs {
		m.Floats[vr] = values[i]
	}
	return nil
}

func (m *MockSlave) GetString(vrs []fmi.ValueReference) ([]string, error) {
	values := make([]string, len(vrs))
	for i, vr := range vrs {
		if vr == OutputRef {
			values[i] = m.nextOutput()
		}
	}
	return values, nil
}

func (m *MockSlave) nextOutput() string {
	m.outputReads++
	if m.outputReads > len(m.Outputs) {
		return ""
	}
	return m.Outputs[m.outputReads-1]
}

// OutputReads counts reads of the monitor output variable.
func (m *MockSlave) OutputReads() int {
	return m.outputReads
}

func (m *MockSlave) SetString(vrs []fmi.ValueReference, values []string) error {
	if len(vrs) == 1 && vrs[0] == SpecRef {
		m.SpecSets = append(m.SpecSets, append([]string(nil), values...))
	}
	m.Calls = append(m.Calls, "set_string")
	return nil
}

func (m *MockSlave) Terminate() error {
	m.Calls = append(m.Calls, "terminate")
	return m.TerminateErr
}

func (m *MockSlave) FreeInstance() {
	m.Calls = append(m.Calls, "free")
	m.Instantiated = false
	m.Freed++
}

// Opener returns an fmi.OpenFunc that serves fresh units built from doc, handing each
// slave to newSlave so tests can script it. Opened units are appended to *opened.
func Opener(doc string, newSlave func() *MockSlave, opened *[]*MockSlave) fmi.OpenFunc {
	return func(bundle string, opts fmi.Options) (*fmi.Unit, error) {
		slave := newSlave()
		if opened != nil {
			*opened = append(*opened, slave)
		}
		return &fmi.Unit{Description: MustDescription(doc), Slave: slave}, nil
	}
}
