package monitor

import (
	"errors"
	"fmt"

	"fmubench/internal/fmi"
)

const (
	DefaultInput  = "rtlola_spec"
	DefaultOutput = "rtlola_output"
)

// Spec names a compiled specification file and the simulation variables it observes.
type Spec struct {
	Path     string   `mapstructure:"path" json:"path"`
	Observed []string `mapstructure:"observed" json:"observed"`
}

// Values encodes the spec the way the monitor input expects it.
func (s Spec) Values() []string {
	return append([]string{s.Path}, s.Observed...)
}

func (s Spec) Validate() error {
	if s.Path == "" {
		return errors.New("monitor spec path is empty")
	}
	if len(s.Observed) == 0 {
		return fmt.Errorf("monitor spec %s observes no variables", s.Path)
	}
	return nil
}

// Channel is the string-variable pair the monitor is reached through.
type Channel struct {
	slave  fmi.Slave
	input  fmi.ValueReference
	output fmi.ValueReference
	active Spec
}

// NewChannel resolves the input and output variables of the monitor. Both must exist.
func NewChannel(md *fmi.ModelDescription, slave fmi.Slave, input, output string) (*Channel, error) {
	if input == "" {
		input = DefaultInput
	}
	if output == "" {
		output = DefaultOutput
	}
	vrs, err := md.ValueReferences(input, output)
	if err != nil {
		return nil, err
	}
	return &Channel{slave: slave, input: vrs[0], output: vrs[1]}, nil
}

// Attach sets the active specification. It is also how a running monitor is
// hot-swapped to another specification.
func (c *Channel) Attach(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if err := c.slave.SetString([]fmi.ValueReference{c.input}, spec.Values()); err != nil {
		return fmt.Errorf("failed to set monitor spec %s: %w", spec.Path, err)
	}
	c.active = spec
	return nil
}

// Swap replaces the active specification mid-run.
func (c *Channel) Swap(spec Spec) error {
	return c.Attach(spec)
}

// Active returns the last specification set on the channel.
func (c *Channel) Active() Spec {
	return c.active
}

// Output reads the monitor output produced by the last step.
func (c *Channel) Output() (string, error) {
	values, err := c.slave.GetString([]fmi.ValueReference{c.output})
	if err != nil {
		return "", fmt.Errorf("failed to read monitor output: %w", err)
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}
