package monitor

import (
	"errors"
	"testing"

	"fmubench/internal/fmi"
	"fmubench/pkg/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_AttachAndSwap(t *testing.T) {
	md := mocks.MustDescription(mocks.BouncingBallDescription)
	slave := mocks.NewMockSlave()
	slave.Outputs = []string{"[Trigger] [#3] = Ball close to ground"}

	ch, err := NewChannel(md, slave, "", "")
	require.NoError(t, err)

	first := Spec{Path: "specifications/bouncing_ball_spec.lola", Observed: []string{"h"}}
	require.NoError(t, ch.Attach(first))
	assert.Equal(t, first, ch.Active())

	out, err := ch.Output()
	require.NoError(t, err)
	assert.Contains(t, out, "Ball close to ground")

	second := Spec{Path: "specifications/new_ball_spec.lola", Observed: []string{"h", "v"}}
	require.NoError(t, ch.Swap(second))
	assert.Equal(t, second, ch.Active())

	assert.Equal(t, [][]string{
		{"specifications/bouncing_ball_spec.lola", "h"},
		{"specifications/new_ball_spec.lola", "h", "v"},
	}, slave.SpecSets)
}

func TestChannel_MissingVariables(t *testing.T) {
	md := mocks.MustDescription(mocks.PlainBallDescription)

	_, err := NewChannel(md, mocks.NewMockSlave(), DefaultInput, DefaultOutput)
	var missing *fmi.MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, DefaultInput, missing.Name)
}

func TestSpec_Validate(t *testing.T) {
	assert.Error(t, Spec{}.Validate())
	assert.Error(t, Spec{Path: "a.lola"}.Validate())
	assert.NoError(t, Spec{Path: "a.lola", Observed: []string{"h"}}.Validate())
	assert.Equal(t, []string{"a.lola", "h", "v"}, Spec{Path: "a.lola", Observed: []string{"h", "v"}}.Values())
}

func TestChannel_AttachRejectsInvalidSpec(t *testing.T) {
	md := mocks.MustDescription(mocks.BouncingBallDescription)
	slave := mocks.NewMockSlave()
	ch, err := NewChannel(md, slave, "", "")
	require.NoError(t, err)

	assert.Error(t, ch.Attach(Spec{Path: "x.lola"}))
	assert.Empty(t, slave.SpecSets)
}
