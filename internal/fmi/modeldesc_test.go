package fmi

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bouncingBallFMI3 = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription fmiVersion="3.0" modelName="BouncingBall" instantiationToken="{1AE5E10D-9521-4DE3-80B9-D0EAAA7D5AF1}">
  <CoSimulation modelIdentifier="BouncingBall" canHandleVariableCommunicationStepSize="true"/>
  <ModelVariables>
    <Float64 name="time" valueReference="0" causality="independent" variability="continuous"/>
    <Float64 name="h" valueReference="1" causality="output" variability="continuous" description="Position of the ball"/>
    <Float64 name="v" valueReference="3" causality="output" variability="continuous"/>
    <String name="rtlola_spec" valueReference="10" causality="input" variability="discrete">
      <Dimension start="2"/>
    </String>
    <String name="rtlola_output" valueReference="11" causality="output" variability="discrete"/>
  </ModelVariables>
</fmiModelDescription>`

const bouncingBallFMI2 = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription fmiVersion="2.0" modelName="BouncingBall" guid="{8c4e810f-3df3-4a00-8276-176fa3c9f003}">
  <CoSimulation modelIdentifier="BouncingBall"/>
  <ModelVariables>
    <ScalarVariable name="h" valueReference="0" causality="output" variability="continuous">
      <Real start="1"/>
    </ScalarVariable>
    <ScalarVariable name="counter" valueReference="4" causality="output" variability="discrete">
      <Integer/>
    </ScalarVariable>
  </ModelVariables>
</fmiModelDescription>`

func writeFMU(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.fmu")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseModelDescription_FMI3(t *testing.T) {
	md, err := ParseModelDescription(strings.NewReader(bouncingBallFMI3))
	require.NoError(t, err)

	assert.Equal(t, 3, md.MajorVersion())
	assert.Equal(t, "BouncingBall", md.ModelName)
	assert.Equal(t, "BouncingBall", md.ModelIdentifier)
	assert.Equal(t, "{1AE5E10D-9521-4DE3-80B9-D0EAAA7D5AF1}", md.GUID)
	assert.Len(t, md.Variables, 5)

	h, err := md.Variable("h")
	require.NoError(t, err)
	assert.Equal(t, ValueReference(1), h.ValueReference)
	assert.Equal(t, "Float64", h.Type)
	assert.Equal(t, "output", h.Causality)
	assert.Equal(t, "Position of the ball", h.Description)

	spec, err := md.Variable("rtlola_spec")
	require.NoError(t, err)
	assert.Equal(t, "String", spec.Type)

	vrs, err := md.ValueReferences("rtlola_spec", "rtlola_output")
	require.NoError(t, err)
	assert.Equal(t, []ValueReference{10, 11}, vrs)
}

func TestParseModelDescription_FMI2(t *testing.T) {
	md, err := ParseModelDescription(strings.NewReader(bouncingBallFMI2))
	require.NoError(t, err)

	assert.Equal(t, 2, md.MajorVersion())
	assert.Equal(t, "{8c4e810f-3df3-4a00-8276-176fa3c9f003}", md.GUID)

	h, err := md.Variable("h")
	require.NoError(t, err)
	assert.Equal(t, "Float64", h.Type)
	assert.Equal(t, ValueReference(0), h.ValueReference)

	counter, err := md.Variable("counter")
	require.NoError(t, err)
	assert.Equal(t, "Integer", counter.Type)
}

func TestParseModelDescription_NoCoSimulation(t *testing.T) {
	doc := `<fmiModelDescription fmiVersion="3.0" modelName="M"><ModelExchange modelIdentifier="M"/></fmiModelDescription>`
	_, err := ParseModelDescription(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrNoCoSimulation)
}

func TestParseModelDescription_Malformed(t *testing.T) {
	_, err := ParseModelDescription(strings.NewReader("<fmiModelDescription"))
	assert.Error(t, err)
}

func TestValueReference_Missing(t *testing.T) {
	md, err := ParseModelDescription(strings.NewReader(`<fmiModelDescription fmiVersion="2.0" guid="g">
  <CoSimulation modelIdentifier="M"/>
  <ModelVariables>
    <ScalarVariable name="v" valueReference="1"><Real/></ScalarVariable>
  </ModelVariables>
</fmiModelDescription>`))
	require.NoError(t, err)

	_, err = md.ValueReference("h")
	require.Error(t, err)

	var missing *MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "h", missing.Name)
	assert.Contains(t, err.Error(), "'h'")

	_, err = md.ValueReferences("v", "h")
	assert.True(t, errors.As(err, &missing))
}

func TestReadModelDescription(t *testing.T) {
	bundle := writeFMU(t, map[string]string{modelDescriptionFile: bouncingBallFMI3})

	md, err := ReadModelDescription(bundle)
	require.NoError(t, err)
	assert.Equal(t, "BouncingBall", md.ModelIdentifier)
}

func TestReadModelDescription_Errors(t *testing.T) {
	_, err := ReadModelDescription(filepath.Join(t.TempDir(), "missing.fmu"))
	assert.Error(t, err)

	bundle := writeFMU(t, map[string]string{"documentation/index.html": "<html/>"})
	_, err = ReadModelDescription(bundle)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), modelDescriptionFile)
}

func TestStatus(t *testing.T) {
	assert.False(t, StatusOK.Failed())
	assert.False(t, StatusWarning.Failed())
	assert.True(t, StatusDiscard.Failed())
	assert.True(t, StatusError.Failed())
	assert.True(t, StatusFatal.Failed())
	assert.Equal(t, "Fatal", StatusFatal.String())
	assert.Equal(t, "Status(42)", Status(42).String())

	err := checkStatus("fmi3DoStep", StatusError)
	var statusErr *CallError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "fmi3DoStep failed with status Error", err.Error())
	assert.NoError(t, checkStatus("fmi3DoStep", StatusWarning))
}
