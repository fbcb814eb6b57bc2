package main

import (
	"errors"
	"os"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmubench/pkg/mocks"
)

func mockAskOne(t *testing.T, answers ...interface{}) *[]string {
	t.Helper()
	var asked []string
	original := askOneFunc
	t.Cleanup(func() { askOneFunc = original })

	askOneFunc = func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		if len(answers) == 0 {
			return errors.New("unexpected prompt")
		}
		answer := answers[0]
		answers = answers[1:]
		switch q := p.(type) {
		case *survey.Confirm:
			asked = append(asked, q.Message)
			*(response.(*bool)) = answer.(bool)
		case *survey.Input:
			asked = append(asked, q.Message)
			*(response.(*string)) = answer.(string)
		}
		return nil
	}
	return &asked
}

func TestConfigInitCmd(t *testing.T) {
	setupWorkspace(t, mocks.BouncingBallDescription, mocks.NewMockSlave)

	output, err := executeCommand(rootCmd, "config", "init", "--path", "fmubench.yaml")
	require.NoError(t, err)
	assert.Contains(t, output, "Created configuration file: fmubench.yaml")

	content, err := os.ReadFile("fmubench.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(content), "monitor_fmu: fmus_RTLola_FFI/BouncingBall.fmu")
}

func TestConfigInitCmd_ExistingFile(t *testing.T) {
	setupWorkspace(t, mocks.BouncingBallDescription, mocks.NewMockSlave)
	require.NoError(t, os.WriteFile("fmubench.yaml", []byte("runs: 7\n"), 0644))

	t.Run("Declined", func(t *testing.T) {
		asked := mockAskOne(t, false)
		output, err := executeCommand(rootCmd, "config", "init", "--path", "fmubench.yaml")
		require.NoError(t, err)
		assert.Contains(t, output, "Operation cancelled.")
		require.Len(t, *asked, 1)
		assert.Contains(t, (*asked)[0], "already exists. Overwrite?")

		content, err := os.ReadFile("fmubench.yaml")
		require.NoError(t, err)
		assert.Equal(t, "runs: 7\n", string(content))
	})

	t.Run("Confirmed", func(t *testing.T) {
		mockAskOne(t, true)
		output, err := executeCommand(rootCmd, "config", "init", "--path", "fmubench.yaml")
		require.NoError(t, err)
		assert.Contains(t, output, "Created configuration file")
	})

	t.Run("Force", func(t *testing.T) {
		asked := mockAskOne(t)
		_, err := executeCommand(rootCmd, "config", "init", "--path", "fmubench.yaml", "--force")
		require.NoError(t, err)
		assert.Empty(t, *asked)
	})
}

func TestConfigInitCmd_Interactive(t *testing.T) {
	setupWorkspace(t, mocks.BouncingBallDescription, mocks.NewMockSlave)
	asked := mockAskOne(t, "models/Ball.fmu", "models/Ball_RTLola.fmu", "25")

	_, err := executeCommand(rootCmd, "config", "init", "--path", "fmubench.yaml", "-i")
	require.NoError(t, err)
	assert.Equal(t, []string{"baseline_fmu:", "monitor_fmu:", "runs:"}, *asked)

	content, err := os.ReadFile("fmubench.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(content), "baseline_fmu: models/Ball.fmu")
	assert.Contains(t, string(content), "monitor_fmu: models/Ball_RTLola.fmu")
	assert.Contains(t, string(content), "runs: 25")
}

func TestPositiveInt(t *testing.T) {
	assert.NoError(t, positiveInt("3"))
	assert.Error(t, positiveInt("0"))
	assert.Error(t, positiveInt("many"))
}
