package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlay_Text(t *testing.T) {
	out, _, err := execute(t, "play", "testdata/demo.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario: demo")
	assert.Contains(t, out, `declare checkbox "agree" (id w-agree) = false`)
	assert.Contains(t, out, `{"agree":false}`)
	assert.Contains(t, out, "✓ PASS")
}

func TestPlay_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "play", "testdata/demo.yaml")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data)
}

func TestPlay_ExpectFailure(t *testing.T) {
	out, _, err := execute(t, "play", "testdata/failing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ FAIL")
}

func TestPlay_MissingScenario(t *testing.T) {
	_, _, err := execute(t, "play", "testdata/nonexistent.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlay_InvalidScenario(t *testing.T) {
	out, _, err := execute(t, "play", "testdata/bad.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E101")
}

func TestPlay_CustomCatalog(t *testing.T) {
	// The custom catalog has no checkbox control, so the demo scenario
	// cannot replay against it.
	_, _, err := execute(t, "play", "--catalog", "testdata/custom.cue", "testdata/demo.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "replay aborted")
}

func TestPlay_Verbose(t *testing.T) {
	_, errOut, err := execute(t, "--verbose", "play", "testdata/demo.yaml")
	require.NoError(t, err)
	assert.Contains(t, errOut, "demo")
}
