package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_AllScenariosPass(t *testing.T) {
	out, err := executeCommand(t, "test", filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	failing := `
name: failing
description: "wrong arc count on purpose"
cell:
  name: INVX1
  inputs: [A]
  outputs: [Y]
  functions: {Y: "!A"}
sweep:
  slews: [1.0e-10]
  loads: [1.0e-15]
assertions:
  - type: arc_count
    count: 9
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yml"), []byte(failing), 0o644))

	out, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "expected 9 arcs, got 2")
	assert.Contains(t, out, "Scenario Summary: 0 passed, 1 failed, 1 total")
}

func TestTest_JSONOutput(t *testing.T) {
	out, err := executeCommand(t, "--format", "json", "test", filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	payload, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result TestResult
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.Equal(t, 1, result.Passed)
	assert.Zero(t, result.Failed)
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := executeCommand(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_EmptyDirectory(t *testing.T) {
	_, err := executeCommand(t, "test", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
