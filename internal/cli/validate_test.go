package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidConfig(t *testing.T) {
	out, err := executeCommand(t, "validate", invConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Config valid: library fake_lib, 1 cell(s)")
}

func TestValidate_ValidConfigJSON(t *testing.T) {
	out, err := executeCommand(t, "--format", "json", "validate", invConfig)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidate_SchemaViolation(t *testing.T) {
	path := writeConfig(t, `
library:
  name: bad_lib
  vdd: -1.0
  simulator:
    kind: fake
sweep:
  slews: [1.0e-10]
  loads: [1.0e-15]
cells:
  - name: INVX1
    netlist: cells/invx1.sp
    instance: "X0 A Y VDD VSS INVX1"
    inputs: [A]
    outputs: [Y]
    functions: {Y: "!A"}
`)

	out, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "vdd")
}

func TestValidate_UnsensitizableFunction(t *testing.T) {
	path := writeConfig(t, `
library:
  name: bad_lib
  vdd: 1.0
  simulator:
    kind: fake
sweep:
  slews: [1.0e-10]
  loads: [1.0e-15]
cells:
  - name: GNDX1
    netlist: cells/gndx1.sp
    instance: "X0 A Y VDD VSS GNDX1"
    inputs: [A]
    outputs: [Y]
    functions: {Y: "A&!A"}
`)

	out, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "GNDX1")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := executeCommand(t, "validate", "nope.yml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_FailureJSON(t *testing.T) {
	path := writeConfig(t, `
library:
  name: bad_lib
  vdd: 1.0
  simulator:
    kind: spectre
sweep:
  slews: [1.0e-10]
  loads: [1.0e-15]
cells:
  - name: INVX1
    netlist: cells/invx1.sp
    instance: "X0 A Y VDD VSS INVX1"
    inputs: [A]
    outputs: [Y]
    functions: {Y: "!A"}
`)

	out, err := executeCommand(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CONFIG", resp.Error.Code)
}

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}
