package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/engine"
)

const invConfig = "testdata/config/inv_fake.yml"

// characterizeFixture runs the inverter config through the fake
// simulator with a fixed run token, recording into db and emitting lib.
func characterizeFixture(t *testing.T, token, db, lib string) string {
	t.Helper()

	opts := &CharacterizeOptions{
		RootOptions:    &RootOptions{Format: "text"},
		Database:       db,
		Output:         lib,
		TokenGenerator: engine.NewFixedGenerator(token),
	}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runCharacterize(opts, invConfig, cmd))
	return out.String()
}

func TestCharacterize_EmitsLibrary(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "fake_lib.lib")

	out := characterizeFixture(t, "char-run", filepath.Join(dir, "runs.db"), lib)
	assert.Contains(t, out, "✓ INVX1: 2 arcs, 8 measurements, 0 unmeasured")
	assert.Contains(t, out, "Wrote "+lib)

	data, err := os.ReadFile(lib)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `library (fake_lib) {`)
	assert.Contains(t, content, "cell (INVX1) {")
	assert.Contains(t, content, "cell_rise (delay_template)")
	assert.NotContains(t, content, "partial characterization")
}

func TestCharacterize_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "out.lib")

	opts := &CharacterizeOptions{
		RootOptions:    &RootOptions{Format: "json"},
		Output:         lib,
		TokenGenerator: engine.NewFixedGenerator("json-run"),
	}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runCharacterize(opts, invConfig, cmd))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	payload, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result CharacterizeResult
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.Equal(t, "fake_lib", result.Library)
	require.Len(t, result.Cells, 1)
	assert.Equal(t, "json-run", result.Cells[0].RunToken)
	assert.True(t, result.Cells[0].Complete)
	assert.Equal(t, 8, result.Cells[0].Measurements)
}

func TestCharacterize_UnsensitizableCellSkipped(t *testing.T) {
	cfg := writeConfig(t, `
library:
  name: mixed_lib
  vdd: 1.0
  workers: 1
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
  - name: INVX1
    netlist: cells/invx1.sp
    instance: "X0 A Y VDD VSS INVX1"
    inputs: [A]
    outputs: [Y]
    functions: {Y: "!A"}
`)
	lib := filepath.Join(t.TempDir(), "mixed.lib")

	opts := &CharacterizeOptions{
		RootOptions:    &RootOptions{Format: "text"},
		Output:         lib,
		TokenGenerator: engine.NewFixedGenerator("mixed-run"),
	}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runCharacterize(opts, cfg, cmd),
		"one uncharacterizable cell must not abort the sweep")

	assert.Contains(t, out.String(), "✗ GNDX1: skipped")
	assert.Contains(t, out.String(), "✓ INVX1: 2 arcs, 2 measurements, 0 unmeasured")

	data, err := os.ReadFile(lib)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cell (INVX1) {")
	assert.NotContains(t, string(data), "GNDX1")
}

func TestCharacterize_MissingConfig(t *testing.T) {
	_, err := executeCommand(t, "characterize", "nope.yml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCharacterize_UnknownCellFilter(t *testing.T) {
	dir := t.TempDir()
	_, err := executeCommand(t, "characterize", invConfig,
		"--out", filepath.Join(dir, "out.lib"), "--cell", "NAND2X1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not in config")
}

func TestCharacterize_CellFilter(t *testing.T) {
	out, err := executeCommand(t, "characterize", invConfig, "--cell", "INVX1",
		"--out", filepath.Join(t.TempDir(), "out.lib"))
	require.NoError(t, err)
	assert.Contains(t, out, "INVX1")
}
