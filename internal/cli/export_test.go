package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/liberty"
)

func TestExport_RebuildsLibrary(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	direct := filepath.Join(dir, "direct.lib")
	characterizeFixture(t, "export-run", db, direct)

	exported := filepath.Join(dir, "exported.lib")
	out, err := executeCommand(t, "export", "export-run",
		"--db", db, "--config", invConfig, "--out", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Exported 1 cell(s) from run export-run")

	// The exported library carries the same tables the live run wrote.
	directData, err := os.ReadFile(direct)
	require.NoError(t, err)
	exportedData, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, string(directData), string(exportedData))

	parser := liberty.MustParser()
	file, err := parser.Parse(string(exportedData))
	require.NoError(t, err)
	cell := file.Library.Group("cell", "INVX1")
	require.NotNil(t, cell)
	pin := cell.Group("pin", "Y")
	require.NotNil(t, pin)
	assert.NotNil(t, pin.Group("timing", ""))
}

func TestExport_UnknownRun(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	characterizeFixture(t, "real-run", db, filepath.Join(dir, "out.lib"))

	_, err := executeCommand(t, "export", "ghost-run",
		"--db", db, "--config", invConfig, "--out", filepath.Join(dir, "x.lib"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestExport_MissingConfigFlag(t *testing.T) {
	_, err := executeCommand(t, "export", "some-run", "--db", "runs.db")
	require.Error(t, err)
}
