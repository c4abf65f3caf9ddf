package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlot_WritesSurfacePNG(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	characterizeFixture(t, "plot-run", db, filepath.Join(dir, "out.lib"))

	png := filepath.Join(dir, "invx1_delay.png")
	out, err := executeCommand(t, "plot", "plot-run",
		"--db", db, "--config", invConfig,
		"--cell", "INVX1", "--arc", "0", "--metric", "delay", "--out", png)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote "+png)

	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlot_UnknownMetric(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	characterizeFixture(t, "metric-run", db, filepath.Join(dir, "out.lib"))

	_, err := executeCommand(t, "plot", "metric-run",
		"--db", db, "--config", invConfig,
		"--cell", "INVX1", "--metric", "power",
		"--out", filepath.Join(dir, "x.png"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlot_UnknownCell(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	characterizeFixture(t, "cell-run", db, filepath.Join(dir, "out.lib"))

	_, err := executeCommand(t, "plot", "cell-run",
		"--db", db, "--config", invConfig,
		"--cell", "NAND2X1", "--out", filepath.Join(dir, "x.png"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
