package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invScenario() *Scenario {
	return &Scenario{
		Name:        "inv_inline",
		Description: "inline inverter sweep",
		RunToken:    "inline-run",
		Cell: CellSpec{
			Name:      "INVX1",
			Inputs:    []string{"A"},
			Outputs:   []string{"Y"},
			Functions: map[string]string{"Y": "!A"},
		},
		Sweep: SweepSpec{
			Slews: []float64{1e-10, 4e-10},
			Loads: []float64{1e-15, 8e-15},
		},
		Assertions: []Assertion{
			{Type: AssertArcCount, Count: 2},
			{Type: AssertComplete},
			{Type: AssertMeasuredCount, Count: 8},
			{Type: AssertMonotone, Arc: 0, Axis: "load", Metric: "delay"},
			{Type: AssertMonotone, Arc: 0, Axis: "slew", Metric: "delay"},
			{Type: AssertMonotone, Arc: 1, Axis: "load", Metric: "transition"},
		},
	}
}

func TestRun_InverterPasses(t *testing.T) {
	result, err := Run(invScenario())
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "inline-run", result.RunToken)
	assert.True(t, result.Complete)
	assert.Zero(t, result.Unmeasured)
	assert.Len(t, result.Events, 8)

	// Trace order is deterministic: arc-major, slew then load.
	assert.Equal(t, "A (rise) -> Y (fall)", result.Events[0].Arc)
	assert.Equal(t, int64(1), result.Events[0].Seq)
	assert.Equal(t, int64(8), result.Events[7].Seq)
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(invScenario())
	require.NoError(t, err)
	second, err := Run(invScenario())
	require.NoError(t, err)

	assert.Equal(t, first.Events, second.Events)
}

func TestRun_FailingAssertionReported(t *testing.T) {
	scenario := invScenario()
	scenario.Assertions = []Assertion{
		{Type: AssertArcCount, Count: 7},
	}

	result, err := Run(scenario)
	require.NoError(t, err, "assertion failures do not abort the run")
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected 7 arcs, got 2")
}

func TestRun_DeadOutputDegrades(t *testing.T) {
	scenario := &Scenario{
		Name:        "inv_dead",
		Description: "dead output degrades every corner",
		Cell: CellSpec{
			Name:      "INVX1",
			Inputs:    []string{"A"},
			Outputs:   []string{"Y"},
			Functions: map[string]string{"Y": "!A"},
		},
		Sweep: SweepSpec{
			Slews: []float64{1e-10},
			Loads: []float64{1e-15},
		},
		Simulator: SimSpec{DeadNodes: []string{"Y"}},
		Assertions: []Assertion{
			{Type: AssertUnmeasuredCount, Count: 2},
			{Type: AssertMeasuredCount, Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 2, result.Unmeasured)
	assert.False(t, result.Complete)
	for _, e := range result.Events {
		assert.Equal(t, "unmeasured", e.Status)
	}
}

func TestRun_FlopConstraints(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "dff_constraints.yml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, result.Complete)

	// Setup and hold arcs carry constraint offsets near the fake's
	// critical window.
	kinds := make(map[string]int)
	for _, e := range result.Events {
		kinds[e.Kind]++
	}
	assert.Equal(t, 2, kinds["delay"])
	assert.Equal(t, 2, kinds["setup"])
	assert.Equal(t, 2, kinds["hold"])
}

func TestRun_UnsensitizableCell(t *testing.T) {
	scenario := invScenario()
	// Constant function: A cannot toggle Y.
	scenario.Cell.Functions = map[string]string{"Y": "A&!A"}

	result, err := Run(scenario)
	require.NoError(t, err, "an uncharacterizable cell fails the scenario, not the suite")
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "sensitizes")
}

func TestBuildCell_SynthesizedInstance(t *testing.T) {
	cell, err := buildCell(&CellSpec{
		Name:    "NAND2X1",
		Inputs:  []string{"A", "B"},
		Outputs: []string{"Y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "X0 A B Y VDD VSS NAND2X1", cell.Instance)
}
