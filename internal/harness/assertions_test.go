package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/engine"
	"github.com/ejcamacho11/CharLib/internal/model"
)

// assertionRun builds a finished run with hand-inserted measurements so
// assertion logic is exercised without the engine.
func assertionRun(t *testing.T) (*engine.Run, model.Sweep) {
	t.Helper()

	cell := &model.Cell{
		Name: "BUFX1",
		Pins: []model.Pin{
			{Name: "A", Direction: model.DirectionInput},
			{Name: "Y", Direction: model.DirectionOutput},
		},
		Functions: map[string]string{"Y": "A"},
		Behavior:  model.Combinational,
	}
	arcs := []model.TimingArc{{
		ID: 0, Cell: "BUFX1", Related: "A", Output: "Y",
		Kind: model.ArcDelay, Sense: model.PositiveUnate,
		Sens: model.Sensitization{InputEdge: model.Rise, OutputEdge: model.Rise},
	}}
	cm := model.NewCellModel(cell, arcs)
	sweep := model.Sweep{
		Slews: []float64{1e-10, 2e-10},
		Loads: []float64{1e-15, 2e-15},
	}
	corners := model.SweepCorners(sweep.Slews, sweep.Loads)
	require.NoError(t, cm.RegisterCorners(0, corners))

	// Delay grows with load but shrinks with slew, so load is monotone
	// and slew is not.
	delays := []float64{30e-12, 40e-12, 25e-12, 35e-12}
	for i, c := range corners {
		require.NoError(t, cm.Insert(0, c, model.Measurement{
			Status: model.Measured,
			Delay:  delays[i],
			Seq:    int64(i + 1),
		}))
	}
	return &engine.Run{Token: "assert-run", Model: cm}, sweep
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	run, sweep := assertionRun(t)

	failures := EvaluateAssertions(run, sweep, []Assertion{
		{Type: AssertArcCount, Count: 1},
		{Type: AssertComplete},
		{Type: AssertMeasuredCount, Count: 4},
		{Type: AssertUnmeasuredCount, Count: 0},
		{Type: AssertMonotone, Arc: 0, Axis: "load", Metric: "delay"},
	})
	assert.Empty(t, failures)
}

func TestEvaluateAssertions_MonotoneViolation(t *testing.T) {
	run, sweep := assertionRun(t)

	failures := EvaluateAssertions(run, sweep, []Assertion{
		{Type: AssertMonotone, Arc: 0, Axis: "slew", Metric: "delay"},
	})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "not monotone along slew")
}

func TestEvaluateAssertions_CountMismatch(t *testing.T) {
	run, sweep := assertionRun(t)

	failures := EvaluateAssertions(run, sweep, []Assertion{
		{Type: AssertMeasuredCount, Count: 3},
		{Type: AssertUnmeasuredCount, Count: 1},
	})
	assert.Len(t, failures, 2)
}

func TestEvaluateAssertions_ConstraintOnDelayArc(t *testing.T) {
	run, _ := assertionRun(t)

	failures := EvaluateAssertions(run, model.Sweep{}, []Assertion{
		{Type: AssertConstraintBounds, Arc: 0, Min: 1e-12, Max: 1e-9},
	})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "not a constraint arc")
}
