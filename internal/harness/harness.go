package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ejcamacho11/CharLib/internal/engine"
	"github.com/ejcamacho11/CharLib/internal/expr"
	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/testutil"
)

// harnessConditions is the fixed electrical environment scenarios run
// under. The fake simulator's response model does not depend on it
// beyond the rail swing, so one environment serves every scenario.
func harnessConditions() model.Conditions {
	return model.Conditions{
		Vdd: 1.0, Vss: 0,
		Temperature:        25,
		LogicThresholdLow:  0.2,
		LogicThresholdHigh: 0.8,
		LogicLowToHigh:     0.5,
		LogicHighToLow:     0.5,
		EnergyMeasLow:      0.01,
		EnergyMeasHigh:     0.99,
		EnergyTimeExtent:   1.0,
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario characterizes its cell from scratch against a fresh
// fake simulator, with a fixed run token and the logical clock starting
// at zero, so repeated runs produce identical traces.
func Run(scenario *Scenario) (*Result, error) {
	cell, err := buildCell(&scenario.Cell)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	parser, err := expr.NewParser()
	if err != nil {
		return nil, err
	}
	arcs, err := expr.DeriveArcs(parser, cell)
	if err != nil {
		if expr.IsUnsensitizable(err) {
			// The cell can never be characterized; the scenario fails
			// on its own without taking the suite down.
			result := &Result{RunToken: scenario.RunToken}
			result.AddError(err.Error())
			return result, nil
		}
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	sweep := buildSweep(&scenario.Sweep)
	workers := scenario.Workers
	if workers == 0 {
		workers = 1
	}

	eng := engine.New(
		buildSimulator(&scenario.Simulator),
		harnessConditions(),
		sweep,
		testutil.NewFixedRunToken(scenario.RunToken),
		engine.WithWorkers(workers),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	run, err := eng.Characterize(context.Background(), cell, arcs)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult(run)
	result.Events = traceEvents(run)
	for _, msg := range EvaluateAssertions(run, sweep, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// buildCell assembles the model cell from the scenario spec,
// synthesizing an instance line when the spec leaves it out.
func buildCell(spec *CellSpec) (*model.Cell, error) {
	sequential := spec.Clock != ""

	cell := &model.Cell{
		Name:      spec.Name,
		Netlist:   strings.ToLower(spec.Name) + ".sp",
		Instance:  spec.Instance,
		Functions: spec.Functions,
		Behavior:  model.Combinational,
	}
	if sequential {
		cell.Behavior = model.Sequential
	}

	inputRole := model.RoleNone
	if sequential {
		inputRole = model.RoleData
	}
	for _, in := range spec.Inputs {
		cell.Pins = append(cell.Pins, model.Pin{Name: in, Direction: model.DirectionInput, Role: inputRole})
	}
	if sequential {
		cell.Pins = append(cell.Pins, model.Pin{Name: spec.Clock, Direction: model.DirectionInput, Role: model.RoleClock})
	}
	if spec.Set != "" {
		cell.Pins = append(cell.Pins, model.Pin{Name: spec.Set, Direction: model.DirectionInput, Role: model.RoleAsyncSet})
	}
	if spec.Reset != "" {
		cell.Pins = append(cell.Pins, model.Pin{Name: spec.Reset, Direction: model.DirectionInput, Role: model.RoleAsyncReset})
	}
	for _, out := range spec.Outputs {
		cell.Pins = append(cell.Pins, model.Pin{Name: out, Direction: model.DirectionOutput})
	}

	if cell.Instance == "" {
		nodes := make([]string, 0, len(cell.Pins))
		for _, p := range cell.Pins {
			nodes = append(nodes, p.Name)
		}
		cell.Instance = fmt.Sprintf("X0 %s VDD VSS %s", strings.Join(nodes, " "), cell.Name)
	}
	return cell, nil
}

func buildSweep(spec *SweepSpec) model.Sweep {
	degradation := spec.Constraint.DegradationFactor
	if degradation == 0 {
		degradation = model.DefaultDegradationFactor
	}
	return model.Sweep{
		Slews: spec.Slews,
		Loads: spec.Loads,
		Constraint: model.ConstraintSpec{
			MinOffset:         spec.Constraint.MinOffset,
			MaxOffset:         spec.Constraint.MaxOffset,
			Resolution:        spec.Constraint.Resolution,
			DegradationFactor: degradation,
		},
	}
}

func buildSimulator(spec *SimSpec) *testutil.FakeSimulator {
	sim := testutil.NewFakeSimulator()
	if spec.BaseDelay > 0 {
		sim.BaseDelay = spec.BaseDelay
	}
	if spec.SlewFactor > 0 {
		sim.SlewFactor = spec.SlewFactor
	}
	if spec.LoadFactor > 0 {
		sim.LoadFactor = spec.LoadFactor
	}
	if spec.CriticalWindow > 0 {
		sim.CriticalWindow = spec.CriticalWindow
	}
	if len(spec.DeadNodes) > 0 {
		sim.DeadNodes = make(map[string]bool, len(spec.DeadNodes))
		for _, node := range spec.DeadNodes {
			sim.DeadNodes[strings.ToLower(node)] = true
		}
	}
	return sim
}

// traceEvents flattens the aggregated model into the deterministic
// trace order.
func traceEvents(run *engine.Run) []TraceEvent {
	entries := run.Model.Table()
	events := make([]TraceEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, TraceEvent{
			Cell:   run.Model.Cell.Name,
			Arc:    e.Arc.String(),
			Kind:   e.Arc.Kind.String(),
			Slew:   e.Corner.Slew,
			Load:   e.Corner.Load,
			Offset: e.Corner.Offset,
			Status: e.Measurement.Status.String(),
			Seq:    e.Measurement.Seq,
		})
	}
	return events
}
