package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/model"
)

const validDoc = `
library:
  name: demo_lib
  vdd: 3.3
  temperature: 27
  workers: 2
  retries: 2
  timeout: 30s
  simulator:
    kind: ngspice
    path: /usr/bin/ngspice
sweep:
  slews: [0.1e-9, 0.4e-9, 1.6e-9]
  loads: [1.0e-15, 8.0e-15]
  constraint:
    max_offset: 1.0e-9
    resolution: 2.0e-12
cells:
  - name: INVX1
    netlist: cells/invx1.sp
    instance: "X0 A Y VDD VSS INVX1"
    area: 1.064
    inputs: [A]
    outputs: [Y]
    functions:
      Y: "!A"
  - name: DFFX1
    netlist: cells/dffx1.sp
    instance: "X0 D CLK Q VDD VSS DFFX1"
    inputs: [D]
    outputs: [Q]
    clock: CLK
    slews: [0.2e-9, 0.8e-9]
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse("test.yml", []byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "demo_lib", cfg.Name)
	assert.Equal(t, 3.3, cfg.Conditions.Vdd)
	assert.Equal(t, 27.0, cfg.Conditions.Temperature)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "ngspice", cfg.Simulator.Kind)

	// Absent thresholds take characterization defaults.
	assert.Equal(t, 0.2, cfg.Conditions.LogicThresholdLow)
	assert.Equal(t, 0.8, cfg.Conditions.LogicThresholdHigh)
	assert.Equal(t, 0.5, cfg.Conditions.LogicLowToHigh)
	assert.Equal(t, 0.01, cfg.Conditions.EnergyMeasLow)

	require.Len(t, cfg.Cells, 2)
	assert.Equal(t, []float64{0.1e-9, 0.4e-9, 1.6e-9}, cfg.Sweep.Slews)
	assert.Equal(t, model.DefaultDegradationFactor, cfg.Sweep.Constraint.DegradationFactor)
}

func TestParse_CellRoles(t *testing.T) {
	cfg, err := Parse("test.yml", []byte(validDoc))
	require.NoError(t, err)

	inv, ok := cfg.Cell("INVX1")
	require.True(t, ok)
	assert.Equal(t, model.Combinational, inv.Behavior)
	pin, ok := inv.FindPin("A")
	require.True(t, ok)
	assert.Equal(t, model.RoleNone, pin.Role)

	dff, ok := cfg.Cell("DFFX1")
	require.True(t, ok)
	assert.Equal(t, model.Sequential, dff.Behavior)
	clock, ok := dff.Clock()
	require.True(t, ok)
	assert.Equal(t, "CLK", clock.Name)
	data, ok := dff.FindPin("D")
	require.True(t, ok)
	assert.Equal(t, model.RoleData, data.Role)
}

func TestParse_SweepOverride(t *testing.T) {
	cfg, err := Parse("test.yml", []byte(validDoc))
	require.NoError(t, err)

	base := cfg.SweepFor("INVX1")
	assert.Equal(t, []float64{0.1e-9, 0.4e-9, 1.6e-9}, base.Slews)

	override := cfg.SweepFor("DFFX1")
	assert.Equal(t, []float64{0.2e-9, 0.8e-9}, override.Slews)
	assert.Equal(t, base.Loads, override.Loads, "loads fall back to the library sweep")
	assert.Equal(t, base.Constraint, override.Constraint)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	doc := `
library:
  name: x
  vdd: 1.0
  voltage: 1.0
sweep:
  slews: [1.0e-9]
  loads: [1.0e-15]
cells: []
`
	_, err := Parse("test.yml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voltage", "unknown field is named")
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  string
		wantSub string
	}{
		{
			name: "negative vdd",
			mutate: `
library: {name: x, vdd: -1.0}
sweep: {slews: [1.0e-9], loads: [1.0e-15]}
cells: [{name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {Y: A}}]
`,
			wantSub: "vdd",
		},
		{
			name: "unknown simulator kind",
			mutate: `
library: {name: x, vdd: 1.0, simulator: {kind: spectre}}
sweep: {slews: [1.0e-9], loads: [1.0e-15]}
cells: [{name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {Y: A}}]
`,
			wantSub: "kind",
		},
		{
			name: "empty cell list",
			mutate: `
library: {name: x, vdd: 1.0}
sweep: {slews: [1.0e-9], loads: [1.0e-15]}
cells: []
`,
			wantSub: "cells",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.yml", []byte(tt.mutate))
			require.Error(t, err)
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Details, tt.wantSub)
		})
	}
}

func TestParse_SweepOrdering(t *testing.T) {
	doc := `
library: {name: x, vdd: 1.0}
sweep: {slews: [0.4e-9, 0.1e-9], loads: [1.0e-15]}
cells: [{name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {Y: A}}]
`
	_, err := Parse("test.yml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ascending")
}

func TestParse_FunctionErrors(t *testing.T) {
	tests := []struct {
		name    string
		cells   string
		wantSub string
	}{
		{
			name:    "unknown pin reference",
			cells:   `[{name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {Y: "A&B"}}]`,
			wantSub: "unknown input B",
		},
		{
			name:    "function on input pin",
			cells:   `[{name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {A: "Y", Y: "A"}}]`,
			wantSub: "not an output",
		},
		{
			name:    "combinational output without function",
			cells:   `[{name: c, netlist: n, instance: i, inputs: [A], outputs: [Y]}]`,
			wantSub: "no function",
		},
		{
			name:    "duplicate pin",
			cells:   `[{name: c, netlist: n, instance: i, inputs: [A, A], outputs: [Y], functions: {Y: "A"}}]`,
			wantSub: "duplicate pin A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `
library: {name: x, vdd: 1.0}
sweep: {slews: [1.0e-9], loads: [1.0e-15]}
cells: ` + tt.cells
			_, err := Parse("test.yml", []byte(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSub)
		})
	}
}

func TestParse_DuplicateCell(t *testing.T) {
	doc := `
library: {name: x, vdd: 1.0}
sweep: {slews: [1.0e-9], loads: [1.0e-15]}
cells:
  - {name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {Y: A}}
  - {name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {Y: A}}
`
	_, err := Parse("test.yml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate cell c")
}

func TestParse_ConstraintValidation(t *testing.T) {
	doc := `
library: {name: x, vdd: 1.0}
sweep:
  slews: [1.0e-9]
  loads: [1.0e-15]
  constraint: {max_offset: 1.0e-9, resolution: 2.0e-12, min_offset: 2.0e-9}
cells: [{name: c, netlist: n, instance: i, inputs: [A], outputs: [Y], functions: {Y: A}}]
`
	_, err := Parse("test.yml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_offset")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("does/not/exist.yml")
	require.Error(t, err)
}
