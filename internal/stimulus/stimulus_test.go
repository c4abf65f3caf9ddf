package stimulus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/spice"
)

func testConditions() model.Conditions {
	return model.Conditions{
		Vdd: 3.3, Vss: 0, Vnw: 3.3, Vpw: 0,
		Temperature:        27,
		LogicThresholdLow:  0.2,
		LogicThresholdHigh: 0.8,
		LogicLowToHigh:     0.5,
		LogicHighToLow:     0.5,
		EnergyMeasLow:      0.01,
		EnergyMeasHigh:     0.99,
		EnergyTimeExtent:   1.2,
	}
}

func nandCell() *model.Cell {
	return &model.Cell{
		Name:     "NAND2X1",
		Netlist:  "cells/NAND2X1.sp",
		Model:    "models/gpdk.lib",
		Instance: "Xdut A B Y VDD VSS NAND2X1",
		Pins: []model.Pin{
			{Name: "A", Direction: model.DirectionInput},
			{Name: "B", Direction: model.DirectionInput},
			{Name: "Y", Direction: model.DirectionOutput},
		},
		Functions: map[string]string{"Y": "!(A&B)"},
		Behavior:  model.Combinational,
	}
}

func nandArc() model.TimingArc {
	return model.TimingArc{
		ID: 0, Cell: "NAND2X1", Related: "A", Output: "Y",
		Kind: model.ArcDelay, Sense: model.NegativeUnate,
		Sens: model.Sensitization{
			InputEdge:  model.Rise,
			OutputEdge: model.Fall,
			Stable:     []model.StableLevel{{Pin: "B", Level: true}},
		},
	}
}

func TestBuildDelay(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	corner := model.Corner{Slew: 1e-9, Load: 10e-15}

	deck, err := b.BuildDelay(nandCell(), nandArc(), corner)
	require.NoError(t, err)

	assert.Contains(t, deck.Netlist, `.include "models/gpdk.lib"`)
	assert.Contains(t, deck.Netlist, `.include "cells/NAND2X1.sp"`)
	assert.Contains(t, deck.Netlist, "Xdut A B Y VDD VSS NAND2X1")
	assert.Contains(t, deck.Netlist, "vb b 0 dc 3.3", "side input held high")
	assert.Contains(t, deck.Netlist, "cload y 0 1e-14")
	assert.Contains(t, deck.Netlist, ".end")

	// All expected measures declared exactly once in the netlist.
	for _, name := range []string{
		MeasDelay, MeasTransition, MeasEnergyStart, MeasEnergyEnd,
		MeasIVddLeak, MeasIVssLeak,
	} {
		assert.Contains(t, deck.Measures, name)
		assert.Equal(t, 1, strings.Count(deck.Netlist, ".measure tran "+name+" "))
	}

	// Rising input measured at the rising midpoint, falling output at
	// the falling midpoint.
	assert.Contains(t, deck.Netlist, "trig v(a) val=1.65 rise=1 targ v(y) val=1.65 fall=1")
}

func TestBuildDelay_RampScaledBySlewWindow(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	corner := model.Corner{Slew: 0.6e-9, Load: 5e-15}

	deck, err := b.BuildDelay(nandCell(), nandArc(), corner)
	require.NoError(t, err)

	// Thresholds at 20/80% mean the full rail-to-rail ramp is the table
	// slew divided by 0.6.
	var ramps []float64
	for _, src := range deck.Stimulus.Sources {
		if src.Node == "a" {
			ramps = append(ramps, src.Ramp)
		}
	}
	require.Len(t, ramps, 1)
	assert.InDelta(t, 1e-9, ramps[0], 1e-15)
}

func TestBuildDelay_StructuredMirror(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	corner := model.Corner{Slew: 1e-9, Load: 10e-15}

	deck, err := b.BuildDelay(nandCell(), nandArc(), corner)
	require.NoError(t, err)

	byNode := make(map[string]int)
	for _, src := range deck.Stimulus.Sources {
		byNode[src.Node]++
	}
	assert.Equal(t, 1, byNode["a"], "toggling pin driven once")
	assert.Equal(t, 1, byNode["b"], "stable pin driven once")

	require.Len(t, deck.Stimulus.Loads, 1)
	assert.Equal(t, "y", deck.Stimulus.Loads[0].Node)
	assert.Equal(t, 10e-15, deck.Stimulus.Loads[0].Cap)
	assert.Greater(t, deck.Stimulus.Stop, 0.0)
}

func TestBuildEnergy(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	corner := model.Corner{Slew: 1e-9, Load: 10e-15}

	deck, err := b.BuildEnergy(nandCell(), nandArc(), corner,
		EnergyWindow{Start: 4e-9, End: 6e-9})
	require.NoError(t, err)

	assert.Contains(t, deck.Measures, MeasQVdd)
	assert.Contains(t, deck.Measures, MeasQVss)
	assert.Contains(t, deck.Measures, MeasQIn)
	// Window end stretched by the configured extent: 4n + 2n*1.2.
	assert.Contains(t, deck.Netlist, "integ i(vvdd) from=4e-09 to=6.4e-09")
}

func TestBuildEnergy_EmptyWindow(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	_, err := b.BuildEnergy(nandCell(), nandArc(), model.Corner{Slew: 1e-9, Load: 1e-15},
		EnergyWindow{Start: 5e-9, End: 5e-9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty energy window")
}

func dffCell() *model.Cell {
	return &model.Cell{
		Name:     "DFFPOSX1",
		Netlist:  "cells/DFFPOSX1.sp",
		Model:    "models/gpdk.lib",
		Instance: "Xdut D CLK Q VDD VSS DFFPOSX1",
		Pins: []model.Pin{
			{Name: "D", Direction: model.DirectionInput, Role: model.RoleData},
			{Name: "CLK", Direction: model.DirectionInput, Role: model.RoleClock},
			{Name: "Q", Direction: model.DirectionOutput},
		},
		Behavior: model.Sequential,
	}
}

func setupArc() model.TimingArc {
	return model.TimingArc{
		ID: 2, Cell: "DFFPOSX1", Related: "D", Output: "Q",
		Kind: model.ArcSetup, Sense: model.NonUnate,
		Sens: model.Sensitization{InputEdge: model.Rise, OutputEdge: model.Rise},
	}
}

func TestBuildConstraint_SetupOffsetLeadsClock(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	corner := model.Corner{Slew: 1e-9, Load: 5e-15, Offset: 2e-9}

	deck, err := b.BuildConstraint(dffCell(), setupArc(), corner)
	require.NoError(t, err)

	var clockStart, dataStart float64
	for _, src := range deck.Stimulus.Sources {
		switch src.Node {
		case "clk":
			clockStart = src.Start
		case "d":
			dataStart = src.Start
		}
	}
	require.NotZero(t, clockStart)
	assert.InDelta(t, 2e-9, clockStart-dataStart, 1e-15, "setup: data leads clock by the offset")
	assert.Contains(t, deck.Measures, MeasDelay, "probe judged by clock-to-output delay")
}

func TestBuildConstraint_HoldOffsetTrailsClock(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	arc := setupArc()
	arc.Kind = model.ArcHold
	corner := model.Corner{Slew: 1e-9, Load: 5e-15, Offset: 2e-9}

	deck, err := b.BuildConstraint(dffCell(), arc, corner)
	require.NoError(t, err)

	var clockStart, dataStart float64
	for _, src := range deck.Stimulus.Sources {
		switch src.Node {
		case "clk":
			clockStart = src.Start
		case "d":
			dataStart = src.Start
		}
	}
	assert.InDelta(t, 2e-9, dataStart-clockStart, 1e-15, "hold: data trails clock by the offset")
}

func TestBuildConstraint_LargeOffsetWidensWindow(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	// An offset well past the default clock placement: the window must
	// stretch so the rendered separation stays exactly the probed one.
	corner := model.Corner{Slew: 1e-9, Load: 5e-15, Offset: 40e-9}

	deck, err := b.BuildConstraint(dffCell(), setupArc(), corner)
	require.NoError(t, err)

	var clock, data *spice.Source
	for i := range deck.Stimulus.Sources {
		src := &deck.Stimulus.Sources[i]
		switch src.Node {
		case "clk":
			clock = src
		case "d":
			data = src
		}
	}
	require.NotNil(t, clock)
	require.NotNil(t, data)
	assert.InDelta(t, 40e-9, clock.Start-data.Start, 1e-15, "separation never clamped")
	assert.GreaterOrEqual(t, data.Start, data.Ramp, "data edge waits out the settle window")
	assert.Greater(t, deck.Stimulus.Stop, clock.Start, "transient covers the shifted clock edge")
}

func TestBuildConstraint_DelayArcRejected(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	arc := setupArc()
	arc.Kind = model.ArcDelay

	_, err := b.BuildConstraint(dffCell(), arc, model.Corner{Slew: 1e-9, Load: 1e-15})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a constraint arc")
}

func TestBuild_InstanceMissingPin(t *testing.T) {
	cell := nandCell()
	cell.Instance = "Xdut A Y VDD VSS NAND2X1" // B dropped

	b := &Builder{Conditions: testConditions()}
	_, err := b.BuildDelay(cell, nandArc(), model.Corner{Slew: 1e-9, Load: 1e-15})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pin B missing from instance line")
}

func TestDeckName_Deterministic(t *testing.T) {
	b := &Builder{Conditions: testConditions()}
	corner := model.Corner{Slew: 1e-9, Load: 10e-15}

	d1, err := b.BuildDelay(nandCell(), nandArc(), corner)
	require.NoError(t, err)
	d2, err := b.BuildDelay(nandCell(), nandArc(), corner)
	require.NoError(t, err)
	assert.Equal(t, d1.Name, d2.Name)
	assert.Equal(t, d1.Netlist, d2.Netlist)
}
