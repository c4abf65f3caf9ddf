package config

import (
	"fmt"
	"time"

	"github.com/ejcamacho11/CharLib/internal/engine"
	"github.com/ejcamacho11/CharLib/internal/expr"
	"github.com/ejcamacho11/CharLib/internal/model"
)

// Characterization defaults applied to absent optional fields. The
// threshold values are the conventional 20/80 slew window and 50%
// delay midpoints.
const (
	defaultThresholdLow  = 0.2
	defaultThresholdHigh = 0.8
	defaultMidpoint      = 0.5
	defaultEnergyLow     = 0.01
	defaultEnergyHigh    = 0.99
	defaultEnergyExtent  = 1.0
	defaultTemperature   = 25.0
	defaultTimeout       = 2 * time.Minute
)

func build(path string, doc *Document) (*Config, error) {
	lib := doc.Library

	timeout := defaultTimeout
	if lib.Timeout != "" {
		d, err := time.ParseDuration(lib.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config %s: library.timeout: %w", path, err)
		}
		timeout = d
	}

	cfg := &Config{
		Name:       lib.Name,
		Conditions: buildConditions(lib),
		Simulator:  lib.Simulator,
		Workers:    orInt(lib.Workers, engine.DefaultWorkers),
		Retries:    orInt(lib.Retries, engine.DefaultMaxAttempts),
		Timeout:    timeout,
		cellSweeps: make(map[string]model.Sweep),
	}

	sweep, err := buildSweep(doc.Sweep.Slews, doc.Sweep.Loads, doc.Sweep.Constraint)
	if err != nil {
		return nil, fmt.Errorf("config %s: sweep: %w", path, err)
	}
	cfg.Sweep = sweep

	parser, err := expr.NewParser()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(doc.Cells))
	for i := range doc.Cells {
		sect := &doc.Cells[i]
		if seen[sect.Name] {
			return nil, fmt.Errorf("config %s: duplicate cell %s", path, sect.Name)
		}
		seen[sect.Name] = true

		cell, err := buildCell(parser, sect)
		if err != nil {
			return nil, fmt.Errorf("config %s: cell %s: %w", path, sect.Name, err)
		}
		cfg.Cells = append(cfg.Cells, cell)

		if len(sect.Slews) > 0 || len(sect.Loads) > 0 {
			override, err := buildSweep(
				orFloats(sect.Slews, sweep.Slews),
				orFloats(sect.Loads, sweep.Loads),
				doc.Sweep.Constraint,
			)
			if err != nil {
				return nil, fmt.Errorf("config %s: cell %s sweep: %w", path, sect.Name, err)
			}
			cfg.cellSweeps[sect.Name] = override
		}
	}
	return cfg, nil
}

func buildConditions(lib LibrarySection) model.Conditions {
	return model.Conditions{
		Vdd:         lib.Vdd,
		Vss:         lib.Vss,
		Vnw:         lib.Vnw,
		Vpw:         lib.Vpw,
		Temperature: orFloat(lib.Temperature, defaultTemperature),

		LogicThresholdLow:  orFloat(lib.LogicThresholdLow, defaultThresholdLow),
		LogicThresholdHigh: orFloat(lib.LogicThresholdHigh, defaultThresholdHigh),
		LogicLowToHigh:     orFloat(lib.LogicLowToHigh, defaultMidpoint),
		LogicHighToLow:     orFloat(lib.LogicHighToLow, defaultMidpoint),

		EnergyMeasLow:    orFloat(lib.EnergyMeasLow, defaultEnergyLow),
		EnergyMeasHigh:   orFloat(lib.EnergyMeasHigh, defaultEnergyHigh),
		EnergyTimeExtent: orFloat(lib.EnergyTimeExtent, defaultEnergyExtent),
	}
}

func buildSweep(slews, loads []float64, spec ConstraintSection) (model.Sweep, error) {
	if len(slews) == 0 {
		return model.Sweep{}, fmt.Errorf("no slews configured")
	}
	if len(loads) == 0 {
		return model.Sweep{}, fmt.Errorf("no loads configured")
	}
	if err := ascending("slews", slews); err != nil {
		return model.Sweep{}, err
	}
	if err := ascending("loads", loads); err != nil {
		return model.Sweep{}, err
	}

	constraint := model.ConstraintSpec{
		MinOffset:         spec.MinOffset,
		MaxOffset:         spec.MaxOffset,
		Resolution:        spec.Resolution,
		DegradationFactor: orFloat(spec.DegradationFactor, model.DefaultDegradationFactor),
	}
	if constraint.MaxOffset > 0 {
		if constraint.Resolution <= 0 {
			return model.Sweep{}, fmt.Errorf("constraint search needs a positive resolution")
		}
		if constraint.MaxOffset <= constraint.MinOffset {
			return model.Sweep{}, fmt.Errorf("constraint max_offset %g must exceed min_offset %g",
				constraint.MaxOffset, constraint.MinOffset)
		}
	}
	return model.Sweep{Slews: slews, Loads: loads, Constraint: constraint}, nil
}

func buildCell(parser *expr.Parser, sect *CellSection) (*model.Cell, error) {
	sequential := sect.Clock != ""

	cell := &model.Cell{
		Name:      sect.Name,
		Netlist:   sect.Netlist,
		Model:     sect.Model,
		Instance:  sect.Instance,
		Area:      sect.Area,
		Functions: sect.Functions,
		Behavior:  model.Combinational,
	}
	if sequential {
		cell.Behavior = model.Sequential
	}

	names := make(map[string]bool)
	addPin := func(name string, dir model.PinDirection, role model.PinRole) error {
		if name == "" {
			return fmt.Errorf("empty pin name")
		}
		if names[name] {
			return fmt.Errorf("duplicate pin %s", name)
		}
		names[name] = true
		cell.Pins = append(cell.Pins, model.Pin{Name: name, Direction: dir, Role: role})
		return nil
	}

	inputRole := model.RoleNone
	if sequential {
		inputRole = model.RoleData
	}
	for _, in := range sect.Inputs {
		if err := addPin(in, model.DirectionInput, inputRole); err != nil {
			return nil, err
		}
	}
	if sequential {
		if err := addPin(sect.Clock, model.DirectionInput, model.RoleClock); err != nil {
			return nil, err
		}
	}
	if sect.Set != "" {
		if err := addPin(sect.Set, model.DirectionInput, model.RoleAsyncSet); err != nil {
			return nil, err
		}
	}
	if sect.Reset != "" {
		if err := addPin(sect.Reset, model.DirectionInput, model.RoleAsyncReset); err != nil {
			return nil, err
		}
	}
	for _, out := range sect.Outputs {
		if err := addPin(out, model.DirectionOutput, model.RoleNone); err != nil {
			return nil, err
		}
	}

	for output, fn := range sect.Functions {
		pin, ok := cell.FindPin(output)
		if !ok || pin.Direction != model.DirectionOutput {
			return nil, fmt.Errorf("function for %s, which is not an output", output)
		}
		parsed, err := parser.Parse(fn)
		if err != nil {
			return nil, fmt.Errorf("function %s=%q: %w", output, fn, err)
		}
		for _, ref := range parsed.Pins() {
			if p, ok := cell.FindPin(ref); !ok || p.Direction != model.DirectionInput {
				return nil, fmt.Errorf("function %s=%q references unknown input %s", output, fn, ref)
			}
		}
	}
	if cell.Behavior == model.Combinational {
		for _, out := range cell.Outputs() {
			if _, ok := cell.Function(out.Name); !ok {
				return nil, fmt.Errorf("combinational output %s has no function", out.Name)
			}
		}
	}
	return cell, nil
}

func ascending(name string, vals []float64) error {
	for i := 1; i < len(vals); i++ {
		if vals[i] <= vals[i-1] {
			return fmt.Errorf("%s must be strictly ascending, got %g after %g",
				name, vals[i], vals[i-1])
		}
	}
	return nil
}

func orFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orFloats(v, fallback []float64) []float64 {
	if len(v) == 0 {
		return fallback
	}
	return v
}
