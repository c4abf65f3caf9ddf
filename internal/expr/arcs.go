package expr

import (
	"errors"
	"fmt"

	"github.com/ejcamacho11/CharLib/internal/model"
)

// UnsensitizableArcError reports that no static assignment of the
// remaining inputs can activate a declared (related, output) path. This
// is detected by evaluating the pin function, never by simulating.
type UnsensitizableArcError struct {
	Cell    string
	Related string
	Output  string
}

func (e *UnsensitizableArcError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("cell %s: no output function sensitizes input %s",
			e.Cell, e.Related)
	}
	return fmt.Sprintf("cell %s: no static input assignment sensitizes %s -> %s",
		e.Cell, e.Related, e.Output)
}

// IsUnsensitizable reports whether err is an UnsensitizableArcError.
func IsUnsensitizable(err error) bool {
	var ue *UnsensitizableArcError
	return errors.As(err, &ue)
}

// Sensitize searches the static assignments of the side inputs for one
// under which toggling the target input toggles the output, and returns
// the sensitization for the given target edge. Enumeration order is
// deterministic (side inputs in the given order, counting up from all-
// zero), so repeated derivation yields identical arcs.
func Sensitize(fn *Expression, target string, edge model.Edge, side []string) (model.Sensitization, bool) {
	for n := 0; n < 1<<len(side); n++ {
		assign := make(map[string]bool, len(side)+1)
		stable := make([]model.StableLevel, len(side))
		for i, pin := range side {
			level := n&(1<<i) != 0
			assign[pin] = level
			stable[i] = model.StableLevel{Pin: pin, Level: level}
		}

		assign[target] = false
		out0, err := fn.Eval(assign)
		if err != nil {
			continue
		}
		assign[target] = true
		out1, err := fn.Eval(assign)
		if err != nil || out0 == out1 {
			continue
		}

		// The path is active under this assignment. Orient the output
		// edge by the requested input edge.
		before, after := out0, out1
		if edge == model.Fall {
			before, after = out1, out0
		}
		outEdge := model.Fall
		if !before && after {
			outEdge = model.Rise
		}
		return model.Sensitization{
			InputEdge:  edge,
			OutputEdge: outEdge,
			Stable:     stable,
		}, true
	}
	return model.Sensitization{}, false
}

// DeriveArcs derives the full timing arc set for a cell.
//
// Combinational cells get one delay arc per (input, output, input edge)
// with a sensitizing side-input assignment found by static evaluation.
// Each output only pairs with the inputs its function references, so a
// multi-output cell never demands arcs across unrelated paths. An input
// referenced by an output that cannot be sensitized on either edge, or
// an input no output function references at all, fails with
// UnsensitizableArcError. Unateness is judged per (input, output) pair
// from the two edge arcs.
//
// Sequential cells get clock-to-output delay arcs plus setup and hold
// constraint arcs per data pin edge, and recovery/removal arcs for any
// async set/reset pin.
func DeriveArcs(p *Parser, cell *model.Cell) ([]model.TimingArc, error) {
	if cell.Behavior == model.Sequential {
		return deriveSequentialArcs(cell), nil
	}
	return deriveCombinationalArcs(p, cell)
}

func deriveCombinationalArcs(p *Parser, cell *model.Cell) ([]model.TimingArc, error) {
	var arcs []model.TimingArc
	referenced := make(map[string]bool)

	for _, out := range cell.Outputs() {
		fnSrc, ok := cell.Function(out.Name)
		if !ok {
			return nil, fmt.Errorf("cell %s: output %s has no function", cell.Name, out.Name)
		}
		fn, err := p.Parse(fnSrc)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", cell.Name, err)
		}
		support := make(map[string]bool)
		for _, pin := range fn.Pins() {
			support[pin] = true
		}

		for _, in := range cell.Inputs() {
			if !support[in.Name] {
				continue
			}
			referenced[in.Name] = true
			side := sidePins(cell, in.Name)

			riseSens, riseOK := Sensitize(fn, in.Name, model.Rise, side)
			fallSens, fallOK := Sensitize(fn, in.Name, model.Fall, side)
			if !riseOK && !fallOK {
				return nil, &UnsensitizableArcError{
					Cell:    cell.Name,
					Related: in.Name,
					Output:  out.Name,
				}
			}

			sense := pairSense(riseSens, riseOK, fallSens, fallOK)
			if riseOK {
				arcs = append(arcs, model.TimingArc{
					ID: model.ArcID(len(arcs)), Cell: cell.Name,
					Related: in.Name, Output: out.Name,
					Kind: model.ArcDelay, Sense: sense, Sens: riseSens,
				})
			}
			if fallOK {
				arcs = append(arcs, model.TimingArc{
					ID: model.ArcID(len(arcs)), Cell: cell.Name,
					Related: in.Name, Output: out.Name,
					Kind: model.ArcDelay, Sense: sense, Sens: fallSens,
				})
			}
		}
	}

	// A declared input outside every output's support drives nothing,
	// which is a cell definition error, not an arc to skip.
	for _, in := range cell.Inputs() {
		if !referenced[in.Name] {
			return nil, &UnsensitizableArcError{Cell: cell.Name, Related: in.Name}
		}
	}
	return arcs, nil
}

// pairSense classifies unateness from the rise and fall arcs of one
// (input, output) pair.
func pairSense(rise model.Sensitization, riseOK bool, fall model.Sensitization, fallOK bool) model.Sense {
	if riseOK && fallOK {
		switch {
		case rise.OutputEdge == model.Rise && fall.OutputEdge == model.Fall:
			return model.PositiveUnate
		case rise.OutputEdge == model.Fall && fall.OutputEdge == model.Rise:
			return model.NegativeUnate
		default:
			return model.NonUnate
		}
	}
	return model.NonUnate
}

func sidePins(cell *model.Cell, target string) []string {
	var side []string
	for _, p := range cell.Inputs() {
		if p.Name != target {
			side = append(side, p.Name)
		}
	}
	return side
}

func deriveSequentialArcs(cell *model.Cell) []model.TimingArc {
	var arcs []model.TimingArc

	clock, hasClock := cell.Clock()
	if !hasClock {
		return nil
	}

	// Data pins held inactive for arcs that do not target them.
	holdLow := func(skip string) []model.StableLevel {
		var stable []model.StableLevel
		for _, p := range cell.Inputs() {
			if p.Name != skip {
				stable = append(stable, model.StableLevel{Pin: p.Name, Level: false})
			}
		}
		if set, ok := cell.AsyncSet(); ok && set.Name != skip {
			stable = append(stable, model.StableLevel{Pin: set.Name, Level: true}) // active-low inactive
		}
		if rst, ok := cell.AsyncReset(); ok && rst.Name != skip {
			stable = append(stable, model.StableLevel{Pin: rst.Name, Level: true})
		}
		return stable
	}

	add := func(related, output string, kind model.ArcKind, sense model.Sense, in, out model.Edge, skip string) {
		arcs = append(arcs, model.TimingArc{
			ID: model.ArcID(len(arcs)), Cell: cell.Name,
			Related: related, Output: output, Kind: kind, Sense: sense,
			Sens: model.Sensitization{
				InputEdge:  in,
				OutputEdge: out,
				Stable:     holdLow(skip),
			},
		})
	}

	for _, out := range cell.Outputs() {
		// Clock-to-output delay, both output directions off the active edge.
		add(clock.Name, out.Name, model.ArcDelay, model.NonUnate, model.Rise, model.Rise, clock.Name)
		add(clock.Name, out.Name, model.ArcDelay, model.NonUnate, model.Rise, model.Fall, clock.Name)

		for _, in := range cell.Inputs() {
			for _, edge := range []model.Edge{model.Rise, model.Fall} {
				add(in.Name, out.Name, model.ArcSetup, model.NonUnate, edge, edge, in.Name)
				add(in.Name, out.Name, model.ArcHold, model.NonUnate, edge, edge, in.Name)
			}
		}
		if set, ok := cell.AsyncSet(); ok {
			add(set.Name, out.Name, model.ArcRecovery, model.NonUnate, model.Rise, model.Rise, set.Name)
			add(set.Name, out.Name, model.ArcRemoval, model.NonUnate, model.Fall, model.Rise, set.Name)
		}
		if rst, ok := cell.AsyncReset(); ok {
			add(rst.Name, out.Name, model.ArcRecovery, model.NonUnate, model.Rise, model.Fall, rst.Name)
			add(rst.Name, out.Name, model.ArcRemoval, model.NonUnate, model.Fall, model.Fall, rst.Name)
		}
	}
	return arcs
}
