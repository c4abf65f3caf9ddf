package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/spice"
	"github.com/ejcamacho11/CharLib/internal/stimulus"
	"github.com/ejcamacho11/CharLib/internal/waveform"
)

// measureDelay runs the two-pass measurement for one delay-arc corner.
//
// Pass one runs the timing deck: propagation delay, output transition,
// leakage averages, and the switching window the energy pass will
// integrate over. Pass two re-runs the identical stimulus with charge
// integrals over that window.
func (e *Engine) measureDelay(ctx context.Context, cell *model.Cell, arc model.TimingArc, corner model.Corner) (model.Measurement, error) {
	deck, err := e.builder.BuildDelay(cell, arc, corner)
	if err != nil {
		return model.Measurement{}, err
	}
	timing, err := e.runDeck(ctx, deck)
	if err != nil {
		return model.Measurement{}, err
	}

	nodes := arcNodes{
		In: arc.Related, InEdge: arc.Sens.InputEdge,
		Out: arc.Output, OutEdge: arc.Sens.OutputEdge,
	}
	delay, err := e.resolveMeasure(timing, stimulus.MeasDelay, nodes, cell, arc)
	if err != nil {
		return model.Measurement{}, err
	}
	transition, err := e.resolveMeasure(timing, stimulus.MeasTransition, nodes, cell, arc)
	if err != nil {
		return model.Measurement{}, err
	}
	winStart, err := e.resolveMeasure(timing, stimulus.MeasEnergyStart, nodes, cell, arc)
	if err != nil {
		return model.Measurement{}, err
	}
	winEnd, err := e.resolveMeasure(timing, stimulus.MeasEnergyEnd, nodes, cell, arc)
	if err != nil {
		return model.Measurement{}, err
	}
	iVddLeak, _ := timing.Measure(stimulus.MeasIVddLeak)
	iVssLeak, _ := timing.Measure(stimulus.MeasIVssLeak)

	energyDeck, err := e.builder.BuildEnergy(cell, arc, corner,
		stimulus.EnergyWindow{Start: winStart, End: winEnd})
	if err != nil {
		return model.Measurement{}, err
	}
	energy, err := e.runDeck(ctx, energyDeck)
	if err != nil {
		return model.Measurement{}, err
	}
	qVdd, _ := energy.Measure(stimulus.MeasQVdd)
	qVss, _ := energy.Measure(stimulus.MeasQVss)
	qIn, _ := energy.Measure(stimulus.MeasQIn)

	c := e.builder.Conditions
	leak := leakagePower(iVddLeak, iVssLeak, c.Vdd)
	window := (winEnd - winStart) * c.EnergyTimeExtent

	return model.Measurement{
		Status:           model.Measured,
		Delay:            delay,
		Transition:       transition,
		InternalEnergy:   internalEnergy(qVdd, qVss, leak, window, c.Vdd),
		InputCapacitance: inputCapacitance(qIn, c.Vdd),
		LeakagePower:     leak,
	}, nil
}

// measureConstraint searches the converged setup/hold offset for one
// (slew, load) corner of a constraint arc.
//
// The nominal clock-to-output delay is taken at the safest offset (the
// search ceiling); a probe passes while its delay stays at or below
// nominal times the degradation factor. The converged measurement keeps
// the nominal delay alongside the offset.
func (e *Engine) measureConstraint(ctx context.Context, cell *model.Cell, arc model.TimingArc, corner model.Corner) (model.Measurement, error) {
	spec := e.sweep.Constraint
	factor := spec.DegradationFactor
	if factor <= 0 {
		factor = model.DefaultDegradationFactor
	}

	nominal, err := e.constraintDelay(ctx, cell, arc, corner.WithOffset(spec.MaxOffset))
	if err != nil {
		if IsThresholdNotFound(err) {
			// Even the safest probed offset failed to capture; no offset
			// in range can converge.
			return model.Measurement{}, NewNoConvergenceError(cell.Name, arc.String(), spec.MinOffset, spec.MaxOffset)
		}
		return model.Measurement{}, err
	}
	threshold := nominal * factor

	probe := func(offset float64) (bool, error) {
		delay, err := e.constraintDelay(ctx, cell, arc, corner.WithOffset(offset))
		if err != nil {
			if IsThresholdNotFound(err) {
				// Output never switched: the capture failed outright.
				return false, nil
			}
			return false, err
		}
		return delay <= threshold, nil
	}

	result, ok, err := Bisect(spec.MinOffset, spec.MaxOffset, spec.Resolution, probe)
	if err != nil {
		return model.Measurement{}, err
	}
	if !ok {
		return model.Measurement{}, NewNoConvergenceError(cell.Name, arc.String(), spec.MinOffset, spec.MaxOffset)
	}

	return model.Measurement{
		Status:     model.Measured,
		Delay:      nominal,
		Constraint: result.Offset,
		Pass:       true,
	}, nil
}

// constraintDelay runs one constraint probe deck and returns its
// clock-to-output delay.
func (e *Engine) constraintDelay(ctx context.Context, cell *model.Cell, arc model.TimingArc, corner model.Corner) (float64, error) {
	deck, err := e.builder.BuildConstraint(cell, arc, corner)
	if err != nil {
		return 0, err
	}
	res, err := e.runDeck(ctx, deck)
	if err != nil {
		return 0, err
	}
	clock, _ := cell.Clock() // BuildConstraint already demanded one
	nodes := arcNodes{
		In: clock.Name, InEdge: model.Rise,
		Out: arc.Output, OutEdge: arc.Sens.OutputEdge,
	}
	return e.resolveMeasure(res, stimulus.MeasDelay, nodes, cell, arc)
}

// internalEnergy converts the integrated supply charge into switching
// energy. The smaller of the two rail charges is the one that actually
// moved through the switching transistors; the leakage drawn over the
// integration window is subtracted so slow corners do not inflate the
// energy figure.
func internalEnergy(qVdd, qVss, leakPower, window, vdd float64) float64 {
	if vdd == 0 {
		return 0
	}
	q := math.Min(math.Abs(qVdd), math.Abs(qVss))
	energy := q*vdd - leakPower*window
	if energy < 0 {
		return 0
	}
	return energy
}

// inputCapacitance estimates the driven pin's capacitance from the
// charge the input source delivered across a full swing.
func inputCapacitance(qIn, vdd float64) float64 {
	if vdd == 0 {
		return 0
	}
	return math.Abs(qIn) / vdd
}

// leakagePower averages the two rail leakage currents at the supply
// voltage.
func leakagePower(iVdd, iVss, vdd float64) float64 {
	return (math.Abs(iVdd) + math.Abs(iVss)) / 2 * vdd
}

// arcNodes identifies the stimulus and response waveforms a trace
// extraction reads: the toggling input (the clock, for constraint
// probes) and the measured output, each with its expected edge.
type arcNodes struct {
	In      string
	InEdge  model.Edge
	Out     string
	OutEdge model.Edge
}

// resolveMeasure returns the named timing figure, preferring the
// simulator's own measure result and deriving it from the raw traces
// when the deck ran without measure evaluation. A figure available
// neither way maps onto the threshold failure it almost always is: the
// probed signal never reached the level.
func (e *Engine) resolveMeasure(res spice.Result, name string, nodes arcNodes, cell *model.Cell, arc model.TimingArc) (float64, error) {
	if v, ok := res.Measure(name); ok {
		return v, nil
	}
	v, ok, err := e.extractFromTraces(res, name, nodes)
	if err != nil && !waveform.IsThresholdNotFound(err) {
		return 0, err
	}
	if err == nil && ok {
		return v, nil
	}
	msg := fmt.Sprintf("measure %s was not evaluated", name)
	if err != nil {
		msg = err.Error()
	}
	return 0, &RuntimeError{
		Code:    ErrCodeThresholdNotFound,
		Message: msg,
		Cell:    cell.Name,
		Arc:     arc.String(),
	}
}

// extractFromTraces computes one first-pass timing figure from the
// traced waveforms. ok=false reports that the result carries no traces
// for the arc's nodes, so there is nothing to fall back on.
func (e *Engine) extractFromTraces(res spice.Result, name string, nodes arcNodes) (float64, bool, error) {
	in, inOK := res.Trace(nodes.In)
	out, outOK := res.Trace(nodes.Out)
	if !inOK || !outOK {
		return 0, false, nil
	}
	c := e.builder.Conditions

	switch name {
	case stimulus.MeasDelay:
		inLevel := c.RiseDelayLevel()
		if nodes.InEdge == model.Fall {
			inLevel = c.FallDelayLevel()
		}
		outLevel := c.RiseDelayLevel()
		if nodes.OutEdge == model.Fall {
			outLevel = c.FallDelayLevel()
		}
		tIn, err := in.CrossTime(inLevel, nodes.InEdge, 0)
		if err != nil {
			return 0, true, err
		}
		tOut, err := out.CrossTime(outLevel, nodes.OutEdge, tIn)
		if err != nil {
			return 0, true, err
		}
		return tOut - tIn, true, nil

	case stimulus.MeasTransition:
		low, high := c.SlewLevels()
		first, second := low, high
		if nodes.OutEdge == model.Fall {
			first, second = high, low
		}
		t1, err := out.CrossTime(first, nodes.OutEdge, 0)
		if err != nil {
			return 0, true, err
		}
		t2, err := out.CrossTime(second, nodes.OutEdge, t1)
		if err != nil {
			return 0, true, err
		}
		return t2 - t1, true, nil

	case stimulus.MeasEnergyStart:
		t, err := in.CrossTime(energyLevel(c, c.EnergyMeasLow, nodes.InEdge), nodes.InEdge, 0)
		return t, true, err

	case stimulus.MeasEnergyEnd:
		t, err := out.CrossTime(energyLevel(c, c.EnergyMeasHigh, nodes.OutEdge), nodes.OutEdge, 0)
		return t, true, err
	}
	return 0, false, nil
}

// energyLevel mirrors the deck's switching-window probe levels: the
// fractional level counts from the edge's starting rail.
func energyLevel(c model.Conditions, frac float64, edge model.Edge) float64 {
	if edge == model.Fall {
		frac = 1 - frac
	}
	return c.Vss + frac*(c.Vdd-c.Vss)
}
