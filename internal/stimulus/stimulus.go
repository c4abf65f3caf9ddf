// Package stimulus renders simulation decks for timing and energy
// trials: a delay deck toggles the related pin through its sensitizing
// assignment and measures the output response, a constraint deck adds a
// clock pulse and probes one data-to-clock offset, and an energy deck
// re-runs a measured trial integrating supply charge over the switching
// window found by the first pass.
package stimulus

import (
	"fmt"
	"math"
	"strings"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/spice"
)

// Measure names emitted by the decks. The engine reads results back
// under these keys.
const (
	MeasDelay       = "prop_in_out"
	MeasTransition  = "trans_out"
	MeasEnergyStart = "t_energy_start"
	MeasEnergyEnd   = "t_energy_end"
	MeasQVdd        = "q_vdd_dyn"
	MeasQVss        = "q_vss_dyn"
	MeasQIn         = "q_in_dyn"
	MeasIVddLeak    = "i_vdd_leak"
	MeasIVssLeak    = "i_vss_leak"
)

// Rail node names used in instance lines and rendered decks.
const (
	NodeVdd = "vdd"
	NodeVss = "vss"
	NodeVnw = "vnw"
	NodeVpw = "vpw"
)

// EnergyWindow bounds the second-pass charge integration, taken from
// the first pass's t_energy_start/t_energy_end measures.
type EnergyWindow struct {
	Start float64
	End   float64
}

// Builder renders decks under one set of library conditions.
type Builder struct {
	Conditions model.Conditions

	// TimeStep is the suggested transient output step. Zero picks a
	// step of ramp/50.
	TimeStep float64
	// SettleCycles is how many ramp durations of quiet time precede the
	// stimulus edge, letting internal nodes reach DC. Zero means 4.
	SettleCycles float64
	// HorizonCycles is how many ramp durations of response time follow
	// the stimulus edge. Zero means 16.
	HorizonCycles float64
}

func (b *Builder) settle() float64 {
	if b.SettleCycles > 0 {
		return b.SettleCycles
	}
	return 4
}

func (b *Builder) horizon() float64 {
	if b.HorizonCycles > 0 {
		return b.HorizonCycles
	}
	return 16
}

// timeline derives the stimulus schedule for one corner: the full ramp
// duration of the input source, the edge start time, and the transient
// end time.
func (b *Builder) timeline(corner model.Corner) (ramp, start, stop float64) {
	ramp = corner.Slew * b.Conditions.SlewScale()
	start = b.settle() * ramp
	stop = start + ramp + b.horizon()*ramp
	return ramp, start, stop
}

func (b *Builder) step(ramp float64) float64 {
	if b.TimeStep > 0 {
		return b.TimeStep
	}
	return ramp / 50
}

// pinLevel maps a logic level to its rail voltage.
func (b *Builder) pinLevel(high bool) float64 {
	if high {
		return b.Conditions.Vdd
	}
	return b.Conditions.Vss
}

// BuildDelay renders the first-pass deck for a delay arc: timing
// measures, the energy window probes for the second pass, and the
// pre-edge leakage averages.
func (b *Builder) BuildDelay(cell *model.Cell, arc model.TimingArc, corner model.Corner) (spice.Deck, error) {
	ramp, start, stop := b.timeline(corner)

	d := newDeckWriter(b, cell, corner, stop, b.step(ramp))
	d.name = deckName(cell, arc, corner, "delay")

	if err := d.driveStable(arc.Sens.Stable); err != nil {
		return spice.Deck{}, err
	}
	d.ramp(arc.Related, arc.Sens.InputEdge, start, ramp)
	d.load(arc.Output, corner.Load)

	b.measureDelay(d, arc.Related, arc.Sens.InputEdge, arc.Output, arc.Sens.OutputEdge)
	b.measureEnergyWindow(d, arc.Related, arc.Sens.InputEdge, arc.Output, arc.Sens.OutputEdge)
	b.measureLeakage(d, start)

	return d.finish()
}

// BuildEnergy renders the second-pass deck: the same stimulus as the
// delay deck with charge integrals over the window the first pass
// found.
func (b *Builder) BuildEnergy(cell *model.Cell, arc model.TimingArc, corner model.Corner, window EnergyWindow) (spice.Deck, error) {
	ramp, start, stop := b.timeline(corner)
	if window.End <= window.Start {
		return spice.Deck{}, fmt.Errorf("cell %s arc %s: empty energy window [%g, %g]",
			cell.Name, arc, window.Start, window.End)
	}

	d := newDeckWriter(b, cell, corner, stop, b.step(ramp))
	d.name = deckName(cell, arc, corner, "energy")

	if err := d.driveStable(arc.Sens.Stable); err != nil {
		return spice.Deck{}, err
	}
	d.ramp(arc.Related, arc.Sens.InputEdge, start, ramp)
	d.load(arc.Output, corner.Load)

	end := window.Start + (window.End-window.Start)*b.Conditions.EnergyTimeExtent
	if end > stop {
		end = stop
	}
	d.measure(MeasQVdd, fmt.Sprintf("integ i(v%s) from=%.6g to=%.6g", NodeVdd, window.Start, end))
	d.measure(MeasQVss, fmt.Sprintf("integ i(v%s) from=%.6g to=%.6g", NodeVss, window.Start, end))
	d.measure(MeasQIn, fmt.Sprintf("integ i(v%s) from=%.6g to=%.6g",
		strings.ToLower(arc.Related), window.Start, end))
	b.measureLeakage(d, start)

	return d.finish()
}

// BuildConstraint renders a setup/hold probe deck: the clock fires a
// single active edge, the data pin toggles at the corner's offset from
// it, and the clock-to-output delay is measured to judge whether the
// cell still captured cleanly.
//
// Offset sign convention: positive offsets are safe. For setup arcs the
// data edge leads the clock edge by the offset; for hold arcs it trails
// it.
func (b *Builder) BuildConstraint(cell *model.Cell, arc model.TimingArc, corner model.Corner) (spice.Deck, error) {
	clock, ok := cell.Clock()
	if !ok {
		return spice.Deck{}, fmt.Errorf("cell %s: constraint arc %s without a clock pin", cell.Name, arc)
	}

	ramp, start, stop := b.timeline(corner)
	// Put the clock edge late enough that the probed offset keeps the
	// data edge past the DC settle window. The window widens with the
	// offset, so the rendered separation is always exactly the probed
	// one.
	clockEdge := start + b.horizon()*ramp/2
	if need := start + math.Abs(corner.Offset); clockEdge < need {
		clockEdge = need
	}
	stop = clockEdge + b.horizon()*ramp

	var dataEdge float64
	switch arc.Kind {
	case model.ArcSetup, model.ArcRecovery:
		dataEdge = clockEdge - corner.Offset
	case model.ArcHold, model.ArcRemoval:
		dataEdge = clockEdge + corner.Offset
	default:
		return spice.Deck{}, fmt.Errorf("cell %s: arc %s is not a constraint arc", cell.Name, arc)
	}

	d := newDeckWriter(b, cell, corner, stop, b.step(ramp))
	d.name = deckName(cell, arc, corner, "constraint")

	if err := d.driveStable(arc.Sens.Stable); err != nil {
		return spice.Deck{}, err
	}
	d.clockPulse(clock.Name, clockEdge, ramp, stop)
	d.ramp(arc.Related, arc.Sens.InputEdge, dataEdge, ramp)
	d.load(arc.Output, corner.Load)

	b.measureDelay(d, clock.Name, model.Rise, arc.Output, arc.Sens.OutputEdge)
	b.measureEnergyWindow(d, clock.Name, model.Rise, arc.Output, arc.Sens.OutputEdge)
	b.measureLeakage(d, dataEdge)

	return d.finish()
}

func (b *Builder) measureDelay(d *deckWriter, in string, inEdge model.Edge, out string, outEdge model.Edge) {
	inLevel := b.Conditions.RiseDelayLevel()
	if inEdge == model.Fall {
		inLevel = b.Conditions.FallDelayLevel()
	}
	outLevel := b.Conditions.RiseDelayLevel()
	if outEdge == model.Fall {
		outLevel = b.Conditions.FallDelayLevel()
	}
	d.measure(MeasDelay, fmt.Sprintf("trig v(%s) val=%.6g %s=1 targ v(%s) val=%.6g %s=1",
		strings.ToLower(in), inLevel, crossDir(inEdge),
		strings.ToLower(out), outLevel, crossDir(outEdge)))

	low, high := b.Conditions.SlewLevels()
	first, second := low, high
	if outEdge == model.Fall {
		first, second = high, low
	}
	d.measure(MeasTransition, fmt.Sprintf("trig v(%s) val=%.6g %s=1 targ v(%s) val=%.6g %s=1",
		strings.ToLower(out), first, crossDir(outEdge),
		strings.ToLower(out), second, crossDir(outEdge)))
}

// measureEnergyWindow probes the switching window for the second pass:
// it opens when the input leaves its initial rail and closes when the
// output settles at its final one.
func (b *Builder) measureEnergyWindow(d *deckWriter, in string, inEdge model.Edge, out string, outEdge model.Edge) {
	span := b.Conditions.Vdd - b.Conditions.Vss
	startLevel := b.Conditions.Vss + b.Conditions.EnergyMeasLow*span
	endLevel := b.Conditions.Vss + b.Conditions.EnergyMeasHigh*span
	if inEdge == model.Fall {
		startLevel = b.Conditions.Vss + (1-b.Conditions.EnergyMeasLow)*span
	}
	if outEdge == model.Fall {
		endLevel = b.Conditions.Vss + (1-b.Conditions.EnergyMeasHigh)*span
	}
	d.measure(MeasEnergyStart, fmt.Sprintf("when v(%s)=%.6g %s=1",
		strings.ToLower(in), startLevel, crossDir(inEdge)))
	d.measure(MeasEnergyEnd, fmt.Sprintf("when v(%s)=%.6g %s=1",
		strings.ToLower(out), endLevel, crossDir(outEdge)))
}

// measureLeakage averages the supply currents over the quiet half of
// the settle period, before any stimulus edge.
func (b *Builder) measureLeakage(d *deckWriter, edgeStart float64) {
	from := edgeStart * 0.25
	to := edgeStart * 0.75
	d.measure(MeasIVddLeak, fmt.Sprintf("avg i(v%s) from=%.6g to=%.6g", NodeVdd, from, to))
	d.measure(MeasIVssLeak, fmt.Sprintf("avg i(v%s) from=%.6g to=%.6g", NodeVss, from, to))
}

func crossDir(e model.Edge) string {
	if e == model.Rise {
		return "rise"
	}
	return "fall"
}

func deckName(cell *model.Cell, arc model.TimingArc, corner model.Corner, kind string) string {
	return fmt.Sprintf("%s_arc%d_%s_%s", strings.ToLower(cell.Name), arc.ID, kind,
		strings.ToLower(corner.Key()[:8]))
}
