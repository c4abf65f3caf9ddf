package testutil

import (
	"context"
	"math"
	"sync"

	"github.com/ejcamacho11/CharLib/internal/spice"
	"github.com/ejcamacho11/CharLib/internal/stimulus"
	"github.com/ejcamacho11/CharLib/internal/waveform"
)

// FakeSimulator answers decks in-process with a first-order RC
// response model, reading the structured stimulus description instead
// of parsing SPICE text.
//
// The model keeps every monotonicity the engine relies on: delay grows
// with input ramp and output load, and constraint probes degrade as the
// data edge crowds the clock edge. Absolute numbers are synthetic.
type FakeSimulator struct {
	// Response model coefficients.
	BaseDelay  float64 // intrinsic delay, seconds
	SlewFactor float64 // delay per second of input ramp
	LoadFactor float64 // delay per farad of output load

	BaseTransition float64 // intrinsic output transition
	TransLoad      float64 // transition per farad of load

	InternalCap float64 // switched internal capacitance, farads
	InputCap    float64 // modeled input pin capacitance, farads
	LeakCurrent float64 // rail leakage magnitude, amps

	// CriticalWindow is the data-to-clock separation below which a
	// constraint probe degrades. Separations under half the window fail
	// to capture at all, so the output measure goes missing.
	CriticalWindow float64

	// DeadNodes lists output nodes that never switch; their timing
	// measures are omitted from results.
	DeadNodes map[string]bool

	// TransientFailures maps deck names to a count of convergence
	// failures to report before succeeding.
	TransientFailures map[string]int

	mu   sync.Mutex
	runs []string // deck names in arrival order
}

// NewFakeSimulator returns a fake with plausible 1V-library defaults.
func NewFakeSimulator() *FakeSimulator {
	return &FakeSimulator{
		BaseDelay:      20e-12,
		SlewFactor:     0.25,
		LoadFactor:     2e3, // 2ps per fF
		BaseTransition: 15e-12,
		TransLoad:      3e3,
		InternalCap:    2e-15,
		InputCap:       3e-15,
		LeakCurrent:    1e-12,
		CriticalWindow: 50e-12,
	}
}

func (f *FakeSimulator) Name() string { return "fake" }

// Runs returns the deck names simulated so far, in arrival order.
func (f *FakeSimulator) Runs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

// Run evaluates the deck against the RC model.
func (f *FakeSimulator) Run(ctx context.Context, deck spice.Deck) (spice.Result, error) {
	if err := ctx.Err(); err != nil {
		return spice.Result{}, err
	}

	f.mu.Lock()
	f.runs = append(f.runs, deck.Name)
	if n := f.TransientFailures[deck.Name]; n > 0 {
		f.TransientFailures[deck.Name] = n - 1
		f.mu.Unlock()
		return spice.Result{}, &spice.SimError{
			Tool: "fake", Deck: deck.Name,
			Detail: "timestep too small", Transient: true,
		}
	}
	f.mu.Unlock()

	stim := deck.Stimulus
	ramp, clock := splitSources(stim)
	if ramp == nil {
		return spice.Result{}, &spice.SimError{
			Tool: "fake", Deck: deck.Name, Detail: "no toggling source in stimulus",
		}
	}

	load := 0.0
	outNode := ""
	if len(stim.Loads) > 0 {
		load = stim.Loads[0].Cap
		outNode = stim.Loads[0].Node
	}

	measures := make(map[string]float64)
	f.leakage(measures)

	delay := f.BaseDelay + f.SlewFactor*ramp.Ramp + f.LoadFactor*load
	transition := f.BaseTransition + f.TransLoad*load
	captured := true

	if clock != nil {
		// Constraint probe: judge the data-to-clock separation.
		sep := math.Abs(clock.Start - ramp.Start)
		switch {
		case sep >= f.CriticalWindow:
			// Clean capture at nominal delay.
		case sep >= f.CriticalWindow/2:
			delay *= 1.5 // degraded, above any sane threshold
		default:
			captured = false
		}
		// The judged edge is the clock's.
		ramp = clock
	}

	if f.DeadNodes[outNode] {
		captured = false
	}

	if captured {
		edgeMid := ramp.Start + ramp.Ramp/2
		measures[stimulus.MeasDelay] = delay
		measures[stimulus.MeasTransition] = transition
		measures[stimulus.MeasEnergyStart] = ramp.Start
		measures[stimulus.MeasEnergyEnd] = edgeMid + delay + transition
		f.charges(measures, load, stim)
	}

	return spice.Result{
		Measures: measures,
		Traces:   f.traces(stim, ramp, delay, transition, outNode, captured),
	}, nil
}

func (f *FakeSimulator) leakage(measures map[string]float64) {
	measures[stimulus.MeasIVddLeak] = -f.LeakCurrent
	measures[stimulus.MeasIVssLeak] = f.LeakCurrent
}

func (f *FakeSimulator) charges(measures map[string]float64, load float64, stim spice.Stimulus) {
	swing := stim.Vdd - stim.Vss
	q := (load + f.InternalCap) * swing
	measures[stimulus.MeasQVdd] = -q
	measures[stimulus.MeasQVss] = q
	measures[stimulus.MeasQIn] = -f.InputCap * swing
}

// traces synthesizes input and output waveforms so trace consumers
// (plotting, waveform tests) have something shaped like a real run.
func (f *FakeSimulator) traces(stim spice.Stimulus, edge *spice.Source, delay, transition float64, outNode string, captured bool) map[string]*waveform.Series {
	traces := make(map[string]*waveform.Series)
	for i := range stim.Sources {
		src := &stim.Sources[i]
		traces[src.Node] = pwlSeries(src.Node, src.Level0, src.Level1, src.Start, src.Ramp, stim.Stop)
	}
	if outNode == "" {
		return traces
	}

	outFrom, outTo := stim.Vdd, stim.Vss
	if edge.Level1 < edge.Level0 {
		outFrom, outTo = stim.Vss, stim.Vdd
	}
	if !captured {
		traces[outNode] = pwlSeries(outNode, outFrom, outFrom, 0, stim.Stop, stim.Stop)
		return traces
	}
	start := edge.Start + edge.Ramp/2 + delay - transition/2
	traces[outNode] = pwlSeries(outNode, outFrom, outTo, start, transition, stim.Stop)
	return traces
}

func pwlSeries(node string, from, to, start, ramp, stop float64) *waveform.Series {
	return &waveform.Series{
		Name: node,
		T:    []float64{0, start, start + ramp, stop},
		V:    []float64{from, from, to, to},
	}
}

// splitSources picks the toggling ramp and the clock pulse out of a
// stimulus, ignoring DC holds.
func splitSources(stim spice.Stimulus) (ramp, clock *spice.Source) {
	for i := range stim.Sources {
		src := &stim.Sources[i]
		switch src.Kind {
		case spice.SourceRamp:
			ramp = src
		case spice.SourceClock:
			clock = src
		}
	}
	return ramp, clock
}
