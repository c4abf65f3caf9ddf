// Package spice abstracts transistor-level simulation behind a single
// Run call. A Deck carries both the rendered netlist text fed to an
// external simulator binary and a structured description of the same
// stimulus, so in-process test simulators can respond without parsing
// SPICE syntax. External backends exist for ngspice and hspice.
package spice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ejcamacho11/CharLib/internal/waveform"
)

// SourceKind distinguishes the voltage sources a deck drives.
type SourceKind int

const (
	// SourceDC holds a node at a fixed level for the whole run.
	SourceDC SourceKind = iota + 1
	// SourceRamp drives a single linear transition from Level0 to
	// Level1, starting at Start and lasting Ramp seconds.
	SourceRamp
	// SourceClock drives a single pulse: inactive, active edge at
	// Start, inactive again at Start+Width. Edges last Ramp seconds.
	SourceClock
)

// Source is one voltage source in the structured stimulus description.
type Source struct {
	Node   string
	Kind   SourceKind
	Level0 float64 // initial level
	Level1 float64 // final (or active) level
	Start  float64 // transition start time
	Ramp   float64 // transition duration
	Width  float64 // active width, clock sources only
}

// Load is a capacitor from a node to ground.
type Load struct {
	Node string
	Cap  float64
}

// Stimulus is the structured mirror of the rendered netlist: every
// source, load, and rail the deck applies, plus the transient window.
type Stimulus struct {
	Sources []Source
	Loads   []Load
	Vdd     float64
	Vss     float64
	Stop    float64 // transient end time
	Step    float64 // suggested output timestep
}

// Deck is one complete simulation input. Netlist is the exact text an
// external simulator consumes; Stimulus describes the same run for
// in-process backends; Measures names every .measure result the caller
// expects back.
type Deck struct {
	Name     string
	Netlist  string
	Measures []string
	Probes   []string
	Stimulus Stimulus
}

// Result is one completed simulation: the scalar measure results plus
// the traced waveforms, keyed by lowercase node name.
type Result struct {
	Measures map[string]float64
	Traces   map[string]*waveform.Series
}

// Trace returns the named trace, case-insensitively.
func (r Result) Trace(node string) (*waveform.Series, bool) {
	s, ok := r.Traces[strings.ToLower(node)]
	return s, ok
}

// Measure returns the named measure result, case-insensitively.
func (r Result) Measure(name string) (float64, bool) {
	v, ok := r.Measures[strings.ToLower(name)]
	return v, ok
}

// Simulator runs one deck to completion. Implementations must honor
// context cancellation by killing the underlying process.
type Simulator interface {
	// Name identifies the backend in logs and error reports.
	Name() string
	// Run executes the deck and returns its measures and traces.
	Run(ctx context.Context, deck Deck) (Result, error)
}

// SimError reports a failed simulation. Transient holds whether the
// failure looks like a convergence problem worth retrying with the
// same deck, as opposed to a structural problem that will fail again.
type SimError struct {
	Tool      string
	Deck      string
	Detail    string
	Transient bool
}

func (e *SimError) Error() string {
	return fmt.Sprintf("%s: deck %s: %s", e.Tool, e.Deck, e.Detail)
}

// IsTransient reports whether err is a simulation failure worth
// retrying. Non-SimError failures are never transient.
func IsTransient(err error) bool {
	var se *SimError
	return errors.As(err, &se) && se.Transient
}

// convergencePatterns are log fragments that indicate a numerical
// convergence failure rather than a broken deck. Matched lowercase.
var convergencePatterns = []string{
	"timestep too small",
	"no convergence",
	"gmin stepping failed",
	"source stepping failed",
	"singular matrix",
}

// classify builds a SimError from a simulator log, marking convergence
// failures transient.
func classify(tool, deck, log string) *SimError {
	lower := strings.ToLower(log)
	for _, pat := range convergencePatterns {
		if strings.Contains(lower, pat) {
			return &SimError{Tool: tool, Deck: deck, Detail: pat, Transient: true}
		}
	}
	detail := lastLine(log)
	if detail == "" {
		detail = "simulation failed"
	}
	return &SimError{Tool: tool, Deck: deck, Detail: detail}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
