package model

import (
	"fmt"
	"strings"
)

// Edge is the direction of a single signal transition.
type Edge int

const (
	Rise Edge = iota + 1
	Fall
)

func (e Edge) String() string {
	switch e {
	case Rise:
		return "rise"
	case Fall:
		return "fall"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}

// Opposite returns the inverse transition direction.
func (e Edge) Opposite() Edge {
	if e == Rise {
		return Fall
	}
	return Rise
}

// Sense is the unateness of a timing arc: how the output transition
// direction relates to the related pin's transition direction.
type Sense int

const (
	PositiveUnate Sense = iota + 1
	NegativeUnate
	NonUnate
)

func (s Sense) String() string {
	switch s {
	case PositiveUnate:
		return "positive_unate"
	case NegativeUnate:
		return "negative_unate"
	case NonUnate:
		return "non_unate"
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// ArcKind distinguishes delay arcs from the sequential constraint arcs.
type ArcKind int

const (
	ArcDelay ArcKind = iota + 1
	ArcSetup
	ArcHold
	ArcRecovery
	ArcRemoval
)

func (k ArcKind) String() string {
	switch k {
	case ArcDelay:
		return "delay"
	case ArcSetup:
		return "setup"
	case ArcHold:
		return "hold"
	case ArcRecovery:
		return "recovery"
	case ArcRemoval:
		return "removal"
	default:
		return fmt.Sprintf("ArcKind(%d)", int(k))
	}
}

// Constraint reports whether the arc is measured by offset search rather
// than by direct delay measurement.
func (k ArcKind) Constraint() bool {
	return k != ArcDelay
}

// ArcID is the index-based identity of a TimingArc within its cell's
// derived arc set. Index identity (rather than pointer identity) keeps
// concurrent aggregation and serialization free of shared mutable state.
type ArcID int

// StableLevel pins a non-target input to a static logic level for the
// duration of a trial.
type StableLevel struct {
	Pin   string
	Level bool
}

// Sensitization is the static input assignment that makes an arc
// logically active: the target input edge, the levels held on every other
// input, and the expected output edge.
type Sensitization struct {
	InputEdge  Edge
	OutputEdge Edge
	Stable     []StableLevel
}

// When renders the sensitization condition as a Liberty-style boolean
// expression over the stable inputs, e.g. "B&!C". Empty when the arc has
// no side inputs.
func (s Sensitization) When() string {
	terms := make([]string, 0, len(s.Stable))
	for _, sl := range s.Stable {
		if sl.Level {
			terms = append(terms, sl.Pin)
		} else {
			terms = append(terms, "!"+sl.Pin)
		}
	}
	return strings.Join(terms, "&")
}

// TimingArc identifies one (related pin, output pin, sense) timing
// relationship of a cell, together with the sensitization that activates
// it. Arcs are derived once per cell before the sweep starts and are
// never mutated after every corner for the arc has completed.
type TimingArc struct {
	ID      ArcID
	Cell    string
	Related string // input or clock pin driving the arc
	Output  string // measured output pin
	Kind    ArcKind
	Sense   Sense
	Sens    Sensitization
}

// String renders the arc in the log format used throughout:
// "A (rise) -> Y (fall)".
func (a TimingArc) String() string {
	return fmt.Sprintf("%s (%s) -> %s (%s)",
		a.Related, a.Sens.InputEdge, a.Output, a.Sens.OutputEdge)
}
