package model

import "fmt"

// Status records whether a (arc, corner) trial produced a usable result.
type Status int

const (
	// Measured means the trial completed and its scalars are valid.
	Measured Status = iota + 1
	// Unmeasured means the trial failed after exhausting retries; the
	// corner is degraded and the reason is kept for reporting.
	Unmeasured
)

func (s Status) String() string {
	switch s {
	case Measured:
		return "measured"
	case Unmeasured:
		return "unmeasured"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Measurement is the write-once result of one simulated trial at one
// (arc, corner) key.
//
// For delay arcs Delay/Transition/energy figures are populated. For
// constraint arcs Constraint holds the converged offset and Pass the
// outcome of the final probe; Delay carries the degraded-threshold
// nominal delay used by the search.
type Measurement struct {
	Status Status

	Delay      float64 // propagation delay, input mid to output mid
	Transition float64 // output transition time between slew thresholds

	InternalEnergy   float64 // switching energy net of leakage over the window
	InputCapacitance float64 // Cin estimate, |Q_in| / Vdd
	LeakagePower     float64 // (|I_vdd_leak| + |I_vss_leak|)/2 * Vdd

	Constraint float64 // converged offset, constraint arcs only
	Pass       bool    // final probe outcome, constraint arcs only

	Seq    int64  // logical sequence stamp for audit ordering
	Reason string // failure classification when Status is Unmeasured
}

// Equal compares the physical content of two measurements, ignoring the
// audit sequence stamp. Used by the aggregator to distinguish idempotent
// re-insertion from a conflicting duplicate.
func (m Measurement) Equal(other Measurement) bool {
	m.Seq = 0
	other.Seq = 0
	return m == other
}

// ID returns the content-addressed identity of the measurement within a
// run, derived from the cell, arc, and corner it belongs to. Used as the
// idempotent primary key in the measurement store.
func (m Measurement) ID(runToken, cell string, arc ArcID, corner Corner) (string, error) {
	return CanonicalHash(map[string]any{
		"run":    runToken,
		"cell":   cell,
		"arc":    int(arc),
		"corner": corner.Key(),
	})
}
