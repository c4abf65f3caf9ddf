package model

import (
	"sort"
	"sync"
)

type tableKey struct {
	arc    ArcID
	corner string
}

// ArcSummary reports per-arc completeness for a finished run.
type ArcSummary struct {
	Arc        TimingArc
	Measured   int
	Unmeasured int
	Missing    int
}

// CellModel accumulates measurements for one cell into a table keyed by
// (arc identity, corner identity). It is the terminal artifact the
// Library Emitter consumes.
//
// Thread-safety: Insert may be called concurrently from sweep workers.
// In practice each key has a single writer (keys are unique per unit of
// work), but the table is guarded so that concurrent completion of
// independent units never produces a torn entry.
type CellModel struct {
	Cell *Cell

	mu      sync.Mutex
	arcs    []TimingArc
	corners map[ArcID][]Corner // configured corners per arc, sweep order
	table   map[tableKey]Measurement
}

// NewCellModel creates an empty model for a cell and its derived arcs.
// The corner list for each arc is registered up front so completeness is
// decidable without re-deriving the sweep.
func NewCellModel(cell *Cell, arcs []TimingArc) *CellModel {
	return &CellModel{
		Cell:    cell,
		arcs:    arcs,
		corners: make(map[ArcID][]Corner, len(arcs)),
		table:   make(map[tableKey]Measurement),
	}
}

// RegisterCorners declares the corners that will be swept for an arc.
// Called by the sweep controller before dispatch; duplicate corners in
// the registration itself are rejected.
func (m *CellModel) RegisterCorners(arc ArcID, corners []Corner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if int(arc) < 0 || int(arc) >= len(m.arcs) {
		return &UnknownArcError{Cell: m.Cell.Name, Arc: arc}
	}
	seen := make(map[string]bool, len(corners))
	for _, c := range corners {
		key := c.Key()
		if seen[key] {
			return &DuplicateCornerError{Cell: m.Cell.Name, Arc: arc, CornerKey: key}
		}
		seen[key] = true
	}
	m.corners[arc] = corners
	return nil
}

// Insert records the measurement for one (arc, corner) key.
//
// Insert-only semantics: writing the same value twice is idempotent,
// writing a different value for an existing key fails with
// DuplicateCornerError. The first write wins and is never replaced.
func (m *CellModel) Insert(arc ArcID, corner Corner, meas Measurement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if int(arc) < 0 || int(arc) >= len(m.arcs) {
		return &UnknownArcError{Cell: m.Cell.Name, Arc: arc}
	}
	key := tableKey{arc: arc, corner: corner.Key()}
	if existing, ok := m.table[key]; ok {
		if existing.Equal(meas) {
			return nil
		}
		return &DuplicateCornerError{Cell: m.Cell.Name, Arc: arc, CornerKey: key.corner}
	}
	m.table[key] = meas
	return nil
}

// Get returns the measurement for an (arc, corner) key.
func (m *CellModel) Get(arc ArcID, corner Corner) (Measurement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meas, ok := m.table[tableKey{arc: arc, corner: corner.Key()}]
	return meas, ok
}

// Arcs returns the derived arc set in ID order.
func (m *CellModel) Arcs() []TimingArc {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TimingArc, len(m.arcs))
	copy(out, m.arcs)
	return out
}

// Corners returns the registered corner list for an arc in sweep order.
func (m *CellModel) Corners(arc ArcID) []Corner {
	m.mu.Lock()
	defer m.mu.Unlock()
	corners := m.corners[arc]
	out := make([]Corner, len(corners))
	copy(out, corners)
	return out
}

// Complete reports whether every registered corner of every arc holds a
// Measured entry. A model with Unmeasured or missing corners is partial
// and must be flagged as such on emission, never emitted silently as
// complete.
func (m *CellModel) Complete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.arcs {
		for _, c := range m.corners[ArcID(id)] {
			meas, ok := m.table[tableKey{arc: ArcID(id), corner: c.Key()}]
			if !ok || meas.Status != Measured {
				return false
			}
		}
	}
	return true
}

// Summary reports measured vs degraded vs missing corner counts per arc,
// in arc ID order.
func (m *CellModel) Summary() []ArcSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make([]ArcSummary, 0, len(m.arcs))
	for id, arc := range m.arcs {
		s := ArcSummary{Arc: arc}
		for _, c := range m.corners[ArcID(id)] {
			meas, ok := m.table[tableKey{arc: ArcID(id), corner: c.Key()}]
			switch {
			case !ok:
				s.Missing++
			case meas.Status == Measured:
				s.Measured++
			default:
				s.Unmeasured++
			}
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// AverageInputCapacitance averages the Cin estimate over every measured
// delay corner of the arcs related to the given input pin. Returns false
// when no measured corner contributes.
func (m *CellModel) AverageInputCapacitance(pin string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	var n int
	for id, arc := range m.arcs {
		if arc.Related != pin || arc.Kind != ArcDelay {
			continue
		}
		for _, c := range m.corners[ArcID(id)] {
			meas, ok := m.table[tableKey{arc: ArcID(id), corner: c.Key()}]
			if ok && meas.Status == Measured {
				total += meas.InputCapacitance
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// LeakagePower averages the leakage estimate over every measured corner
// of the whole cell.
func (m *CellModel) LeakagePower() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	var n int
	for _, meas := range m.table {
		if meas.Status == Measured && meas.LeakagePower > 0 {
			total += meas.LeakagePower
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// Table returns every (arc, corner, measurement) triple in deterministic
// order: arc-major, registered corner order minor. Used by the emitter
// and the measurement store.
func (m *CellModel) Table() []TableEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []TableEntry
	for id := range m.arcs {
		corners := m.corners[ArcID(id)]
		sorted := make([]Corner, len(corners))
		copy(sorted, corners)
		// Registration order is already sweep order; keep it stable even
		// if a future caller registers out of order.
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Slew != sorted[j].Slew {
				return sorted[i].Slew < sorted[j].Slew
			}
			if sorted[i].Load != sorted[j].Load {
				return sorted[i].Load < sorted[j].Load
			}
			return sorted[i].Offset < sorted[j].Offset
		})
		for _, c := range sorted {
			if meas, ok := m.table[tableKey{arc: ArcID(id), corner: c.Key()}]; ok {
				entries = append(entries, TableEntry{
					Arc:         m.arcs[id],
					Corner:      c,
					Measurement: meas,
				})
			}
		}
	}
	return entries
}

// TableEntry is one row of the flattened measurement table.
type TableEntry struct {
	Arc         TimingArc
	Corner      Corner
	Measurement Measurement
}
