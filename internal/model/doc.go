// Package model defines the characterization data model shared by every
// other package: cells and pins, timing arcs, sweep corners, per-trial
// measurements, and the thread-safe CellModel aggregator that collects
// measurements keyed by (arc, corner).
//
// Identity rules:
//   - TimingArc identity is index-based (ArcID), assigned when the arc set
//     for a cell is derived. Pointer identity is never used as a key.
//   - Corner identity is content-addressed: Corner.Key() hashes the
//     canonical JSON encoding of the corner tuple.
//
// Write rules:
//   - The aggregator table is insert-only. Re-inserting an identical
//     measurement is idempotent; inserting a different value for an
//     existing (arc, corner) key is a DuplicateCornerError, which signals
//     a sweep-generation bug and is never silently overwritten.
package model
