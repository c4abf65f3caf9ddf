// Package engine runs the characterization sweep: it expands every
// timing arc of a cell into its stimulus corners, simulates each corner
// through a bounded worker pool, and aggregates the results into the
// cell's measurement table.
//
// Delay arcs are measured in two passes. The first pass runs the timing
// deck and reports the propagation delay, output transition, leakage
// averages, and the switching window bounds. The second pass re-runs
// the same stimulus integrating supply and input charge over that
// window, which yields the internal energy and input capacitance.
//
// Constraint arcs (setup, hold, recovery, removal) are searched by
// bisection over the data-to-clock offset: a probe at one offset passes
// while the clock-to-output delay stays below the degraded threshold,
// and the search converges when the pass/fail bracket is narrower than
// the configured resolution.
//
// Failures are retried only when the simulator classifies them as
// transient. A corner that still fails after its retry budget is
// recorded as Unmeasured with the failure reason; it degrades the
// sweep without aborting it.
package engine
