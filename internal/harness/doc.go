// Package harness provides conformance testing for the characterization
// engine.
//
// The harness loads a scenario, characterizes the scenario's cell against
// the in-process fake simulator, and validates the resulting measurement
// trace and model.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	run_token: fixed-token
//	cell:
//	  name: INVX1
//	  inputs: [A]
//	  outputs: [Y]
//	  functions: {Y: "!A"}
//	sweep:
//	  slews: [1.0e-10, 4.0e-10]
//	  loads: [1.0e-15, 8.0e-15]
//	assertions:
//	  - type: arc_count
//	    count: 2
//	  - type: complete
//	  - type: monotone
//	    arc: 0
//	    axis: load
//	    metric: delay
//
// # Assertion Types
//
//   - arc_count: the derived arc set has exactly N arcs
//   - complete: every registered corner holds a measured entry
//   - measured_count: exactly N corners measured across all arcs
//   - unmeasured_count: exactly N corners degraded
//   - monotone: a metric is non-decreasing along the slew or load axis
//   - constraint_bounds: a converged constraint offset lies in [min, max]
//
// # Deterministic Testing
//
// Scenarios execute with a fixed run token, the engine's logical clock
// starting at zero, and a single worker, so the same scenario produces
// an identical trace on every run. Traces serialize through canonical
// JSON for golden file comparison.
package harness
