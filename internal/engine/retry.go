package engine

import (
	"fmt"

	"github.com/ejcamacho11/CharLib/internal/spice"
)

// DefaultMaxAttempts is the per-corner simulation budget: the first
// attempt plus retries for transient convergence failures.
const DefaultMaxAttempts = 3

// RetryPolicy bounds how often one corner may be re-simulated.
//
// Only failures the simulator classifies as transient (numerical
// convergence problems) are retried; a structural failure, such as a
// broken netlist, will fail identically every time and is abandoned at
// once. A corner that exhausts its budget degrades to Unmeasured
// instead of aborting the sweep.
type RetryPolicy struct {
	MaxAttempts int
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Retryable reports whether a failed attempt should be retried:
// transient failure and budget remaining.
func (p RetryPolicy) Retryable(attempt int, err error) bool {
	return attempt < p.attempts() && spice.IsTransient(err)
}

// AttemptsExhaustedError is recorded when a corner fails its final
// attempt. The corner is degraded to Unmeasured, not re-queued.
type AttemptsExhaustedError struct {
	Cell     string
	Arc      string
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("cell %s arc %s: corner failed after %d attempts: %v",
		e.Cell, e.Arc, e.Attempts, e.Last)
}

// Unwrap exposes the final attempt's error.
func (e *AttemptsExhaustedError) Unwrap() error {
	return e.Last
}
