package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while running a sweep.
//
// Runtime errors include:
//   - Unsensitizable arc: no static input assignment activates the path
//   - Threshold not found: the output never crossed a measurement level
//   - No convergence: the constraint bisection could not bracket a result
//   - Simulation failed: the simulator exited with an error
//   - Unmeasured: a corner was abandoned after exhausting retries
//
// RuntimeError includes structured fields for diagnostics and recovery.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Cell identifies the affected cell.
	Cell string

	// Arc identifies the affected timing arc, rendered by TimingArc.String.
	Arc string

	// CornerKey identifies the affected corner, when one is involved.
	CornerKey string

	// Details contains additional context.
	Details map[string]string

	// Cause is the underlying error, when one exists.
	Cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnsensitizable indicates no static assignment activates the arc.
	ErrCodeUnsensitizable RuntimeErrorCode = "UNSENSITIZABLE_ARC"

	// ErrCodeThresholdNotFound indicates a signal never crossed a
	// measurement level in the simulated window.
	ErrCodeThresholdNotFound RuntimeErrorCode = "THRESHOLD_NOT_FOUND"

	// ErrCodeNoConvergence indicates the constraint search could not
	// converge within its offset bounds.
	ErrCodeNoConvergence RuntimeErrorCode = "NO_CONVERGENCE"

	// ErrCodeSimFailed indicates the simulator reported a failure.
	ErrCodeSimFailed RuntimeErrorCode = "SIM_FAILED"

	// ErrCodeUnmeasured indicates a corner was abandoned after retries.
	ErrCodeUnmeasured RuntimeErrorCode = "UNMEASURED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Cell != "" && e.Arc != "":
		return fmt.Sprintf("%s: %s (cell=%s, arc=%s)", e.Code, e.Message, e.Cell, e.Arc)
	case e.Cell != "":
		return fmt.Sprintf("%s: %s (cell=%s)", e.Code, e.Message, e.Cell)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// IsNoConvergence returns true if the error is a constraint search
// convergence failure. Uses errors.As to handle wrapped errors.
func IsNoConvergence(err error) bool {
	return hasCode(err, ErrCodeNoConvergence)
}

// IsThresholdNotFound returns true if the error is a missing threshold
// crossing. Uses errors.As to handle wrapped errors.
func IsThresholdNotFound(err error) bool {
	return hasCode(err, ErrCodeThresholdNotFound)
}

// IsSimFailed returns true if the error is a simulator failure.
func IsSimFailed(err error) bool {
	return hasCode(err, ErrCodeSimFailed)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}

// NewNoConvergenceError creates a RuntimeError for a constraint search
// that could not converge within its bounds.
func NewNoConvergenceError(cell, arc string, lo, hi float64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNoConvergence,
		Message: "constraint search could not bracket a pass/fail boundary",
		Cell:    cell,
		Arc:     arc,
		Details: map[string]string{
			"lo": fmt.Sprintf("%g", lo),
			"hi": fmt.Sprintf("%g", hi),
		},
	}
}
