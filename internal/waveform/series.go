// Package waveform turns raw simulator traces into typed time series and
// derives the threshold-crossing timestamps and integrals the
// measurement engine works with.
package waveform

import (
	"errors"
	"fmt"

	"github.com/ejcamacho11/CharLib/internal/model"
)

// Series is one named time series from a simulation: voltage on a node
// or current through a branch. Samples are strictly increasing in time.
type Series struct {
	Name string
	T    []float64
	V    []float64
}

// ThresholdNotFoundError reports that a series never crosses the
// requested level in the requested direction within the simulated
// window. This usually means the cell failed to switch and must be
// surfaced, never silently zeroed.
type ThresholdNotFoundError struct {
	Signal string
	Level  float64
	Edge   model.Edge
}

func (e *ThresholdNotFoundError) Error() string {
	return fmt.Sprintf("signal %s never crosses %g (%s) in simulated window",
		e.Signal, e.Level, e.Edge)
}

// IsThresholdNotFound reports whether err is a ThresholdNotFoundError.
func IsThresholdNotFound(err error) bool {
	var te *ThresholdNotFoundError
	return errors.As(err, &te)
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.T) }

// Window returns the simulated time span.
func (s *Series) Window() (start, end float64) {
	if len(s.T) == 0 {
		return 0, 0
	}
	return s.T[0], s.T[len(s.T)-1]
}

// At returns the linearly interpolated value at time t. Times outside
// the window clamp to the boundary samples.
func (s *Series) At(t float64) float64 {
	n := len(s.T)
	if n == 0 {
		return 0
	}
	if t <= s.T[0] {
		return s.V[0]
	}
	if t >= s.T[n-1] {
		return s.V[n-1]
	}
	for i := 1; i < n; i++ {
		if s.T[i] >= t {
			frac := (t - s.T[i-1]) / (s.T[i] - s.T[i-1])
			return s.V[i-1] + frac*(s.V[i]-s.V[i-1])
		}
	}
	return s.V[n-1]
}

// CrossTime returns the first time at or after `after` when the series
// crosses `level` in the given direction, linearly interpolated between
// the bracketing samples.
func (s *Series) CrossTime(level float64, edge model.Edge, after float64) (float64, error) {
	for i := 1; i < len(s.T); i++ {
		if s.T[i] < after {
			continue
		}
		prev, cur := s.V[i-1], s.V[i]
		var crossed bool
		switch edge {
		case model.Rise:
			crossed = prev < level && cur >= level
		case model.Fall:
			crossed = prev > level && cur <= level
		}
		if !crossed {
			continue
		}
		if cur == prev {
			return s.T[i], nil
		}
		frac := (level - prev) / (cur - prev)
		t := s.T[i-1] + frac*(s.T[i]-s.T[i-1])
		if t >= after {
			return t, nil
		}
	}
	return 0, &ThresholdNotFoundError{Signal: s.Name, Level: level, Edge: edge}
}

// Integrate returns the trapezoidal integral of the series over
// [from, to], interpolating the boundary values.
func (s *Series) Integrate(from, to float64) float64 {
	if from >= to || len(s.T) < 2 {
		return 0
	}
	var sum float64
	prevT, prevV := from, s.At(from)
	for i := 0; i < len(s.T); i++ {
		t := s.T[i]
		if t <= from {
			continue
		}
		if t >= to {
			break
		}
		sum += (t - prevT) * (s.V[i] + prevV) / 2
		prevT, prevV = t, s.V[i]
	}
	sum += (to - prevT) * (s.At(to) + prevV) / 2
	return sum
}

// Mean returns the average value over [from, to].
func (s *Series) Mean(from, to float64) float64 {
	if to <= from {
		return 0
	}
	return s.Integrate(from, to) / (to - from)
}
