package harness

import (
	"fmt"

	"github.com/ejcamacho11/CharLib/internal/engine"
	"github.com/ejcamacho11/CharLib/internal/model"
)

// EvaluateAssertions checks every assertion against the finished run
// and returns the failure messages, empty on full pass.
func EvaluateAssertions(run *engine.Run, sweep model.Sweep, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evaluate(run, sweep, &a); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return failures
}

func evaluate(run *engine.Run, sweep model.Sweep, a *Assertion) string {
	switch a.Type {
	case AssertArcCount:
		if got := len(run.Model.Arcs()); got != a.Count {
			return fmt.Sprintf("expected %d arcs, got %d", a.Count, got)
		}
	case AssertComplete:
		if !run.Model.Complete() {
			return "model has unmeasured or missing corners"
		}
	case AssertMeasuredCount:
		if got := countStatus(run, model.Measured); got != a.Count {
			return fmt.Sprintf("expected %d measured corners, got %d", a.Count, got)
		}
	case AssertUnmeasuredCount:
		if got := countStatus(run, model.Unmeasured); got != a.Count {
			return fmt.Sprintf("expected %d unmeasured corners, got %d", a.Count, got)
		}
	case AssertMonotone:
		return checkMonotone(run, sweep, a)
	case AssertConstraintBounds:
		return checkConstraintBounds(run, a)
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}

func countStatus(run *engine.Run, status model.Status) int {
	n := 0
	for _, e := range run.Model.Table() {
		if e.Measurement.Status == status {
			n++
		}
	}
	return n
}

// checkMonotone verifies a metric is non-decreasing along one sweep
// axis while the other axis is held fixed, at every fixed point.
func checkMonotone(run *engine.Run, sweep model.Sweep, a *Assertion) string {
	arc := model.ArcID(a.Arc)
	pick, err := metricPicker(a.Metric)
	if err != nil {
		return err.Error()
	}

	outer, inner := sweep.Slews, sweep.Loads
	corner := func(fixed, moving float64) model.Corner {
		return model.Corner{Slew: fixed, Load: moving}
	}
	if a.Axis == "slew" {
		outer, inner = sweep.Loads, sweep.Slews
		corner = func(fixed, moving float64) model.Corner {
			return model.Corner{Slew: moving, Load: fixed}
		}
	}

	for _, fixed := range outer {
		prev := 0.0
		for i, moving := range inner {
			m, ok := run.Model.Get(arc, corner(fixed, moving))
			if !ok || m.Status != model.Measured {
				return fmt.Sprintf("corner %v not measured", corner(fixed, moving))
			}
			v := pick(m)
			if i > 0 && v < prev {
				return fmt.Sprintf("%s not monotone along %s: %g after %g", a.Metric, a.Axis, v, prev)
			}
			prev = v
		}
	}
	return ""
}

// checkConstraintBounds verifies every converged offset of the arc lies
// within [min, max].
func checkConstraintBounds(run *engine.Run, a *Assertion) string {
	arc := model.ArcID(a.Arc)
	checked := 0
	for _, e := range run.Model.Table() {
		if e.Arc.ID != arc {
			continue
		}
		if !e.Arc.Kind.Constraint() {
			return fmt.Sprintf("arc %d is not a constraint arc", a.Arc)
		}
		if e.Measurement.Status != model.Measured {
			return fmt.Sprintf("corner %v not measured", e.Corner)
		}
		checked++
		if c := e.Measurement.Constraint; c < a.Min || c > a.Max {
			return fmt.Sprintf("offset %g outside [%g, %g]", c, a.Min, a.Max)
		}
	}
	if checked == 0 {
		return fmt.Sprintf("arc %d has no measurements", a.Arc)
	}
	return ""
}

func metricPicker(metric string) (func(model.Measurement) float64, error) {
	switch metric {
	case "delay":
		return func(m model.Measurement) float64 { return m.Delay }, nil
	case "transition":
		return func(m model.Measurement) float64 { return m.Transition }, nil
	case "energy":
		return func(m model.Measurement) float64 { return m.InternalEnergy }, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
}
