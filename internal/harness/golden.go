package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ejcamacho11/CharLib/internal/model"
)

// TraceSnapshot captures the measurement trace of a scenario execution
// for golden comparison. Serialization is canonical JSON, so the bytes
// are deterministic across runs and platforms.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunToken     string       `json:"run_token"`
	Events       []TraceEvent `json:"events"`
}

// toCanonicalMap converts the snapshot for model.MarshalCanonical,
// which accepts only maps, slices, and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	events := make([]any, len(s.Events))
	for i, e := range s.Events {
		events[i] = map[string]any{
			"cell":   e.Cell,
			"arc":    e.Arc,
			"kind":   e.Kind,
			"slew":   e.Slew,
			"load":   e.Load,
			"offset": e.Offset,
			"status": e.Status,
			"seq":    e.Seq,
		}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"run_token":     s.RunToken,
		"events":        events,
	}
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed result's trace against the
// named golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		RunToken:     result.RunToken,
		Events:       result.Events,
	}
	traceJSON, err := model.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
