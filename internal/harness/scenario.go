package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance test: a cell characterized over a
// sweep against the fake simulator, with assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunToken fixes the run token for deterministic traces. Empty
	// defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// Workers bounds the pool. Zero means one worker, which keeps seq
	// stamps deterministic for golden comparison.
	Workers int `yaml:"workers,omitempty"`

	Cell       CellSpec    `yaml:"cell"`
	Sweep      SweepSpec   `yaml:"sweep"`
	Simulator  SimSpec     `yaml:"simulator,omitempty"`
	Assertions []Assertion `yaml:"assertions"`
}

// CellSpec describes the cell under test. The instance line is
// synthesized from the pin list when omitted; the fake simulator never
// reads the netlist, so no file paths are needed.
type CellSpec struct {
	Name      string            `yaml:"name"`
	Inputs    []string          `yaml:"inputs"`
	Outputs   []string          `yaml:"outputs"`
	Functions map[string]string `yaml:"functions,omitempty"`
	Clock     string            `yaml:"clock,omitempty"`
	Set       string            `yaml:"set,omitempty"`
	Reset     string            `yaml:"reset,omitempty"`
	Instance  string            `yaml:"instance,omitempty"`
}

// SweepSpec is the scenario's sweep grid and constraint search bounds.
type SweepSpec struct {
	Slews      []float64      `yaml:"slews"`
	Loads      []float64      `yaml:"loads"`
	Constraint ConstraintSpec `yaml:"constraint,omitempty"`
}

// ConstraintSpec bounds the setup/hold offset search for sequential
// scenarios.
type ConstraintSpec struct {
	MinOffset         float64 `yaml:"min_offset,omitempty"`
	MaxOffset         float64 `yaml:"max_offset,omitempty"`
	Resolution        float64 `yaml:"resolution,omitempty"`
	DegradationFactor float64 `yaml:"degradation_factor,omitempty"`
}

// SimSpec tunes the fake simulator's response model. Zero fields keep
// the fake's defaults.
type SimSpec struct {
	BaseDelay      float64  `yaml:"base_delay,omitempty"`
	SlewFactor     float64  `yaml:"slew_factor,omitempty"`
	LoadFactor     float64  `yaml:"load_factor,omitempty"`
	CriticalWindow float64  `yaml:"critical_window,omitempty"`
	DeadNodes      []string `yaml:"dead_nodes,omitempty"`
}

// Assertion validates the trace or the aggregated model.
type Assertion struct {
	// Type selects the assertion; see the package documentation.
	Type string `yaml:"type"`

	// Count is the expected value for the counting assertions.
	Count int `yaml:"count,omitempty"`

	// Arc is the arc ID for monotone and constraint_bounds.
	Arc int `yaml:"arc,omitempty"`

	// Axis is "slew" or "load" (monotone).
	Axis string `yaml:"axis,omitempty"`

	// Metric is "delay", "transition", or "energy" (monotone).
	Metric string `yaml:"metric,omitempty"`

	// Min and Max bound the converged offset (constraint_bounds).
	Min float64 `yaml:"min,omitempty"`
	Max float64 `yaml:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertArcCount         = "arc_count"
	AssertComplete         = "complete"
	AssertMeasuredCount    = "measured_count"
	AssertUnmeasuredCount  = "unmeasured_count"
	AssertMonotone         = "monotone"
	AssertConstraintBounds = "constraint_bounds"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo fails loudly instead of silently skipping an
// assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Cell.Name == "" {
		return fmt.Errorf("cell.name is required")
	}
	if len(s.Cell.Inputs) == 0 {
		return fmt.Errorf("cell.inputs is required and must be non-empty")
	}
	if len(s.Cell.Outputs) == 0 {
		return fmt.Errorf("cell.outputs is required and must be non-empty")
	}
	if s.Cell.Clock == "" && len(s.Cell.Functions) == 0 {
		return fmt.Errorf("combinational cell needs functions")
	}
	if len(s.Sweep.Slews) == 0 {
		return fmt.Errorf("sweep.slews is required and must be non-empty")
	}
	if len(s.Sweep.Loads) == 0 {
		return fmt.Errorf("sweep.loads is required and must be non-empty")
	}
	if s.Cell.Clock != "" && s.Sweep.Constraint.MaxOffset == 0 {
		return fmt.Errorf("sequential cell needs sweep.constraint bounds")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertArcCount, AssertMeasuredCount, AssertUnmeasuredCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertComplete:
		// No parameters.
	case AssertMonotone:
		if a.Axis != "slew" && a.Axis != "load" {
			return fmt.Errorf("assertions[%d]: axis must be slew or load for monotone", index)
		}
		switch a.Metric {
		case "delay", "transition", "energy":
		default:
			return fmt.Errorf("assertions[%d]: unknown monotone metric %q", index, a.Metric)
		}
	case AssertConstraintBounds:
		if a.Max <= a.Min {
			return fmt.Errorf("assertions[%d]: constraint_bounds needs min < max", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
