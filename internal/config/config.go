// Package config loads the characterization config document: library
// settings, the sweep grid, and the cell inventory. YAML is decoded
// strictly, checked against an embedded CUE schema, then built into the
// model types the engine consumes.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/ejcamacho11/CharLib/internal/model"
)

//go:embed charlib.cue
var schemaSource []byte

// Document is the raw YAML shape of a config file.
type Document struct {
	Library LibrarySection `yaml:"library"`
	Sweep   SweepSection   `yaml:"sweep"`
	Cells   []CellSection  `yaml:"cells"`
}

// LibrarySection carries library-wide settings. Zero-valued thresholds
// take characterization defaults at build time.
type LibrarySection struct {
	Name string `yaml:"name"`

	Vdd         float64 `yaml:"vdd"`
	Vss         float64 `yaml:"vss"`
	Vnw         float64 `yaml:"vnw"`
	Vpw         float64 `yaml:"vpw"`
	Temperature float64 `yaml:"temperature"`

	LogicThresholdLow  float64 `yaml:"logic_threshold_low"`
	LogicThresholdHigh float64 `yaml:"logic_threshold_high"`
	LogicLowToHigh     float64 `yaml:"logic_low_to_high"`
	LogicHighToLow     float64 `yaml:"logic_high_to_low"`

	EnergyMeasLow    float64 `yaml:"energy_meas_low"`
	EnergyMeasHigh   float64 `yaml:"energy_meas_high"`
	EnergyTimeExtent float64 `yaml:"energy_time_extent"`

	Workers int    `yaml:"workers"`
	Retries int    `yaml:"retries"`
	Timeout string `yaml:"timeout"`

	Simulator SimulatorSection `yaml:"simulator"`
}

// SimulatorSection selects and locates the SPICE backend.
type SimulatorSection struct {
	Kind      string `yaml:"kind"`
	Path      string `yaml:"path"`
	WorkDir   string `yaml:"work_dir"`
	KeepFiles bool   `yaml:"keep_files"`
}

// SweepSection is the library-wide sweep grid.
type SweepSection struct {
	Slews      []float64         `yaml:"slews"`
	Loads      []float64         `yaml:"loads"`
	Constraint ConstraintSection `yaml:"constraint"`
}

// ConstraintSection bounds the setup/hold offset search.
type ConstraintSection struct {
	MinOffset         float64 `yaml:"min_offset"`
	MaxOffset         float64 `yaml:"max_offset"`
	Resolution        float64 `yaml:"resolution"`
	DegradationFactor float64 `yaml:"degradation_factor"`
}

// CellSection describes one cell under test. Slews and Loads override
// the library sweep for this cell only.
type CellSection struct {
	Name     string  `yaml:"name"`
	Netlist  string  `yaml:"netlist"`
	Model    string  `yaml:"model"`
	Instance string  `yaml:"instance"`
	Area     float64 `yaml:"area"`

	Inputs    []string          `yaml:"inputs"`
	Outputs   []string          `yaml:"outputs"`
	Functions map[string]string `yaml:"functions"`

	Clock string `yaml:"clock"`
	Set   string `yaml:"set"`
	Reset string `yaml:"reset"`

	Slews []float64 `yaml:"slews"`
	Loads []float64 `yaml:"loads"`
}

// Config is the built, validated configuration.
type Config struct {
	Name       string
	Conditions model.Conditions
	Sweep      model.Sweep
	Cells      []*model.Cell

	Simulator SimulatorSection
	Workers   int
	Retries   int
	Timeout   time.Duration

	cellSweeps map[string]model.Sweep
}

// SweepFor returns the sweep for a cell, honoring per-cell overrides.
func (c *Config) SweepFor(cell string) model.Sweep {
	if s, ok := c.cellSweeps[cell]; ok {
		return s
	}
	return c.Sweep
}

// Cell looks a configured cell up by name.
func (c *Config) Cell(name string) (*model.Cell, bool) {
	for _, cell := range c.Cells {
		if cell.Name == name {
			return cell, true
		}
	}
	return nil, false
}

// SchemaError is a config rejected by the CUE schema, before any
// semantic checking.
type SchemaError struct {
	Path    string
	Details string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("config %s: schema violation:\n%s", e.Path, e.Details)
}

// Load reads, decodes, schema-checks, and builds a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse builds a config from in-memory YAML. The path is used for error
// reporting only.
func Parse(path string, data []byte) (*Config, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := checkSchema(path, data); err != nil {
		return nil, err
	}
	return build(path, &doc)
}

// checkSchema unifies the raw document with the embedded #Document
// schema. The YAML is re-decoded generically so CUE sees the document
// as written, not the zero-filled Go struct.
func checkSchema(path string, data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("charlib.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	docSchema := schema.LookupPath(cue.ParsePath("#Document"))
	if err := docSchema.Err(); err != nil {
		return fmt.Errorf("config schema has no #Document: %w", err)
	}

	unified := docSchema.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return &SchemaError{
			Path:    path,
			Details: strings.TrimSpace(cueerrors.Details(err, nil)),
		}
	}
	return nil
}
