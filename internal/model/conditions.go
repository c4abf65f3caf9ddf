package model

// Conditions carries the library-wide electrical environment every trial
// is simulated under. Thresholds are fractions of Vdd.
type Conditions struct {
	Vdd         float64 // supply voltage
	Vss         float64 // ground reference
	Vnw         float64 // n-well bias
	Vpw         float64 // p-well bias
	Temperature float64 // simulation temperature, Celsius

	// Slew measurement window. The input ramp is stretched so that the
	// configured transition time spans exactly this window, matching the
	// slew definition used in the emitted tables.
	LogicThresholdLow  float64 // lower slew threshold, e.g. 0.2
	LogicThresholdHigh float64 // upper slew threshold, e.g. 0.8

	// Delay measurement points.
	LogicLowToHigh float64 // input/output midpoint for rising edges, e.g. 0.5
	LogicHighToLow float64 // midpoint for falling edges, e.g. 0.5

	// Energy integration window bounds.
	EnergyMeasLow    float64 // window start threshold on the input, e.g. 0.01
	EnergyMeasHigh   float64 // window end threshold on the output, e.g. 0.99
	EnergyTimeExtent float64 // multiplier stretching the charge window
}

// SlewScale is the factor converting a table slew value into the full
// ramp time of the stimulus source: 1 / (thr_high - thr_low).
func (c Conditions) SlewScale() float64 {
	return 1 / (c.LogicThresholdHigh - c.LogicThresholdLow)
}

// RiseDelayLevel is the absolute voltage of the rising-edge midpoint.
func (c Conditions) RiseDelayLevel() float64 {
	return c.Vss + c.LogicLowToHigh*(c.Vdd-c.Vss)
}

// FallDelayLevel is the absolute voltage of the falling-edge midpoint.
func (c Conditions) FallDelayLevel() float64 {
	return c.Vss + c.LogicHighToLow*(c.Vdd-c.Vss)
}

// SlewLevels returns the absolute voltages of the transition-time
// measurement thresholds, low first.
func (c Conditions) SlewLevels() (low, high float64) {
	span := c.Vdd - c.Vss
	return c.Vss + c.LogicThresholdLow*span, c.Vss + c.LogicThresholdHigh*span
}

// DefaultDegradationFactor is the delay-degradation threshold applied
// when a sweep does not configure its own.
const DefaultDegradationFactor = 1.1

// ConstraintSpec bounds the setup/hold bisection search.
type ConstraintSpec struct {
	MinOffset  float64 // lower probe bound
	MaxOffset  float64 // upper probe bound
	Resolution float64 // convergence width

	// DegradationFactor classifies a probe: the cell "still switches
	// correctly" while its delay stays below nominal*DegradationFactor.
	// Policy parameter, deliberately not hard-coded (default 1.1).
	DegradationFactor float64
}

// Sweep is the loaded, validated sweep specification for one cell:
// ordered slew and load lists plus the constraint-search bounds used for
// sequential arcs.
type Sweep struct {
	Slews      []float64
	Loads      []float64
	Constraint ConstraintSpec
}
