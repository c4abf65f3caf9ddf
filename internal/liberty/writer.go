// Package liberty emits characterized cell models in Liberty syntax
// and parses the subset it writes, so emitted libraries can be read
// back and diffed structurally.
package liberty

import (
	"fmt"
	"io"
	"strings"

	"github.com/ejcamacho11/CharLib/internal/model"
)

// Units maps the engine's SI measurements onto the library's declared
// units. Factors multiply SI values into library values.
type Units struct {
	TimeName string  // e.g. "1ns"
	Time     float64 // s -> library time, e.g. 1e9

	CapName string  // e.g. "pf"
	Cap     float64 // F -> library capacitance, e.g. 1e12

	Energy float64 // J -> library energy, e.g. 1e15 for fJ

	PowerName string  // e.g. "1nW"
	Power     float64 // W -> library power, e.g. 1e9
}

// DefaultUnits is the ns / pF / fJ / nW unit system.
func DefaultUnits() Units {
	return Units{
		TimeName: "1ns", Time: 1e9,
		CapName: "pf", Cap: 1e12,
		Energy:    1e15,
		PowerName: "1nW", Power: 1e9,
	}
}

// Writer emits one Liberty library.
type Writer struct {
	Name       string
	Conditions model.Conditions
	Sweep      model.Sweep
	Units      Units
}

// NewWriter creates a writer with default units.
func NewWriter(name string, conditions model.Conditions, sweep model.Sweep) *Writer {
	return &Writer{
		Name:       name,
		Conditions: conditions,
		Sweep:      sweep,
		Units:      DefaultUnits(),
	}
}

// Write emits the library for the given cell models.
//
// A model with unmeasured or missing corners is still emitted, with a
// partial-characterization comment ahead of its cell group and zeros in
// the affected table slots, so a downstream flow fails loudly on the
// marker instead of silently reading thin air.
func (w *Writer) Write(out io.Writer, models []*model.CellModel) error {
	p := &printer{out: out}

	p.printf("/* generated by charlib */")
	p.open("library (%s)", w.Name)
	w.header(p)
	w.templates(p)
	for _, cm := range models {
		w.cell(p, cm)
	}
	p.close()
	return p.err
}

func (w *Writer) header(p *printer) {
	c := w.Conditions
	p.printf("delay_model : table_lookup;")
	p.printf("time_unit : %q;", w.Units.TimeName)
	p.printf("voltage_unit : \"1V\";")
	p.printf("capacitive_load_unit (1, %s);", w.Units.CapName)
	p.printf("leakage_power_unit : %q;", w.Units.PowerName)
	p.printf("nom_process : 1;")
	p.printf("nom_voltage : %s;", num(c.Vdd))
	p.printf("nom_temperature : %s;", num(c.Temperature))
	p.open("operating_conditions (typical)")
	p.printf("process : 1;")
	p.printf("voltage : %s;", num(c.Vdd))
	p.printf("temperature : %s;", num(c.Temperature))
	p.close()
	p.printf("default_operating_conditions : typical;")
	p.printf("slew_lower_threshold_pct_rise : %s;", num(c.LogicThresholdLow*100))
	p.printf("slew_upper_threshold_pct_rise : %s;", num(c.LogicThresholdHigh*100))
	p.printf("slew_lower_threshold_pct_fall : %s;", num(c.LogicThresholdLow*100))
	p.printf("slew_upper_threshold_pct_fall : %s;", num(c.LogicThresholdHigh*100))
	p.printf("input_threshold_pct_rise : %s;", num(c.LogicLowToHigh*100))
	p.printf("input_threshold_pct_fall : %s;", num(c.LogicHighToLow*100))
	p.printf("output_threshold_pct_rise : %s;", num(c.LogicLowToHigh*100))
	p.printf("output_threshold_pct_fall : %s;", num(c.LogicHighToLow*100))
}

func (w *Writer) templates(p *printer) {
	slews := w.scaleAll(w.Sweep.Slews, w.Units.Time)
	loads := w.scaleAll(w.Sweep.Loads, w.Units.Cap)

	p.open("lu_table_template (delay_template)")
	p.printf("variable_1 : input_net_transition;")
	p.printf("variable_2 : total_output_net_capacitance;")
	p.printf("index_1 (%q);", numList(slews))
	p.printf("index_2 (%q);", numList(loads))
	p.close()

	p.open("lu_table_template (constraint_template)")
	p.printf("variable_1 : related_pin_transition;")
	p.printf("variable_2 : total_output_net_capacitance;")
	p.printf("index_1 (%q);", numList(slews))
	p.printf("index_2 (%q);", numList(loads))
	p.close()
}

func (w *Writer) cell(p *printer, cm *model.CellModel) {
	if !cm.Complete() {
		p.printf("/* partial characterization: %s has unmeasured corners */", cm.Cell.Name)
	}
	p.open("cell (%s)", cm.Cell.Name)
	if cm.Cell.Area > 0 {
		p.printf("area : %s;", num(cm.Cell.Area))
	}
	if leak, ok := cm.LeakagePower(); ok {
		p.printf("cell_leakage_power : %s;", num(leak*w.Units.Power))
	}
	w.sequentialBlock(p, cm.Cell)
	for _, pin := range cm.Cell.Pins {
		if pin.Direction == model.DirectionInput {
			w.inputPin(p, cm, pin)
		}
	}
	for _, pin := range cm.Cell.Outputs() {
		w.outputPin(p, cm, pin)
	}
	p.close()
}

// sequentialBlock emits the ff group for sequential cells.
func (w *Writer) sequentialBlock(p *printer, cell *model.Cell) {
	if cell.Behavior != model.Sequential {
		return
	}
	clock, ok := cell.Clock()
	if !ok {
		return
	}
	var data string
	for _, pin := range cell.Inputs() {
		if pin.Role == model.RoleData {
			data = pin.Name
			break
		}
	}
	p.open("ff (IQ, IQN)")
	p.printf("clocked_on : %q;", clock.Name)
	if data != "" {
		p.printf("next_state : %q;", data)
	}
	if set, ok := cell.AsyncSet(); ok {
		p.printf("preset : %q;", "!"+set.Name)
	}
	if rst, ok := cell.AsyncReset(); ok {
		p.printf("clear : %q;", "!"+rst.Name)
	}
	p.close()
}

func (w *Writer) inputPin(p *printer, cm *model.CellModel, pin model.Pin) {
	p.open("pin (%s)", pin.Name)
	p.printf("direction : input;")
	if pin.Role == model.RoleClock {
		p.printf("clock : true;")
	}
	if cin, ok := cm.AverageInputCapacitance(pin.Name); ok {
		p.printf("capacitance : %s;", num(cin*w.Units.Cap))
	} else if pin.Capacitance > 0 {
		p.printf("capacitance : %s;", num(pin.Capacitance*w.Units.Cap))
	}
	w.constraintTimings(p, cm, pin.Name)
	p.close()
}

func (w *Writer) outputPin(p *printer, cm *model.CellModel, pin model.Pin) {
	p.open("pin (%s)", pin.Name)
	p.printf("direction : output;")
	if fn, ok := cm.Cell.Function(pin.Name); ok {
		p.printf("function : %q;", fn)
	} else if cm.Cell.Behavior == model.Sequential {
		p.printf("function : \"IQ\";")
	}
	for _, group := range w.delayGroups(cm, pin.Name) {
		w.delayTiming(p, cm, group)
		w.internalPower(p, cm, group)
	}
	p.close()
}

// arcGroup collects the arcs of one (related, output) pair.
type arcGroup struct {
	related string
	output  string
	sense   model.Sense
	rise    []model.TimingArc // arcs whose output edge rises
	fall    []model.TimingArc
}

// delayGroups partitions the delay arcs targeting an output by related
// pin, preserving arc ID order.
func (w *Writer) delayGroups(cm *model.CellModel, output string) []*arcGroup {
	var groups []*arcGroup
	byRelated := make(map[string]*arcGroup)
	for _, arc := range cm.Arcs() {
		if arc.Kind != model.ArcDelay || arc.Output != output {
			continue
		}
		g, ok := byRelated[arc.Related]
		if !ok {
			g = &arcGroup{related: arc.Related, output: output, sense: arc.Sense}
			byRelated[arc.Related] = g
			groups = append(groups, g)
		}
		if arc.Sens.OutputEdge == model.Rise {
			g.rise = append(g.rise, arc)
		} else {
			g.fall = append(g.fall, arc)
		}
	}
	return groups
}

func (w *Writer) delayTiming(p *printer, cm *model.CellModel, g *arcGroup) {
	p.open("timing ()")
	p.printf("related_pin : %q;", g.related)
	p.printf("timing_sense : %s;", g.sense)
	for _, arc := range g.rise {
		w.table(p, cm, arc, "cell_rise", func(m model.Measurement) float64 { return m.Delay })
		w.table(p, cm, arc, "rise_transition", func(m model.Measurement) float64 { return m.Transition })
	}
	for _, arc := range g.fall {
		w.table(p, cm, arc, "cell_fall", func(m model.Measurement) float64 { return m.Delay })
		w.table(p, cm, arc, "fall_transition", func(m model.Measurement) float64 { return m.Transition })
	}
	p.close()
}

func (w *Writer) internalPower(p *printer, cm *model.CellModel, g *arcGroup) {
	if len(g.rise) == 0 && len(g.fall) == 0 {
		return
	}
	p.open("internal_power ()")
	p.printf("related_pin : %q;", g.related)
	for _, arc := range g.rise {
		w.energyTable(p, cm, arc, "rise_power")
	}
	for _, arc := range g.fall {
		w.energyTable(p, cm, arc, "fall_power")
	}
	p.close()
}

// constraintTimings emits setup/hold/recovery/removal groups on the
// constrained input pin.
func (w *Writer) constraintTimings(p *printer, cm *model.CellModel, pin string) {
	clockName := ""
	if clock, ok := cm.Cell.Clock(); ok {
		clockName = clock.Name
	}
	for _, arc := range cm.Arcs() {
		if !arc.Kind.Constraint() || arc.Related != pin {
			continue
		}
		p.open("timing ()")
		p.printf("related_pin : %q;", clockName)
		p.printf("timing_type : %s;", constraintType(arc))
		name := "rise_constraint"
		if arc.Sens.InputEdge == model.Fall {
			name = "fall_constraint"
		}
		w.constraintTable(p, cm, arc, name)
		p.close()
	}
}

// constraintType maps an arc onto the Liberty timing_type keyword,
// assuming rising-edge clocking.
func constraintType(arc model.TimingArc) string {
	switch arc.Kind {
	case model.ArcSetup:
		return "setup_rising"
	case model.ArcHold:
		return "hold_rising"
	case model.ArcRecovery:
		return "recovery_rising"
	case model.ArcRemoval:
		return "removal_rising"
	default:
		return "combinational"
	}
}

func (w *Writer) table(p *printer, cm *model.CellModel, arc model.TimingArc, name string, pick func(model.Measurement) float64) {
	w.valuesTable(p, cm, arc, name, "delay_template", func(m model.Measurement) float64 {
		return pick(m) * w.Units.Time
	})
}

func (w *Writer) energyTable(p *printer, cm *model.CellModel, arc model.TimingArc, name string) {
	w.valuesTable(p, cm, arc, name, "delay_template", func(m model.Measurement) float64 {
		return m.InternalEnergy * w.Units.Energy
	})
}

func (w *Writer) constraintTable(p *printer, cm *model.CellModel, arc model.TimingArc, name string) {
	w.valuesTable(p, cm, arc, name, "constraint_template", func(m model.Measurement) float64 {
		return m.Constraint * w.Units.Time
	})
}

// valuesTable renders one slew-major values matrix. Unmeasured and
// missing corners render as 0 under the partial marker.
func (w *Writer) valuesTable(p *printer, cm *model.CellModel, arc model.TimingArc, name, template string, pick func(model.Measurement) float64) {
	p.open("%s (%s)", name, template)
	rows := make([]string, 0, len(w.Sweep.Slews))
	for _, slew := range w.Sweep.Slews {
		row := make([]float64, 0, len(w.Sweep.Loads))
		for _, load := range w.Sweep.Loads {
			v := 0.0
			if m, ok := cm.Get(arc.ID, model.Corner{Slew: slew, Load: load}); ok && m.Status == model.Measured {
				v = pick(m)
			}
			row = append(row, v)
		}
		rows = append(rows, fmt.Sprintf("%q", numList(row)))
	}
	if len(rows) == 1 {
		p.printf("values (%s);", rows[0])
	} else {
		p.printf("values ( \\")
		for i, row := range rows {
			sep := ", \\"
			if i == len(rows)-1 {
				sep = " \\"
			}
			p.printf("  %s%s", row, sep)
		}
		p.printf(");")
	}
	p.close()
}

func (w *Writer) scaleAll(vals []float64, factor float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v * factor
	}
	return out
}

// num formats a library value with five significant digits, enough to
// round-trip characterized picosecond deltas at nanosecond units.
func num(v float64) string {
	return strings.TrimSpace(fmt.Sprintf("%.5g", v))
}

func numList(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = num(v)
	}
	return strings.Join(parts, ", ")
}

// printer tracks indentation and the first write error.
type printer struct {
	out    io.Writer
	indent int
	err    error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	_, p.err = fmt.Fprintf(p.out, "%s%s\n", strings.Repeat("  ", p.indent), line)
}

func (p *printer) open(format string, args ...any) {
	p.printf(format+" {", args...)
	p.indent++
}

func (p *printer) close() {
	p.indent--
	p.printf("}")
}
