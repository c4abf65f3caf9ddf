package stimulus

import (
	"fmt"
	"strings"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/spice"
)

// deckWriter accumulates one deck, rendering the SPICE text and the
// structured stimulus mirror in lockstep so the two never disagree.
type deckWriter struct {
	b      *Builder
	cell   *model.Cell
	corner model.Corner
	name   string

	body     strings.Builder
	measures []string
	probes   []string
	stim     spice.Stimulus
	err      error
}

func newDeckWriter(b *Builder, cell *model.Cell, corner model.Corner, stop, step float64) *deckWriter {
	d := &deckWriter{
		b:      b,
		cell:   cell,
		corner: corner,
		stim: spice.Stimulus{
			Vdd:  b.Conditions.Vdd,
			Vss:  b.Conditions.Vss,
			Stop: stop,
			Step: step,
		},
	}

	c := b.Conditions
	fmt.Fprintf(&d.body, "* charlib %s\n", cell.Name)
	fmt.Fprintf(&d.body, ".include \"%s\"\n", cell.Model)
	fmt.Fprintf(&d.body, ".include \"%s\"\n", cell.Netlist)
	fmt.Fprintf(&d.body, ".temp %.6g\n", c.Temperature)
	d.body.WriteString(".option nomod post=2 ingold=2 autostop\n")
	fmt.Fprintf(&d.body, "v%s %s 0 dc %.6g\n", NodeVdd, NodeVdd, c.Vdd)
	fmt.Fprintf(&d.body, "v%s %s 0 dc %.6g\n", NodeVss, NodeVss, c.Vss)
	fmt.Fprintf(&d.body, "v%s %s 0 dc %.6g\n", NodeVnw, NodeVnw, c.Vnw)
	fmt.Fprintf(&d.body, "v%s %s 0 dc %.6g\n", NodeVpw, NodeVpw, c.Vpw)
	return d
}

// driveStable adds a DC source per held side input.
func (d *deckWriter) driveStable(stable []model.StableLevel) error {
	for _, s := range stable {
		if _, ok := d.cell.FindPin(s.Pin); !ok {
			return fmt.Errorf("cell %s: stable pin %s not declared", d.cell.Name, s.Pin)
		}
		node := strings.ToLower(s.Pin)
		level := d.b.pinLevel(s.Level)
		fmt.Fprintf(&d.body, "v%s %s 0 dc %.6g\n", node, node, level)
		d.stim.Sources = append(d.stim.Sources, spice.Source{
			Node: node, Kind: spice.SourceDC, Level0: level, Level1: level,
		})
	}
	return nil
}

// ramp adds the single-edge PWL source on the toggling pin.
func (d *deckWriter) ramp(pin string, edge model.Edge, start, ramp float64) {
	node := strings.ToLower(pin)
	from, to := d.b.Conditions.Vss, d.b.Conditions.Vdd
	if edge == model.Fall {
		from, to = to, from
	}
	fmt.Fprintf(&d.body, "v%s %s 0 pwl(0 %.6g %.6g %.6g %.6g %.6g)\n",
		node, node, from, start, from, start+ramp, to)
	d.stim.Sources = append(d.stim.Sources, spice.Source{
		Node: node, Kind: spice.SourceRamp,
		Level0: from, Level1: to, Start: start, Ramp: ramp,
	})
	d.probe(node)
}

// clockPulse adds a single active-high clock edge at edgeTime, held
// active until the end of the run.
func (d *deckWriter) clockPulse(pin string, edgeTime, ramp, stop float64) {
	node := strings.ToLower(pin)
	lo, hi := d.b.Conditions.Vss, d.b.Conditions.Vdd
	fmt.Fprintf(&d.body, "v%s %s 0 pwl(0 %.6g %.6g %.6g %.6g %.6g %.6g %.6g)\n",
		node, node, lo, edgeTime, lo, edgeTime+ramp, hi, stop, hi)
	d.stim.Sources = append(d.stim.Sources, spice.Source{
		Node: node, Kind: spice.SourceClock,
		Level0: lo, Level1: hi, Start: edgeTime, Ramp: ramp, Width: stop - edgeTime,
	})
	d.probe(node)
}

// load places the corner's capacitance on the measured output.
func (d *deckWriter) load(pin string, farads float64) {
	node := strings.ToLower(pin)
	fmt.Fprintf(&d.body, "cload %s 0 %.6g\n", node, farads)
	d.stim.Loads = append(d.stim.Loads, spice.Load{Node: node, Cap: farads})
	d.probe(node)
}

func (d *deckWriter) measure(name, spec string) {
	fmt.Fprintf(&d.body, ".measure tran %s %s\n", name, spec)
	d.measures = append(d.measures, name)
}

func (d *deckWriter) probe(node string) {
	for _, p := range d.probes {
		if p == node {
			return
		}
	}
	d.probes = append(d.probes, node)
}

// finish validates the instance line against the driven nodes and
// closes the deck.
func (d *deckWriter) finish() (spice.Deck, error) {
	if err := d.checkInstance(); err != nil {
		return spice.Deck{}, err
	}

	d.body.WriteString(d.cell.Instance + "\n")
	fmt.Fprintf(&d.body, ".tran %.6g %.6g\n", d.stim.Step, d.stim.Stop)
	d.body.WriteString(".end\n")

	return spice.Deck{
		Name:     d.name,
		Netlist:  d.body.String(),
		Measures: d.measures,
		Probes:   d.probes,
		Stimulus: d.stim,
	}, nil
}

// checkInstance verifies every pin of the cell appears as a node in
// the instance line, so a config typo fails before simulation instead
// of producing a floating input.
func (d *deckWriter) checkInstance() error {
	fields := strings.Fields(d.cell.Instance)
	if len(fields) < 3 {
		return fmt.Errorf("cell %s: malformed instance line %q", d.cell.Name, d.cell.Instance)
	}
	nodes := make(map[string]bool, len(fields))
	for _, f := range fields[1 : len(fields)-1] {
		nodes[strings.ToLower(f)] = true
	}
	for _, p := range d.cell.Pins {
		if !nodes[strings.ToLower(p.Name)] {
			return fmt.Errorf("cell %s: pin %s missing from instance line %q",
				d.cell.Name, p.Name, d.cell.Instance)
		}
	}
	return nil
}
