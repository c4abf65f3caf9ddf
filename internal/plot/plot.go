// Package plot renders characterization results: heatmap surfaces of a
// metric over the slew/load grid, and waveform traces from a simulation
// result. Output is PNG via gonum/plot.
package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/waveform"
)

// Metric selects the measurement scalar plotted on the surface.
type Metric string

const (
	MetricDelay      Metric = "delay"
	MetricTransition Metric = "transition"
	MetricEnergy     Metric = "energy"
)

// pick returns the scalar and its display scale and unit.
func (m Metric) pick() (func(model.Measurement) float64, float64, string, error) {
	switch m {
	case MetricDelay:
		return func(meas model.Measurement) float64 { return meas.Delay }, 1e9, "delay (ns)", nil
	case MetricTransition:
		return func(meas model.Measurement) float64 { return meas.Transition }, 1e9, "transition (ns)", nil
	case MetricEnergy:
		return func(meas model.Measurement) float64 { return meas.InternalEnergy }, 1e15, "energy (fJ)", nil
	default:
		return nil, 0, "", fmt.Errorf("unknown plot metric %q", m)
	}
}

// surfaceGrid adapts a slew-major value matrix to plotter.GridXYZ.
// X is slew in ns, Y is load in fF.
type surfaceGrid struct {
	slews  []float64
	loads  []float64
	values [][]float64 // [slew][load]
}

func (g *surfaceGrid) Dims() (int, int)   { return len(g.slews), len(g.loads) }
func (g *surfaceGrid) X(c int) float64    { return g.slews[c] * 1e9 }
func (g *surfaceGrid) Y(r int) float64    { return g.loads[r] * 1e15 }
func (g *surfaceGrid) Z(c, r int) float64 { return g.values[c][r] }

// Surface renders one arc's metric over the sweep grid as a heatmap
// with contour lines. Unmeasured corners plot as zero, matching their
// rendering in the emitted tables.
func Surface(cm *model.CellModel, arc model.ArcID, sweep model.Sweep, metric Metric) (*plot.Plot, error) {
	pick, scale, unit, err := metric.pick()
	if err != nil {
		return nil, err
	}
	if len(sweep.Slews) == 0 || len(sweep.Loads) == 0 {
		return nil, fmt.Errorf("empty sweep grid")
	}

	grid := &surfaceGrid{slews: sweep.Slews, loads: sweep.Loads}
	for _, slew := range sweep.Slews {
		row := make([]float64, 0, len(sweep.Loads))
		for _, load := range sweep.Loads {
			v := 0.0
			if m, ok := cm.Get(arc, model.Corner{Slew: slew, Load: load}); ok && m.Status == model.Measured {
				v = pick(m) * scale
			}
			row = append(row, v)
		}
		grid.values = append(grid.values, row)
	}

	var arcLabel string
	for _, a := range cm.Arcs() {
		if a.ID == arc {
			arcLabel = a.String()
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s: %s", cm.Cell.Name, arcLabel, unit)
	p.X.Label.Text = "input slew (ns)"
	p.Y.Label.Text = "output load (fF)"

	pal := moreland.SmoothBlueRed().Palette(255)
	p.Add(plotter.NewHeatMap(grid, pal))
	p.Add(plotter.NewContour(grid, nil, pal))
	return p, nil
}

// Waveforms renders voltage traces on a shared time axis, time in ns.
func Waveforms(title string, traces []*waveform.Series) (*plot.Plot, error) {
	if len(traces) == 0 {
		return nil, fmt.Errorf("no traces to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (ns)"
	p.Y.Label.Text = "voltage (V)"
	p.Legend.Top = true

	for _, s := range traces {
		xys := make(plotter.XYs, s.Len())
		for i := range xys {
			xys[i].X = s.T[i] * 1e9
			xys[i].Y = s.V[i]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("trace %s: %w", s.Name, err)
		}
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return p, nil
}

// SavePNG writes a rendered plot to a PNG file.
func SavePNG(p *plot.Plot, path string) error {
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
