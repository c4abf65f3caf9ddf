package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/waveform"
)

func surfaceModel(t *testing.T) (*model.CellModel, model.Sweep) {
	t.Helper()

	cell := &model.Cell{
		Name: "INVX1",
		Pins: []model.Pin{
			{Name: "A", Direction: model.DirectionInput},
			{Name: "Y", Direction: model.DirectionOutput},
		},
		Functions: map[string]string{"Y": "!A"},
		Behavior:  model.Combinational,
	}
	arcs := []model.TimingArc{{
		ID: 0, Cell: "INVX1", Related: "A", Output: "Y",
		Kind: model.ArcDelay, Sense: model.NegativeUnate,
		Sens: model.Sensitization{InputEdge: model.Rise, OutputEdge: model.Fall},
	}}
	cm := model.NewCellModel(cell, arcs)
	sweep := model.Sweep{
		Slews: []float64{0.1e-9, 0.4e-9},
		Loads: []float64{1e-15, 8e-15},
	}
	corners := model.SweepCorners(sweep.Slews, sweep.Loads)
	require.NoError(t, cm.RegisterCorners(0, corners))
	for i, c := range corners {
		require.NoError(t, cm.Insert(0, c, model.Measurement{
			Status:     model.Measured,
			Delay:      float64(i+1) * 20e-12,
			Transition: float64(i+1) * 10e-12,
			Seq:        int64(i + 1),
		}))
	}
	return cm, sweep
}

func TestSurface_SavesPNG(t *testing.T) {
	cm, sweep := surfaceModel(t)

	p, err := Surface(cm, 0, sweep, MetricDelay)
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "INVX1")
	assert.Contains(t, p.Title.Text, "delay (ns)")

	path := filepath.Join(t.TempDir(), "delay.png")
	require.NoError(t, SavePNG(p, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSurface_UnknownMetric(t *testing.T) {
	cm, sweep := surfaceModel(t)
	_, err := Surface(cm, 0, sweep, Metric("power-factor"))
	require.Error(t, err)
}

func TestSurface_EmptySweep(t *testing.T) {
	cm, _ := surfaceModel(t)
	_, err := Surface(cm, 0, model.Sweep{}, MetricDelay)
	require.Error(t, err)
}

func TestWaveforms_SavesPNG(t *testing.T) {
	in := &waveform.Series{
		Name: "v(a)",
		T:    []float64{0, 1e-9, 2e-9, 3e-9},
		V:    []float64{0, 0, 3.3, 3.3},
	}
	out := &waveform.Series{
		Name: "v(y)",
		T:    []float64{0, 1e-9, 2e-9, 3e-9},
		V:    []float64{3.3, 3.3, 0, 0},
	}

	p, err := Waveforms("INVX1 rise", []*waveform.Series{in, out})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "waves.png")
	require.NoError(t, SavePNG(p, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestWaveforms_Empty(t *testing.T) {
	_, err := Waveforms("empty", nil)
	require.Error(t, err)
}
