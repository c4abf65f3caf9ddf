package waveform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/model"
)

func ramp(name string) *Series {
	// 0V to 1V linear ramp over 10ns.
	return &Series{
		Name: name,
		T:    []float64{0, 2e-9, 4e-9, 6e-9, 8e-9, 10e-9},
		V:    []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0},
	}
}

func TestSeries_CrossTime(t *testing.T) {
	s := ramp("y")

	got, err := s.CrossTime(0.5, model.Rise, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5e-9, got, 1e-15)

	// Interpolation between samples.
	got, err = s.CrossTime(0.3, model.Rise, 0)
	require.NoError(t, err)
	assert.InDelta(t, 3e-9, got, 1e-15)
}

func TestSeries_CrossTime_After(t *testing.T) {
	// Pulse: rises, then falls back.
	s := &Series{
		Name: "y",
		T:    []float64{0, 1e-9, 2e-9, 3e-9, 4e-9},
		V:    []float64{0, 1, 1, 0, 0},
	}

	first, err := s.CrossTime(0.5, model.Rise, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5e-9, first, 1e-15)

	fall, err := s.CrossTime(0.5, model.Fall, first)
	require.NoError(t, err)
	assert.InDelta(t, 2.5e-9, fall, 1e-15)

	// No second rise exists.
	_, err = s.CrossTime(0.5, model.Rise, fall)
	require.Error(t, err)
	assert.True(t, IsThresholdNotFound(err))
}

func TestSeries_CrossTime_NeverCrosses(t *testing.T) {
	s := &Series{Name: "y", T: []float64{0, 1e-9}, V: []float64{0, 0.3}}

	_, err := s.CrossTime(0.5, model.Rise, 0)
	require.Error(t, err)

	var te *ThresholdNotFoundError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "y", te.Signal)
	assert.Equal(t, model.Rise, te.Edge)
}

func TestSeries_Integrate(t *testing.T) {
	// Constant 2.0 over 10ns integrates to 20n.
	s := &Series{Name: "i", T: []float64{0, 5e-9, 10e-9}, V: []float64{2, 2, 2}}
	assert.InDelta(t, 20e-9, s.Integrate(0, 10e-9), 1e-15)

	// Sub-window with interpolated bounds.
	assert.InDelta(t, 8e-9, s.Integrate(1e-9, 5e-9), 1e-15)

	// Triangle: integral of the ramp is half base times height.
	r := ramp("v")
	assert.InDelta(t, 5e-9, r.Integrate(0, 10e-9), 1e-15)
}

func TestSeries_At(t *testing.T) {
	s := ramp("v")
	assert.InDelta(t, 0.5, s.At(5e-9), 1e-12)
	assert.InDelta(t, 0.0, s.At(-1e-9), 1e-12, "clamps below window")
	assert.InDelta(t, 1.0, s.At(20e-9), 1e-12, "clamps above window")
}

func TestSeries_Mean(t *testing.T) {
	r := ramp("v")
	assert.InDelta(t, 0.5, r.Mean(0, 10e-9), 1e-12)
}
