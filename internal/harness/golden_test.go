package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/model"
)

func TestRunWithGolden_InverterTrace(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "inv_delay_sweep.yml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestTraceSnapshot_CanonicalBytes(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "mini",
		RunToken:     "tok",
		Events: []TraceEvent{{
			Cell: "INVX1", Arc: "A (rise) -> Y (fall)", Kind: "delay",
			Slew: 1e-10, Load: 1e-15, Status: "measured", Seq: 1,
		}},
	}

	got, err := model.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err)

	want := `{"events":[{"arc":"A (rise) -> Y (fall)","cell":"INVX1","kind":"delay",` +
		`"load":1e-15,"offset":0,"seq":1,"slew":1e-10,"status":"measured"}],` +
		`"run_token":"tok","scenario_name":"mini"}`
	assert.Equal(t, want, string(got))
}
