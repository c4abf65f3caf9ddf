package harness

import "github.com/ejcamacho11/CharLib/internal/engine"

// TraceEvent is one measurement in the characterization trace, in
// deterministic table order (arc-major, then slew, load, offset).
type TraceEvent struct {
	Cell   string  `json:"cell"`
	Arc    string  `json:"arc"`
	Kind   string  `json:"kind"`
	Slew   float64 `json:"slew"`
	Load   float64 `json:"load"`
	Offset float64 `json:"offset"`
	Status string  `json:"status"`
	Seq    int64   `json:"seq"`
}

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// RunToken is the token the run was recorded under.
	RunToken string `json:"run_token"`

	// Events is the measurement trace used for assertions and golden
	// comparison.
	Events []TraceEvent `json:"events"`

	// Unmeasured counts degraded corners.
	Unmeasured int `json:"unmeasured"`

	// Complete reports whether the model covered every corner.
	Complete bool `json:"complete"`

	// Errors lists assertion failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Run is the underlying engine run, for callers that need the
	// aggregated model. Excluded from serialized snapshots.
	Run *engine.Run `json:"-"`
}

// NewResult creates a passing result for a run.
func NewResult(run *engine.Run) *Result {
	return &Result{
		Pass:       true,
		RunToken:   run.Token,
		Unmeasured: run.Unmeasured,
		Complete:   run.Model.Complete(),
		Run:        run,
	}
}

// AddError records an assertion failure and fails the result.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
