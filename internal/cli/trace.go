package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// RunSummary is one stored run in trace list output.
type RunSummary struct {
	Token        string `json:"token"`
	CreatedAt    string `json:"created_at"`
	Cells        int    `json:"cells"`
	Measurements int    `json:"measurements"`
	Unmeasured   int    `json:"unmeasured"`
}

// TraceRow is one measurement in trace detail output.
type TraceRow struct {
	Seq        int64   `json:"seq"`
	Cell       string  `json:"cell"`
	Arc        int     `json:"arc"`
	Slew       float64 `json:"slew"`
	Load       float64 `json:"load"`
	Offset     float64 `json:"offset,omitempty"`
	Status     string  `json:"status"`
	Delay      float64 `json:"delay,omitempty"`
	Transition float64 `json:"transition,omitempty"`
	Constraint float64 `json:"constraint,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-token]",
		Short: "Inspect stored characterization runs",
		Long: `Inspect runs recorded in the measurement database.

Without a run token, lists every stored run newest first. With a
token, prints that run's measurements in seq order, the order the
engine stamped them in.

Examples:
  charlib trace --db runs.db
  charlib trace --db runs.db 01915b2e-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			return runTrace(opts, token, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite measurement database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, token string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if token == "" {
		return listRuns(ctx, st, formatter)
	}
	return showRun(ctx, st, token, formatter)
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		summaries := make([]RunSummary, 0, len(runs))
		for _, r := range runs {
			summaries = append(summaries, RunSummary{
				Token:        r.Token,
				CreatedAt:    r.CreatedAt,
				Cells:        r.Cells,
				Measurements: r.Measurements,
				Unmeasured:   r.Unmeasured,
			})
		}
		return formatter.Success(map[string]any{"runs": summaries})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  %d cell(s), %d measurement(s), %d unmeasured\n",
			r.Token, r.CreatedAt, r.Cells, r.Measurements, r.Unmeasured)
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, token string, formatter *OutputFormatter) error {
	rows, err := st.LoadRun(ctx, token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}
	if len(rows) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", token))
	}

	if formatter.Format == "json" {
		out := make([]TraceRow, 0, len(rows))
		for _, sm := range rows {
			out = append(out, traceRow(sm))
		}
		return formatter.Success(map[string]any{"run_token": token, "measurements": out})
	}

	for _, sm := range rows {
		row := traceRow(sm)
		switch {
		case sm.Measurement.Status == model.Unmeasured:
			fmt.Fprintf(formatter.Writer, "%4d  %s arc %d  %s  unmeasured: %s\n",
				row.Seq, row.Cell, row.Arc, sm.Corner, row.Reason)
		case sm.Measurement.Constraint != 0:
			fmt.Fprintf(formatter.Writer, "%4d  %s arc %d  %s  constraint=%.4g\n",
				row.Seq, row.Cell, row.Arc, sm.Corner, row.Constraint)
		default:
			fmt.Fprintf(formatter.Writer, "%4d  %s arc %d  %s  delay=%.4g transition=%.4g\n",
				row.Seq, row.Cell, row.Arc, sm.Corner, row.Delay, row.Transition)
		}
	}
	return nil
}

func traceRow(sm store.StoredMeasurement) TraceRow {
	return TraceRow{
		Seq:        sm.Measurement.Seq,
		Cell:       sm.Cell,
		Arc:        int(sm.Arc),
		Slew:       sm.Corner.Slew,
		Load:       sm.Corner.Load,
		Offset:     sm.Corner.Offset,
		Status:     sm.Measurement.Status.String(),
		Delay:      sm.Measurement.Delay,
		Transition: sm.Measurement.Transition,
		Constraint: sm.Measurement.Constraint,
		Reason:     sm.Measurement.Reason,
	}
}
