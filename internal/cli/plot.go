package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ejcamacho11/CharLib/internal/config"
	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/plot"
	"github.com/ejcamacho11/CharLib/internal/store"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	*RootOptions
	Database string
	Config   string
	Cell     string
	Arc      int
	Metric   string
	Output   string
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plot <run-token>",
		Short: "Render a measurement surface from a stored run",
		Long: `Render one arc's measurements across the sweep grid as a heatmap PNG.

Example:
  charlib plot 01915b2e-... --db runs.db --config osu350.yml \
    --cell INVX1 --arc 0 --metric delay --out invx1_delay.png`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite measurement database (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "characterization config the run was made from (required)")
	cmd.Flags().StringVar(&opts.Cell, "cell", "", "cell to plot (required)")
	cmd.Flags().IntVar(&opts.Arc, "arc", 0, "arc id to plot")
	cmd.Flags().StringVar(&opts.Metric, "metric", "delay", "metric to plot (delay|transition|energy)")
	cmd.Flags().StringVar(&opts.Output, "out", "", "output PNG file (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("cell")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runPlot(opts *PlotOptions, token string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
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
	models, err := rebuildModels(ctx, st, cfg, token)
	if err != nil {
		return err
	}

	var cm *model.CellModel
	for _, m := range models {
		if m.Cell.Name == opts.Cell {
			cm = m
			break
		}
	}
	if cm == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("run has no measurements for cell %s", opts.Cell))
	}

	p, err := plot.Surface(cm, model.ArcID(opts.Arc), cfg.SweepFor(opts.Cell), plot.Metric(opts.Metric))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build plot", err)
	}
	if err := plot.SavePNG(p, opts.Output); err != nil {
		return WrapExitError(ExitFailure, "failed to save plot", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"run_token": token,
			"cell":      opts.Cell,
			"arc":       opts.Arc,
			"metric":    opts.Metric,
			"output":    opts.Output,
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %s (%s arc %d, %s)\n", opts.Output, opts.Cell, opts.Arc, opts.Metric)
	return nil
}
