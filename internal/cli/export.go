package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ejcamacho11/CharLib/internal/config"
	"github.com/ejcamacho11/CharLib/internal/expr"
	"github.com/ejcamacho11/CharLib/internal/liberty"
	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Config   string
	Output   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <run-token>",
		Short: "Emit a Liberty library from a stored run",
		Long: `Rebuild cell models from a recorded run and emit them as Liberty.

The config supplies the cell definitions and library conditions; the
database supplies the measurements. An interrupted run exports as a
partial library with the missing corners zeroed.

Example:
  charlib export 01915b2e-... --db runs.db --config osu350.yml --out osu350.lib`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite measurement database (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "characterization config the run was made from (required)")
	cmd.Flags().StringVar(&opts.Output, "out", "", "output Liberty file (defaults to <library>.lib)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runExport(opts *ExportOptions, token string, cmd *cobra.Command) error {
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

	outPath := opts.Output
	if outPath == "" {
		outPath = cfg.Name + ".lib"
	}
	f, err := os.Create(outPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	writer := liberty.NewWriter(cfg.Name, cfg.Conditions, cfg.Sweep)
	if err := writer.Write(f, models); err != nil {
		f.Close()
		return WrapExitError(ExitFailure, "failed to emit library", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to write output file", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"run_token": token,
			"output":    outPath,
			"cells":     len(models),
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Exported %d cell(s) from run %s to %s\n", len(models), token, outPath)
	return nil
}

// rebuildModels reconstructs per-cell measurement tables from stored
// rows. Cells follow config order; a stored cell missing from the
// config is an error, since its arcs cannot be re-derived.
func rebuildModels(ctx context.Context, st *store.Store, cfg *config.Config, token string) ([]*model.CellModel, error) {
	rows, err := st.LoadRun(ctx, token)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load run", err)
	}
	if len(rows) == 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", token))
	}

	byCell := make(map[string][]store.StoredMeasurement)
	for _, sm := range rows {
		byCell[sm.Cell] = append(byCell[sm.Cell], sm)
	}

	parser := expr.MustParser()
	var models []*model.CellModel
	for _, cell := range cfg.Cells {
		cellRows, ok := byCell[cell.Name]
		if !ok {
			continue
		}
		delete(byCell, cell.Name)

		arcs, err := expr.DeriveArcs(parser, cell)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("cell %s", cell.Name), err)
		}
		cm := model.NewCellModel(cell, arcs)

		corners := make(map[model.ArcID][]model.Corner)
		for _, sm := range cellRows {
			corners[sm.Arc] = append(corners[sm.Arc], sm.Corner)
		}
		for arc, cs := range corners {
			if err := cm.RegisterCorners(arc, cs); err != nil {
				return nil, WrapExitError(ExitCommandError, fmt.Sprintf("cell %s", cell.Name), err)
			}
		}
		for _, sm := range cellRows {
			if err := cm.Insert(sm.Arc, sm.Corner, sm.Measurement); err != nil {
				return nil, WrapExitError(ExitCommandError, fmt.Sprintf("cell %s", cell.Name), err)
			}
		}
		models = append(models, cm)
	}

	if len(byCell) > 0 {
		for name := range byCell {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("run contains cell %s not present in config", name))
		}
	}
	return models, nil
}
