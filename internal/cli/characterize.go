package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ejcamacho11/CharLib/internal/config"
	"github.com/ejcamacho11/CharLib/internal/engine"
	"github.com/ejcamacho11/CharLib/internal/expr"
	"github.com/ejcamacho11/CharLib/internal/liberty"
	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/spice"
	"github.com/ejcamacho11/CharLib/internal/store"
	"github.com/ejcamacho11/CharLib/internal/testutil"
)

// CharacterizeOptions holds flags for the characterize command.
type CharacterizeOptions struct {
	*RootOptions
	Database string
	Output   string
	Cells    []string

	// TokenGenerator allows overriding the run token generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	TokenGenerator engine.RunTokenGenerator
}

// CellResult summarizes one characterized cell. A skipped cell carries
// the reason in Error and contributes nothing to the library.
type CellResult struct {
	Name         string `json:"name"`
	RunToken     string `json:"run_token,omitempty"`
	Arcs         int    `json:"arcs"`
	Measurements int    `json:"measurements"`
	Unmeasured   int    `json:"unmeasured"`
	Complete     bool   `json:"complete"`
	Error        string `json:"error,omitempty"`
}

// CharacterizeResult is the overall characterization outcome.
type CharacterizeResult struct {
	Library string       `json:"library"`
	Output  string       `json:"output"`
	Cells   []CellResult `json:"cells"`
}

// NewCharacterizeCommand creates the characterize command.
func NewCharacterizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CharacterizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "characterize <config.yml>",
		Short: "Characterize cells and emit a Liberty library",
		Long: `Characterize every configured cell and emit a Liberty library.

Each cell's timing arcs are derived from its function (or clocking),
swept across the configured slew and load grid through the SPICE
backend, and aggregated into lookup tables. Corners that keep failing
degrade to unmeasured; the library is still emitted, marked partial.

Examples:
  charlib characterize ./osu350.yml
  charlib characterize ./osu350.yml --out osu350.lib --db runs.db
  charlib characterize ./osu350.yml --cell INVX1 --cell NAND2X1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCharacterize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite measurement database (optional)")
	cmd.Flags().StringVar(&opts.Output, "out", "", "output Liberty file (defaults to <library>.lib)")
	cmd.Flags().StringArrayVar(&opts.Cells, "cell", nil, "characterize only the named cell (repeatable)")

	return cmd
}

func runCharacterize(opts *CharacterizeOptions, configPath string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	log.Info("config loaded", "library", cfg.Name, "cells", len(cfg.Cells))

	cells, err := selectCells(cfg, opts.Cells)
	if err != nil {
		return WrapExitError(ExitCommandError, "cell selection", err)
	}

	sim, err := buildSimulator(cfg.Simulator, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "simulator", err)
	}

	var recorder engine.Recorder
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		recorder = st
	}

	tokenGen := opts.TokenGenerator
	if tokenGen == nil {
		tokenGen = engine.UUIDv7Generator{}
	}

	// Stop dispatching on Ctrl-C; in-flight trials finish and the
	// partial run is still recorded.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, stopping sweep", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	parser := expr.MustParser()
	result := CharacterizeResult{Library: cfg.Name}
	var models []*model.CellModel

	for _, cell := range cells {
		arcs, err := expr.DeriveArcs(parser, cell)
		if err != nil {
			if expr.IsUnsensitizable(err) {
				// One bad function must not sink the rest of the
				// library; the cell is reported and left out.
				log.Error("cell skipped", "cell", cell.Name, "error", err)
				result.Cells = append(result.Cells, CellResult{Name: cell.Name, Error: err.Error()})
				continue
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("cell %s", cell.Name), err)
		}

		eng := engine.New(sim, cfg.Conditions, cfg.SweepFor(cell.Name), tokenGen,
			engine.WithWorkers(cfg.Workers),
			engine.WithTimeout(cfg.Timeout),
			engine.WithRetry(engine.RetryPolicy{MaxAttempts: cfg.Retries}),
			engine.WithRecorder(recorder),
			engine.WithLogger(log),
		)
		run, err := eng.Characterize(ctx, cell, arcs)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("characterizing %s", cell.Name), err)
		}

		models = append(models, run.Model)
		result.Cells = append(result.Cells, CellResult{
			Name:         cell.Name,
			RunToken:     run.Token,
			Arcs:         len(arcs),
			Measurements: len(run.Model.Table()),
			Unmeasured:   run.Unmeasured,
			Complete:     run.Model.Complete(),
		})
	}

	outPath := opts.Output
	if outPath == "" {
		outPath = cfg.Name + ".lib"
	}
	result.Output = outPath

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

	return outputCharacterizeResult(opts, cmd, result)
}

// selectCells resolves the --cell filters against the config, keeping
// config order. No filters selects every cell.
func selectCells(cfg *config.Config, names []string) ([]*model.Cell, error) {
	if len(names) == 0 {
		return cfg.Cells, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := cfg.Cell(name); !ok {
			return nil, fmt.Errorf("cell %s not in config", name)
		}
		wanted[name] = true
	}
	var cells []*model.Cell
	for _, cell := range cfg.Cells {
		if wanted[cell.Name] {
			cells = append(cells, cell)
		}
	}
	return cells, nil
}

// buildSimulator constructs the SPICE backend named in the config. The
// fake backend serves dry runs and tests without a SPICE install.
func buildSimulator(sect config.SimulatorSection, log *slog.Logger) (spice.Simulator, error) {
	switch sect.Kind {
	case "ngspice":
		return &spice.Ngspice{
			Path:      sect.Path,
			WorkDir:   sect.WorkDir,
			KeepFiles: sect.KeepFiles,
			Log:       log,
		}, nil
	case "hspice":
		return &spice.Hspice{
			Path:      sect.Path,
			WorkDir:   sect.WorkDir,
			KeepFiles: sect.KeepFiles,
			Log:       log,
		}, nil
	case "fake":
		return testutil.NewFakeSimulator(), nil
	default:
		return nil, fmt.Errorf("unknown simulator kind %q", sect.Kind)
	}
}

func outputCharacterizeResult(opts *CharacterizeOptions, cmd *cobra.Command, result CharacterizeResult) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	totalUnmeasured := 0
	for _, c := range result.Cells {
		if c.Error != "" {
			fmt.Fprintf(w, "✗ %s: skipped: %s\n", c.Name, c.Error)
			continue
		}
		mark := "✓"
		if !c.Complete {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s: %d arcs, %d measurements, %d unmeasured (run %s)\n",
			mark, c.Name, c.Arcs, c.Measurements, c.Unmeasured, c.RunToken)
		totalUnmeasured += c.Unmeasured
	}
	if totalUnmeasured > 0 {
		fmt.Fprintf(w, "Wrote %s (partial: %d unmeasured corners)\n", result.Output, totalUnmeasured)
	} else {
		fmt.Fprintf(w, "Wrote %s\n", result.Output)
	}
	return nil
}
