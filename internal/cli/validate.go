package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ejcamacho11/CharLib/internal/config"
	"github.com/ejcamacho11/CharLib/internal/expr"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Library string   `json:"library,omitempty"`
	Cells   int      `json:"cells,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yml>",
		Short: "Validate a config without characterizing",
		Long: `Validate a characterization config without running any simulations.

Checks YAML structure, the embedded schema (required fields, value
ranges, simulator kinds), sweep ordering, and that every cell's
functions parse and can be sensitized into timing arcs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		_ = formatter.Error("E_CONFIG", fmt.Sprintf("config not found: %s", configPath), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("config not found: %s", configPath))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return outputValidationFailure(formatter, err)
	}

	// The config builder checks structure; arc derivation additionally
	// proves every function sensitizes its output.
	parser := expr.MustParser()
	var arcErrors []string
	for _, cell := range cfg.Cells {
		formatter.VerboseLog("deriving arcs for %s", cell.Name)
		if _, err := expr.DeriveArcs(parser, cell); err != nil {
			arcErrors = append(arcErrors, fmt.Sprintf("cell %s: %v", cell.Name, err))
		}
	}
	if len(arcErrors) > 0 {
		return outputValidationErrors(formatter, arcErrors)
	}

	return outputValidateSuccess(formatter, cfg.Name, len(cfg.Cells))
}

func outputValidateSuccess(formatter *OutputFormatter, library string, cells int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:   true,
			Library: library,
			Cells:   cells,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Config valid: library %s, %d cell(s)\n", library, cells)
	return nil
}

func outputValidationFailure(formatter *OutputFormatter, err error) error {
	var schemaErr *config.SchemaError
	if errors.As(err, &schemaErr) {
		return outputValidationErrors(formatter, []string{schemaErr.Details})
	}
	return outputValidationErrors(formatter, []string{err.Error()})
}

func outputValidationErrors(formatter *OutputFormatter, errs []string) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    "E_CONFIG",
				Message: errs[0],
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
