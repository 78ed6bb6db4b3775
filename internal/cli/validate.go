package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/propstore/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	Path   string                    `json:"path"`
	Name   string                    `json:"name,omitempty"`
	Valid  bool                      `json:"valid"`
	Errors []harness.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenarios without running them",
		Long: `Validate scenario files against the scenario schema.

Checks structure (unknown fields, ops, kinds and error codes) and cross
references (keys and transactions declared before use). Every file is
checked and every error reported.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fv, err := validateFile(path)
		if err != nil {
			_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Valid {
			cliErr = &CLIError{Code: ErrCodeInvalidScenario, Message: "validation failed"}
		}
		if err := formatter.JSON(result, cliErr); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s (%s)\n", fv.Path, fv.Name)
				continue
			}
			fmt.Fprintf(formatter.Writer, "✗ %s\n", fv.Path)
			for _, e := range fv.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateFile returns an error only when the file cannot be read or parsed
// as YAML; schema and semantic problems are reported in the result.
func validateFile(path string) (FileValidation, error) {
	fv := FileValidation{Path: path}
	scenario, err := harness.LoadScenario(path)
	if err == nil {
		fv.Valid = true
		fv.Name = scenario.Name
		return fv, nil
	}

	var verrs harness.ValidationErrors
	if !errors.As(err, &verrs) {
		return fv, err
	}
	fv.Errors = verrs
	return fv, nil
}
