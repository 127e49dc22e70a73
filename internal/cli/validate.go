package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AkinAguda/app-universe/internal/harness"
)

// FileValidation holds the validation outcome for a single scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files without running them.

Performs YAML parsing and schema validation on each file: unknown
fields, missing required fields, malformed flow steps and assertion
types are all reported. Faster than test for editing feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Missing files are command-level errors, not validation failures
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return outputValidateError(formatter, ErrCodeLoad, fmt.Sprintf("scenario file not found: %s", file))
		}
	}

	result := ValidationResult{
		Valid: true,
		Files: make([]FileValidation, 0, len(files)),
	}

	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		fileResult := FileValidation{File: file, Valid: true}
		if _, err := harness.LoadScenario(file); err != nil {
			fileResult.Valid = false
			fileResult.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fileResult)

		if formatter.Format != "json" {
			if fileResult.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", file)
			} else {
				fmt.Fprintf(formatter.Writer, "✗ %s\n", file)
				fmt.Fprintf(formatter.Writer, "  %s\n", fileResult.Error)
			}
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All scenarios valid")
	return nil
}

// outputValidateError outputs a single command-level validation error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Missing inputs are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs validation failures.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	invalid := 0
	for _, f := range result.Files {
		if !f.Valid {
			invalid++
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("%d scenario file(s) failed validation", invalid),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", invalid))
	}

	// Text format
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", invalid))
}
