package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AkinAguda/app-universe/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run store scenarios",
		Long: `Run scenario files against the store and evaluate their assertions.

Each scenario seeds a counter universe, walks its flow steps and checks
its assertions against the recorded trace. When a golden file exists
under <scenarios-dir>/golden, the canonical trace is also compared
against it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  appuniverse test ./scenarios
  appuniverse test ./scenarios --filter "counter-*"
  appuniverse test ./scenarios --update
  appuniverse test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return fmt.Errorf("failed to find scenarios: %w", err)
	}
	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	runner := harness.NewRunner(harness.WithLogger(slog.Default()))

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(runner, scenarioFile, opts, cmd.OutOrStdout())
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles walks dir for .yaml/.yml scenario files. The optional
// glob filter matches against the file name without its extension.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			stem := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, stem)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario loads and executes one scenario file, prints its verdict in
// text mode, and returns its result entry.
func runScenario(runner *harness.Runner, scenarioFile string, opts *TestOptions, w io.Writer) ScenarioResult {
	text := opts.Format != "json"

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return failScenario(w, text, filepath.Base(scenarioFile),
			[]string{fmt.Sprintf("Load error: %v", err)},
			[]string{fmt.Sprintf("failed to load scenario: %v", err)})
	}

	result, err := runner.Run(scenario)
	if err != nil {
		return failScenario(w, text, scenario.Name,
			[]string{fmt.Sprintf("Execution error: %v", err)},
			[]string{fmt.Sprintf("execution failed: %v", err)})
	}

	if opts.Update {
		if err := updateGoldenFile(result, scenarioFile); err != nil {
			return failScenario(w, text, scenario.Name,
				[]string{fmt.Sprintf("Golden update error: %v", err)},
				[]string{fmt.Sprintf("failed to update golden file: %v", err)})
		}
		return passScenario(w, text, scenario.Name, " (golden updated)")
	}

	// Judge against the golden file when one exists; scenarios without one
	// are judged by their assertions alone.
	goldenPath := goldenFilePath(scenarioFile)
	if _, err := os.Stat(goldenPath); !os.IsNotExist(err) {
		match, err := compareWithGolden(result, goldenPath)
		if err != nil {
			return failScenario(w, text, scenario.Name,
				[]string{fmt.Sprintf("Golden comparison error: %v", err)},
				[]string{fmt.Sprintf("golden comparison failed: %v", err)})
		}
		if !match {
			return failScenario(w, text, scenario.Name,
				[]string{"Golden file mismatch (run with --update to regenerate)"},
				[]string{"trace does not match golden file"})
		}
	}

	if !result.Pass {
		return failScenario(w, text, scenario.Name, result.Errors, result.Errors)
	}
	return passScenario(w, text, scenario.Name, "")
}

// passScenario prints a pass line in text mode and returns the passing
// result entry. suffix annotates the line, e.g. " (golden updated)".
func passScenario(w io.Writer, text bool, name, suffix string) ScenarioResult {
	if text {
		fmt.Fprintf(w, "✓ %s%s\n", name, suffix)
	}
	return ScenarioResult{Name: name, Pass: true}
}

// failScenario prints a failure with its detail lines in text mode and
// returns the failing result entry. detail is what the user sees; errs is
// what the JSON report carries.
func failScenario(w io.Writer, text bool, name string, detail, errs []string) ScenarioResult {
	if text {
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, line := range detail {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return ScenarioResult{Name: name, Pass: false, Errors: errs}
}

// goldenFilePath returns the golden file for a scenario: a .golden file
// with the same stem under the scenario directory's golden/ subdirectory.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", stem+".golden")
}

// updateGoldenFile writes result's canonical trace snapshot as the golden
// file for scenarioFile, creating the golden directory if needed.
func updateGoldenFile(result *harness.Result, scenarioFile string) error {
	data, err := harness.NewTraceSnapshot(result).MarshalCanonical()
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	goldenPath := goldenFilePath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden reports whether result's canonical trace snapshot is
// byte-identical to the golden file.
func compareWithGolden(result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}

	currentData, err := harness.NewTraceSnapshot(result).MarshalCanonical()
	if err != nil {
		return false, fmt.Errorf("failed to marshal current trace: %w", err)
	}

	return bytes.Equal(goldenData, currentData), nil
}

// outputTestJSON renders the whole run as one CLIResponse document.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText prints the summary line and maps failures to exit code 1.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
