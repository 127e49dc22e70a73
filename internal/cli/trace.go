package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AkinAguda/app-universe/internal/harness"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	RunToken string // optional - overrides the scenario's pinned run token
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	ScenarioName string               `json:"scenario_name"`
	RunToken     string               `json:"run_token"`
	Pass         bool                 `json:"pass"`
	Timeline     []harness.TraceEvent `json:"timeline"`
	State        harness.FinalState   `json:"state"`
	Errors       []string             `json:"errors,omitempty"`
	Stats        TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents   int `json:"total_events"`
	Dispatches    int `json:"dispatches"`
	Notifications int `json:"notifications"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario-file>",
		Short: "Run a scenario and print its trace",
		Long: `Run a single scenario and print the full event trace.

Shows every store interaction in dispatch order: subscriptions,
dispatched messages, subscriber notifications and state reads,
followed by the final universe state.

The output includes:
- Timeline: Chronological list of store events
- Final State: Counter value, state digest and observer cells
- Stats: Summary statistics for the run

Examples:
  appuniverse trace ./scenarios/counter-basic.yaml
  appuniverse trace ./scenarios/counter-basic.yaml --run-token debug-run-1
  appuniverse trace ./scenarios/counter-basic.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunToken, "run-token", "", "run token to use instead of the scenario's")

	return cmd
}

func runTrace(opts *TraceOptions, scenarioFile string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	// Flag wins over the scenario's pinned token
	if opts.RunToken != "" {
		scenario.RunToken = opts.RunToken
	}

	runner := harness.NewRunner(harness.WithLogger(slog.Default()))

	result, err := runner.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	// Build result
	traceResult := TraceResult{
		ScenarioName: result.ScenarioName,
		RunToken:     result.RunToken,
		Pass:         result.Pass,
		Timeline:     result.Trace,
		State:        result.State,
		Errors:       result.Errors,
		Stats:        buildTraceStats(result.Trace),
	}

	// Output results
	if opts.Format == "json" {
		if err := outputTraceJSON(cmd, traceResult); err != nil {
			return err
		}
	} else {
		outputTraceText(cmd, traceResult, opts.Verbose)
	}

	if !result.Pass {
		// Assertion failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.ScenarioName))
	}
	return nil
}

// buildTraceStats summarizes the trace by event kind.
func buildTraceStats(trace []harness.TraceEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(trace)}
	for _, event := range trace {
		switch event.Kind {
		case harness.KindDispatch:
			stats.Dispatches++
		case harness.KindNotify:
			stats.Notifications++
		}
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	status := "ok"
	if !result.Pass {
		status = "error"
	}

	response := CLIResponse{
		Status:  status,
		Data:    result,
		TraceID: result.RunToken,
	}

	if !result.Pass {
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("scenario %s failed", result.ScenarioName),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for scenario: %s\n", result.ScenarioName)
	fmt.Fprintf(w, "Run token: %s\n", result.RunToken)
	fmt.Fprintf(w, "Status: %s\n", passStatus(result.Pass))
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range result.Timeline {
			formatTimelineEvent(w, event, verbose)
		}
	}
	fmt.Fprintln(w)

	// Final state section
	digest := result.State.Digest
	if !verbose {
		digest = truncateDigest(digest)
	}
	fmt.Fprintln(w, "=== Final State ===")
	fmt.Fprintf(w, "  Counter: %d\n", result.State.Counter)
	fmt.Fprintf(w, "  Digest:  %s\n", digest)
	for _, name := range sortedNames(result.State.Cells) {
		fmt.Fprintf(w, "  Cell %s: %d\n", name, result.State.Cells[name])
	}
	for _, name := range sortedNames(result.State.Sequences) {
		fmt.Fprintf(w, "  Sequence %s: %v\n", name, result.State.Sequences[name])
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events:  %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Dispatches:    %d\n", result.Stats.Dispatches)
	fmt.Fprintf(w, "  Notifications: %d\n", result.Stats.Notifications)

	// Failures section (only on failed runs)
	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Failures ===")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event harness.TraceEvent, verbose bool) {
	switch event.Kind {
	case harness.KindSubscribe:
		fmt.Fprintf(w, "  [%d] SUB %s\n", event.Seq, event.Observer)

	case harness.KindUnsubscribe:
		fmt.Fprintf(w, "  [%d] UNSUB %s (%s)\n", event.Seq, event.Observer, event.Result)

	case harness.KindDispatch:
		fmt.Fprintf(w, "  [%d] SEND increment=%d counter=%d\n", event.Seq, deref(event.Increment), deref(event.Counter))
		if verbose && event.StateDigest != "" {
			fmt.Fprintf(w, "       Digest: %s\n", truncateDigest(event.StateDigest))
		}

	case harness.KindNotify:
		fmt.Fprintf(w, "  [%d] NOTIFY %s counter=%d\n", event.Seq, event.Observer, deref(event.Counter))
		if verbose && event.Cell != nil {
			fmt.Fprintf(w, "       Cell: %d\n", *event.Cell)
		}

	case harness.KindRead:
		fmt.Fprintf(w, "  [%d] READ counter=%d\n", event.Seq, deref(event.Counter))
	}
}

// sortedNames returns the map keys in sorted order for deterministic output.
func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// deref returns the pointed-to value, or the zero value for nil.
func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// truncateDigest truncates a long digest for display.
func truncateDigest(digest string) string {
	if len(digest) <= 16 {
		return digest
	}
	return digest[:8] + "..." + digest[len(digest)-8:]
}

// passStatus returns a human-readable pass status.
func passStatus(pass bool) string {
	if pass {
		return "Pass"
	}
	return "Fail"
}
