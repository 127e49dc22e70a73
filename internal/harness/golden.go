package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/AkinAguda/app-universe/internal/canon"
)

// TraceSnapshot is the golden-file form of a run: the scenario identity
// plus the full trace, canonically marshaled so byte comparison is exact.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunToken     string       `json:"run_token"`
	Trace        []TraceEvent `json:"trace"`
}

// NewTraceSnapshot builds the snapshot for a finished run.
func NewTraceSnapshot(result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: result.ScenarioName,
		RunToken:     result.RunToken,
		Trace:        result.Trace,
	}
}

// MarshalCanonical renders the snapshot as canonical JSON. The same bytes
// back both goldie fixtures and the CLI's golden comparison.
func (s TraceSnapshot) MarshalCanonical() ([]byte, error) {
	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		trace[i] = eventCanonicalMap(event)
	}

	return canon.Marshal(map[string]any{
		"scenario_name": s.ScenarioName,
		"run_token":     s.RunToken,
		"trace":         trace,
	})
}

// eventCanonicalMap converts one trace event to the canonical value model.
// Optional fields are included only when the event kind carries them, so
// snapshots never contain noise keys.
func eventCanonicalMap(ev TraceEvent) map[string]any {
	m := map[string]any{
		"seq":  ev.Seq,
		"kind": ev.Kind,
	}
	if ev.Observer != "" {
		m["observer"] = ev.Observer
	}
	if ev.Increment != nil {
		m["increment"] = int64(*ev.Increment)
	}
	if ev.Counter != nil {
		m["counter"] = int64(*ev.Counter)
	}
	if ev.Cell != nil {
		m["cell"] = *ev.Cell
	}
	if ev.StateDigest != "" {
		m["state_digest"] = ev.StateDigest
	}
	if ev.Result != "" {
		m["result"] = ev.Result
	}
	return m
}

// RunWithGolden executes scenario and compares its trace snapshot against
// the golden file named after the scenario. Scenarios used this way should
// pin run_token; otherwise every run produces different bytes.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("running scenario %s: %v", scenario.Name, err)
	}

	AssertGolden(t, scenario.Name, result)
	return result
}

// AssertGolden compares result's trace snapshot against the named golden
// file under testdata/scenarios/golden. Useful when the scenario has
// already been run and only the comparison is needed.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := NewTraceSnapshot(result).MarshalCanonical()
	if err != nil {
		t.Fatalf("marshaling trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/scenarios/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
