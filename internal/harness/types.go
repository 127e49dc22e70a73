package harness

// Trace event kinds.
const (
	KindSubscribe   = "subscribe"
	KindUnsubscribe = "unsubscribe"
	KindDispatch    = "dispatch"
	KindNotify      = "notify"
	KindRead        = "read"
)

// TraceEvent is one entry in a run's trace. Seq and Kind are always set;
// the remaining fields are populated per kind.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Kind string `json:"kind"`

	// Observer is set on subscribe, unsubscribe, and notify events.
	Observer string `json:"observer,omitempty"`

	// Increment is the payload of a dispatch event.
	Increment *uint8 `json:"increment,omitempty"`

	// Counter is the universe's counter after the event, set on dispatch,
	// notify, and read events.
	Counter *uint8 `json:"counter,omitempty"`

	// Cell is the observer's cell value after its callback ran, set on
	// notify events whose observer writes a cell.
	Cell *int64 `json:"cell,omitempty"`

	// StateDigest is the canonical digest of the universe after a dispatch.
	StateDigest string `json:"state_digest,omitempty"`

	// Result is the outcome of an unsubscribe event: "ok" or "not_found".
	Result string `json:"result,omitempty"`
}

// FinalState captures the universe and observer-visible state when the
// flow finished.
type FinalState struct {
	Counter   uint8              `json:"counter"`
	Digest    string             `json:"digest"`
	Cells     map[string]int64   `json:"cells,omitempty"`
	Sequences map[string][]int64 `json:"sequences,omitempty"`
}

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioName string       `json:"scenario_name"`
	RunToken     string       `json:"run_token"`
	Pass         bool         `json:"pass"`
	Trace        []TraceEvent `json:"trace"`
	Errors       []string     `json:"errors,omitempty"`
	State        FinalState   `json:"state"`
}

// NewResult creates a passing result; AddError flips it.
func NewResult(scenarioName, runToken string) *Result {
	return &Result{
		ScenarioName: scenarioName,
		RunToken:     runToken,
		Pass:         true,
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// NotifyOrder returns the observers of the run's notify events, in order.
func (r *Result) NotifyOrder() []string {
	var order []string
	for _, ev := range r.Trace {
		if ev.Kind == KindNotify {
			order = append(order, ev.Observer)
		}
	}
	return order
}

// NotifyCount returns how many times the named observer was notified.
func (r *Result) NotifyCount(observer string) int {
	count := 0
	for _, ev := range r.Trace {
		if ev.Kind == KindNotify && ev.Observer == observer {
			count++
		}
	}
	return count
}
