package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one scripted run: the starting universe, the
// observers attached to it, the flow of operations to execute, and the
// assertions evaluated over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named
	// after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunToken pins the run token so traces are reproducible. When empty,
	// the runner's token generator supplies one.
	RunToken string `yaml:"run_token,omitempty"`

	// Universe is the initial state of the counter universe.
	Universe UniverseSetup `yaml:"universe"`

	// Cells declares named external cells observers write to, with their
	// initial values. Cells referenced by observers but not declared here
	// start at zero.
	Cells map[string]int64 `yaml:"cells,omitempty"`

	// Observers declares the subscribers. They are subscribed in
	// declaration order before the flow starts, except deferred ones,
	// which wait for an explicit subscribe step.
	Observers []ObserverSpec `yaml:"observers,omitempty"`

	// Flow contains the operations to execute, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// UniverseSetup is the initial state of the counter universe.
type UniverseSetup struct {
	Counter uint8 `yaml:"counter"`
}

// ObserverSpec declares a named subscriber and the action its callback
// performs on every notification.
type ObserverSpec struct {
	// Name labels the observer in the flow, assertions, and trace.
	Name string `yaml:"name"`

	// Action is one of accumulate, add_fixed, or record.
	Action string `yaml:"action"`

	// Cell names the external cell the observer writes. Required by
	// accumulate and add_fixed, unused by record.
	Cell string `yaml:"cell,omitempty"`

	// Amount is the fixed addend for add_fixed.
	Amount int64 `yaml:"amount,omitempty"`

	// Deferred skips the automatic subscription before the flow; a
	// subscribe step attaches the observer instead.
	Deferred bool `yaml:"deferred,omitempty"`
}

// Observer actions.
const (
	// ActionAccumulate adds the observed counter value to the cell.
	ActionAccumulate = "accumulate"
	// ActionAddFixed adds a fixed amount to the cell.
	ActionAddFixed = "add_fixed"
	// ActionRecord appends the observed counter value to the observer's
	// sequence.
	ActionRecord = "record"
)

// FlowStep is one operation in a scenario's flow.
type FlowStep struct {
	// Op is one of send, clone_send, subscribe, unsubscribe, or read.
	Op string `yaml:"op"`

	// Increment is the message payload for send and clone_send.
	Increment *uint8 `yaml:"increment,omitempty"`

	// Observer names the target of subscribe and unsubscribe.
	Observer string `yaml:"observer,omitempty"`

	// Expect is the expected unsubscribe outcome, "ok" or "not_found".
	// A mismatch fails the run.
	Expect string `yaml:"expect,omitempty"`
}

// Flow operations.
const (
	OpSend        = "send"
	OpCloneSend   = "clone_send"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpRead        = "read"
)

// Unsubscribe outcomes for FlowStep.Expect.
const (
	ExpectOK       = "ok"
	ExpectNotFound = "not_found"
)

// Assertion checks one fact about the finished run.
type Assertion struct {
	// Type selects the assertion; see the Assert constants.
	Type string `yaml:"type"`

	// Value is the expected number for counter_equals and cell_equals.
	Value *int64 `yaml:"value,omitempty"`

	// Cell names the cell inspected by cell_equals.
	Cell string `yaml:"cell,omitempty"`

	// Observer names the observer inspected by notify_count and
	// sequence_equals.
	Observer string `yaml:"observer,omitempty"`

	// Count is the expected notification count for notify_count.
	Count *int `yaml:"count,omitempty"`

	// Order is the expected full notification order for notify_order.
	Order []string `yaml:"order,omitempty"`

	// Sequence is the expected recorded sequence for sequence_equals.
	Sequence []int64 `yaml:"sequence,omitempty"`
}

// Assertion types.
const (
	AssertCounterEquals  = "counter_equals"
	AssertCellEquals     = "cell_equals"
	AssertNotifyCount    = "notify_count"
	AssertNotifyOrder    = "notify_order"
	AssertSequenceEquals = "sequence_equals"
)

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// validateScenario checks structural requirements before execution so flow
// errors surface as load failures, not runtime surprises.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("scenario description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("scenario must have at least one flow step")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("scenario must have at least one assertion")
	}

	observers := make(map[string]bool, len(s.Observers))
	for i, obs := range s.Observers {
		if err := validateObserver(obs, observers); err != nil {
			return fmt.Errorf("observer %d: %w", i, err)
		}
		observers[obs.Name] = true
	}

	for i, step := range s.Flow {
		if err := validateFlowStep(step, observers); err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, observers); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	return nil
}

func validateObserver(obs ObserverSpec, seen map[string]bool) error {
	if obs.Name == "" {
		return fmt.Errorf("name is required")
	}
	if seen[obs.Name] {
		return fmt.Errorf("duplicate observer name %q", obs.Name)
	}

	switch obs.Action {
	case ActionAccumulate:
		if obs.Cell == "" {
			return fmt.Errorf("action %q requires a cell", obs.Action)
		}
	case ActionAddFixed:
		if obs.Cell == "" {
			return fmt.Errorf("action %q requires a cell", obs.Action)
		}
		if obs.Amount == 0 {
			return fmt.Errorf("action %q requires a non-zero amount", obs.Action)
		}
	case ActionRecord:
		if obs.Cell != "" {
			return fmt.Errorf("action %q does not use a cell", obs.Action)
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", obs.Action)
	}

	return nil
}

func validateFlowStep(step FlowStep, observers map[string]bool) error {
	switch step.Op {
	case OpSend, OpCloneSend:
		if step.Increment == nil {
			return fmt.Errorf("op %q requires an increment", step.Op)
		}
		if step.Observer != "" || step.Expect != "" {
			return fmt.Errorf("op %q takes only an increment", step.Op)
		}
	case OpSubscribe:
		if step.Observer == "" {
			return fmt.Errorf("op %q requires an observer", step.Op)
		}
		if !observers[step.Observer] {
			return fmt.Errorf("op %q references unknown observer %q", step.Op, step.Observer)
		}
		if step.Increment != nil || step.Expect != "" {
			return fmt.Errorf("op %q takes only an observer", step.Op)
		}
	case OpUnsubscribe:
		if step.Observer == "" {
			return fmt.Errorf("op %q requires an observer", step.Op)
		}
		if !observers[step.Observer] {
			return fmt.Errorf("op %q references unknown observer %q", step.Op, step.Observer)
		}
		if step.Expect != "" && step.Expect != ExpectOK && step.Expect != ExpectNotFound {
			return fmt.Errorf("op %q expect must be %q or %q, got %q",
				step.Op, ExpectOK, ExpectNotFound, step.Expect)
		}
		if step.Increment != nil {
			return fmt.Errorf("op %q does not take an increment", step.Op)
		}
	case OpRead:
		if step.Increment != nil || step.Observer != "" || step.Expect != "" {
			return fmt.Errorf("op %q takes no arguments", step.Op)
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	return nil
}

func validateAssertion(a Assertion, observers map[string]bool) error {
	switch a.Type {
	case AssertCounterEquals:
		if a.Value == nil {
			return fmt.Errorf("%s requires a value", a.Type)
		}
	case AssertCellEquals:
		if a.Cell == "" {
			return fmt.Errorf("%s requires a cell", a.Type)
		}
		if a.Value == nil {
			return fmt.Errorf("%s requires a value", a.Type)
		}
	case AssertNotifyCount:
		if a.Observer == "" {
			return fmt.Errorf("%s requires an observer", a.Type)
		}
		if !observers[a.Observer] {
			return fmt.Errorf("%s references unknown observer %q", a.Type, a.Observer)
		}
		if a.Count == nil {
			return fmt.Errorf("%s requires a count", a.Type)
		}
	case AssertNotifyOrder:
		for _, name := range a.Order {
			if !observers[name] {
				return fmt.Errorf("%s references unknown observer %q", a.Type, name)
			}
		}
	case AssertSequenceEquals:
		if a.Observer == "" {
			return fmt.Errorf("%s requires an observer", a.Type)
		}
		if !observers[a.Observer] {
			return fmt.Errorf("%s references unknown observer %q", a.Type, a.Observer)
		}
	case "":
		return fmt.Errorf("assertion type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	return nil
}
