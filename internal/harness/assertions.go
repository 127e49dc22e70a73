package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails. It includes the full
// trace so the failure message shows what actually happened.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", formatTraceEvent(event))
	}

	return buf.String()
}

// formatTraceEvent renders one event as a single line for failure output.
func formatTraceEvent(ev TraceEvent) string {
	switch ev.Kind {
	case KindSubscribe:
		return fmt.Sprintf("[%d] subscribe %s", ev.Seq, ev.Observer)
	case KindUnsubscribe:
		return fmt.Sprintf("[%d] unsubscribe %s -> %s", ev.Seq, ev.Observer, ev.Result)
	case KindDispatch:
		return fmt.Sprintf("[%d] dispatch increment=%d counter=%d", ev.Seq, *ev.Increment, *ev.Counter)
	case KindNotify:
		if ev.Cell != nil {
			return fmt.Sprintf("[%d] notify %s counter=%d cell=%d", ev.Seq, ev.Observer, *ev.Counter, *ev.Cell)
		}
		return fmt.Sprintf("[%d] notify %s counter=%d", ev.Seq, ev.Observer, *ev.Counter)
	case KindRead:
		return fmt.Sprintf("[%d] read counter=%d", ev.Seq, *ev.Counter)
	default:
		return fmt.Sprintf("[%d] %s", ev.Seq, ev.Kind)
	}
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages. An empty slice means all assertions passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCounterEquals:
		actual := int64(result.State.Counter)
		if actual != *a.Value {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("counter == %d", *a.Value),
				Actual:   fmt.Sprintf("counter == %d", actual),
				Trace:    result.Trace,
			}
		}

	case AssertCellEquals:
		actual, ok := result.State.Cells[a.Cell]
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("cell %q == %d", a.Cell, *a.Value),
				Actual:   fmt.Sprintf("cell %q does not exist", a.Cell),
				Trace:    result.Trace,
			}
		}
		if actual != *a.Value {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("cell %q == %d", a.Cell, *a.Value),
				Actual:   fmt.Sprintf("cell %q == %d", a.Cell, actual),
				Trace:    result.Trace,
			}
		}

	case AssertNotifyCount:
		actual := result.NotifyCount(a.Observer)
		if actual != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s notified %d times", a.Observer, *a.Count),
				Actual:   fmt.Sprintf("%s notified %d times", a.Observer, actual),
				Trace:    result.Trace,
			}
		}

	case AssertNotifyOrder:
		actual := result.NotifyOrder()
		if !slices.Equal(actual, a.Order) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("notify order %v", a.Order),
				Actual:   fmt.Sprintf("notify order %v", actual),
				Trace:    result.Trace,
			}
		}

	case AssertSequenceEquals:
		actual := result.State.Sequences[a.Observer]
		if !slices.Equal(actual, a.Sequence) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s recorded %v", a.Observer, a.Sequence),
				Actual:   fmt.Sprintf("%s recorded %v", a.Observer, actual),
				Trace:    result.Trace,
			}
		}
	}

	return nil
}
