package harness

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkinAguda/app-universe/internal/testutil"
)

func TestRunner_DispatchAndRead(t *testing.T) {
	scenario := &Scenario{
		Name:        "dispatch_and_read",
		Description: "One send followed by a read",
		RunToken:    "run-tok-1",
		Flow: []FlowStep{
			{Op: OpSend, Increment: ptr(uint8(3))},
			{Op: OpRead},
		},
		Assertions: []Assertion{
			{Type: AssertCounterEquals, Value: ptr(int64(3))},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "dispatch_and_read", result.ScenarioName)
	assert.Equal(t, "run-tok-1", result.RunToken)
	require.Len(t, result.Trace, 2)

	dispatch := result.Trace[0]
	assert.Equal(t, int64(1), dispatch.Seq)
	assert.Equal(t, KindDispatch, dispatch.Kind)
	assert.Equal(t, uint8(3), *dispatch.Increment)
	assert.Equal(t, uint8(3), *dispatch.Counter)
	assert.Len(t, dispatch.StateDigest, 64)

	read := result.Trace[1]
	assert.Equal(t, int64(2), read.Seq)
	assert.Equal(t, KindRead, read.Kind)
	assert.Equal(t, uint8(3), *read.Counter)

	assert.Equal(t, uint8(3), result.State.Counter)
	assert.Equal(t, dispatch.StateDigest, result.State.Digest)
}

func TestRunner_SeededUniverse(t *testing.T) {
	scenario := &Scenario{
		Name:        "seeded",
		Description: "The universe starts at the configured counter",
		Universe:    UniverseSetup{Counter: 250},
		Flow: []FlowStep{
			{Op: OpSend, Increment: ptr(uint8(10))},
		},
		Assertions: []Assertion{
			{Type: AssertCounterEquals, Value: ptr(int64(4))},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, uint8(4), result.State.Counter)
}

func TestRunner_ObserverAccumulates(t *testing.T) {
	scenario := &Scenario{
		Name:        "observer_accumulates",
		Description: "An accumulate observer folds counter values into its cell",
		RunToken:    "run-tok-2",
		Cells:       map[string]int64{"total": 100},
		Observers: []ObserverSpec{
			{Name: "adder", Action: ActionAccumulate, Cell: "total"},
		},
		Flow: []FlowStep{
			{Op: OpSend, Increment: ptr(uint8(1))},
			{Op: OpSend, Increment: ptr(uint8(2))},
		},
		Assertions: []Assertion{
			{Type: AssertCellEquals, Cell: "total", Value: ptr(int64(104))},
			{Type: AssertNotifyCount, Observer: "adder", Count: ptr(2)},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(104), result.State.Cells["total"])

	// subscribe, dispatch, notify, dispatch, notify
	require.Len(t, result.Trace, 5)
	assert.Equal(t, KindSubscribe, result.Trace[0].Kind)
	assert.Equal(t, KindNotify, result.Trace[2].Kind)
	assert.Equal(t, int64(101), *result.Trace[2].Cell)
	assert.Equal(t, int64(104), *result.Trace[4].Cell)
}

func TestRunner_RecordObserverSequence(t *testing.T) {
	scenario := &Scenario{
		Name:        "record_sequence",
		Description: "A record observer keeps every counter value it saw",
		Observers: []ObserverSpec{
			{Name: "watcher", Action: ActionRecord},
		},
		Flow: []FlowStep{
			{Op: OpSend, Increment: ptr(uint8(2))},
			{Op: OpCloneSend, Increment: ptr(uint8(3))},
		},
		Assertions: []Assertion{
			{Type: AssertSequenceEquals, Observer: "watcher", Sequence: []int64{2, 5}},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []int64{2, 5}, result.State.Sequences["watcher"])
}

func TestRunner_DeferredObserver(t *testing.T) {
	scenario := &Scenario{
		Name:        "deferred_observer",
		Description: "A deferred observer only joins after its subscribe step",
		Observers: []ObserverSpec{
			{Name: "late", Action: ActionRecord, Deferred: true},
		},
		Flow: []FlowStep{
			{Op: OpSend, Increment: ptr(uint8(1))},
			{Op: OpSubscribe, Observer: "late"},
			{Op: OpSend, Increment: ptr(uint8(1))},
		},
		Assertions: []Assertion{
			{Type: AssertNotifyCount, Observer: "late", Count: ptr(1)},
			{Type: AssertSequenceEquals, Observer: "late", Sequence: []int64{2}},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// dispatch, subscribe, dispatch, notify
	require.Len(t, result.Trace, 4)
	assert.Equal(t, KindDispatch, result.Trace[0].Kind)
	assert.Equal(t, KindSubscribe, result.Trace[1].Kind)
	assert.Equal(t, KindNotify, result.Trace[3].Kind)
}

func TestRunner_StaleHandleUnsubscribe(t *testing.T) {
	scenario := &Scenario{
		Name:        "stale_handle",
		Description: "A second unsubscribe retries the stale handle and fails",
		Observers: []ObserverSpec{
			{Name: "solo", Action: ActionRecord},
		},
		Flow: []FlowStep{
			{Op: OpUnsubscribe, Observer: "solo", Expect: ExpectOK},
			{Op: OpUnsubscribe, Observer: "solo", Expect: ExpectNotFound},
		},
		Assertions: []Assertion{
			{Type: AssertNotifyCount, Observer: "solo", Count: ptr(0)},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, ExpectOK, result.Trace[1].Result)
	assert.Equal(t, ExpectNotFound, result.Trace[2].Result)
}

func TestRunner_UnsubscribeExpectMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "expect_mismatch",
		Description: "An unsubscribe expected to fail actually succeeds",
		Observers: []ObserverSpec{
			{Name: "solo", Action: ActionRecord},
		},
		Flow: []FlowStep{
			{Op: OpUnsubscribe, Observer: "solo", Expect: ExpectNotFound},
		},
		Assertions: []Assertion{
			{Type: AssertNotifyCount, Observer: "solo", Count: ptr(0)},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unsubscribe solo: expected not_found, got ok")
}

func TestRunner_AssertionFailureRecorded(t *testing.T) {
	scenario := &Scenario{
		Name:        "assertion_failure",
		Description: "A wrong expectation fails the run but not the harness",
		Flow: []FlowStep{
			{Op: OpSend, Increment: ptr(uint8(1))},
		},
		Assertions: []Assertion{
			{Type: AssertCounterEquals, Value: ptr(int64(9))},
		},
	}

	result, err := NewRunner().Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: counter_equals")
}

func TestRunner_TokenGenerator(t *testing.T) {
	scenario := &Scenario{
		Name:        "generated_token",
		Description: "An unpinned scenario takes its token from the generator",
		Flow: []FlowStep{
			{Op: OpRead},
		},
		Assertions: []Assertion{
			{Type: AssertCounterEquals, Value: ptr(int64(0))},
		},
	}

	runner := NewRunner(WithTokenGenerator(testutil.NewFixedTokenGenerator("fixed-token-1")))
	result, err := runner.Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, "fixed-token-1", result.RunToken)
}

func TestRunner_PinnedTokenBeatsGenerator(t *testing.T) {
	scenario := &Scenario{
		Name:        "pinned_token",
		Description: "A pinned run token wins over the generator",
		RunToken:    "pinned",
		Flow: []FlowStep{
			{Op: OpRead},
		},
		Assertions: []Assertion{
			{Type: AssertCounterEquals, Value: ptr(int64(0))},
		},
	}

	gen := testutil.NewFixedTokenGenerator("unused")
	result, err := NewRunner(WithTokenGenerator(gen)).Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, "pinned", result.RunToken)
	// The generator was never consulted.
	assert.Equal(t, "unused", gen.Generate())
}

func TestRunner_DefaultTokenIsUUIDv7(t *testing.T) {
	scenario := &Scenario{
		Name:        "default_token",
		Description: "The default runner stamps a UUIDv7 run token",
		Flow: []FlowStep{
			{Op: OpRead},
		},
		Assertions: []Assertion{
			{Type: AssertCounterEquals, Value: ptr(int64(0))},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	parsed, err := uuid.Parse(result.RunToken)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestRunner_WithLogger(t *testing.T) {
	scenario := &Scenario{
		Name:        "logged",
		Description: "The runner logs run boundaries",
		RunToken:    "log-tok",
		Flow: []FlowStep{
			{Op: OpSend, Increment: ptr(uint8(1))},
		},
		Assertions: []Assertion{
			{Type: AssertCounterEquals, Value: ptr(int64(1))},
		},
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	_, err := NewRunner(WithLogger(logger)).Run(scenario)
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "running scenario")
	assert.Contains(t, logs, "scenario finished")
	assert.Contains(t, logs, "log-tok")
}

func TestResult_NotifyHelpers(t *testing.T) {
	result := &Result{
		Trace: []TraceEvent{
			{Seq: 1, Kind: KindSubscribe, Observer: "a"},
			{Seq: 2, Kind: KindNotify, Observer: "a"},
			{Seq: 3, Kind: KindNotify, Observer: "b"},
			{Seq: 4, Kind: KindNotify, Observer: "a"},
		},
	}

	assert.Equal(t, []string{"a", "b", "a"}, result.NotifyOrder())
	assert.Equal(t, 2, result.NotifyCount("a"))
	assert.Equal(t, 1, result.NotifyCount("b"))
	assert.Zero(t, result.NotifyCount("c"))
}

func TestResult_AddErrorFlipsPass(t *testing.T) {
	result := NewResult("x", "tok")
	assert.True(t, result.Pass)

	result.AddError("boom")

	assert.False(t, result.Pass)
	assert.Equal(t, []string{"boom"}, result.Errors)
}
