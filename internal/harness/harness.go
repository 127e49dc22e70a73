package harness

import (
	"fmt"
	"io"
	"log/slog"

	appuniverse "github.com/AkinAguda/app-universe"
	"github.com/AkinAguda/app-universe/internal/canon"
)

// DigestDomain prefixes state digests so they never collide with canonical
// hashes from other contexts.
const DigestDomain = "app-universe/state/v1"

// Runner executes scenarios. The zero value is not usable; create one with
// NewRunner.
type Runner struct {
	logger *slog.Logger
	tokens TokenGenerator
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used by the runner and passed to the store
// under test. The default discards everything.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithTokenGenerator overrides the run token generator. Tests inject
// deterministic generators here; scenarios that pin run_token never
// consult the generator at all.
func WithTokenGenerator(g TokenGenerator) RunnerOption {
	return func(r *Runner) {
		r.tokens = g
	}
}

// NewRunner creates a runner. Defaults: a discarding logger and UUIDv7 run
// tokens.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tokens: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes scenario with a default runner.
func Run(scenario *Scenario) (*Result, error) {
	return NewRunner().Run(scenario)
}

// runState carries the mutable pieces of one run. The runner is
// single-goroutine: observer callbacks execute synchronously inside Send,
// so no locking is needed here.
type runState struct {
	result *Result
	seq    int64

	cells     map[string]int64
	sequences map[string][]int64
	handles   map[string]appuniverse.Subscription

	// pending collects the notify events of the dispatch in progress, in
	// callback order. The dispatch event is appended first and these after
	// it, so the trace reads in causal order.
	pending []TraceEvent
}

func (rs *runState) nextSeq() int64 {
	rs.seq++
	return rs.seq
}

// Run executes one scenario and returns its result. The returned error
// covers harness failures; scenario-level failures, such as assertion
// mismatches or unexpected unsubscribe outcomes, are recorded on the
// result instead.
func (r *Runner) Run(scenario *Scenario) (*Result, error) {
	token := scenario.RunToken
	if token == "" {
		token = r.tokens.Generate()
	}

	r.logger.Info("running scenario", "scenario", scenario.Name, "run_token", token)

	store := appuniverse.New[Increment](
		&CounterState{Counter: scenario.Universe.Counter},
		appuniverse.WithLogger(r.logger),
	)

	rs := &runState{
		result:    NewResult(scenario.Name, token),
		cells:     make(map[string]int64, len(scenario.Cells)),
		sequences: make(map[string][]int64),
		handles:   make(map[string]appuniverse.Subscription, len(scenario.Observers)),
	}
	for name, value := range scenario.Cells {
		rs.cells[name] = value
	}

	for _, obs := range scenario.Observers {
		if !obs.Deferred {
			subscribeObserver(store, rs, obs)
		}
	}

	for i, step := range scenario.Flow {
		if err := executeStep(store, scenario, rs, step); err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i, step.Op, err)
		}
	}

	if err := finishResult(store, rs); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(rs.result, scenario.Assertions) {
		rs.result.AddError(msg)
	}

	r.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", rs.result.Pass,
		"events", len(rs.result.Trace))

	return rs.result, nil
}

// subscribeObserver attaches obs to the store and records the subscribe
// event. The handle is kept so later steps can unsubscribe by name; it is
// deliberately not cleared on unsubscribe, so a second unsubscribe retries
// the same stale handle.
func subscribeObserver(store CounterStore, rs *runState, obs ObserverSpec) {
	rs.handles[obs.Name] = store.Subscribe(observerCallback(rs, obs))
	rs.result.Trace = append(rs.result.Trace, TraceEvent{
		Seq:      rs.nextSeq(),
		Kind:     KindSubscribe,
		Observer: obs.Name,
	})
}

// observerCallback builds the subscriber for obs. The callback reads the
// post-dispatch counter through the handle it receives, applies the
// observer's action, and queues a notify event for the trace.
func observerCallback(rs *runState, obs ObserverSpec) appuniverse.Subscriber[Increment, *CounterState] {
	return func(u CounterStore) {
		var counter uint8
		u.Read(func(core *CounterState) {
			counter = core.Counter
		})

		event := TraceEvent{
			Kind:     KindNotify,
			Observer: obs.Name,
			Counter:  ptr(counter),
		}

		switch obs.Action {
		case ActionAccumulate:
			rs.cells[obs.Cell] += int64(counter)
			event.Cell = ptr(rs.cells[obs.Cell])
		case ActionAddFixed:
			rs.cells[obs.Cell] += obs.Amount
			event.Cell = ptr(rs.cells[obs.Cell])
		case ActionRecord:
			rs.sequences[obs.Name] = append(rs.sequences[obs.Name], int64(counter))
		}

		rs.pending = append(rs.pending, event)
	}
}

func executeStep(store CounterStore, scenario *Scenario, rs *runState, step FlowStep) error {
	switch step.Op {
	case OpSend:
		return dispatch(store, rs, *step.Increment)

	case OpCloneSend:
		// Dispatch through a fresh handle; the trace must come out
		// identical to a send through the original.
		return dispatch(store.Clone(), rs, *step.Increment)

	case OpSubscribe:
		subscribeObserver(store, rs, observerSpec(scenario, step.Observer))
		return nil

	case OpUnsubscribe:
		outcome := ExpectOK
		if err := store.Unsubscribe(rs.handles[step.Observer]); err != nil {
			if !appuniverse.IsSubscriptionNotFound(err) {
				return err
			}
			outcome = ExpectNotFound
		}
		rs.result.Trace = append(rs.result.Trace, TraceEvent{
			Seq:      rs.nextSeq(),
			Kind:     KindUnsubscribe,
			Observer: step.Observer,
			Result:   outcome,
		})
		if step.Expect != "" && step.Expect != outcome {
			rs.result.AddError(fmt.Sprintf(
				"unsubscribe %s: expected %s, got %s", step.Observer, step.Expect, outcome))
		}
		return nil

	case OpRead:
		var counter uint8
		store.Read(func(core *CounterState) {
			counter = core.Counter
		})
		rs.result.Trace = append(rs.result.Trace, TraceEvent{
			Seq:     rs.nextSeq(),
			Kind:    KindRead,
			Counter: ptr(counter),
		})
		return nil

	default:
		// Validation rejects unknown ops before execution.
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// observerSpec returns the declared spec for name. Validation guarantees
// it exists.
func observerSpec(scenario *Scenario, name string) ObserverSpec {
	for _, obs := range scenario.Observers {
		if obs.Name == name {
			return obs
		}
	}
	return ObserverSpec{Name: name}
}

// dispatch sends one increment and flushes the trace: first the dispatch
// event, then the notifications it caused, in callback order. Notify
// events are queued by the callbacks while Send runs; their sequence
// numbers are assigned afterwards because the post-dispatch state is only
// known once Send returns.
func dispatch(store CounterStore, rs *runState, increment uint8) error {
	rs.pending = rs.pending[:0]
	store.Send(Increment{By: increment})

	var counter uint8
	store.Read(func(core *CounterState) {
		counter = core.Counter
	})

	digest, err := stateDigest(counter)
	if err != nil {
		return err
	}

	rs.result.Trace = append(rs.result.Trace, TraceEvent{
		Seq:         rs.nextSeq(),
		Kind:        KindDispatch,
		Increment:   ptr(increment),
		Counter:     ptr(counter),
		StateDigest: digest,
	})
	for _, event := range rs.pending {
		event.Seq = rs.nextSeq()
		rs.result.Trace = append(rs.result.Trace, event)
	}
	rs.pending = rs.pending[:0]

	return nil
}

// stateDigest computes the canonical digest of a universe snapshot.
func stateDigest(counter uint8) (string, error) {
	digest, err := canon.Digest(DigestDomain, map[string]any{
		"counter": int64(counter),
	})
	if err != nil {
		return "", fmt.Errorf("state digest: %w", err)
	}
	return digest, nil
}

// finishResult captures the final universe and observer state.
func finishResult(store CounterStore, rs *runState) error {
	var counter uint8
	store.Read(func(core *CounterState) {
		counter = core.Counter
	})

	digest, err := stateDigest(counter)
	if err != nil {
		return err
	}

	rs.result.State = FinalState{
		Counter: counter,
		Digest:  digest,
	}
	if len(rs.cells) > 0 {
		rs.result.State.Cells = rs.cells
	}
	if len(rs.sequences) > 0 {
		rs.result.State.Sequences = rs.sequences
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
