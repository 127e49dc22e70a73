// Package harness provides conformance testing for the app-universe state
// container.
//
// The harness loads scenario files, drives a store through a scripted flow
// of dispatches and subscription changes, and validates assertions over the
// outcome. Every run produces a trace suitable for golden comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	run_token: fixed-token-for-golden-runs
//	universe:
//	  counter: 0
//	cells:
//	  x: 100
//	observers:
//	  - name: adder
//	    action: accumulate
//	    cell: x
//	flow:
//	  - op: send
//	    increment: 1
//	  - op: unsubscribe
//	    observer: adder
//	    expect: ok
//	assertions:
//	  - type: counter_equals
//	    value: 1
//	  - type: cell_equals
//	    cell: x
//	    value: 101
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - counter_equals: Verifies the final counter value
//   - cell_equals: Verifies the final value of a named cell
//   - notify_count: Verifies how many times an observer was notified
//   - notify_order: Verifies the full notification order of the run
//   - sequence_equals: Verifies the values a recording observer saw
//
// # Deterministic Testing
//
// Scenarios that pin run_token produce byte-identical trace snapshots
// across runs, which is what golden comparison requires. Without a pinned
// token the runner's generator supplies one (UUIDv7 by default; tests
// inject testutil.FixedTokenGenerator).
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/two_observers.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
