package harness

import (
	appuniverse "github.com/AkinAguda/app-universe"
)

// CounterState is the universe scenarios run against: a single uint8
// counter.
type CounterState struct {
	Counter uint8
}

// Increment is the only message CounterState understands. Arithmetic wraps
// at the uint8 boundary.
type Increment struct {
	By uint8
}

// Apply advances the counter.
func (s *CounterState) Apply(msg Increment) {
	s.Counter += msg.By
}

// CounterStore is the store instantiation scenarios drive.
type CounterStore = appuniverse.Store[Increment, *CounterState]
