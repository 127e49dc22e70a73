package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	appuniverse "github.com/AkinAguda/app-universe"
)

func TestCounterStateApply(t *testing.T) {
	state := &CounterState{}

	state.Apply(Increment{By: 3})
	assert.Equal(t, uint8(3), state.Counter)

	state.Apply(Increment{By: 0})
	assert.Equal(t, uint8(3), state.Counter)
}

func TestCounterStateApplyWraps(t *testing.T) {
	state := &CounterState{Counter: 250}

	state.Apply(Increment{By: 10})

	assert.Equal(t, uint8(4), state.Counter)
}

func TestCounterStoreDispatch(t *testing.T) {
	store := appuniverse.New[Increment](&CounterState{})

	var observed []uint8
	store.Subscribe(func(u CounterStore) {
		u.Read(func(core *CounterState) {
			observed = append(observed, core.Counter)
		})
	})

	store.Send(Increment{By: 2})
	store.Send(Increment{By: 3})

	var final uint8
	store.Read(func(core *CounterState) {
		final = core.Counter
	})

	assert.Equal(t, uint8(5), final)
	assert.Equal(t, []uint8{2, 5}, observed)
}
