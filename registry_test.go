package appuniverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAssignsMonotonicIDs(t *testing.T) {
	var reg registry[counterMsg, *counterState]

	a := reg.add(func(Store[counterMsg, *counterState]) {})
	b := reg.add(func(Store[counterMsg, *counterState]) {})
	c := reg.add(func(Store[counterMsg, *counterState]) {})

	assert.Less(t, a.id, b.id)
	assert.Less(t, b.id, c.id)
}

func TestRegistryIDsUniqueAcrossRegistries(t *testing.T) {
	var first, second registry[counterMsg, *counterState]

	a := first.add(func(Store[counterMsg, *counterState]) {})
	b := second.add(func(Store[counterMsg, *counterState]) {})

	assert.NotEqual(t, a.id, b.id)
}

func TestRegistryRemovePreservesOrder(t *testing.T) {
	var reg registry[counterMsg, *counterState]
	store := newCounterStore()

	var order []string
	reg.add(func(Store[counterMsg, *counterState]) { order = append(order, "a") })
	b := reg.add(func(Store[counterMsg, *counterState]) { order = append(order, "b") })
	reg.add(func(Store[counterMsg, *counterState]) { order = append(order, "c") })

	require.True(t, reg.remove(b))
	reg.notify(store)

	assert.Equal(t, []string{"a", "c"}, order)
	assert.Equal(t, 2, reg.size())
}

func TestRegistryRemoveUnknown(t *testing.T) {
	var reg registry[counterMsg, *counterState]
	reg.add(func(Store[counterMsg, *counterState]) {})

	assert.False(t, reg.remove(Subscription{}))
	assert.False(t, reg.remove(Subscription{id: subscriptionIDs.Add(1)}))
	assert.Equal(t, 1, reg.size())
}

func TestRegistryNotifyUsesSnapshot(t *testing.T) {
	var reg registry[counterMsg, *counterState]
	store := newCounterStore()

	var first, second int
	reg.add(func(Store[counterMsg, *counterState]) {
		first++
		if first == 1 {
			reg.add(func(Store[counterMsg, *counterState]) { second++ })
		}
	})

	reg.notify(store)
	assert.Equal(t, 1, first)
	assert.Zero(t, second)

	reg.notify(store)
	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}
