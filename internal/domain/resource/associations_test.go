package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreplane/activityd/internal/shared/types"
)

func TestAssociateAndQuery(t *testing.T) {
	a := NewAssociations()
	alice := types.NamedBusID("com.example.alice")
	bob := types.AnonBusID("b-1")

	a.Associate(1, alice)
	a.Associate(1, bob)
	a.Associate(2, alice)

	assert.ElementsMatch(t, []types.BusID{alice, bob}, a.SubscribersOf(1))
	assert.ElementsMatch(t, []uint64{1, 2}, a.ActivitiesOf(alice))
	assert.ElementsMatch(t, []uint64{1}, a.ActivitiesOf(bob))
}

func TestDissociate(t *testing.T) {
	a := NewAssociations()
	alice := types.NamedBusID("com.example.alice")

	a.Associate(1, alice)
	a.Dissociate(1, alice)

	assert.Empty(t, a.SubscribersOf(1))
	assert.Empty(t, a.ActivitiesOf(alice))

	// Dissociating an absent pair is harmless.
	a.Dissociate(1, alice)
}

func TestDissociateAll(t *testing.T) {
	a := NewAssociations()
	alice := types.NamedBusID("com.example.alice")
	bob := types.AnonBusID("b-1")

	a.Associate(1, alice)
	a.Associate(1, bob)
	a.Associate(2, alice)
	a.UpdateFocus(1, true)

	a.DissociateAll(1)

	assert.Empty(t, a.SubscribersOf(1))
	assert.False(t, a.IsFocused(1))
	assert.ElementsMatch(t, []uint64{2}, a.ActivitiesOf(alice))
}

func TestFocusTracking(t *testing.T) {
	a := NewAssociations()

	a.UpdateFocus(1, true)
	assert.True(t, a.IsFocused(1))

	a.UpdateFocus(1, false)
	assert.False(t, a.IsFocused(1))
}
