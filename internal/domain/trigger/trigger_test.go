package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/activityd/internal/shared/types"
)

type firedRecorder struct {
	count int
}

func (f *firedRecorder) TriggerFired(t *Trigger) { f.count++ }

func newTrigger(t *testing.T, where interface{}) (*Trigger, *firedRecorder) {
	t.Helper()
	trig, err := New(&types.TriggerDef{Method: "connectivity/getStatus", Where: where})
	require.NoError(t, err)
	rec := &firedRecorder{}
	trig.SetOwner(rec)
	return trig, rec
}

func TestTriggerRequiresMethod(t *testing.T) {
	_, err := New(&types.TriggerDef{})
	assert.Error(t, err)
}

func TestTriggerInvalidWhereRejected(t *testing.T) {
	_, err := New(&types.TriggerDef{
		Method: "connectivity/getStatus",
		Where:  map[string]interface{}{"prop": "a", "op": "~", "val": 1.0},
	})
	assert.Error(t, err)
}

func TestTriggerFiresOnceAndStaysFired(t *testing.T) {
	trig, rec := newTrigger(t, map[string]interface{}{
		"prop": "state", "op": "=", "val": "connected",
	})

	trig.ProcessUpdate(map[string]interface{}{"state": "disconnected"})
	assert.False(t, trig.IsFired())
	assert.Zero(t, rec.count)

	trig.ProcessUpdate(map[string]interface{}{"state": "connected"})
	assert.True(t, trig.IsFired())
	assert.Equal(t, 1, rec.count)

	// Fired triggers ignore further updates until re-armed.
	trig.ProcessUpdate(map[string]interface{}{"state": "connected"})
	assert.Equal(t, 1, rec.count)
}

func TestTriggerRearm(t *testing.T) {
	trig, rec := newTrigger(t, map[string]interface{}{
		"prop": "state", "op": "=", "val": "connected",
	})

	trig.ProcessUpdate(map[string]interface{}{"state": "connected"})
	require.Equal(t, 1, rec.count)

	trig.Arm()
	assert.False(t, trig.IsFired())

	trig.ProcessUpdate(map[string]interface{}{"state": "connected"})
	assert.Equal(t, 2, rec.count)
}

// Updates the clause knows nothing about are ignored rather than counted
// as non-matches.
func TestTriggerIgnoresNoProperty(t *testing.T) {
	trig, rec := newTrigger(t, map[string]interface{}{
		"prop": "state", "op": "=", "val": "connected",
	})

	trig.ProcessUpdate(map[string]interface{}{"unrelated": true})
	assert.False(t, trig.IsFired())
	assert.Zero(t, rec.count)
}

func TestTriggerWithoutWhereFiresOnAnyUpdate(t *testing.T) {
	trig, rec := newTrigger(t, nil)

	trig.ProcessUpdate(map[string]interface{}{"anything": 1.0})
	assert.True(t, trig.IsFired())
	assert.Equal(t, 1, rec.count)
}

func TestDispatcherRouting(t *testing.T) {
	d := NewDispatcher()

	a, recA := newTrigger(t, nil)
	other, err := New(&types.TriggerDef{Method: "power/getStatus"})
	require.NoError(t, err)
	recOther := &firedRecorder{}
	other.SetOwner(recOther)

	d.Subscribe(a)
	d.Subscribe(other)

	d.Publish("connectivity/getStatus", map[string]interface{}{"x": 1.0})
	assert.Equal(t, 1, recA.count)
	assert.Zero(t, recOther.count)

	d.Publish("power/getStatus", map[string]interface{}{"x": 1.0})
	assert.Equal(t, 1, recOther.count)
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	a, recA := newTrigger(t, nil)
	d.Subscribe(a)
	d.Unsubscribe(a)

	d.Publish("connectivity/getStatus", map[string]interface{}{"x": 1.0})
	assert.Zero(t, recA.count)
}
