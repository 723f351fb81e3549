package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOwner struct {
	events []string
}

func (o *recordingOwner) RequirementMet(r *Requirement)     { o.events = append(o.events, "met:"+r.Name()) }
func (o *recordingOwner) RequirementUnmet(r *Requirement)   { o.events = append(o.events, "unmet:"+r.Name()) }
func (o *recordingOwner) RequirementUpdated(r *Requirement) { o.events = append(o.events, "updated:"+r.Name()) }

func TestCoreValueTracking(t *testing.T) {
	core := NewCore("internet", true)

	assert.Equal(t, "internet", core.Name())
	assert.Equal(t, true, core.Value())
	assert.False(t, core.IsMet())

	changed := core.SetCurrentValue(map[string]interface{}{"state": "connected"})
	assert.True(t, changed)

	changed = core.SetCurrentValue(map[string]interface{}{"state": "connected"})
	assert.False(t, changed, "identical value should not report a change")

	changed = core.SetCurrentValue(map[string]interface{}{"state": "disconnected"})
	assert.True(t, changed)

	core.Met()
	assert.True(t, core.IsMet())
	core.Unmet()
	assert.False(t, core.IsMet())
}

func TestBindingSeedsFromCore(t *testing.T) {
	core := NewCore("wifi", true)
	core.Met()

	req := NewRequirement(7, core, core.IsMet())
	assert.True(t, req.IsMet())
	assert.Equal(t, uint64(7), req.ActivityID())
	assert.Equal(t, "wifi", req.Name())
}

func TestBindingNotifiesOwner(t *testing.T) {
	core := NewCore("wifi", true)
	req := NewRequirement(1, core, false)
	owner := &recordingOwner{}
	req.SetOwner(owner)

	req.Met()
	assert.True(t, req.IsMet())
	req.Updated()
	req.Unmet()
	assert.False(t, req.IsMet())

	assert.Equal(t, []string{"met:wifi", "updated:wifi", "unmet:wifi"}, owner.events)
}

func TestListBroadcastOrder(t *testing.T) {
	core := NewCore("wifi", true)
	var list List

	var order []uint64
	for i := uint64(1); i <= 3; i++ {
		req := NewRequirement(i, core, false)
		list.Add(req)
	}

	list.Each(func(r *Requirement) { order = append(order, r.ActivityID()) })
	assert.Equal(t, []uint64{1, 2, 3}, order, "broadcast order is insertion order")
}

func TestUnlinkRemovesFromList(t *testing.T) {
	core := NewCore("wifi", true)
	var list List

	a := NewRequirement(1, core, false)
	b := NewRequirement(2, core, false)
	list.Add(a)
	list.Add(b)
	require.Equal(t, 2, list.Len())

	a.Unlink()
	assert.Equal(t, 1, list.Len())

	var remaining []uint64
	list.Each(func(r *Requirement) { remaining = append(remaining, r.ActivityID()) })
	assert.Equal(t, []uint64{2}, remaining)

	// Unlinking twice is harmless.
	a.Unlink()
	assert.Equal(t, 1, list.Len())
}

func TestUnlinkDuringBroadcast(t *testing.T) {
	core := NewCore("wifi", true)
	var list List

	a := NewRequirement(1, core, false)
	b := NewRequirement(2, core, false)
	list.Add(a)
	list.Add(b)

	var seen []uint64
	list.Each(func(r *Requirement) {
		seen = append(seen, r.ActivityID())
		if r == a {
			b.Unlink()
		}
	})

	// The snapshot still walks b, but it is gone from the list afterwards.
	assert.Equal(t, []uint64{1, 2}, seen)
	assert.Equal(t, 1, list.Len())
}

type fakeProvider struct {
	name string
}

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) Enable()      {}
func (p *fakeProvider) Disable()     {}
func (p *fakeProvider) InstantiateRequirement(activityID uint64, name string, value interface{}) (*Requirement, error) {
	return NewRequirement(activityID, NewCore(name, value), false), nil
}
func (p *fakeProvider) RegisterRequirements(m *Manager)   { m.RegisterRequirement(p.name, p) }
func (p *fakeProvider) UnregisterRequirements(m *Manager) { m.UnregisterRequirement(p.name, p) }

func TestManagerRegistry(t *testing.T) {
	m := NewManager()
	p := &fakeProvider{name: "battery"}
	p.RegisterRequirements(m)

	req, err := m.InstantiateRequirement(5, "battery", true)
	require.NoError(t, err)
	assert.Equal(t, "battery", req.Name())

	_, err = m.InstantiateRequirement(5, "unknown", true)
	assert.Error(t, err, "unknown requirement name is a validation error")

	p.UnregisterRequirements(m)
	_, err = m.InstantiateRequirement(5, "battery", true)
	assert.Error(t, err)
}

func TestManagerDistinctProviders(t *testing.T) {
	m := NewManager()
	p := &fakeProvider{name: "a"}
	m.RegisterRequirement("a", p)
	m.RegisterRequirement("b", p)

	assert.Len(t, m.Providers(), 1, "one provider serving two names lists once")
}
