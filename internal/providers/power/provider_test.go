package power

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/activityd/internal/domain/eventloop"
	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/shared/types"
)

type countingOwner struct {
	met, unmet, updated int
}

func (o *countingOwner) RequirementMet(r *requirement.Requirement)     { o.met++ }
func (o *countingOwner) RequirementUnmet(r *requirement.Requirement)   { o.unmet++ }
func (o *countingOwner) RequirementUpdated(r *requirement.Requirement) { o.updated++ }

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p := New(eventloop.New(), nil, logging.NewNop(), nil)
	p.Enable()
	return p
}

func TestChargingRequirement(t *testing.T) {
	p := newProvider(t)
	req, err := p.InstantiateRequirement(1, "charging", true)
	require.NoError(t, err)
	owner := &countingOwner{}
	req.SetOwner(owner)

	p.Update(map[string]interface{}{"charging": true})
	assert.True(t, req.IsMet())
	assert.Equal(t, 1, owner.met)

	p.Update(map[string]interface{}{"charging": false})
	assert.False(t, req.IsMet())
	assert.Equal(t, 1, owner.unmet)
}

func TestDockedRequirement(t *testing.T) {
	p := newProvider(t)
	req, err := p.InstantiateRequirement(1, "docked", true)
	require.NoError(t, err)

	p.Update(map[string]interface{}{"charging": true, "docked": true})
	assert.True(t, req.IsMet())
}

func TestOnlyTrueIsLegal(t *testing.T) {
	p := newProvider(t)
	_, err := p.InstantiateRequirement(1, "charging", false)
	assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err))
	_, err = p.InstantiateRequirement(1, "battery", true)
	assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err))
}

func TestUpdatedBroadcastOnValueChange(t *testing.T) {
	p := newProvider(t)
	req, err := p.InstantiateRequirement(1, "charging", true)
	require.NoError(t, err)
	owner := &countingOwner{}
	req.SetOwner(owner)

	p.Update(map[string]interface{}{"charging": true, "level": 10.0})
	require.Equal(t, 1, owner.met)

	p.Update(map[string]interface{}{"charging": true, "level": 50.0})
	assert.Equal(t, 1, owner.met)
	assert.Equal(t, 1, owner.updated)
}

func TestRegistryNames(t *testing.T) {
	p := newProvider(t)
	m := requirement.NewManager()
	p.RegisterRequirements(m)

	_, err := m.InstantiateRequirement(1, "charging", true)
	assert.NoError(t, err)
	_, err = m.InstantiateRequirement(1, "docked", true)
	assert.NoError(t, err)

	p.UnregisterRequirements(m)
	_, err = m.InstantiateRequirement(1, "charging", true)
	assert.Error(t, err)
}
