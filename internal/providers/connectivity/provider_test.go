package connectivity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/activityd/internal/domain/eventloop"
	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/domain/trigger"
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
	loop := eventloop.New()
	p := New(loop, NewFuncSource(), nil, logging.NewNop(), nil)
	p.Enable()
	return p
}

func bind(t *testing.T, p *Provider, name string, value interface{}) (*requirement.Requirement, *countingOwner) {
	t.Helper()
	req, err := p.InstantiateRequirement(1, name, value)
	require.NoError(t, err)
	owner := &countingOwner{}
	req.SetOwner(owner)
	return req, owner
}

func wifiPayload(confidence string) map[string]interface{} {
	return map[string]interface{}{
		"isInternetConnectionAvailable": true,
		"wifi": map[string]interface{}{
			"state":                  "connected",
			"onInternet":             "yes",
			"networkConfidenceLevel": confidence,
		},
	}
}

func TestInternetRequirement(t *testing.T) {
	p := newProvider(t)
	req, owner := bind(t, p, "internet", true)
	assert.False(t, req.IsMet())

	p.Update(map[string]interface{}{"isInternetConnectionAvailable": true})
	assert.True(t, req.IsMet())
	assert.Equal(t, 1, owner.met)

	p.Update(map[string]interface{}{"isInternetConnectionAvailable": false})
	assert.False(t, req.IsMet())
	assert.Equal(t, 1, owner.unmet)
}

func TestBoolRequirementOnlyTrueIsLegal(t *testing.T) {
	p := newProvider(t)
	for _, name := range []string{"internet", "wifi", "wan"} {
		_, err := p.InstantiateRequirement(1, name, false)
		assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err), name)
		_, err = p.InstantiateRequirement(1, name, "yes")
		assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err), name)
	}
}

func TestUnknownRequirementName(t *testing.T) {
	p := newProvider(t)
	_, err := p.InstantiateRequirement(1, "bluetooth", true)
	assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err))
}

func TestWifiRequiresOnInternet(t *testing.T) {
	p := newProvider(t)
	req, _ := bind(t, p, "wifi", true)

	p.Update(map[string]interface{}{
		"isInternetConnectionAvailable": false,
		"wifi": map[string]interface{}{
			"state":      "connected",
			"onInternet": "no",
		},
	})
	assert.False(t, req.IsMet())

	p.Update(wifiPayload("fair"))
	assert.True(t, req.IsMet())

	p.Update(map[string]interface{}{
		"isInternetConnectionAvailable": false,
		"wifi": map[string]interface{}{
			"state": "disconnected",
		},
	})
	assert.False(t, req.IsMet())
}

// cellular is accepted as an alias for wan.
func TestCellularAlias(t *testing.T) {
	p := newProvider(t)
	req, _ := bind(t, p, "wan", true)

	p.Update(map[string]interface{}{
		"isInternetConnectionAvailable": true,
		"cellular": map[string]interface{}{
			"state":                  "connected",
			"onInternet":             "yes",
			"network":                "umts",
			"networkConfidenceLevel": "fair",
		},
	})
	assert.True(t, req.IsMet())
}

// A WAN network of "unusable" counts as not available.
func TestUnusableWANNotAvailable(t *testing.T) {
	p := newProvider(t)
	req, _ := bind(t, p, "wan", true)

	p.Update(map[string]interface{}{
		"isInternetConnectionAvailable": true,
		"wan": map[string]interface{}{
			"state":      "connected",
			"onInternet": "yes",
			"network":    "unusable",
		},
	})
	assert.False(t, req.IsMet())
}

// A wired connection is surfaced as wifi.
func TestWiredSurfacesAsWifi(t *testing.T) {
	p := newProvider(t)
	req, _ := bind(t, p, "wifi", true)
	conf, _ := bind(t, p, "wifiConfidence", "fair")

	p.Update(map[string]interface{}{
		"isInternetConnectionAvailable": true,
		"wired": map[string]interface{}{
			"state":                  "connected",
			"onInternet":             "yes",
			"networkConfidenceLevel": "excellent",
		},
	})
	assert.True(t, req.IsMet())
	assert.True(t, conf.IsMet())
}

// S4: with the current level fair, a poor requirement is met and an
// excellent one is not.
func TestConfidenceUpgrade(t *testing.T) {
	p := newProvider(t)
	poor, _ := bind(t, p, "wifiConfidence", "poor")
	excellent, _ := bind(t, p, "wifiConfidence", "excellent")

	p.Update(wifiPayload("fair"))
	assert.True(t, poor.IsMet())
	assert.False(t, excellent.IsMet())

	p.Update(wifiPayload("excellent"))
	assert.True(t, poor.IsMet())
	assert.True(t, excellent.IsMet())
}

// Requirement "at least L" is met iff current >= L across the whole
// ordering.
func TestConfidenceOrderingProperty(t *testing.T) {
	levels := []string{"none", "poor", "fair", "excellent"}

	for li, requested := range levels {
		for ci, current := range levels {
			t.Run(fmt.Sprintf("req-%s-cur-%s", requested, current), func(t *testing.T) {
				p := newProvider(t)
				req, _ := bind(t, p, "wifiConfidence", requested)
				p.Update(wifiPayload(current))
				assert.Equal(t, ci >= li, req.IsMet())
			})
		}
	}
}

// When no connection is usable the level drops to unknown, which meets no
// requestable level.
func TestConfidenceUnknownMeetsNothing(t *testing.T) {
	p := newProvider(t)
	none, _ := bind(t, p, "wifiConfidence", "none")

	p.Update(wifiPayload("poor"))
	require.True(t, none.IsMet())

	p.Update(map[string]interface{}{
		"isInternetConnectionAvailable": false,
		"wifi": map[string]interface{}{
			"state": "disconnected",
		},
	})
	assert.False(t, none.IsMet())
}

func TestConfidenceRequestValidation(t *testing.T) {
	p := newProvider(t)
	_, err := p.InstantiateRequirement(1, "wifiConfidence", "unknown")
	assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err))
	_, err = p.InstantiateRequirement(1, "wifiConfidence", "superb")
	assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err))
	_, err = p.InstantiateRequirement(1, "wifiConfidence", 2)
	assert.Equal(t, types.CodeInvalidArg, types.CodeOf(err))
}

// internetConfidence = max(wifiConfidence, wanConfidence).
func TestInternetConfidenceAggregates(t *testing.T) {
	p := newProvider(t)
	fair, _ := bind(t, p, "internetConfidence", "fair")

	p.Update(map[string]interface{}{
		"isInternetConnectionAvailable": true,
		"wifi": map[string]interface{}{
			"state":                  "connected",
			"onInternet":             "yes",
			"networkConfidenceLevel": "poor",
		},
		"wan": map[string]interface{}{
			"state":                  "connected",
			"onInternet":             "yes",
			"network":                "umts",
			"networkConfidenceLevel": "excellent",
		},
	})
	assert.True(t, fair.IsMet(), "wan excellence lifts the aggregate")

	p.Update(wifiPayload("poor"))
	assert.False(t, fair.IsMet(), "with wan gone the aggregate falls back to wifi")
}

// A Met broadcast precedes any Updated broadcast for the same change, and
// value changes without a met flip broadcast Updated.
func TestMetBeforeUpdated(t *testing.T) {
	p := newProvider(t)
	_, owner := bind(t, p, "internet", true)

	p.Update(wifiPayload("fair"))
	assert.Equal(t, 1, owner.met)
	assert.Zero(t, owner.updated)

	p.Update(wifiPayload("excellent"))
	assert.Equal(t, 1, owner.met)
	assert.Equal(t, 1, owner.updated, "value change without met flip broadcasts Updated")
}

func TestDisableFreezesState(t *testing.T) {
	p := newProvider(t)
	req, _ := bind(t, p, "internet", true)

	p.Update(wifiPayload("fair"))
	require.True(t, req.IsMet())

	p.Disable()
	p.Update(map[string]interface{}{"isInternetConnectionAvailable": false})
	assert.True(t, req.IsMet(), "bound requirements stay in last-known state while disabled")
}

func TestTriggerPublication(t *testing.T) {
	loop := eventloop.New()
	dispatcher := trigger.NewDispatcher()
	p := New(loop, NewFuncSource(), dispatcher, logging.NewNop(), nil)
	p.Enable()

	trig, err := trigger.New(&types.TriggerDef{
		Method: Method,
		Where: map[string]interface{}{
			"prop": "isInternetConnectionAvailable", "op": "=", "val": true,
		},
	})
	require.NoError(t, err)
	loop.Do(func() { dispatcher.Subscribe(trig) })

	p.Update(wifiPayload("fair"))
	assert.True(t, trig.IsFired())
}
