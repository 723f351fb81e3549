// Package power provides the charger-status requirement provider.
//
// It recognizes the boolean requirement names charging and docked (legal
// value: true), driven by charger status updates of the shape
//
//	{ "charging": <bool>, "docked": <bool> }
package power

import (
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/eventloop"
	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/domain/trigger"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/infrastructure/monitoring"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Method is the bus address trigger subscriptions use for charger status
// updates.
const Method = "power/getStatus"

const providerName = "power"

// Provider implements requirement.Provider for the power names.
type Provider struct {
	loop     *eventloop.Loop
	log      *logging.Logger
	metrics  *monitoring.Metrics
	triggers *trigger.Dispatcher

	chargingCore *requirement.Core
	dockedCore   *requirement.Core

	chargingList requirement.List
	dockedList   requirement.List

	enabled bool
}

// New creates the provider. Updates are injected through Update; metrics
// and triggers may be nil.
func New(loop *eventloop.Loop, triggers *trigger.Dispatcher, log *logging.Logger, metrics *monitoring.Metrics) *Provider {
	return &Provider{
		loop:         loop,
		log:          log.Named(providerName),
		metrics:      metrics,
		triggers:     triggers,
		chargingCore: requirement.NewCore("charging", true),
		dockedCore:   requirement.NewCore("docked", true),
	}
}

// Name implements requirement.Provider.
func (p *Provider) Name() string {
	return providerName
}

// RegisterRequirements implements requirement.Provider.
func (p *Provider) RegisterRequirements(m *requirement.Manager) {
	m.RegisterRequirement("charging", p)
	m.RegisterRequirement("docked", p)
}

// UnregisterRequirements implements requirement.Provider.
func (p *Provider) UnregisterRequirements(m *requirement.Manager) {
	m.UnregisterRequirement("charging", p)
	m.UnregisterRequirement("docked", p)
}

// Enable implements requirement.Provider.
func (p *Provider) Enable() {
	p.enabled = true
	p.log.Debug("Enabling power provider")
}

// Disable implements requirement.Provider. Bound requirements remain in
// their last-known state.
func (p *Provider) Disable() {
	p.enabled = false
	p.log.Debug("Disabling power provider")
}

// InstantiateRequirement implements requirement.Provider.
func (p *Provider) InstantiateRequirement(activityID uint64, name string, value interface{}) (*requirement.Requirement, error) {
	p.log.Debug("Instantiating requirement",
		zap.String("requirement", name),
		zap.Uint64("activity", activityID))

	var core *requirement.Core
	var list *requirement.List
	switch name {
	case "charging":
		core, list = p.chargingCore, &p.chargingList
	case "docked":
		core, list = p.dockedCore, &p.dockedList
	default:
		return nil, types.InvalidArg("unknown requirement %q", name)
	}

	b, ok := value.(bool)
	if !ok || !b {
		return nil, types.InvalidArg("if a %q requirement is specified, the only legal value is 'true'", name)
	}

	req := requirement.NewRequirement(activityID, core, core.IsMet())
	list.Add(req)
	return req, nil
}

// Update injects a charger status payload.
func (p *Provider) Update(payload map[string]interface{}) {
	p.loop.Do(func() {
		if p.enabled {
			p.update(payload)
		}
	})
}

func (p *Provider) update(payload map[string]interface{}) {
	charging, _ := payload["charging"].(bool)
	docked, _ := payload["docked"].(bool)

	p.apply(p.chargingCore, &p.chargingList, charging, payload)
	p.apply(p.dockedCore, &p.dockedList, docked, payload)

	if p.triggers != nil {
		p.triggers.Publish(Method, payload)
	}
}

func (p *Provider) apply(core *requirement.Core, list *requirement.List, met bool, payload map[string]interface{}) {
	updated := core.SetCurrentValue(payload)

	if met {
		if !core.IsMet() {
			p.log.Debug("Requirement is now met", zap.String("requirement", core.Name()))
			core.Met()
			p.broadcast(list, "met", func(r *requirement.Requirement) { r.Met() })
		} else if updated {
			p.broadcast(list, "updated", func(r *requirement.Requirement) { r.Updated() })
		}
	} else {
		if core.IsMet() {
			p.log.Debug("Requirement is no longer met", zap.String("requirement", core.Name()))
			core.Unmet()
			p.broadcast(list, "unmet", func(r *requirement.Requirement) { r.Unmet() })
		}
	}
}

func (p *Provider) broadcast(list *requirement.List, kind string, fn func(*requirement.Requirement)) {
	if p.metrics != nil && list.Len() > 0 {
		p.metrics.RecordBroadcast(providerName, kind)
	}
	list.Each(fn)
}
