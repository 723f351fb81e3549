// Package connectivity provides the connection-status requirement
// provider.
//
// It recognizes the boolean requirement names internet, wifi, and wan
// (legal value: true) and the leveled names internetConfidence,
// wifiConfidence, and wanConfidence (legal values: none, poor, fair,
// excellent; met while the current level is at least the requested one).
// The internet confidence aggregates as max(wifi, wan). A wired upstream
// connection is surfaced as wifi.
package connectivity

import (
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/eventloop"
	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/domain/trigger"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/infrastructure/monitoring"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Method is the bus address trigger subscriptions use for connection
// status updates.
const Method = "connectivity/getStatus"

const providerName = "connectivity"

// Provider implements requirement.Provider for the connectivity names.
type Provider struct {
	loop     *eventloop.Loop
	log      *logging.Logger
	metrics  *monitoring.Metrics
	triggers *trigger.Dispatcher
	source   Source

	internetCore *requirement.Core
	wifiCore     *requirement.Core
	wanCore      *requirement.Core

	internetList requirement.List
	wifiList     requirement.List
	wanList      requirement.List

	internetConfidenceCores [confidenceMax]*requirement.Core
	wifiConfidenceCores     [confidenceMax]*requirement.Core
	wanConfidenceCores      [confidenceMax]*requirement.Core

	internetConfidenceLists [confidenceMax]requirement.List
	wifiConfidenceLists     [confidenceMax]requirement.List
	wanConfidenceLists      [confidenceMax]requirement.List

	internetConfidence Confidence
	wifiConfidence     Confidence
	wanConfidence      Confidence

	enabled bool
}

// New creates the provider. The source supplies upstream status payloads;
// metrics and triggers may be nil.
func New(loop *eventloop.Loop, source Source, triggers *trigger.Dispatcher, log *logging.Logger, metrics *monitoring.Metrics) *Provider {
	p := &Provider{
		loop:               loop,
		log:                log.Named(providerName),
		metrics:            metrics,
		triggers:           triggers,
		source:             source,
		internetCore:       requirement.NewCore("internet", true),
		wifiCore:           requirement.NewCore("wifi", true),
		wanCore:            requirement.NewCore("wan", true),
		internetConfidence: ConfidenceUnknown,
		wifiConfidence:     ConfidenceUnknown,
		wanConfidence:      ConfidenceUnknown,
	}

	for i := 0; i < confidenceMax; i++ {
		p.internetConfidenceCores[i] = requirement.NewCore("internetConfidence", confidenceNames[i])
		p.wifiConfidenceCores[i] = requirement.NewCore("wifiConfidence", confidenceNames[i])
		p.wanConfidenceCores[i] = requirement.NewCore("wanConfidence", confidenceNames[i])
	}

	return p
}

// Name implements requirement.Provider.
func (p *Provider) Name() string {
	return providerName
}

// RegisterRequirements implements requirement.Provider.
func (p *Provider) RegisterRequirements(m *requirement.Manager) {
	for _, name := range []string{"internet", "wifi", "wan",
		"internetConfidence", "wifiConfidence", "wanConfidence"} {
		m.RegisterRequirement(name, p)
	}
}

// UnregisterRequirements implements requirement.Provider.
func (p *Provider) UnregisterRequirements(m *requirement.Manager) {
	for _, name := range []string{"internet", "wifi", "wan",
		"internetConfidence", "wifiConfidence", "wanConfidence"} {
		m.UnregisterRequirement(name, p)
	}
}

// Enable connects to the upstream status source. Updates are dispatched
// onto the control-plane loop; a permanently failed subscription disables
// the provider, transient failures re-subscribe inside the source.
func (p *Provider) Enable() {
	if p.enabled || p.source == nil {
		p.enabled = true
		return
	}
	p.enabled = true
	p.log.Debug("Enabling connectivity provider")

	p.source.Start(
		func(payload map[string]interface{}) {
			p.loop.Do(func() {
				if p.enabled {
					p.update(payload)
				}
			})
		},
		func(err error, permanent bool) {
			p.loop.Do(func() {
				if permanent {
					p.log.Warn("Connection status subscription experienced an uncorrectable failure",
						zap.Error(err))
					p.disable()
				} else {
					p.log.Warn("Connection status subscription failed, resubscribing",
						zap.Error(err))
				}
			})
		},
	)
}

// Disable drops the upstream subscription. Bound requirements remain in
// their last-known state.
func (p *Provider) Disable() {
	p.disable()
}

func (p *Provider) disable() {
	if !p.enabled {
		return
	}
	p.enabled = false
	if p.source != nil {
		p.source.Stop()
	}
	p.log.Debug("Disabling connectivity provider")
}

// InstantiateRequirement implements requirement.Provider.
func (p *Provider) InstantiateRequirement(activityID uint64, name string, value interface{}) (*requirement.Requirement, error) {
	p.log.Debug("Instantiating requirement",
		zap.String("requirement", name),
		zap.Uint64("activity", activityID))

	switch name {
	case "internet":
		return p.instantiateBool(activityID, name, value, p.internetCore, &p.internetList)
	case "wifi":
		return p.instantiateBool(activityID, name, value, p.wifiCore, &p.wifiList)
	case "wan":
		return p.instantiateBool(activityID, name, value, p.wanCore, &p.wanList)
	case "internetConfidence":
		return p.instantiateConfidence(activityID, value, &p.internetConfidenceCores, &p.internetConfidenceLists)
	case "wifiConfidence":
		return p.instantiateConfidence(activityID, value, &p.wifiConfidenceCores, &p.wifiConfidenceLists)
	case "wanConfidence":
		return p.instantiateConfidence(activityID, value, &p.wanConfidenceCores, &p.wanConfidenceLists)
	default:
		p.log.Error("Attempt to instantiate unknown requirement",
			zap.String("requirement", name),
			zap.Uint64("activity", activityID))
		return nil, types.InvalidArg("unknown requirement %q", name)
	}
}

func (p *Provider) instantiateBool(activityID uint64, name string, value interface{}, core *requirement.Core, list *requirement.List) (*requirement.Requirement, error) {
	b, ok := value.(bool)
	if !ok || !b {
		return nil, types.InvalidArg("if a %q requirement is specified, the only legal value is 'true'", name)
	}
	req := requirement.NewRequirement(activityID, core, core.IsMet())
	list.Add(req)
	return req, nil
}

func (p *Provider) instantiateConfidence(activityID uint64, value interface{}, cores *[confidenceMax]*requirement.Core, lists *[confidenceMax]requirement.List) (*requirement.Requirement, error) {
	c, err := requestedConfidence(value)
	if err != nil {
		return nil, err
	}
	req := requirement.NewRequirement(activityID, cores[c], cores[c].IsMet())
	lists[c].Add(req)
	return req, nil
}
