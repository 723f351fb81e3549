package connectivity

import (
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/requirement"
)

// update processes one upstream status payload. Must run on the loop.
//
// Payload shape, kept bit-compatible with prior deployments:
//
//	{
//	  "isInternetConnectionAvailable": <bool>,
//	  "wifi":  { "state": "connected"|"disconnected", "onInternet": "yes"|"no",
//	             "networkConfidenceLevel": "none"|"poor"|"fair"|"excellent", ... },
//	  "wan" | "cellular": { "state", "onInternet", "network", "networkConfidenceLevel", ... },
//	  "wired": { ... }
//	}
//
// cellular is an alias for wan; a wired connection is surfaced as wifi; a
// WAN network of "unusable" counts as not available.
func (p *Provider) update(payload map[string]interface{}) {
	p.log.Debug("Update from connection status source")

	available, _ := payload["isInternetConnectionAvailable"].(bool)

	wifiObj, foundWifi := getObject(payload, "wifi")
	wanObj, foundWAN := getObject(payload, "wan")
	if !foundWAN {
		wanObj, foundWAN = getObject(payload, "cellular")
	}
	wiredObj, foundWired := getObject(payload, "wired")

	// Normalize the raw payload to the legacy shape bound requirements
	// observe: cellular becomes wan, and a wired connection stands in for
	// wifi unless a connected wifi is present.
	internetObj := map[string]interface{}{
		"isInternetConnectionAvailable": available,
	}
	if foundWAN {
		internetObj["wan"] = wanObj
	}
	wifiState, _ := wifiObj["state"].(string)
	if foundWifi && (wifiState == "connected" || !foundWired) {
		internetObj["wifi"] = wifiObj
	} else if foundWired && wifiState != "connected" {
		internetObj["wifi"] = wiredObj
	}

	updated := p.internetCore.SetCurrentValue(internetObj)

	if available {
		if !p.internetCore.IsMet() {
			p.log.Debug("Internet connection is now available")
			p.internetCore.Met()
			p.broadcastMet(&p.internetList)
		} else if updated {
			p.broadcastUpdated(&p.internetList)
		}
	} else {
		if p.internetCore.IsMet() {
			p.log.Debug("Internet connection is no longer available")
			p.internetCore.Unmet()
			p.broadcastUnmet(&p.internetList)
		}
	}

	p.updateWifiStatus(payload)
	p.updateWANStatus(payload)

	if agg := maxConfidence(p.wifiConfidence, p.wanConfidence); agg != p.internetConfidence {
		p.internetConfidence = agg
		p.log.Debug("Internet confidence level changed",
			zap.String("confidence", agg.String()))
		p.updateConfidenceRequirements(&p.internetConfidenceCores, &p.internetConfidenceLists, agg)
	}

	if p.triggers != nil {
		p.triggers.Publish(Method, internetObj)
	}
}

func (p *Provider) updateWifiStatus(payload map[string]interface{}) {
	wifiAvailable := false
	updated := false
	confidence := ConfidenceUnknown

	wifi, found := getObject(payload, "wifi")
	if !found {
		// A wired connection is treated as wifi for presentation.
		wifi, found = getObject(payload, "wired")
	}
	if found {
		updated = p.wifiCore.SetCurrentValue(wifi)

		state, stateFound := wifi["state"].(string)
		if !stateFound {
			p.log.Warn("Wifi connection status not present in connection status update")
		} else if state == "connected" {
			if onInternet, _ := wifi["onInternet"].(string); onInternet == "yes" {
				wifiAvailable = true
				confidence = p.getConfidence(wifi)
			}
		}
	} else {
		p.log.Warn("Wifi status not present in connection status update")
	}

	if wifiAvailable {
		if !p.wifiCore.IsMet() {
			p.log.Debug("Wifi connection is now available")
			p.wifiCore.Met()
			p.broadcastMet(&p.wifiList)
		} else if updated {
			p.broadcastUpdated(&p.wifiList)
		}
	} else {
		if p.wifiCore.IsMet() {
			p.log.Debug("Wifi connection is no longer available")
			p.wifiCore.Unmet()
			p.broadcastUnmet(&p.wifiList)
		}
	}

	if p.wifiConfidence != confidence {
		p.wifiConfidence = confidence
		p.log.Debug("Wifi confidence level changed",
			zap.String("confidence", confidence.String()))
		p.updateConfidenceRequirements(&p.wifiConfidenceCores, &p.wifiConfidenceLists, confidence)
	}
}

func (p *Provider) updateWANStatus(payload map[string]interface{}) {
	wanAvailable := false
	updated := false
	confidence := ConfidenceUnknown

	wan, found := getObject(payload, "wan")
	if !found {
		wan, found = getObject(payload, "cellular")
	}
	if found {
		updated = p.wanCore.SetCurrentValue(wan)

		state, stateFound := wan["state"].(string)
		if !stateFound {
			p.log.Warn("WAN connection status not present in connection status update")
		} else if state == "connected" {
			network, networkFound := wan["network"].(string)
			if !networkFound {
				p.log.Warn("WAN network mode not present in connection status update")
			} else if network != "unusable" {
				if onInternet, _ := wan["onInternet"].(string); onInternet == "yes" {
					wanAvailable = true
					confidence = p.getConfidence(wan)
				}
			}
		}
	}

	if wanAvailable {
		if !p.wanCore.IsMet() {
			p.log.Debug("WAN connection is now available")
			p.wanCore.Met()
			p.broadcastMet(&p.wanList)
		} else if updated {
			p.broadcastUpdated(&p.wanList)
		}
	} else {
		if p.wanCore.IsMet() {
			p.log.Debug("WAN connection is no longer available")
			p.wanCore.Unmet()
			p.broadcastUnmet(&p.wanList)
		}
	}

	if p.wanConfidence != confidence {
		p.wanConfidence = confidence
		p.log.Debug("WAN confidence level changed",
			zap.String("confidence", confidence.String()))
		p.updateConfidenceRequirements(&p.wanConfidenceCores, &p.wanConfidenceLists, confidence)
	}
}

// getConfidence reads the confidence level from a network description.
func (p *Provider) getConfidence(spec map[string]interface{}) Confidence {
	v, found := spec["networkConfidenceLevel"]
	if !found {
		p.log.Warn("Network confidence not present in network description")
		return ConfidenceUnknown
	}
	c := parseConfidence(v)
	if c == ConfidenceUnknown {
		p.log.Debug("Unknown network confidence level in network description")
	}
	return c
}

// updateConfidenceRequirements recomputes the met state of every level's
// core after the current level changed to confidence. A level's
// requirement is met while the current level is at least the requested
// one.
func (p *Provider) updateConfidenceRequirements(cores *[confidenceMax]*requirement.Core, lists *[confidenceMax]requirement.List, confidence Confidence) {
	name := confidence.String()

	for i := 0; i < confidenceMax; i++ {
		cores[i].SetCurrentValue(name)

		if confidence < Confidence(i) {
			if cores[i].IsMet() {
				cores[i].Unmet()
				p.broadcastUnmet(&lists[i])
			} else {
				p.broadcastUpdated(&lists[i])
			}
		} else {
			if !cores[i].IsMet() {
				cores[i].Met()
				p.broadcastMet(&lists[i])
			} else {
				p.broadcastUpdated(&lists[i])
			}
		}
	}
}

func (p *Provider) broadcastMet(list *requirement.List) {
	if p.metrics != nil && list.Len() > 0 {
		p.metrics.RecordBroadcast(providerName, "met")
	}
	list.Each(func(r *requirement.Requirement) { r.Met() })
}

func (p *Provider) broadcastUnmet(list *requirement.List) {
	if p.metrics != nil && list.Len() > 0 {
		p.metrics.RecordBroadcast(providerName, "unmet")
	}
	list.Each(func(r *requirement.Requirement) { r.Unmet() })
}

func (p *Provider) broadcastUpdated(list *requirement.List) {
	if p.metrics != nil && list.Len() > 0 {
		p.metrics.RecordBroadcast(providerName, "updated")
	}
	list.Each(func(r *requirement.Requirement) { r.Updated() })
}

func getObject(payload map[string]interface{}, key string) (map[string]interface{}, bool) {
	obj, ok := payload[key].(map[string]interface{})
	return obj, ok
}
