package activity

import (
	"github.com/coreplane/activityd/internal/shared/types"
)

// Identity returns the compact JSON identity used by queue introspection.
func (a *Activity) Identity() map[string]interface{} {
	return map[string]interface{}{
		"activityId": a.id,
		"name":       a.name,
		"creator":    a.creator,
	}
}

// Details returns the full introspection view of the activity.
func (a *Activity) Details() map[string]interface{} {
	reqs := make(map[string]interface{}, len(a.requirements))
	for name, r := range a.requirements {
		reqs[name] = map[string]interface{}{
			"value": r.Value(),
			"met":   r.IsMet(),
		}
	}

	details := map[string]interface{}{
		"activityId":   a.id,
		"name":         a.name,
		"creator":      a.creator,
		"state":        a.state,
		"priority":     a.Class(),
		"focused":      a.focused,
		"yielding":     a.yielding,
		"subscribers":  a.Subscribers(),
		"requirements": reqs,
	}

	if a.description != "" {
		details["description"] = a.description
	}
	if a.trig != nil {
		details["trigger"] = map[string]interface{}{
			"method": a.trig.Method(),
			"where":  a.trig.Where(),
			"fired":  a.trig.IsFired(),
		}
	}
	if a.schedule != nil {
		details["schedule"] = a.schedule.Definition()
	}
	if q := a.currentQueue; q != "" {
		details["queue"] = q
	}

	return details
}

// Definition reconstructs the declarative definition the activity was
// created from. Re-creating an activity from it yields identical
// requirements, trigger, schedule, and flags.
func (a *Activity) Definition() types.ActivityDefinition {
	def := types.ActivityDefinition{
		Name:        a.name,
		Creator:     a.creator,
		Description: a.description,
		Flags:       a.flags,
		Callback:    a.callback,
	}

	if len(a.requirements) > 0 {
		def.Requirements = make(map[string]interface{}, len(a.requirements))
		for name, r := range a.requirements {
			def.Requirements[name] = r.Value()
		}
	}
	if a.trig != nil {
		def.Trigger = a.trig.Definition()
	}
	if a.schedule != nil {
		def.Schedule = a.schedule.Definition()
	}

	return def
}
