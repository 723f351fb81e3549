// Package resource maintains the bookkeeping that maps activities to the
// bus identities subscribed to them. Providers that make authorization
// decisions on upstream calls query this index.
package resource

import (
	"github.com/coreplane/activityd/internal/shared/types"
)

// Associations is a bidirectional index between activities and subscriber
// identities, plus the focus state visible to providers.
type Associations struct {
	byActivity   map[uint64]map[string]types.BusID
	bySubscriber map[string]map[uint64]bool
	focused      map[uint64]bool
}

// NewAssociations creates an empty index.
func NewAssociations() *Associations {
	return &Associations{
		byActivity:   make(map[uint64]map[string]types.BusID),
		bySubscriber: make(map[string]map[uint64]bool),
		focused:      make(map[uint64]bool),
	}
}

// Associate records that id subscribes to the activity.
func (a *Associations) Associate(activityID uint64, id types.BusID) {
	key := id.String()
	if a.byActivity[activityID] == nil {
		a.byActivity[activityID] = make(map[string]types.BusID)
	}
	a.byActivity[activityID][key] = id
	if a.bySubscriber[key] == nil {
		a.bySubscriber[key] = make(map[uint64]bool)
	}
	a.bySubscriber[key][activityID] = true
}

// Dissociate removes one subscriber from the activity.
func (a *Associations) Dissociate(activityID uint64, id types.BusID) {
	key := id.String()
	if subs, ok := a.byActivity[activityID]; ok {
		delete(subs, key)
		if len(subs) == 0 {
			delete(a.byActivity, activityID)
		}
	}
	if acts, ok := a.bySubscriber[key]; ok {
		delete(acts, activityID)
		if len(acts) == 0 {
			delete(a.bySubscriber, key)
		}
	}
}

// DissociateAll drops every association for the activity. Called when it
// ends.
func (a *Associations) DissociateAll(activityID uint64) {
	for key := range a.byActivity[activityID] {
		if acts, ok := a.bySubscriber[key]; ok {
			delete(acts, activityID)
			if len(acts) == 0 {
				delete(a.bySubscriber, key)
			}
		}
	}
	delete(a.byActivity, activityID)
	delete(a.focused, activityID)
}

// UpdateFocus records the activity's focus state.
func (a *Associations) UpdateFocus(activityID uint64, focused bool) {
	if focused {
		a.focused[activityID] = true
	} else {
		delete(a.focused, activityID)
	}
}

// IsFocused reports the recorded focus state.
func (a *Associations) IsFocused(activityID uint64) bool {
	return a.focused[activityID]
}

// SubscribersOf returns the identities subscribed to the activity.
func (a *Associations) SubscribersOf(activityID uint64) []types.BusID {
	subs := a.byActivity[activityID]
	out := make([]types.BusID, 0, len(subs))
	for _, id := range subs {
		out = append(out, id)
	}
	return out
}

// ActivitiesOf returns the ids of activities the identity subscribes to.
func (a *Associations) ActivitiesOf(id types.BusID) []uint64 {
	acts := a.bySubscriber[id.String()]
	out := make([]uint64, 0, len(acts))
	for activityID := range acts {
		out = append(out, activityID)
	}
	return out
}
