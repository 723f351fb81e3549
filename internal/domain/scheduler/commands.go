package scheduler

import (
	"github.com/coreplane/activityd/internal/domain/activity"
	"github.com/coreplane/activityd/internal/shared/types"
)

// SendCommand applies a lifecycle command to the activity with the given
// id.
func (m *Manager) SendCommand(id uint64, cmd activity.Command) error {
	var err error
	m.loop.Do(func() {
		var act *activity.Activity
		act, err = m.getByID(id)
		if err != nil {
			return
		}
		err = act.SendCommand(cmd)
	})
	return err
}

// Release drops the creator's handle on the activity.
func (m *Manager) Release(id uint64) error {
	var err error
	m.loop.Do(func() { err = m.release(id) })
	return err
}

// ResolveName maps a (name, creator) pair to an activity id. Anonymous
// creators resolve by name alone.
func (m *Manager) ResolveName(name string, creator types.BusID) (uint64, error) {
	var (
		id  uint64
		err error
	)
	m.loop.Do(func() {
		var act *activity.Activity
		act, err = m.getByName(name, creator)
		if err != nil {
			return
		}
		id = act.ID()
	})
	return id, err
}

// Adopt attaches a subscriber to the activity, taking a share of
// responsibility for its completion.
func (m *Manager) Adopt(id uint64, sub activity.Subscriber) error {
	var err error
	m.loop.Do(func() {
		var act *activity.Activity
		act, err = m.getByID(id)
		if err != nil {
			return
		}
		act.AddSubscriber(sub)
	})
	return err
}

// DropSubscriber detaches a subscriber identity from the activity.
func (m *Manager) DropSubscriber(id uint64, subID types.BusID) error {
	var err error
	m.loop.Do(func() {
		var act *activity.Activity
		act, err = m.getByID(id)
		if err != nil {
			return
		}
		act.RemoveSubscriber(subID)
	})
	return err
}

// DropSubscriberEverywhere detaches the identity from every activity it
// subscribes to. Called when a bus connection closes.
func (m *Manager) DropSubscriberEverywhere(subID types.BusID) {
	m.loop.Do(func() {
		for _, id := range m.associations.ActivitiesOf(subID) {
			if act, err := m.getByID(id); err == nil {
				act.RemoveSubscriber(subID)
			}
		}
	})
}

// State returns the lifecycle state of the activity.
func (m *Manager) State(id uint64) (activity.State, error) {
	var (
		state activity.State
		err   error
	)
	m.loop.Do(func() {
		var act *activity.Activity
		act, err = m.getByID(id)
		if err != nil {
			return
		}
		state = act.State()
	})
	return state, err
}

// Details returns the full introspection view of the activity.
func (m *Manager) Details(id uint64) (map[string]interface{}, error) {
	var (
		details map[string]interface{}
		err     error
	)
	m.loop.Do(func() {
		var act *activity.Activity
		act, err = m.getByID(id)
		if err != nil {
			return
		}
		details = act.Details()
	})
	return details, err
}

// PersistentDefinitions returns the definitions of live persistent
// activities, with their ids, for serialization at shutdown.
func (m *Manager) PersistentDefinitions() map[uint64]types.ActivityDefinition {
	out := make(map[uint64]types.ActivityDefinition)
	m.loop.Do(func() {
		for id, act := range m.activities {
			if act.Flags().Persistent {
				out[id] = act.Definition()
			}
		}
	})
	return out
}
