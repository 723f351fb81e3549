package scheduler

import (
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/activity"
	"github.com/coreplane/activityd/internal/domain/trigger"
	"github.com/coreplane/activityd/internal/shared/types"
)

// CreateActivity validates a definition, allocates an id, binds
// requirements, trigger, and schedule, and registers the activity in
// initialized state. Nothing is scheduled until start is commanded.
func (m *Manager) CreateActivity(def *types.ActivityDefinition) (uint64, error) {
	var (
		id  uint64
		err error
	)
	m.loop.Do(func() { id, err = m.createActivity(def, 0) })
	return id, err
}

// RecreateActivity rebuilds a persisted activity under its original id.
func (m *Manager) RecreateActivity(id uint64, def *types.ActivityDefinition) (uint64, error) {
	var (
		out uint64
		err error
	)
	m.loop.Do(func() { out, err = m.createActivity(def, id) })
	return out, err
}

func (m *Manager) createActivity(def *types.ActivityDefinition, forcedID uint64) (uint64, error) {
	if def == nil || def.Name == "" {
		return 0, types.InvalidArg("activity definition requires a non-empty name")
	}
	if def.Creator.Type != types.BusNamed && def.Creator.Type != types.BusAnon {
		return 0, types.InvalidArg("activity creator must be named or anonymous")
	}

	key := nameKey{name: def.Name, creator: def.Creator.String()}
	if _, found := m.nameTable[key]; found {
		return 0, types.AlreadyRegistered("activity %q is already registered for %s",
			def.Name, def.Creator)
	}

	var act *activity.Activity
	var err error
	if forcedID != 0 {
		act, err = m.forceAllocate(forcedID, def)
		if err != nil {
			return 0, err
		}
	} else {
		act = m.allocate(def)
	}

	// Any failure below must surface with no state change beyond the
	// allocation, which is rolled back.
	abort := func() {
		act.ReleaseRequirements()
		m.idTable.Remove(act.ID())
	}

	for name, value := range def.Requirements {
		req, err := m.requirements.InstantiateRequirement(act.ID(), name, value)
		if err != nil {
			abort()
			return 0, err
		}
		act.AddRequirement(req)
	}

	if def.Trigger != nil {
		t, err := trigger.New(def.Trigger)
		if err != nil {
			abort()
			return 0, err
		}
		act.SetTrigger(t)
	}

	if def.Schedule != nil {
		s, err := activity.ParseSchedule(def.Schedule, m.now())
		if err != nil {
			abort()
			return 0, err
		}
		act.SetSchedule(s)
	}

	if err := m.registerID(act); err != nil {
		abort()
		return 0, err
	}
	if err := m.registerName(act); err != nil {
		abort()
		delete(m.activities, act.ID())
		return 0, err
	}

	if t := act.Trigger(); t != nil {
		m.triggers.Subscribe(t)
	}

	act.Initialize()

	m.log.Info("Activity created",
		zap.Uint64("activity", act.ID()),
		zap.String("name", act.Name()),
		zap.String("creator", act.Creator().String()),
	)

	return act.ID(), nil
}
