package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/activity"
	"github.com/coreplane/activityd/internal/shared/types"
)

// The Inform methods implement activity.ManagerEvents. Activities report
// their transitions here and the manager moves them between run queues.

// InformActivityInitialized parks the activity until the manager is
// enabled, or grants it permission to schedule right away. A restarting
// activity may still be on a run queue or parked on the ended queue and
// gets unlinked first.
func (m *Manager) InformActivityInitialized(act *activity.Activity) {
	m.log.Debug("Activity initialized and ready to be scheduled",
		zap.Uint64("activity", act.ID()))

	m.unlink(act)

	if m.isEnabled() {
		m.enqueue(act, QueueScheduled)
		act.ScheduleActivity(m.now())
	} else {
		m.enqueue(act, QueueInitialized)
	}
}

// InformActivityReady queues the activity for admission. Immediate
// activities bypass the background queues entirely.
func (m *Manager) InformActivityReady(act *activity.Activity) {
	m.log.Debug("Activity now ready to run", zap.Uint64("activity", act.ID()))

	if !m.unlink(act) {
		m.log.Debug("Activity not on any run queue while moving to ready",
			zap.Uint64("activity", act.ID()))
	}

	if act.IsImmediate() {
		m.enqueue(act, QueueImmediate)
		m.runActivity(act, QueueImmediate)
		return
	}

	if act.IsUserInitiated() {
		m.enqueue(act, QueueReadyInteractive)
	} else {
		m.enqueue(act, QueueReady)
	}

	m.checkReadyQueue()
}

// InformActivityNotReady sends the activity back to the scheduled queue
// after a requirement went unmet.
func (m *Manager) InformActivityNotReady(act *activity.Activity) {
	m.log.Debug("Activity no longer ready to run", zap.Uint64("activity", act.ID()))

	if !m.unlink(act) {
		m.log.Debug("Activity not on any run queue while moving to not ready",
			zap.Uint64("activity", act.ID()))
	}
	m.enqueue(act, QueueScheduled)
	m.checkReadyQueue()
}

// InformActivityRunning records the admission.
func (m *Manager) InformActivityRunning(act *activity.Activity) {
	m.log.Debug("Activity running", zap.Uint64("activity", act.ID()))
}

// InformActivityPaused removes a paused activity from its queue; paused
// activities sit on no queue until restarted.
func (m *Manager) InformActivityPaused(act *activity.Activity) {
	m.log.Debug("Activity paused", zap.Uint64("activity", act.ID()))

	m.unlink(act)
	m.cancelScheduleTimer(act)
	m.checkReadyQueue()
}

// InformActivityEnding notes the wind-down; the activity still has
// subscribers with processing to do.
func (m *Manager) InformActivityEnding(act *activity.Activity) {
	m.log.Debug("Activity ending", zap.Uint64("activity", act.ID()))
}

// InformActivityEnd parks the ended activity, drops its focus and
// associations, and re-checks admission since a slot may have freed.
func (m *Manager) InformActivityEnd(act *activity.Activity) {
	m.log.Debug("Activity has ended", zap.Uint64("activity", act.ID()))

	// Ending an activity removes it from the focused set before the final
	// transition.
	if act.IsFocused() {
		act.SetFocus(false)
		m.associations.UpdateFocus(act.ID(), false)
		m.dropFromFocusedList(act)
	}

	m.unlink(act)
	m.enqueue(act, QueueEnded)
	m.cancelScheduleTimer(act)
	m.associations.DissociateAll(act.ID())

	if m.released[act.ID()] {
		m.unlink(act)
		m.finalize(act.ID())
	}

	m.checkReadyQueue()
}

// InformActivityGainedSubscriberID records a new subscriber association.
func (m *Manager) InformActivityGainedSubscriberID(act *activity.Activity, id types.BusID) {
	m.log.Debug("Activity gained subscriber",
		zap.Uint64("activity", act.ID()),
		zap.String("subscriber", id.String()))
	m.associations.Associate(act.ID(), id)
}

// InformActivityLostSubscriberID removes a subscriber association.
func (m *Manager) InformActivityLostSubscriberID(act *activity.Activity, id types.BusID) {
	m.log.Debug("Activity lost subscriber",
		zap.Uint64("activity", act.ID()),
		zap.String("subscriber", id.String()))
	m.associations.Dissociate(act.ID(), id)
}

// ScheduleTimerNeeded arms a wake-up for an activity whose schedule start
// is in the future.
func (m *Manager) ScheduleTimerNeeded(act *activity.Activity, at time.Time) {
	m.cancelScheduleTimer(act)

	id := act.ID()
	delay := at.Sub(m.now())
	if delay < 0 {
		delay = 0
	}

	m.log.Debug("Arming schedule timer",
		zap.Uint64("activity", id),
		zap.Time("at", at))

	m.scheduleTimers[id] = m.loop.After(delay, func() {
		delete(m.scheduleTimers, id)
		// Re-resolve; the activity may have been released meanwhile.
		act, err := m.getByID(id)
		if err != nil {
			return
		}
		act.ScheduleTimeReached()
	})
}
