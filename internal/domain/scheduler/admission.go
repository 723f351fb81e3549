package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/activity"
	"github.com/coreplane/activityd/internal/shared/types"
)

// runningBackgroundCount is the number of activities occupying background
// slots. Immediate activities are never counted.
func (m *Manager) runningBackgroundCount() int {
	return m.queueLen(QueueBackground) + m.queueLen(QueueBackgroundInteractive)
}

func (m *Manager) belowLimit(limit int) bool {
	return limit == UnlimitedConcurrency || m.runningBackgroundCount() < limit
}

// checkReadyQueue admits ready activities to the running queues, FIFO
// within each ready queue, interactive first. Invoked whenever a slot may
// have opened: an activity became ready or ended, a concurrency level
// changed, or a provider broadcast reshuffled readiness.
func (m *Manager) checkReadyQueue() {
	ranInteractive := false

	for m.belowLimit(m.backgroundInteractiveConcurrency) && m.queueLen(QueueReadyInteractive) > 0 {
		m.runReadyBackgroundInteractiveActivity(m.queueFront(QueueReadyInteractive))
		ranInteractive = true
	}

	if m.queueLen(QueueReadyInteractive) > 0 {
		if ranInteractive || m.yieldTimer == nil {
			m.updateYieldTimeout()
		}
	} else if m.yieldTimer != nil {
		m.cancelYieldTimeout()
	}

	for m.belowLimit(m.backgroundConcurrency) && m.queueLen(QueueReady) > 0 {
		m.runReadyBackgroundActivity(m.queueFront(QueueReady))
	}
}

func (m *Manager) runActivity(act *activity.Activity, queue string) {
	m.log.Debug("Running activity",
		zap.Uint64("activity", act.ID()),
		zap.String("queue", queue))
	if m.metrics != nil {
		m.metrics.RecordAdmission(queue)
	}
	act.RunActivity()
}

func (m *Manager) runReadyBackgroundActivity(act *activity.Activity) {
	if !m.unlink(act) {
		m.log.Warn("Activity not on a queue while admitting to background",
			zap.Uint64("activity", act.ID()),
			zap.String("operation", "runReadyBackgroundActivity"),
		)
	}
	m.enqueue(act, QueueBackground)
	m.runActivity(act, QueueBackground)
}

func (m *Manager) runReadyBackgroundInteractiveActivity(act *activity.Activity) {
	if !m.unlink(act) {
		m.log.Warn("Activity not on a queue while admitting to background interactive",
			zap.Uint64("activity", act.ID()),
			zap.String("operation", "runReadyBackgroundInteractiveActivity"),
		)
	}
	m.enqueue(act, QueueBackgroundInteractive)
	m.runActivity(act, QueueBackgroundInteractive)
}

func (m *Manager) updateYieldTimeout() {
	if m.yieldTimer == nil {
		m.log.Debug("Arming background interactive yield timeout",
			zap.Duration("timeout", m.yieldTimeout))
	} else {
		m.yieldTimer.Stop()
	}
	m.yieldTimer = m.loop.After(m.yieldTimeout, m.interactiveYieldTimeout)
}

func (m *Manager) cancelYieldTimeout() {
	m.log.Debug("Cancelling background interactive yield timeout")
	m.yieldTimer.Stop()
	m.yieldTimer = nil
}

// interactiveYieldTimeout asks one more running interactive activity to
// yield, but only while fewer are yielding than are waiting on the ready
// interactive queue. The timer stays armed while anything is waiting.
func (m *Manager) interactiveYieldTimeout() {
	m.yieldTimer = nil

	if m.queueLen(QueueReadyInteractive) == 0 {
		m.log.Debug("Ready interactive queue empty, leaving yield timeout cancelled")
		return
	}

	waiting := m.queueLen(QueueReadyInteractive)
	yielding := 0
	var victim *activity.Activity
	enough := false

	for _, act := range m.queues[QueueBackgroundInteractive] {
		if act.IsYielding() {
			yielding++
			if yielding >= waiting {
				enough = true
				break
			}
		} else if victim == nil {
			victim = act
		}
	}

	if enough {
		m.log.Debug("As many activities yielding as waiting in the ready interactive queue")
	} else if victim != nil {
		m.log.Debug("Requesting activity yield", zap.Uint64("activity", victim.ID()))
		if m.metrics != nil {
			m.metrics.YieldRequests.Inc()
		}
		victim.RequestYield()
	} else {
		m.log.Debug("All running background interactive activities are already yielding")
	}

	m.updateYieldTimeout()
}

// SetBackgroundConcurrencyLevel changes the background cap and returns the
// previous value. More activities may become admissible.
func (m *Manager) SetBackgroundConcurrencyLevel(level int) (int, error) {
	if level < 0 {
		return 0, types.InvalidArg("concurrency level must be positive or unlimited")
	}
	var old int
	m.loop.Do(func() {
		old = m.backgroundConcurrency
		m.backgroundConcurrency = level
		m.checkReadyQueue()
	})
	return old, nil
}

// SetBackgroundInteractiveConcurrencyLevel changes the interactive cap and
// returns the previous value.
func (m *Manager) SetBackgroundInteractiveConcurrencyLevel(level int) (int, error) {
	if level < 0 {
		return 0, types.InvalidArg("concurrency level must be positive or unlimited")
	}
	var old int
	m.loop.Do(func() {
		old = m.backgroundInteractiveConcurrency
		m.backgroundInteractiveConcurrency = level
		m.checkReadyQueue()
	})
	return old, nil
}

// SetYieldTimeout changes the yield timer interval for subsequent arms.
func (m *Manager) SetYieldTimeout(d time.Duration) error {
	if d <= 0 {
		return types.InvalidArg("yield timeout must be positive")
	}
	m.loop.Do(func() { m.yieldTimeout = d })
	return nil
}

// EvictBackgroundActivity moves a running background activity to the
// long-background queue, freeing its slot without disturbing it.
func (m *Manager) EvictBackgroundActivity(id uint64) error {
	var err error
	m.loop.Do(func() { err = m.evictBackgroundActivity(id) })
	return err
}

func (m *Manager) evictBackgroundActivity(id uint64) error {
	act, err := m.getByID(id)
	if err != nil {
		return err
	}
	if act.CurrentQueue() != QueueBackground {
		return types.InvalidArg("activity %d is not on the background queue", id)
	}

	m.unlink(act)
	m.enqueue(act, QueueLongBackground)
	m.checkReadyQueue()
	return nil
}

// EvictAllBackgroundActivities moves every running background activity to
// the long-background queue.
func (m *Manager) EvictAllBackgroundActivities() {
	m.loop.Do(func() {
		for m.queueLen(QueueBackground) > 0 {
			act := m.queueFront(QueueBackground)
			m.unlink(act)
			m.enqueue(act, QueueLongBackground)
		}
		m.checkReadyQueue()
	})
}

// RunReadyActivity admits a specific ready activity immediately, ignoring
// the concurrency limits.
func (m *Manager) RunReadyActivity(id uint64) error {
	var err error
	m.loop.Do(func() { err = m.runReadyActivity(id) })
	return err
}

func (m *Manager) runReadyActivity(id uint64) error {
	act, err := m.getByID(id)
	if err != nil {
		return err
	}

	switch act.CurrentQueue() {
	case QueueReady:
		m.runReadyBackgroundActivity(act)
		return nil
	case QueueReadyInteractive:
		m.runReadyBackgroundInteractiveActivity(act)
		return nil
	default:
		return types.InvalidArg("activity %d is not on a ready queue", id)
	}
}

// RunAllReadyActivities admits everything currently ready, interactive
// first, ignoring the concurrency limits.
func (m *Manager) RunAllReadyActivities() {
	m.loop.Do(func() {
		for m.queueLen(QueueReadyInteractive) > 0 {
			m.runReadyBackgroundInteractiveActivity(m.queueFront(QueueReadyInteractive))
		}
		for m.queueLen(QueueReady) > 0 {
			m.runReadyBackgroundActivity(m.queueFront(QueueReady))
		}
	})
}
