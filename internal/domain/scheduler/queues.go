package scheduler

import (
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/activity"
)

// Run queue names, externally observable through introspection.
const (
	QueueInitialized           = "initialized"
	QueueScheduled             = "scheduled"
	QueueReady                 = "ready"
	QueueReadyInteractive      = "readyInteractive"
	QueueBackground            = "background"
	QueueBackgroundInteractive = "backgroundInteractive"
	QueueLongBackground        = "longBackground"
	QueueImmediate             = "immediate"
	QueueEnded                 = "ended"
)

// RunQueueNames lists the queues in introspection order.
var RunQueueNames = []string{
	QueueInitialized,
	QueueScheduled,
	QueueReady,
	QueueReadyInteractive,
	QueueBackground,
	QueueBackgroundInteractive,
	QueueLongBackground,
	QueueImmediate,
	QueueEnded,
}

// enqueue appends the activity to the named queue. The activity must not be
// on any queue.
func (m *Manager) enqueue(act *activity.Activity, queue string) {
	if current := act.CurrentQueue(); current != "" {
		// Queue membership is mutually exclusive; coerce by unlinking.
		m.log.Warn("Activity already on a run queue while enqueueing",
			zap.Uint64("activity", act.ID()),
			zap.String("queue", current),
			zap.String("target", queue),
		)
		m.unlink(act)
	}
	m.queues[queue] = append(m.queues[queue], act)
	act.SetCurrentQueue(queue)
	m.recordQueueDepth(queue)
}

// unlink removes the activity from its current queue, if any, and reports
// whether it was linked.
func (m *Manager) unlink(act *activity.Activity) bool {
	queue := act.CurrentQueue()
	if queue == "" {
		return false
	}

	q := m.queues[queue]
	for i, entry := range q {
		if entry == act {
			m.queues[queue] = append(q[:i], q[i+1:]...)
			act.SetCurrentQueue("")
			m.recordQueueDepth(queue)
			return true
		}
	}

	// Marker said linked but the queue disagrees; self-heal the marker.
	m.log.Warn("Activity marked on a run queue it is not a member of",
		zap.Uint64("activity", act.ID()),
		zap.String("queue", queue),
		zap.String("operation", "unlink"),
	)
	act.SetCurrentQueue("")
	return false
}

func (m *Manager) queueLen(queue string) int {
	return len(m.queues[queue])
}

func (m *Manager) queueFront(queue string) *activity.Activity {
	q := m.queues[queue]
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func (m *Manager) recordQueueDepth(queue string) {
	if m.metrics != nil {
		m.metrics.RecordQueueDepth(queue, len(m.queues[queue]))
	}
}
