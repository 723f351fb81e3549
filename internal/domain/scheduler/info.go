package scheduler

import (
	"github.com/coreplane/activityd/internal/domain/activity"
)

// QueueInfo is one run queue's introspection entry.
type QueueInfo struct {
	Name       string                   `json:"name"`
	Activities []map[string]interface{} `json:"activities"`
}

// Info is the scheduler's introspection snapshot.
type Info struct {
	Queues           []QueueInfo              `json:"queues"`
	LeakedActivities []map[string]interface{} `json:"leakedActivities,omitempty"`
}

// Info scans the run queues and the id table and reports non-empty queues
// in canonical order plus any leaked activities: ids still allocated but no
// longer in the live table.
func (m *Manager) Info() Info {
	var info Info
	m.loop.Do(func() {
		for _, name := range RunQueueNames {
			q := m.queues[name]
			if len(q) == 0 {
				continue
			}
			entry := QueueInfo{Name: name, Activities: make([]map[string]interface{}, 0, len(q))}
			for _, act := range q {
				entry.Activities = append(entry.Activities, act.Identity())
			}
			info.Queues = append(info.Queues, entry)
		}

		m.idTable.Each(func(key, value interface{}) {
			id := key.(uint64)
			if _, live := m.activities[id]; live {
				return
			}
			act := value.(*activity.Activity)
			info.LeakedActivities = append(info.LeakedActivities, act.Identity())
		})
	})
	return info
}

// QueueContents returns the ids on the named queue in order, for tests and
// introspection helpers.
func (m *Manager) QueueContents(queue string) []uint64 {
	var out []uint64
	m.loop.Do(func() {
		for _, act := range m.queues[queue] {
			out = append(out, act.ID())
		}
	})
	return out
}

// LiveCount returns the number of registered activities.
func (m *Manager) LiveCount() int {
	var n int
	m.loop.Do(func() { n = len(m.activities) })
	return n
}
