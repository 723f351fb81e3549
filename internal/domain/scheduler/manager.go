package scheduler

import (
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/domain/activity"
	"github.com/coreplane/activityd/internal/domain/eventloop"
	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/domain/resource"
	"github.com/coreplane/activityd/internal/domain/trigger"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/infrastructure/monitoring"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Enable mask bits. The manager schedules only when all bits are set.
const (
	ExternalEnable uint = 0x1
	UIEnable       uint = 0x2
	enableMask     uint = ExternalEnable | UIEnable
)

// UnlimitedConcurrency disables a background concurrency cap.
const UnlimitedConcurrency = 0

// Defaults for the admission configuration.
const (
	DefaultBackgroundConcurrency            = 1
	DefaultBackgroundInteractiveConcurrency = 3
	DefaultYieldTimeout                     = 60 * time.Second
)

// Config carries the scheduler's admission configuration.
type Config struct {
	BackgroundConcurrency            int
	BackgroundInteractiveConcurrency int
	YieldTimeout                     time.Duration
}

// DefaultConfig returns the default admission configuration.
func DefaultConfig() Config {
	return Config{
		BackgroundConcurrency:            DefaultBackgroundConcurrency,
		BackgroundInteractiveConcurrency: DefaultBackgroundInteractiveConcurrency,
		YieldTimeout:                     DefaultYieldTimeout,
	}
}

type nameKey struct {
	name    string
	creator string
}

// Manager orchestrates the activity lifecycle: registries, run queues,
// admission, yield, and focus.
type Manager struct {
	loop *eventloop.Loop
	log  *logging.Logger

	enabled                          uint
	backgroundConcurrency            int
	backgroundInteractiveConcurrency int
	yieldTimeout                     time.Duration

	nextID uint64

	// idTable holds every allocated activity until it is released and has
	// either ended or lost all its subscribers; activities is the live
	// (registered) map. The difference between the two is the leaked set.
	idTable    *treemap.Map
	activities map[uint64]*activity.Activity
	released   map[uint64]bool

	nameTable map[nameKey]uint64
	byName    map[string]map[uint64]bool

	queues  map[string][]*activity.Activity
	focused []*activity.Activity

	yieldTimer     *eventloop.Timer
	scheduleTimers map[uint64]*eventloop.Timer

	requirements *requirement.Manager
	triggers     *trigger.Dispatcher
	associations *resource.Associations
	metrics      *monitoring.Metrics

	now func() time.Time
}

// NewManager creates a scheduler wired to its collaborators. The metrics
// collector may be nil.
func NewManager(loop *eventloop.Loop, reqs *requirement.Manager, triggers *trigger.Dispatcher, assoc *resource.Associations, log *logging.Logger, metrics *monitoring.Metrics, cfg Config) *Manager {
	queues := make(map[string][]*activity.Activity, len(RunQueueNames))
	for _, name := range RunQueueNames {
		queues[name] = nil
	}

	return &Manager{
		loop:                             loop,
		log:                              log,
		enabled:                          ExternalEnable,
		backgroundConcurrency:            cfg.BackgroundConcurrency,
		backgroundInteractiveConcurrency: cfg.BackgroundInteractiveConcurrency,
		yieldTimeout:                     cfg.YieldTimeout,
		nextID:                           1, // activity id 0 is reserved
		idTable:                          treemap.NewWith(utils.UInt64Comparator),
		activities:                       make(map[uint64]*activity.Activity),
		released:                         make(map[uint64]bool),
		nameTable:                        make(map[nameKey]uint64),
		byName:                           make(map[string]map[uint64]bool),
		queues:                           queues,
		scheduleTimers:                   make(map[uint64]*eventloop.Timer),
		requirements:                     reqs,
		triggers:                         triggers,
		associations:                     assoc,
		metrics:                          metrics,
		now:                              time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Loop returns the control-plane loop the manager runs on.
func (m *Manager) Loop() *eventloop.Loop {
	return m.loop
}

// Associations returns the resource association index.
func (m *Manager) Associations() *resource.Associations {
	return m.associations
}

// allocate creates an activity with the next free sequential id and records
// it in the id table. Live ids are skipped.
func (m *Manager) allocate(def *types.ActivityDefinition) *activity.Activity {
	for {
		if m.nextID == 0 {
			m.nextID = 1
		}
		if _, found := m.idTable.Get(m.nextID); !found {
			break
		}
		m.nextID++
	}

	id := m.nextID
	m.nextID++

	act := activity.New(id, def, m)
	m.idTable.Put(id, act)

	m.log.Debug("Activity allocated", zap.Uint64("activity", id))
	return act
}

// forceAllocate creates an activity with a caller-chosen id, used when
// re-creating persisted activities. Duplicate ids are rejected.
func (m *Manager) forceAllocate(id uint64, def *types.ActivityDefinition) (*activity.Activity, error) {
	if id == 0 {
		return nil, types.InvalidArg("activity id 0 is reserved")
	}
	if _, found := m.idTable.Get(id); found {
		return nil, types.AlreadyRegistered("activity id %d is already allocated", id)
	}

	act := activity.New(id, def, m)
	m.idTable.Put(id, act)

	m.log.Debug("Activity allocation forced", zap.Uint64("activity", id))
	return act, nil
}

// registerID places the activity in the live table.
func (m *Manager) registerID(act *activity.Activity) error {
	if _, found := m.activities[act.ID()]; found {
		return types.AlreadyRegistered("activity id %d is already registered", act.ID())
	}
	m.activities[act.ID()] = act
	if m.metrics != nil {
		m.metrics.RecordActivityCreated(len(m.activities))
	}
	return nil
}

// registerName claims the (creator, name) pair for the activity.
func (m *Manager) registerName(act *activity.Activity) error {
	key := nameKey{name: act.Name(), creator: act.Creator().String()}
	if _, found := m.nameTable[key]; found {
		return types.AlreadyRegistered("activity %q is already registered for %s",
			act.Name(), act.Creator())
	}

	m.nameTable[key] = act.ID()
	if m.byName[act.Name()] == nil {
		m.byName[act.Name()] = make(map[uint64]bool)
	}
	m.byName[act.Name()][act.ID()] = true

	m.log.Debug("Activity name registered",
		zap.Uint64("activity", act.ID()),
		zap.String("name", act.Name()),
		zap.String("creator", act.Creator().String()),
	)
	return nil
}

// unregisterName releases the (creator, name) pair.
func (m *Manager) unregisterName(act *activity.Activity) {
	key := nameKey{name: act.Name(), creator: act.Creator().String()}
	if _, found := m.nameTable[key]; !found {
		m.log.Warn("Activity name not registered while unregistering",
			zap.Uint64("activity", act.ID()),
			zap.String("name", act.Name()),
			zap.String("operation", "unregisterName"),
		)
		return
	}
	delete(m.nameTable, key)
	if ids := m.byName[act.Name()]; ids != nil {
		delete(ids, act.ID())
		if len(ids) == 0 {
			delete(m.byName, act.Name())
		}
	}
}

// getByID resolves a live activity by id.
func (m *Manager) getByID(id uint64) (*activity.Activity, error) {
	act, found := m.activities[id]
	if !found {
		return nil, types.NotFound("activity id %d not found", id)
	}
	return act, nil
}

// getByName resolves a live activity by name. Anonymous creators match any
// activity with the name; named creators match exactly.
func (m *Manager) getByName(name string, creator types.BusID) (*activity.Activity, error) {
	if creator.IsAnon() {
		var best *activity.Activity
		for id := range m.byName[name] {
			if act, found := m.activities[id]; found {
				if best == nil || act.ID() < best.ID() {
					best = act
				}
			}
		}
		if best == nil {
			return nil, types.NotFound("activity %q not found", name)
		}
		return best, nil
	}

	id, found := m.nameTable[nameKey{name: name, creator: creator.String()}]
	if !found {
		return nil, types.NotFound("activity %q not found for %s", name, creator)
	}
	return m.getByID(id)
}

// release drops the caller's handle on the activity. The id stays in the
// id table until the activity has also ended or has no subscribers left,
// which is what introspection reports as leaked in the interim.
func (m *Manager) release(id uint64) error {
	act, err := m.getByID(id)
	if err != nil {
		return err
	}

	m.log.Debug("Releasing activity", zap.Uint64("activity", id))

	if m.unlink(act) {
		m.log.Debug("Activity evicted from run queue on release",
			zap.Uint64("activity", id))
	}
	m.cancelScheduleTimer(act)
	m.unregisterName(act)
	act.ReleaseRequirements()
	if t := act.Trigger(); t != nil {
		m.triggers.Unsubscribe(t)
	}

	delete(m.activities, id)
	m.released[id] = true
	if m.metrics != nil {
		m.metrics.SetLiveActivities(len(m.activities))
	}

	if act.State() == activity.StateEnded || len(act.Subscribers()) == 0 {
		m.finalize(id)
	}

	m.checkReadyQueue()
	return nil
}

// finalize removes a released, ended activity from the id table.
func (m *Manager) finalize(id uint64) {
	if m.released[id] {
		m.idTable.Remove(id)
		delete(m.released, id)
	}
}

// Enable sets bits of the enable mask. When all bits become set, every
// activity parked on the initialized queue is granted permission to
// schedule.
func (m *Manager) Enable(mask uint) {
	m.loop.Do(func() { m.enable(mask) })
}

func (m *Manager) enable(mask uint) {
	if mask&^enableMask != 0 {
		m.log.Debug("Unknown bits in enable mask", zap.Uint("mask", mask))
	}
	m.enabled |= mask & enableMask

	if m.isEnabled() {
		m.scheduleAllActivities()
	}
}

// Disable clears bits of the enable mask. Running activities are left
// alone; no new ones are admitted.
func (m *Manager) Disable(mask uint) {
	m.loop.Do(func() { m.enabled &^= mask })
}

func (m *Manager) isEnabled() bool {
	return m.enabled&enableMask == enableMask
}

// IsEnabled reports whether all enable bits are set.
func (m *Manager) IsEnabled() bool {
	var enabled bool
	m.loop.Do(func() { enabled = m.isEnabled() })
	return enabled
}

func (m *Manager) scheduleAllActivities() {
	m.log.Debug("Scheduling all activities")

	for m.queueLen(QueueInitialized) > 0 {
		act := m.queueFront(QueueInitialized)
		m.unlink(act)
		m.log.Debug("Granting activity permission to schedule",
			zap.Uint64("activity", act.ID()))
		m.enqueue(act, QueueScheduled)
		act.ScheduleActivity(m.now())
	}
}

func (m *Manager) cancelScheduleTimer(act *activity.Activity) {
	if t, ok := m.scheduleTimers[act.ID()]; ok {
		t.Stop()
		delete(m.scheduleTimers, act.ID())
	}
}

// Focus gives the activity exclusive focus, displacing every previously
// focused activity. Focusing an already focused activity changes nothing.
func (m *Manager) Focus(id uint64) error {
	var err error
	m.loop.Do(func() { err = m.focus(id) })
	return err
}

func (m *Manager) focus(id uint64) error {
	act, err := m.getByID(id)
	if err != nil {
		return err
	}

	if act.IsFocused() {
		m.log.Debug("Activity is already focused", zap.Uint64("activity", id))
		return nil
	}

	act.SetFocus(true)
	m.associations.UpdateFocus(id, true)

	oldFocused := m.focused
	m.focused = []*activity.Activity{act}

	for _, prev := range oldFocused {
		m.log.Debug("Removing focus from previously focused activity",
			zap.Uint64("activity", prev.ID()))
		prev.SetFocus(false)
		m.associations.UpdateFocus(prev.ID(), false)
	}

	return nil
}

// Unfocus removes focus from the activity.
func (m *Manager) Unfocus(id uint64) error {
	var err error
	m.loop.Do(func() { err = m.unfocus(id) })
	return err
}

func (m *Manager) unfocus(id uint64) error {
	act, err := m.getByID(id)
	if err != nil {
		return err
	}

	if !act.IsFocused() {
		return types.InvalidArg("activity %d is not focused", id)
	}

	act.SetFocus(false)
	m.associations.UpdateFocus(id, false)
	m.dropFromFocusedList(act)
	return nil
}

func (m *Manager) dropFromFocusedList(act *activity.Activity) {
	for i, entry := range m.focused {
		if entry == act {
			m.focused = append(m.focused[:i], m.focused[i+1:]...)
			return
		}
	}
	m.log.Warn("Activity not on focused list while removing focus",
		zap.Uint64("activity", act.ID()),
		zap.String("operation", "unfocus"),
	)
}

// AddFocus adds the target to the focused set. The source must already be
// focused.
func (m *Manager) AddFocus(sourceID, targetID uint64) error {
	var err error
	m.loop.Do(func() { err = m.addFocus(sourceID, targetID) })
	return err
}

func (m *Manager) addFocus(sourceID, targetID uint64) error {
	source, err := m.getByID(sourceID)
	if err != nil {
		return err
	}
	target, err := m.getByID(targetID)
	if err != nil {
		return err
	}

	if !source.IsFocused() {
		return types.InvalidArg("cannot add focus from activity %d: not focused", sourceID)
	}
	if target.IsFocused() {
		m.log.Debug("Target is already focused",
			zap.Uint64("source", sourceID),
			zap.Uint64("target", targetID))
		return nil
	}

	target.SetFocus(true)
	m.associations.UpdateFocus(targetID, true)
	m.focused = append(m.focused, target)
	return nil
}

// FocusedIDs returns the ids in the focused set, in focus order.
func (m *Manager) FocusedIDs() []uint64 {
	var out []uint64
	m.loop.Do(func() {
		for _, act := range m.focused {
			out = append(out, act.ID())
		}
	})
	return out
}
