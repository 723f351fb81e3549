package activity

import (
	"time"

	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/domain/trigger"
	"github.com/coreplane/activityd/internal/shared/types"
)

// State is an activity lifecycle state.
type State string

const (
	StateCreated     State = "created"
	StateInitialized State = "initialized"
	StateScheduled   State = "scheduled"
	StateReady       State = "ready"
	StateRunning     State = "running"
	StatePaused      State = "paused"
	StateEnding      State = "ending"
	StateEnded       State = "ended"
)

// Command is a bus-originated lifecycle command.
type Command string

const (
	CommandStart    Command = "start"
	CommandStop     Command = "stop"
	CommandCancel   Command = "cancel"
	CommandPause    Command = "pause"
	CommandComplete Command = "complete"
	CommandYield    Command = "yield"
)

// Event is a lifecycle notification delivered to subscribers.
type Event string

const (
	EventStart    Event = "start"
	EventStop     Event = "stop"
	EventCancel   Event = "cancel"
	EventPause    Event = "pause"
	EventComplete Event = "complete"
	EventYield    Event = "yield"
	EventOrphan   Event = "orphan"
	EventUpdate   Event = "update"
)

// PriorityClass buckets an activity for admission.
type PriorityClass string

const (
	ClassImmediate      PriorityClass = "immediate"
	ClassInteractive    PriorityClass = "interactive"
	ClassBackground     PriorityClass = "background"
	ClassLongBackground PriorityClass = "longBackground"
)

// ManagerEvents is the scheduler's view of activity transitions. The
// scheduler moves the activity between run queues in response; the activity
// never touches queues itself.
type ManagerEvents interface {
	InformActivityInitialized(a *Activity)
	InformActivityReady(a *Activity)
	InformActivityNotReady(a *Activity)
	InformActivityRunning(a *Activity)
	InformActivityPaused(a *Activity)
	InformActivityEnding(a *Activity)
	InformActivityEnd(a *Activity)
	InformActivityGainedSubscriberID(a *Activity, id types.BusID)
	InformActivityLostSubscriberID(a *Activity, id types.BusID)
	ScheduleTimerNeeded(a *Activity, at time.Time)
}

// Subscriber receives lifecycle events for an activity it subscribes to.
type Subscriber interface {
	BusID() types.BusID
	Notify(activityID uint64, event Event)
}

// Activity is one declaratively described unit of background work.
type Activity struct {
	id          uint64
	name        string
	creator     types.BusID
	description string
	flags       types.FlagsDef
	callback    *types.CallbackDef

	state        State
	currentQueue string // owned by the scheduler; "" when on no queue

	requirements map[string]*requirement.Requirement
	unmet        int
	trig         *trigger.Trigger
	schedule     *Schedule
	schedOK      bool

	subscribers []Subscriber
	focused     bool
	yielding    bool

	// set when stop or cancel was commanded, suppressing restart policy
	explicitEnd bool
	// set on a completion restart so the schedule advances one interval
	advanceSchedule bool

	events ManagerEvents
}

// New creates an activity in the created state. Requirements, trigger, and
// schedule are attached by the scheduler while building the definition.
func New(id uint64, def *types.ActivityDefinition, events ManagerEvents) *Activity {
	return &Activity{
		id:           id,
		name:         def.Name,
		creator:      def.Creator,
		description:  def.Description,
		flags:        def.Flags,
		callback:     def.Callback,
		state:        StateCreated,
		requirements: make(map[string]*requirement.Requirement),
		events:       events,
	}
}

// ID returns the activity id.
func (a *Activity) ID() uint64 { return a.id }

// Name returns the activity name.
func (a *Activity) Name() string { return a.name }

// Creator returns the creating identity.
func (a *Activity) Creator() types.BusID { return a.creator }

// State returns the lifecycle state.
func (a *Activity) State() State { return a.state }

// Flags returns the behavior flags.
func (a *Activity) Flags() types.FlagsDef { return a.flags }

// CurrentQueue returns the run queue the activity is on, "" if none. Only
// the scheduler assigns it.
func (a *Activity) CurrentQueue() string { return a.currentQueue }

// SetCurrentQueue records queue membership. Scheduler use only.
func (a *Activity) SetCurrentQueue(q string) { a.currentQueue = q }

// IsImmediate reports whether the activity bypasses the background queues.
func (a *Activity) IsImmediate() bool { return a.flags.Immediate }

// IsUserInitiated reports whether the activity is admitted interactively.
func (a *Activity) IsUserInitiated() bool { return a.flags.UserInitiated }

// IsYielding reports whether a yield was requested and not yet honored.
func (a *Activity) IsYielding() bool { return a.yielding }

// IsFocused reports the focus flag.
func (a *Activity) IsFocused() bool { return a.focused }

// SetFocus flips the focus flag. The scheduler maintains the focused set.
func (a *Activity) SetFocus(focused bool) { a.focused = focused }

// Class returns the admission priority class.
func (a *Activity) Class() PriorityClass {
	switch {
	case a.flags.Immediate:
		return ClassImmediate
	case a.flags.UserInitiated:
		return ClassInteractive
	default:
		return ClassBackground
	}
}

// Trigger returns the trigger, nil if none.
func (a *Activity) Trigger() *trigger.Trigger { return a.trig }

// Schedule returns the schedule, nil if none.
func (a *Activity) Schedule() *Schedule { return a.schedule }

// AddRequirement attaches a binding and wires its transitions to this
// activity.
func (a *Activity) AddRequirement(r *requirement.Requirement) {
	r.SetOwner(a)
	a.requirements[r.Name()] = r
	if !r.IsMet() {
		a.unmet++
	}
}

// Requirements returns the attached bindings keyed by name.
func (a *Activity) Requirements() map[string]*requirement.Requirement {
	return a.requirements
}

// SetTrigger attaches the trigger.
func (a *Activity) SetTrigger(t *trigger.Trigger) {
	t.SetOwner(a)
	a.trig = t
}

// SetSchedule attaches the schedule.
func (a *Activity) SetSchedule(s *Schedule) {
	a.schedule = s
}

// Initialize moves a created activity to initialized once its definition is
// accepted and registered.
func (a *Activity) Initialize() {
	a.state = StateInitialized
}

// SendCommand applies a bus command to the state machine. Commands are
// idempotent except start and yield.
func (a *Activity) SendCommand(cmd Command) error {
	switch cmd {
	case CommandStart:
		return a.start()
	case CommandStop:
		return a.stop()
	case CommandCancel:
		return a.cancel()
	case CommandPause:
		return a.pause()
	case CommandComplete:
		return a.complete()
	case CommandYield:
		a.RequestYield()
		return nil
	default:
		return types.InvalidArg("unknown command %q", cmd)
	}
}

func (a *Activity) start() error {
	switch a.state {
	case StateInitialized, StatePaused:
		a.explicitEnd = false
		a.events.InformActivityInitialized(a)
		return nil
	default:
		return types.InvalidArg("start has no effect in state %q", a.state)
	}
}

func (a *Activity) stop() error {
	switch a.state {
	case StateEnding, StateEnded:
		return nil
	default:
		a.explicitEnd = true
		a.notify(EventStop)
		a.beginEnd()
		return nil
	}
}

func (a *Activity) cancel() error {
	if a.state == StateEnded {
		return nil
	}
	a.explicitEnd = true
	a.notify(EventCancel)
	a.endNow()
	return nil
}

func (a *Activity) pause() error {
	switch a.state {
	case StatePaused:
		return nil
	case StateScheduled, StateReady, StateRunning:
		a.leaveRunning()
		a.state = StatePaused
		a.notify(EventPause)
		a.events.InformActivityPaused(a)
		return nil
	default:
		return types.InvalidArg("pause has no effect in state %q", a.state)
	}
}

func (a *Activity) complete() error {
	switch a.state {
	case StateRunning, StateEnding:
		a.notify(EventComplete)
		if a.shouldRestartOnComplete() {
			a.restart()
			return nil
		}
		a.beginEnd()
		return nil
	default:
		return types.InvalidArg("complete has no effect in state %q", a.state)
	}
}

func (a *Activity) shouldRestartOnComplete() bool {
	if a.flags.Continuous {
		return true
	}
	return a.schedule != nil && a.schedule.Interval() > 0
}

// restart re-arms the activity and hands it back to the scheduler in
// initialized form. Past trigger state is reset to armed.
func (a *Activity) restart() {
	a.leaveRunning()
	if a.trig != nil {
		a.trig.Arm()
	}
	a.advanceSchedule = a.schedule != nil
	a.state = StateInitialized
	a.events.InformActivityInitialized(a)
}

// ScheduleActivity is invoked by the scheduler when the activity lands on
// the scheduled queue. It evaluates the schedule against now and asks the
// scheduler for a wake-up if the start moment is in the future.
func (a *Activity) ScheduleActivity(now time.Time) {
	a.state = StateScheduled

	if a.advanceSchedule {
		a.schedule.Advance(now)
		a.advanceSchedule = false
	}

	if a.schedule == nil || a.schedule.Reached(now) {
		a.schedOK = true
	} else {
		a.schedOK = false
		a.events.ScheduleTimerNeeded(a, a.schedule.Start())
	}

	a.checkReady()
}

// ScheduleTimeReached is the schedule timer callback.
func (a *Activity) ScheduleTimeReached() {
	a.schedOK = true
	a.checkReady()
}

// IsRunnable reports whether every precondition holds: all requirements
// met, trigger fired (if any), schedule reached.
func (a *Activity) IsRunnable() bool {
	if a.unmet > 0 || !a.schedOK {
		return false
	}
	if a.trig != nil && !a.trig.IsFired() {
		return false
	}
	return true
}

func (a *Activity) checkReady() {
	if a.state != StateScheduled || !a.IsRunnable() {
		return
	}
	a.state = StateReady
	a.events.InformActivityReady(a)
}

// RunActivity is invoked by the scheduler on admission.
func (a *Activity) RunActivity() {
	a.state = StateRunning
	a.notify(EventStart)
	a.events.InformActivityRunning(a)
}

// RequestYield asks a running activity to end cooperatively so a waiting
// interactive one can be admitted.
func (a *Activity) RequestYield() {
	if a.state != StateRunning || a.yielding {
		return
	}
	a.yielding = true
	a.notify(EventYield)
}

func (a *Activity) leaveRunning() {
	a.yielding = false
}

// beginEnd starts the graceful wind-down. The activity stays in ending
// until the last subscriber departs.
func (a *Activity) beginEnd() {
	a.leaveRunning()
	if len(a.subscribers) == 0 {
		a.endNow()
		return
	}
	a.state = StateEnding
	a.events.InformActivityEnding(a)
}

// endNow completes the transition to ended. Focus is dropped before the
// final transition so the focused set never holds an ended activity.
func (a *Activity) endNow() {
	a.leaveRunning()
	ended := a.state == StateEnded
	a.state = StateEnded
	if !ended {
		a.events.InformActivityEnd(a)
		a.maybeRestartAfterEnd()
	}
}

// maybeRestartAfterEnd applies the restart policy: persistent and
// continuous activities come back unless their end was explicitly
// commanded.
func (a *Activity) maybeRestartAfterEnd() {
	if a.explicitEnd {
		return
	}
	if a.flags.Persistent || a.flags.Continuous {
		a.restart()
	}
}

// AddSubscriber attaches a subscriber identity.
func (a *Activity) AddSubscriber(sub Subscriber) {
	a.subscribers = append(a.subscribers, sub)
	a.events.InformActivityGainedSubscriberID(a, sub.BusID())
}

// RemoveSubscriber detaches a subscriber. When the last one departs from an
// ending activity, the activity ends; when it departs from a running one,
// the activity is orphaned and ends under the restart policy.
func (a *Activity) RemoveSubscriber(id types.BusID) {
	key := id.String()
	found := false
	var removed Subscriber
	for i, sub := range a.subscribers {
		if sub.BusID().String() == key {
			a.subscribers = append(a.subscribers[:i], a.subscribers[i+1:]...)
			removed = sub
			found = true
			break
		}
	}
	if !found {
		return
	}

	a.events.InformActivityLostSubscriberID(a, id)

	if len(a.subscribers) > 0 {
		return
	}

	switch a.state {
	case StateEnding:
		a.endNow()
	case StateRunning:
		removed.Notify(a.id, EventOrphan)
		a.endNow()
	}
}

// Subscribers returns the current subscriber identities in attach order.
func (a *Activity) Subscribers() []types.BusID {
	out := make([]types.BusID, len(a.subscribers))
	for i, sub := range a.subscribers {
		out[i] = sub.BusID()
	}
	return out
}

// RequirementMet implements requirement.Owner.
func (a *Activity) RequirementMet(r *Requirement) {
	if a.unmet > 0 {
		a.unmet--
	}
	a.checkReady()
}

// RequirementUnmet implements requirement.Owner. An unmet requirement
// while ready or running sends the activity back to scheduled (restart
// semantics for running activities).
func (a *Activity) RequirementUnmet(r *Requirement) {
	a.unmet++

	switch a.state {
	case StateReady:
		a.state = StateScheduled
		a.events.InformActivityNotReady(a)
	case StateRunning:
		a.leaveRunning()
		a.notify(EventStop)
		a.state = StateScheduled
		a.events.InformActivityNotReady(a)
	}
}

// RequirementUpdated implements requirement.Owner. Met state did not flip;
// running subscribers are told the underlying value changed.
func (a *Activity) RequirementUpdated(r *Requirement) {
	if a.state == StateRunning {
		a.notify(EventUpdate)
	}
}

// TriggerFired implements trigger.Owner.
func (a *Activity) TriggerFired(t *trigger.Trigger) {
	a.checkReady()
}

// ReleaseRequirements unlinks every binding from its provider. Called by
// the scheduler when the activity is released.
func (a *Activity) ReleaseRequirements() {
	for _, r := range a.requirements {
		r.Unlink()
	}
}

func (a *Activity) notify(event Event) {
	for _, sub := range a.subscribers {
		sub.Notify(a.id, event)
	}
}

// Requirement re-exports the binding type for the Owner interface methods.
type Requirement = requirement.Requirement
