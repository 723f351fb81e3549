// Package activity implements the per-work-unit state machine.
//
// An Activity aggregates its requirement bindings, optional trigger,
// optional schedule, subscribers, and focus state, and walks the lifecycle
//
//	created → initialized → scheduled → ready → running → ending → ended
//
// with restart edges back to scheduled when a requirement goes unmet or a
// restart policy fires. The activity decides *whether* it is eligible to
// run; the scheduler decides *when* it may, and is informed of every
// transition through the ManagerEvents interface.
//
// All methods must be invoked on the control-plane loop.
package activity
