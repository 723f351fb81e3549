// Package scheduler implements the activity manager: the global id and
// name registries, the nine run queues, admission control under the
// background concurrency levels, the interactive yield timer, and focus
// tracking.
//
// The manager owns every activity by id. Providers and timers hold ids,
// not references, and re-resolve on each delivery. All queue membership is
// mutated only by the manager, and an activity is on at most one queue at
// any time.
//
// Exported methods serialize onto the control-plane loop; unexported ones
// assume they are already on it.
package scheduler
