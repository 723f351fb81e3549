// Package trigger binds provider update streams to where clauses. A
// trigger fires the first time its clause matches an update and stays fired
// until the owning activity re-arms it.
package trigger

import (
	"github.com/coreplane/activityd/internal/domain/match"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Owner is notified when a trigger fires. The activity implements this.
type Owner interface {
	TriggerFired(t *Trigger)
}

// Trigger subscribes to the update stream published under a bus method and
// filters it through an optional where clause.
type Trigger struct {
	method  string
	params  map[string]interface{}
	matcher *match.Matcher
	owner   Owner
	armed   bool
	fired   bool
}

// New builds a trigger from its definition, compiling the where clause.
func New(def *types.TriggerDef) (*Trigger, error) {
	if def.Method == "" {
		return nil, types.InvalidArg("trigger requires a method to subscribe to")
	}

	t := &Trigger{method: def.Method, params: def.Params, armed: true}
	if def.Where != nil {
		m, err := match.New(def.Where)
		if err != nil {
			return nil, err
		}
		t.matcher = m
	}
	return t, nil
}

// SetOwner attaches the owning activity.
func (t *Trigger) SetOwner(owner Owner) {
	t.owner = owner
}

// Method returns the bus method the trigger subscribes to.
func (t *Trigger) Method() string {
	return t.method
}

// Where returns the raw where clause, or nil.
func (t *Trigger) Where() interface{} {
	if t.matcher == nil {
		return nil
	}
	return t.matcher.Clause()
}

// IsFired reports whether the trigger has fired since it was last armed.
func (t *Trigger) IsFired() bool {
	return t.fired
}

// Arm re-arms a fired trigger so it can fire again.
func (t *Trigger) Arm() {
	t.fired = false
	t.armed = true
}

// ProcessUpdate evaluates one update from the subscribed stream. Updates
// whose clause yields NoProperty do not concern this trigger and are
// ignored outright.
func (t *Trigger) ProcessUpdate(payload map[string]interface{}) {
	if t.fired || !t.armed {
		return
	}

	if t.matcher != nil {
		if t.matcher.Evaluate(payload) != match.Matched {
			return
		}
	}

	t.fired = true
	if t.owner != nil {
		t.owner.TriggerFired(t)
	}
}

// Definition renders the trigger back to its definition form.
func (t *Trigger) Definition() *types.TriggerDef {
	return &types.TriggerDef{Method: t.method, Params: t.params, Where: t.Where()}
}
