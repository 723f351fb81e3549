package requirement

// Owner receives requirement transitions for the activity a binding is
// attached to. The activity implements this.
type Owner interface {
	RequirementMet(r *Requirement)
	RequirementUnmet(r *Requirement)
	RequirementUpdated(r *Requirement)
}

// Requirement binds one activity to a provider-owned Core. The binding
// caches the met state as of the last broadcast it received, so an activity
// can consult its requirements without reaching back into the provider.
type Requirement struct {
	activityID uint64
	core       *Core
	owner      Owner
	met        bool
	list       *List
}

// NewRequirement creates a binding for activityID onto core, seeded with
// the core's met state at instantiation time.
func NewRequirement(activityID uint64, core *Core, met bool) *Requirement {
	return &Requirement{activityID: activityID, core: core, met: met}
}

// SetOwner attaches the receiving activity. A binding has exactly one owner.
func (r *Requirement) SetOwner(owner Owner) {
	r.owner = owner
}

// ActivityID returns the id of the activity the binding is attached to.
func (r *Requirement) ActivityID() uint64 {
	return r.activityID
}

// Name returns the requirement name.
func (r *Requirement) Name() string {
	return r.core.Name()
}

// Value returns the comparison value the binding was instantiated with.
func (r *Requirement) Value() interface{} {
	return r.core.Value()
}

// CurrentValue returns the core's last committed value.
func (r *Requirement) CurrentValue() interface{} {
	return r.core.CurrentValue()
}

// IsMet reports the met state as of the last broadcast received.
func (r *Requirement) IsMet() bool {
	return r.met
}

// Met records the met transition and informs the owner.
func (r *Requirement) Met() {
	r.met = true
	if r.owner != nil {
		r.owner.RequirementMet(r)
	}
}

// Unmet records the unmet transition and informs the owner.
func (r *Requirement) Unmet() {
	r.met = false
	if r.owner != nil {
		r.owner.RequirementUnmet(r)
	}
}

// Updated informs the owner that the current value changed without the met
// state flipping.
func (r *Requirement) Updated() {
	if r.owner != nil {
		r.owner.RequirementUpdated(r)
	}
}

// Unlink detaches the binding from its provider's broadcast list. Called
// when the owning activity releases its requirements.
func (r *Requirement) Unlink() {
	if r.list != nil {
		r.list.Remove(r)
		r.list = nil
	}
	r.owner = nil
}

// List is an ordered collection of live bindings a provider broadcasts to.
// Broadcast order is insertion order.
type List struct {
	items []*Requirement
}

// Add appends a binding and records the list on it for Unlink.
func (l *List) Add(r *Requirement) {
	r.list = l
	l.items = append(l.items, r)
}

// Remove drops a binding from the list.
func (l *List) Remove(r *Requirement) {
	for i, item := range l.items {
		if item == r {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Len returns the number of live bindings.
func (l *List) Len() int {
	return len(l.items)
}

// Each invokes fn on every binding in broadcast order. The callback for one
// binding runs to completion before the next begins.
func (l *List) Each(fn func(*Requirement)) {
	// Broadcasts may unlink bindings mid-iteration; walk a snapshot.
	snapshot := make([]*Requirement, len(l.items))
	copy(snapshot, l.items)
	for _, r := range snapshot {
		fn(r)
	}
}
