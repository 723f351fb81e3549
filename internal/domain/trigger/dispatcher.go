package trigger

// Dispatcher routes update streams, keyed by bus method, to the triggers
// subscribed to them. Providers publish their decoded payloads here; the
// scheduler subscribes and unsubscribes triggers as activities move through
// their lifecycle.
type Dispatcher struct {
	subscribers map[string][]*Trigger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subscribers: make(map[string][]*Trigger)}
}

// Subscribe attaches a trigger to its method's stream.
func (d *Dispatcher) Subscribe(t *Trigger) {
	d.subscribers[t.method] = append(d.subscribers[t.method], t)
}

// Unsubscribe detaches a trigger.
func (d *Dispatcher) Unsubscribe(t *Trigger) {
	subs := d.subscribers[t.method]
	for i, sub := range subs {
		if sub == t {
			d.subscribers[t.method] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(d.subscribers[t.method]) == 0 {
		delete(d.subscribers, t.method)
	}
}

// Publish delivers an update to every trigger subscribed to method, in
// subscription order.
func (d *Dispatcher) Publish(method string, payload map[string]interface{}) {
	subs := d.subscribers[method]
	// A fire can unsubscribe the trigger; walk a snapshot.
	snapshot := make([]*Trigger, len(subs))
	copy(snapshot, subs)
	for _, t := range snapshot {
		t.ProcessUpdate(payload)
	}
}
