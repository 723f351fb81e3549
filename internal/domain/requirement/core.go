package requirement

// Core is the provider-owned authoritative state for one requirement name.
// Bindings read from it; only the owning provider mutates it.
type Core struct {
	name    string
	value   interface{}
	current interface{}
	met     bool
}

// NewCore creates a core for the requirement name with the comparison value
// callers must supply to bind against it.
func NewCore(name string, value interface{}) *Core {
	return &Core{name: name, value: value}
}

// Name returns the requirement name.
func (c *Core) Name() string {
	return c.name
}

// Value returns the comparison value the core was declared with.
func (c *Core) Value() interface{} {
	return c.value
}

// CurrentValue returns the last value committed by the provider.
func (c *Core) CurrentValue() interface{} {
	return c.current
}

// SetCurrentValue commits a new observed value and reports whether it
// differs from the previous one.
func (c *Core) SetCurrentValue(v interface{}) bool {
	if deepEqual(c.current, v) {
		return false
	}
	c.current = v
	return true
}

// IsMet reports the met state.
func (c *Core) IsMet() bool {
	return c.met
}

// Met marks the core met.
func (c *Core) Met() {
	c.met = true
}

// Unmet marks the core unmet.
func (c *Core) Unmet() {
	c.met = false
}

func deepEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, found := bv[k]
			if !found || !deepEqual(v, bval) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
