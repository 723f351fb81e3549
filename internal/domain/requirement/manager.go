package requirement

import (
	"github.com/coreplane/activityd/internal/shared/types"
)

// Provider is a source of one or more named requirements. On Enable it
// connects to its upstream data source; on every upstream update it commits
// the new value to its cores and broadcasts transitions to live bindings.
type Provider interface {
	Name() string
	Enable()
	Disable()
	InstantiateRequirement(activityID uint64, name string, value interface{}) (*Requirement, error)
	RegisterRequirements(m *Manager)
	UnregisterRequirements(m *Manager)
}

// Manager is the registry of requirement names to the providers that serve
// them.
type Manager struct {
	providers map[string]Provider
}

// NewManager creates an empty requirement registry.
func NewManager() *Manager {
	return &Manager{providers: make(map[string]Provider)}
}

// RegisterRequirement maps a requirement name to its provider.
func (m *Manager) RegisterRequirement(name string, p Provider) {
	m.providers[name] = p
}

// UnregisterRequirement removes a name from the registry if it is still
// served by p.
func (m *Manager) UnregisterRequirement(name string, p Provider) {
	if current, ok := m.providers[name]; ok && current == p {
		delete(m.providers, name)
	}
}

// InstantiateRequirement creates a binding of the named requirement for an
// activity. Unknown names are validation errors.
func (m *Manager) InstantiateRequirement(activityID uint64, name string, value interface{}) (*Requirement, error) {
	p, ok := m.providers[name]
	if !ok {
		return nil, types.InvalidArg("unknown requirement %q", name)
	}
	return p.InstantiateRequirement(activityID, name, value)
}

// Providers returns the distinct registered providers.
func (m *Manager) Providers() []Provider {
	seen := make(map[Provider]bool)
	var out []Provider
	for _, p := range m.providers {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// EnableAll enables every registered provider.
func (m *Manager) EnableAll() {
	for _, p := range m.Providers() {
		p.Enable()
	}
}

// DisableAll disables every registered provider.
func (m *Manager) DisableAll() {
	for _, p := range m.Providers() {
		p.Disable()
	}
}
