// Package resilience provides a circuit breaker for upstream provider
// subscriptions. A tripped breaker is how the service classifies an
// upstream as permanently failed.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the breaker.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker. Defaults to 5.
	FailureThreshold int
	// Timeout is how long the breaker stays open before probing again.
	// Defaults to 60s.
	Timeout time.Duration
	// OnStateChange, if set, is called on every transition.
	OnStateChange func(name string, from, to State)
}

// Breaker implements the circuit breaker pattern around a request
// function.
type Breaker struct {
	name     string
	settings Settings

	mu          sync.Mutex
	state       State
	consecutive int
	openedAt    time.Time
}

// New creates a breaker with the given settings.
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	return &Breaker{name: name, settings: settings, state: StateClosed}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, accounting for open-state expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Execute runs req if the breaker accepts it, recording the outcome.
func (b *Breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	b.mu.Lock()
	state := b.currentState(time.Now())
	if state == StateOpen {
		b.mu.Unlock()
		return nil, ErrCircuitOpen
	}
	b.mu.Unlock()

	result, err := req()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.consecutive++
		if state == StateHalfOpen || b.consecutive >= b.settings.FailureThreshold {
			b.setState(StateOpen)
			b.openedAt = time.Now()
		}
		return nil, err
	}

	b.consecutive = 0
	if state == StateHalfOpen {
		b.setState(StateClosed)
	}
	return result, nil
}

// currentState resolves open-state expiry. Must hold mu.
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.Timeout {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// setState transitions and fires the callback. Must hold mu.
func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
