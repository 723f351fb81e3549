// Package eventloop serializes all control-plane mutations onto one
// logical actor.
//
// Every external entry point (bus commands, subscriber sockets, provider
// upstream callbacks, timers) enters through Loop.Do; domain code invoked
// inside runs to completion before the next event is dispatched, so no
// partial state is ever observable.
package eventloop

import (
	"sync"
	"time"
)

// Loop owns the control-plane critical section.
type Loop struct {
	mu sync.Mutex
}

// New creates a loop.
func New() *Loop {
	return &Loop{}
}

// Do runs fn as one event on the loop. fn must not call Do again.
func (l *Loop) Do(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// After arms a timer whose callback runs as a loop event. The returned
// Timer is cancelled with Stop; a callback that lost the race against Stop
// is suppressed.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.timer = time.AfterFunc(d, func() {
		l.Do(func() {
			if t.stopped {
				return
			}
			t.fired = true
			fn()
		})
	})
	return t
}

// Timer is a cancellable loop-dispatched timer.
type Timer struct {
	timer   *time.Timer
	stopped bool
	fired   bool
}

// Stop cancels the timer. Must be called on the loop. Safe to call after
// the timer fired.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.stopped = true
	t.timer.Stop()
}

// Fired reports whether the callback ran.
func (t *Timer) Fired() bool {
	return t.fired
}
