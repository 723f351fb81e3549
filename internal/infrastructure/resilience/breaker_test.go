package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func failing() (interface{}, error)    { return nil, errUpstream }
func succeeding() (interface{}, error) { return "ok", nil }

func TestStaysClosedUnderThreshold(t *testing.T) {
	b := New("test", Settings{FailureThreshold: 3})

	for i := 0; i < 2; i++ {
		_, err := b.Execute(failing)
		require.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, StateClosed, b.State())

	_, err := b.Execute(succeeding)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State(), "success resets the failure count")
}

func TestTripsAtThreshold(t *testing.T) {
	b := New("test", Settings{FailureThreshold: 3})

	for i := 0; i < 3; i++ {
		b.Execute(failing)
	}
	assert.Equal(t, StateOpen, b.State())

	_, err := b.Execute(succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen, "open breaker rejects without calling through")
}

func TestHalfOpenProbe(t *testing.T) {
	b := New("test", Settings{FailureThreshold: 1, Timeout: 20 * time.Millisecond})

	b.Execute(failing)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	result, err := b.Execute(succeeding)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New("test", Settings{FailureThreshold: 1, Timeout: 20 * time.Millisecond})

	b.Execute(failing)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	b.Execute(failing)
	assert.Equal(t, StateOpen, b.State())
}

func TestStateChangeCallback(t *testing.T) {
	var transitions []string
	b := New("test", Settings{
		FailureThreshold: 1,
		Timeout:          time.Hour,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	b.Execute(failing)
	assert.Equal(t, []string{"closed->open"}, transitions)
}
