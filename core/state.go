// Operating state machine. A single mutation point backed by a static
// transition-adjacency table; anything not in the table is rejected.
package core

import (
	"errors"
	"time"

	"saber/telemetry"
)

// State is the device operating mode.
type State uint8

const (
	StateOff State = iota
	StatePowerOn
	StateIdle
	StateSwing
	StateHit
	StatePowerOff
	StateError
	numStates
)

// ErrBadTransition is returned when a requested transition is not present in
// the adjacency table. The current state is left unchanged.
var ErrBadTransition = errors.New("state: transition not allowed")

// String returns the state name for debug output.
func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StatePowerOn:
		return "POWER_ON"
	case StateIdle:
		return "IDLE"
	case StateSwing:
		return "SWING"
	case StateHit:
		return "HIT"
	case StatePowerOff:
		return "POWER_OFF"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// transitions is the static adjacency table. Indexed by current state.
var transitions = [numStates][]State{
	StateOff:      {StatePowerOn, StateError},
	StateIdle:     {StateSwing, StateHit, StatePowerOff, StateError},
	StateSwing:    {StateIdle, StatePowerOff, StateError},
	StateHit:      {StateIdle, StatePowerOff, StateError},
	StatePowerOn:  {StateIdle, StateError},
	StatePowerOff: {StateOff, StateError},
	StateError:    {StateOff},
}

// Machine holds the current operating state and the time of the last
// transition. It is the only place the state is ever mutated.
type Machine struct {
	current   State
	changedAt time.Time
	now       func() time.Time
}

// NewMachine returns a state machine starting in StateOff.
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		current:   StateOff,
		changedAt: now(),
		now:       now,
	}
}

// State returns the current operating state.
func (m *Machine) State() State {
	return m.current
}

// ChangedAt returns the time of the last accepted transition.
func (m *Machine) ChangedAt() time.Time {
	return m.changedAt
}

// Since returns how long the machine has been in the current state.
func (m *Machine) Since() time.Duration {
	return m.now().Sub(m.changedAt)
}

// Transition requests a state change. Requests not present in the adjacency
// table are rejected: the state and timestamp are unchanged, the rejection is
// logged and recorded, and ErrBadTransition is returned.
func (m *Machine) Transition(to State) error {
	if !m.allowed(to) {
		DebugPrintln("[STATE] rejected " + m.current.String() + " -> " + to.String())
		RecordFault(FaultBadTransition, uint8(m.current), uint32(to))
		return ErrBadTransition
	}

	DebugPrintln("[STATE] " + m.current.String() + " -> " + to.String())
	emitRecord(telemetry.TypeState, []byte{byte(m.current), byte(to)})
	m.current = to
	m.changedAt = m.now()
	return nil
}

func (m *Machine) allowed(to State) bool {
	if to >= numStates {
		return false
	}
	for _, s := range transitions[m.current] {
		if s == to {
			return true
		}
	}
	return false
}
