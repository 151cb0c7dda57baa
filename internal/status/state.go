package status

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tinkering/twinby/internal/bus"
)

// State is the lifecycle state of one open conversation.
type State string

const (
	Idle    State = "IDLE"
	Loading State = "LOADING"
	Loaded  State = "LOADED"
	Polling State = "POLLING"
	Closed  State = "CLOSED"
)

// ErrInvalidTransition is returned when a transition is not in the table.
var ErrInvalidTransition = errors.New("invalid transition")

// validTransitions defines allowed state transitions. A failed initial load
// goes straight from Loading to Polling so the next tick retries it.
var validTransitions = map[State][]State{
	Idle:    {Loading, Closed},
	Loading: {Loaded, Polling, Closed},
	Loaded:  {Polling, Closed},
	Polling: {Closed},
	Closed:  {},
}

// Machine tracks and enforces the lifecycle of a single conversation.
type Machine struct {
	mu      sync.RWMutex
	key     string
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine in Idle for the conversation identified by key.
func NewMachine(key string, b *bus.Bus) *Machine {
	return &Machine{
		key:     key,
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.ConversationStateChanged, m.key, StatusChange{Key: m.key, From: from, To: to})
	return nil
}

// StatusChange is the payload for state change events.
type StatusChange struct {
	Key  string
	From State
	To   State
}
