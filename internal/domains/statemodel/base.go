package statemodel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/domains/statemachine"
	"github.com/skyarray/device-agent/internal/errs"
)

// Model adapts a state machine to a smaller public enumeration. The public
// value is a pure function of the machine state; the change callback fires
// exactly once per externally visible change, so machine states that collapse
// to the same public value do not re-fire it.
type Model[T ~string] struct {
	machine *statemachine.Machine
	mapping map[string]T

	mu        sync.Mutex
	published T
	callback  func(T)
}

func newModel[T ~string](name string, states []string, initial string,
	transitions []statemachine.Transition, mapping map[string]T, callback func(T)) (m *Model[T], err error) {
	for _, state := range states {
		if _, exists := mapping[state]; !exists {
			return nil, fmt.Errorf("newModel: machine state %s has no public mapping", state)
		}
	}

	m = &Model[T]{
		mapping:  mapping,
		callback: callback,
	}

	if m.machine, err = statemachine.NewMachine(name, states, initial, transitions, m.machineStateChanged); err != nil {
		return nil, fmt.Errorf("newModel: %w", err)
	}

	// publish the initial value once so attribute consumers start in sync
	m.published = mapping[initial]
	if m.callback != nil {
		m.callback(m.published)
	}

	return m, nil
}

func (m *Model[T]) machineStateChanged(newState string) {
	public := m.mapping[newState]

	m.mu.Lock()
	changed := public != m.published
	if changed {
		m.published = public
	}
	m.mu.Unlock()

	if changed && m.callback != nil {
		m.callback(public)
	}
}

// Public returns the externally visible value.
func (m *Model[T]) Public() T {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.published
}

// MachineState returns the underlying machine state name. Diagnostic only;
// consumers of the model react to Public.
func (m *Model[T]) MachineState() string {
	return m.machine.Current()
}

func (m *Model[T]) IsActionAllowed(action string) bool {
	return m.machine.CanTrigger(action)
}

func (m *Model[T]) AllowedActions() []string {
	return m.machine.Triggers(m.machine.Current())
}

// PerformAction triggers the machine. Disallowed actions fail with
// errs.ErrActionNotAllowed and leave the state unchanged.
func (m *Model[T]) PerformAction(action string) (err error) {
	if err = m.machine.Trigger(action); err != nil {
		if errors.Is(err, errs.ErrUnknownTrigger) || errors.Is(err, errs.ErrInvalidTransition) {
			return fmt.Errorf("PerformAction: %w: %s rejected in state %s",
				errs.ErrActionNotAllowed, action, m.machine.Current())
		}

		return fmt.Errorf("PerformAction: %w", err)
	}

	log.Debug().
		Str("machine", m.machine.Name()).
		Str("action", action).
		Str("public", string(m.Public())).
		Msg("PerformAction: action performed")

	return nil
}

// Machine exposes the wrapped machine for test harnesses.
func (m *Model[T]) Machine() *statemachine.Machine {
	return m.machine
}
