package statemachine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/errs"
)

// Machine is a deterministic finite state machine over named states. The
// transition table is fixed and fully expanded at construction; triggering is
// serialized, and the change callback fires at most once per trigger, before
// the transition lock is released.
type Machine struct {
	name string
	fsm  *fsm.FSM

	states          []string
	table           map[transitionKey]string
	triggersByState map[string][]string
	knownTriggers   map[string]bool

	onChange ChangeCallback
}

func NewMachine(name string, states []string, initial string, transitions []Transition, onChange ChangeCallback) (m *Machine, err error) {
	if !slices.Contains(states, initial) {
		return nil, fmt.Errorf("NewMachine: initial state %s not declared", initial)
	}

	m = &Machine{
		name:            name,
		states:          slices.Clone(states),
		table:           make(map[transitionKey]string),
		triggersByState: make(map[string][]string),
		knownTriggers:   make(map[string]bool),
		onChange:        onChange,
	}

	// expand explicit sources first so wildcard entries cannot shadow them
	for _, transition := range transitions {
		if !slices.Contains(states, transition.Dest) {
			return nil, fmt.Errorf("NewMachine: destination state %s not declared", transition.Dest)
		}

		m.knownTriggers[transition.Trigger] = true
		for _, source := range transition.Sources {
			if source == WildcardSource {
				continue
			}

			if !slices.Contains(states, source) {
				return nil, fmt.Errorf("NewMachine: source state %s not declared", source)
			}

			key := transitionKey{source: source, trigger: transition.Trigger}
			if existing, exists := m.table[key]; exists && existing != transition.Dest {
				return nil, fmt.Errorf("NewMachine: conflicting transition %s/%s", source, transition.Trigger)
			}

			m.table[key] = transition.Dest
		}
	}

	for _, transition := range transitions {
		if !slices.Contains(transition.Sources, WildcardSource) {
			continue
		}

		for _, source := range states {
			key := transitionKey{source: source, trigger: transition.Trigger}
			if _, exists := m.table[key]; exists {
				continue
			}

			m.table[key] = transition.Dest
		}
	}

	events := make([]fsm.EventDesc, 0, len(m.table))
	sourcesByEvent := make(map[string]map[string][]string) // trigger -> dest -> sources
	for key, dest := range m.table {
		if _, exists := sourcesByEvent[key.trigger]; !exists {
			sourcesByEvent[key.trigger] = make(map[string][]string)
		}

		sourcesByEvent[key.trigger][dest] = append(sourcesByEvent[key.trigger][dest], key.source)
		m.triggersByState[key.source] = append(m.triggersByState[key.source], key.trigger)
	}

	for trigger, destinations := range sourcesByEvent {
		for dest, sources := range destinations {
			slices.Sort(sources)
			events = append(events, fsm.EventDesc{Name: trigger, Src: sources, Dst: dest})
		}
	}

	for _, triggers := range m.triggersByState {
		slices.Sort(triggers)
	}

	m.fsm = fsm.NewFSM(
		initial,
		fsm.Events(events),
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if m.onChange != nil {
					m.onChange(e.Dst)
				}
			},
		},
	)

	return m, nil
}

func (m *Machine) Name() string {
	return m.name
}

func (m *Machine) Current() string {
	return m.fsm.Current()
}

func (m *Machine) States() []string {
	return slices.Clone(m.states)
}

// Triggers returns the trigger names valid from the given state, sorted.
// Callers use this to answer "is this action allowed" without performing it.
func (m *Machine) Triggers(state string) []string {
	return slices.Clone(m.triggersByState[state])
}

// CanTrigger reports whether the trigger is valid from the current state.
func (m *Machine) CanTrigger(trigger string) bool {
	_, exists := m.table[transitionKey{source: m.fsm.Current(), trigger: trigger}]
	return exists
}

// Trigger looks the trigger up against the current state and, if valid,
// atomically moves to the destination and invokes the change callback. An
// unknown or disallowed trigger fails without changing state. Reflexive
// transitions succeed without re-firing the callback.
func (m *Machine) Trigger(trigger string) (err error) {
	if !m.knownTriggers[trigger] {
		return fmt.Errorf("Trigger: %w: %s machine has no trigger %s", errs.ErrUnknownTrigger, m.name, trigger)
	}

	if err = m.fsm.Event(context.Background(), trigger); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			// reflexive trigger, used purely as an allow/deny gate
			return nil
		}

		var invalidEvent fsm.InvalidEventError
		if errors.As(err, &invalidEvent) {
			return fmt.Errorf("Trigger: %w: %s in state %s rejects %s",
				errs.ErrInvalidTransition, m.name, m.fsm.Current(), trigger)
		}

		return fmt.Errorf("Trigger: %w", err)
	}

	log.Debug().
		Str("machine", m.name).
		Str("trigger", trigger).
		Str("state", m.fsm.Current()).
		Msg("Trigger: transition applied")

	return nil
}
