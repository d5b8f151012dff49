package statemodel

import (
	"fmt"

	"github.com/skyarray/device-agent/internal/entities"
)

// OpStateModel tracks the device operational state: an uninitialized bootstrap
// state, six initializing-with-known-component-state states and six steady
// states, all collapsing to the public OpState enum.
type OpStateModel struct {
	*Model[entities.OpState]
}

func NewOpStateModel(callback func(entities.OpState)) (m *OpStateModel, err error) {
	model, err := newModel("op", opStates(), opStateUninitialised, opTransitions(), opMapping(), callback)
	if err != nil {
		return nil, fmt.Errorf("NewOpStateModel: %w", err)
	}

	return &OpStateModel{Model: model}, nil
}

// ComponentPowerChanged folds a reported component power state into the
// matching machine action, valid both while initializing and in steady
// operation.
func (m *OpStateModel) ComponentPowerChanged(power entities.PowerState) (err error) {
	var action string
	switch power {
	case entities.PowerStateOff:
		action = OpActionComponentOff
	case entities.PowerStateStandby:
		action = OpActionComponentStandby
	case entities.PowerStateOn:
		action = OpActionComponentOn
	default:
		action = OpActionComponentUnknown
	}

	if err = m.PerformAction(action); err != nil {
		return fmt.Errorf("ComponentPowerChanged: %w", err)
	}

	return nil
}
