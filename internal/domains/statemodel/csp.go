package statemodel

import (
	"fmt"

	"github.com/skyarray/device-agent/internal/entities"
)

// CSPObsStateModel is the reduced observation model for CSP sub-element
// devices: no resourcing, and configuring is bracketed by invoked/completed
// command actions while the component reports configured/scanning events
// independently.
type CSPObsStateModel struct {
	*Model[entities.ObsState]
}

func NewCSPObsStateModel(callback func(entities.ObsState)) (m *CSPObsStateModel, err error) {
	model, err := newModel("csp-obs", cspObsStates(), obsStateIdle, cspObsTransitions(), cspObsMapping(), callback)
	if err != nil {
		return nil, fmt.Errorf("NewCSPObsStateModel: %w", err)
	}

	return &CSPObsStateModel{Model: model}, nil
}
