package statemodel

import (
	"fmt"

	"github.com/skyarray/device-agent/internal/entities"
)

// ObsStateModel is the subarray observation model: resourcing, configuring,
// scanning and the abort/reset family, routed through transient machine states
// that remember where to fall back to.
type ObsStateModel struct {
	*Model[entities.ObsState]
}

func NewObsStateModel(callback func(entities.ObsState)) (m *ObsStateModel, err error) {
	model, err := newModel("obs", obsStates(), obsStateEmpty, obsTransitions(), obsMapping(), callback)
	if err != nil {
		return nil, fmt.Errorf("NewObsStateModel: %w", err)
	}

	return &ObsStateModel{Model: model}, nil
}
