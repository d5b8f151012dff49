package statemodel

import (
	"fmt"

	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

type AdminModeModel struct {
	*Model[entities.AdminMode]
}

func NewAdminModeModel(initial entities.AdminMode, callback func(entities.AdminMode)) (m *AdminModeModel, err error) {
	model, err := newModel("admin", adminStates(), initial.String(), adminTransitions(), adminMapping(), callback)
	if err != nil {
		return nil, fmt.Errorf("NewAdminModeModel: %w", err)
	}

	return &AdminModeModel{Model: model}, nil
}

// SetAdminMode maps the requested mode onto its transition action and performs
// it, enforcing the administrative policy table.
func (m *AdminModeModel) SetAdminMode(mode entities.AdminMode) (err error) {
	var action string
	switch mode {
	case entities.AdminModeOnline:
		action = AdminActionToOnline
	case entities.AdminModeOffline:
		action = AdminActionToOffline
	case entities.AdminModeMaintenance:
		action = AdminActionToMaintenance
	case entities.AdminModeNotFitted:
		action = AdminActionToNotFitted
	case entities.AdminModeReserved:
		action = AdminActionToReserved
	default:
		return fmt.Errorf("SetAdminMode: %w: unknown mode %s", errs.ErrActionNotAllowed, mode)
	}

	if err = m.PerformAction(action); err != nil {
		return fmt.Errorf("SetAdminMode: %w", err)
	}

	return nil
}
