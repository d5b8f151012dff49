package component

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/statemodel"
	"github.com/skyarray/device-agent/internal/domains/taskqueue"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

const (
	taskNameOn      = "On"
	taskNameOff     = "Off"
	taskNameStandby = "Standby"
	taskNameReset   = "Reset"
)

// opCore carries the device lifecycle shared by every device kind: the
// operational state model, the administrative mode model and the power verbs.
// Kind-specific managers embed it and add their observation behaviour on top.
type opCore struct {
	deviceName string
	queue      IQueueService
	publisher  IAttributePublisher

	opModel    *statemodel.OpStateModel
	adminModel *statemodel.AdminModeModel
}

func newOpCore(deviceName string, initialAdminMode entities.AdminMode,
	queue IQueueService, publisher IAttributePublisher) (c *opCore, err error) {
	c = &opCore{
		deviceName: deviceName,
		queue:      queue,
		publisher:  publisher,
	}

	if c.opModel, err = statemodel.NewOpStateModel(func(value entities.OpState) {
		publisher.PublishChange(constants.AttrOpState, value.String())
	}); err != nil {
		return nil, fmt.Errorf("newOpCore: %w", err)
	}

	if c.adminModel, err = statemodel.NewAdminModeModel(initialAdminMode, func(value entities.AdminMode) {
		publisher.PublishChange(constants.AttrAdminMode, value.String())
	}); err != nil {
		return nil, fmt.Errorf("newOpCore: %w", err)
	}

	return c, nil
}

// Start drives the initialization sequence: enter the initializing superstate,
// fold in the first reported component power state and complete onto the
// matching steady state.
func (c *opCore) Start(power entities.PowerState) (err error) {
	if err = c.opModel.PerformAction(statemodel.OpActionInitInvoked); err != nil {
		return fmt.Errorf("Start: %w", err)
	}

	if err = c.opModel.ComponentPowerChanged(power); err != nil {
		return fmt.Errorf("Start: %w", err)
	}

	if err = c.opModel.PerformAction(statemodel.OpActionInitCompleted); err != nil {
		return fmt.Errorf("Start: %w", err)
	}

	log.Info().
		Str("device", c.deviceName).
		Str("op state", c.opModel.Public().String()).
		Msg("Start: device initialized")

	return nil
}

func (c *opCore) On() (uniqueID string, code entities.ResultCode, err error) {
	return c.powerVerb(taskNameOn, statemodel.OpActionOnInvoked, entities.PowerStateOn)
}

func (c *opCore) Off() (uniqueID string, code entities.ResultCode, err error) {
	return c.powerVerb(taskNameOff, statemodel.OpActionOffInvoked, entities.PowerStateOff)
}

func (c *opCore) Standby() (uniqueID string, code entities.ResultCode, err error) {
	return c.powerVerb(taskNameStandby, statemodel.OpActionStandbyInvoked, entities.PowerStateStandby)
}

// Reset recovers a faulted device back to powered-off operation. Only allowed
// from FAULT.
func (c *opCore) Reset() (uniqueID string, code entities.ResultCode, err error) {
	return c.powerVerb(taskNameReset, statemodel.OpActionResetInvoked, entities.PowerStateOff)
}

// powerVerb enqueues a lifecycle task: the gate action is reflexive on the
// machine, so invoking it only checks admissibility, and the component power
// report afterwards is what actually moves the state.
func (c *opCore) powerVerb(name, gateAction string, target entities.PowerState) (uniqueID string, code entities.ResultCode, err error) {
	if !c.opModel.IsActionAllowed(gateAction) {
		return "", entities.ResultRejected,
			fmt.Errorf("%s: %w: op state %s", name, errs.ErrCommandNotAllowed, c.opModel.Public())
	}

	uniqueID, code = c.queue.Enqueue(&task{
		name:      name,
		isAllowed: c.opGuard(gateAction),
		do: func(runCtx taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
			if err = c.opModel.PerformAction(gateAction); err != nil {
				return outcome, fmt.Errorf("%s: %w", name, err)
			}

			runCtx.ReportProgress(fmt.Sprintf("switching component to %s", target))

			if err = c.opModel.ComponentPowerChanged(target); err != nil {
				return outcome, fmt.Errorf("%s: %w", name, err)
			}

			return taskqueue.Outcome{
				Code:    entities.ResultOK,
				Message: fmt.Sprintf("device is %s", c.opModel.Public()),
			}, nil
		},
	}, "")

	return uniqueID, code, nil
}

func (c *opCore) opGuard(action string) func() (err error) {
	return func() (err error) {
		if !c.opModel.IsActionAllowed(action) {
			return fmt.Errorf("%w: action %s rejected in op state %s",
				errs.ErrCommandNotAllowed, action, c.opModel.Public())
		}

		return nil
	}
}

// SetAdminMode is synchronous: administrative transitions never queue behind
// observation work.
func (c *opCore) SetAdminMode(mode entities.AdminMode) (err error) {
	if err = c.adminModel.SetAdminMode(mode); err != nil {
		return fmt.Errorf("SetAdminMode: %w", err)
	}

	log.Info().
		Str("device", c.deviceName).
		Str("admin mode", mode.String()).
		Msg("SetAdminMode: admin mode changed")

	return nil
}

// ComponentPowerChanged folds an unsolicited power report from the component
// into the operational model.
func (c *opCore) ComponentPowerChanged(power entities.PowerState) (err error) {
	if err = c.opModel.ComponentPowerChanged(power); err != nil {
		return fmt.Errorf("ComponentPowerChanged: %w", err)
	}

	return nil
}

func (c *opCore) ComponentFault() (err error) {
	if err = c.opModel.PerformAction(statemodel.OpActionComponentFault); err != nil {
		return fmt.Errorf("ComponentFault: %w", err)
	}

	return nil
}

func (c *opCore) OpState() entities.OpState {
	return c.opModel.Public()
}

func (c *opCore) AdminMode() entities.AdminMode {
	return c.adminModel.Public()
}

// OpModel exposes the operational model for test harnesses.
func (c *opCore) OpModel() *statemodel.OpStateModel {
	return c.opModel
}

func (c *opCore) AdminModel() *statemodel.AdminModeModel {
	return c.adminModel
}
