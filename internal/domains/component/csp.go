package component

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/statemodel"
	"github.com/skyarray/device-agent/internal/domains/taskqueue"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

const (
	taskNameGoToIdle = "GoToIdle"
)

// CSPService is the component manager for CSP sub-element devices. No resource
// pool: the observation lifecycle starts at IDLE, configuring is bracketed by
// invoked/completed command actions and the component reports
// configured/scanning events on its own.
type CSPService struct {
	*opCore

	cspModel *statemodel.CSPObsStateModel
	validate *validator.Validate

	mu              sync.Mutex
	configurationID string
	scanID          string
}

func NewCSPService(deviceName string, initialAdminMode entities.AdminMode,
	queue IQueueService, publisher IAttributePublisher) (s *CSPService, err error) {
	core, err := newOpCore(deviceName, initialAdminMode, queue, publisher)
	if err != nil {
		return nil, fmt.Errorf("NewCSPService: %w", err)
	}

	s = &CSPService{
		opCore:   core,
		validate: validator.New(),
	}

	if s.cspModel, err = statemodel.NewCSPObsStateModel(func(value entities.ObsState) {
		publisher.PublishChange(constants.AttrObsState, value.String())
	}); err != nil {
		return nil, fmt.Errorf("NewCSPService: %w", err)
	}

	return s, nil
}

func (s *CSPService) Configure(argument string) (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameConfigure, statemodel.CSPActionConfigureInvoked); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameConfigure,
		isAllowed: s.cspGuard(statemodel.CSPActionConfigureInvoked),
		do:        s.doConfigure,
	}, argument)

	return uniqueID, code, nil
}

// doConfigure walks the full bracket: invoked opens CONFIGURING, the
// component-configured event marks the ready half when arriving from idle, and
// completed closes back onto READY.
func (s *CSPService) doConfigure(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	var req entities.ConfigureRequest
	if err = s.parseRequest(argument, &req); err != nil {
		return taskqueue.Outcome{Code: entities.ResultFailed, Message: err.Error()}, nil
	}

	if err = s.cspModel.PerformAction(statemodel.CSPActionConfigureInvoked); err != nil {
		return outcome, fmt.Errorf("doConfigure: %w", err)
	}

	runCtx.ReportProgress(fmt.Sprintf("applying configuration %s", req.ID))

	s.mu.Lock()
	s.configurationID = req.ID
	s.mu.Unlock()

	// arriving from READY the component was already configured and the event
	// has no transition, so it is skipped
	if s.cspModel.IsActionAllowed(statemodel.CSPActionComponentConfigured) {
		if err = s.cspModel.PerformAction(statemodel.CSPActionComponentConfigured); err != nil {
			return outcome, fmt.Errorf("doConfigure: %w", err)
		}
	}

	if err = s.cspModel.PerformAction(statemodel.CSPActionConfigureCompleted); err != nil {
		return outcome, fmt.Errorf("doConfigure: %w", err)
	}

	return taskqueue.Outcome{
		Code:    entities.ResultOK,
		Message: fmt.Sprintf("configuration %s applied", req.ID),
	}, nil
}

// GoToIdle releases the configuration, returning a ready device to idle.
func (s *CSPService) GoToIdle() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameGoToIdle, statemodel.CSPActionEndInvoked); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameGoToIdle,
		isAllowed: s.cspGuard(statemodel.CSPActionEndInvoked),
		do:        s.doGoToIdle,
	}, "")

	return uniqueID, code, nil
}

func (s *CSPService) doGoToIdle(_ taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionEndInvoked); err != nil {
		return outcome, fmt.Errorf("doGoToIdle: %w", err)
	}

	s.mu.Lock()
	s.configurationID = ""
	s.mu.Unlock()

	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentUnconfigured); err != nil {
		return outcome, fmt.Errorf("doGoToIdle: %w", err)
	}

	return taskqueue.Outcome{Code: entities.ResultOK, Message: "configuration released"}, nil
}

func (s *CSPService) Scan(argument string) (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameScan, statemodel.CSPActionScanInvoked); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameScan,
		isAllowed: s.cspGuard(statemodel.CSPActionScanInvoked),
		do:        s.doScan,
	}, argument)

	return uniqueID, code, nil
}

func (s *CSPService) doScan(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	var req entities.ScanRequest
	if err = s.parseRequest(argument, &req); err != nil {
		return taskqueue.Outcome{Code: entities.ResultFailed, Message: err.Error()}, nil
	}

	if err = s.cspModel.PerformAction(statemodel.CSPActionScanInvoked); err != nil {
		return outcome, fmt.Errorf("doScan: %w", err)
	}

	s.mu.Lock()
	s.scanID = req.ID
	s.mu.Unlock()

	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentScanning); err != nil {
		return outcome, fmt.Errorf("doScan: %w", err)
	}

	runCtx.ReportProgress(fmt.Sprintf("scan %s running", req.ID))

	return taskqueue.Outcome{
		Code:    entities.ResultStarted,
		Message: fmt.Sprintf("scan %s started", req.ID),
	}, nil
}

func (s *CSPService) EndScan() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameEndScan, statemodel.CSPActionEndScanInvoked); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameEndScan,
		isAllowed: s.cspGuard(statemodel.CSPActionEndScanInvoked),
		do:        s.doEndScan,
	}, "")

	return uniqueID, code, nil
}

func (s *CSPService) doEndScan(_ taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionEndScanInvoked); err != nil {
		return outcome, fmt.Errorf("doEndScan: %w", err)
	}

	s.mu.Lock()
	scanID := s.scanID
	s.scanID = ""
	s.mu.Unlock()

	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentNotScanning); err != nil {
		return outcome, fmt.Errorf("doEndScan: %w", err)
	}

	return taskqueue.Outcome{
		Code:    entities.ResultOK,
		Message: fmt.Sprintf("scan %s ended", scanID),
	}, nil
}

// Abort runs synchronously for the same reason as on the subarray manager: it
// must never queue behind the work it cancels.
func (s *CSPService) Abort() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameAbort, statemodel.CSPActionAbortInvoked); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID = entities.NewUniqueID(taskNameAbort)

	if err = s.cspModel.PerformAction(statemodel.CSPActionAbortInvoked); err != nil {
		return "", entities.ResultFailed, fmt.Errorf("Abort: %w", err)
	}

	s.queue.AbortTasks()

	s.mu.Lock()
	s.scanID = ""
	s.mu.Unlock()

	if err = s.cspModel.PerformAction(statemodel.CSPActionAbortCompleted); err != nil {
		return "", entities.ResultFailed, fmt.Errorf("Abort: %w", err)
	}

	log.Info().
		Str("device", s.deviceName).
		Str("unique id", uniqueID).
		Msg("Abort: observation aborted")

	return uniqueID, entities.ResultOK, nil
}

func (s *CSPService) ObsReset() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameObsReset, statemodel.CSPActionObsResetInvoked); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameObsReset,
		isAllowed: s.cspGuard(statemodel.CSPActionObsResetInvoked),
		do:        s.doObsReset,
	}, "")

	return uniqueID, code, nil
}

func (s *CSPService) doObsReset(runCtx taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionObsResetInvoked); err != nil {
		return outcome, fmt.Errorf("doObsReset: %w", err)
	}

	runCtx.ReportProgress("resetting observation")

	s.mu.Lock()
	s.configurationID = ""
	s.scanID = ""
	s.mu.Unlock()

	if err = s.cspModel.PerformAction(statemodel.CSPActionObsResetCompleted); err != nil {
		return outcome, fmt.Errorf("doObsReset: %w", err)
	}

	return taskqueue.Outcome{Code: entities.ResultOK, Message: "observation reset"}, nil
}

// Component event reports, forwarded by whatever monitors the sub-element.

func (s *CSPService) ComponentConfigured() (err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentConfigured); err != nil {
		return fmt.Errorf("ComponentConfigured: %w", err)
	}

	return nil
}

func (s *CSPService) ComponentUnconfigured() (err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentUnconfigured); err != nil {
		return fmt.Errorf("ComponentUnconfigured: %w", err)
	}

	return nil
}

func (s *CSPService) ComponentScanning() (err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentScanning); err != nil {
		return fmt.Errorf("ComponentScanning: %w", err)
	}

	return nil
}

func (s *CSPService) ComponentNotScanning() (err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentNotScanning); err != nil {
		return fmt.Errorf("ComponentNotScanning: %w", err)
	}

	return nil
}

func (s *CSPService) ComponentObsFault() (err error) {
	if err = s.cspModel.PerformAction(statemodel.CSPActionComponentObsFault); err != nil {
		return fmt.Errorf("ComponentObsFault: %w", err)
	}

	return nil
}

func (s *CSPService) ObsState() entities.ObsState {
	return s.cspModel.Public()
}

func (s *CSPService) ConfigurationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.configurationID
}

func (s *CSPService) ScanID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scanID
}

// ObsModel exposes the observation model for test harnesses.
func (s *CSPService) ObsModel() *statemodel.CSPObsStateModel {
	return s.cspModel
}

func (s *CSPService) preflight(name, action string) (err error) {
	if !s.cspModel.IsActionAllowed(action) {
		return fmt.Errorf("%s: %w: obs state %s", name, errs.ErrCommandNotAllowed, s.cspModel.Public())
	}

	return nil
}

func (s *CSPService) cspGuard(action string) func() (err error) {
	return func() (err error) {
		if !s.cspModel.IsActionAllowed(action) {
			return fmt.Errorf("%w: action %s rejected in obs state %s",
				errs.ErrCommandNotAllowed, action, s.cspModel.Public())
		}

		return nil
	}
}

func (s *CSPService) parseRequest(argument string, req any) (err error) {
	if err = json.Unmarshal([]byte(argument), req); err != nil {
		return fmt.Errorf("parseRequest: unmarshal request error: %w", err)
	}

	if err = s.validate.Struct(req); err != nil {
		return fmt.Errorf("parseRequest: validate request error: %w", err)
	}

	return nil
}
