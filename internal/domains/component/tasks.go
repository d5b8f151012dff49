package component

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/statemodel"
	"github.com/skyarray/device-agent/internal/domains/taskqueue"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

// Task bodies for the subarray manager. Every body validates its payload
// before performing the starting action, so a malformed request fails the
// submission without ever touching the observation state.

func (s *Service) doAssignResources(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	var req entities.AssignResourcesRequest
	if err = s.parseRequest(argument, &req); err != nil {
		return taskqueue.Outcome{Code: entities.ResultFailed, Message: err.Error()}, nil
	}

	if err = s.obsModel.PerformAction(statemodel.ObsActionAssignStarted); err != nil {
		return outcome, fmt.Errorf("doAssignResources: %w", err)
	}

	runCtx.ReportProgress(fmt.Sprintf("assigning %d resources", len(req.Resources)))

	s.mu.Lock()
	for _, resource := range req.Resources {
		s.resources[resource] = struct{}{}
	}
	s.mu.Unlock()

	if err = s.finishResourcing(); err != nil {
		return outcome, fmt.Errorf("doAssignResources: %w", err)
	}

	return taskqueue.Outcome{
		Code:    entities.ResultOK,
		Message: fmt.Sprintf("%d resources assigned", len(req.Resources)),
	}, nil
}

func (s *Service) doReleaseResources(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	var req entities.ReleaseResourcesRequest
	if err = s.parseRequest(argument, &req); err != nil {
		return taskqueue.Outcome{Code: entities.ResultFailed, Message: err.Error()}, nil
	}

	if err = s.obsModel.PerformAction(statemodel.ObsActionReleaseStarted); err != nil {
		return outcome, fmt.Errorf("doReleaseResources: %w", err)
	}

	runCtx.ReportProgress(fmt.Sprintf("releasing %d resources", len(req.Resources)))

	s.mu.Lock()
	for _, resource := range req.Resources {
		delete(s.resources, resource)
	}
	s.mu.Unlock()

	if err = s.finishResourcing(); err != nil {
		return outcome, fmt.Errorf("doReleaseResources: %w", err)
	}

	return taskqueue.Outcome{
		Code:    entities.ResultOK,
		Message: fmt.Sprintf("%d resources released", len(req.Resources)),
	}, nil
}

func (s *Service) doReleaseAllResources(runCtx taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.obsModel.PerformAction(statemodel.ObsActionReleaseStarted); err != nil {
		return outcome, fmt.Errorf("doReleaseAllResources: %w", err)
	}

	runCtx.ReportProgress("releasing all resources")

	s.mu.Lock()
	released := len(s.resources)
	s.resources = make(map[string]struct{})
	s.mu.Unlock()

	if err = s.finishResourcing(); err != nil {
		return outcome, fmt.Errorf("doReleaseAllResources: %w", err)
	}

	return taskqueue.Outcome{
		Code:    entities.ResultOK,
		Message: fmt.Sprintf("%d resources released", released),
	}, nil
}

// finishResourcing closes a resourcing bracket. The terminal action depends
// only on the resulting pool cardinality, never on which verb opened it.
func (s *Service) finishResourcing() (err error) {
	s.mu.Lock()
	count := len(s.resources)
	s.mu.Unlock()

	action := lo.Ternary(count > 0,
		statemodel.ObsActionResourcingSucceededSomeResources,
		statemodel.ObsActionResourcingSucceededNoResources)

	if err = s.obsModel.PerformAction(action); err != nil {
		return fmt.Errorf("finishResourcing: %w", err)
	}

	return nil
}

func (s *Service) doConfigure(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	var req entities.ConfigureRequest
	if err = s.parseRequest(argument, &req); err != nil {
		return taskqueue.Outcome{Code: entities.ResultFailed, Message: err.Error()}, nil
	}

	if err = s.validateCapabilities(req.Capabilities); err != nil {
		return taskqueue.Outcome{Code: entities.ResultFailed, Message: err.Error()}, nil
	}

	if err = s.obsModel.PerformAction(statemodel.ObsActionConfigureStarted); err != nil {
		return outcome, fmt.Errorf("doConfigure: %w", err)
	}

	runCtx.ReportProgress(fmt.Sprintf("applying configuration %s", req.ID))

	s.mu.Lock()
	for capabilityType, count := range req.Capabilities {
		s.configured[capabilityType] = count
	}
	s.configurationID = req.ID
	s.mu.Unlock()

	s.publisher.PublishChange(constants.AttrConfiguredCapabilities, s.ConfiguredCapabilities())

	if err = s.obsModel.PerformAction(statemodel.ObsActionConfigureSucceeded); err != nil {
		return outcome, fmt.Errorf("doConfigure: %w", err)
	}

	return taskqueue.Outcome{
		Code:    entities.ResultOK,
		Message: fmt.Sprintf("configuration %s applied", req.ID),
	}, nil
}

// validateCapabilities checks every requested capability type against the
// declared set. All-or-nothing: one unknown type fails the whole request and
// nothing is applied.
func (s *Service) validateCapabilities(capabilities map[string]int) (err error) {
	for capabilityType, count := range capabilities {
		if !lo.Contains(s.capabilityTypes, capabilityType) {
			return fmt.Errorf("%w: unknown capability type %s", errs.ErrCapabilityValidation, capabilityType)
		}

		if count < 0 {
			return fmt.Errorf("%w: capability %s count must not be negative", errs.ErrCapabilityValidation, capabilityType)
		}
	}

	return nil
}

// doScan opens the scanning bracket and leaves it open: the device stays
// SCANNING until EndScan, Abort or a ScanComplete report closes it.
func (s *Service) doScan(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	var req entities.ScanRequest
	if err = s.parseRequest(argument, &req); err != nil {
		return taskqueue.Outcome{Code: entities.ResultFailed, Message: err.Error()}, nil
	}

	if err = s.obsModel.PerformAction(statemodel.ObsActionScanStarted); err != nil {
		return outcome, fmt.Errorf("doScan: %w", err)
	}

	s.mu.Lock()
	s.scanID = req.ID
	s.mu.Unlock()

	runCtx.ReportProgress(fmt.Sprintf("scan %s running", req.ID))

	return taskqueue.Outcome{
		Code:    entities.ResultStarted,
		Message: fmt.Sprintf("scan %s started", req.ID),
	}, nil
}

func (s *Service) doEndScan(_ taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.obsModel.PerformAction(statemodel.ObsActionEndScanStarted); err != nil {
		return outcome, fmt.Errorf("doEndScan: %w", err)
	}

	s.mu.Lock()
	scanID := s.scanID
	s.scanID = ""
	s.mu.Unlock()

	if err = s.obsModel.PerformAction(statemodel.ObsActionEndScanSucceeded); err != nil {
		return outcome, fmt.Errorf("doEndScan: %w", err)
	}

	return taskqueue.Outcome{
		Code:    entities.ResultOK,
		Message: fmt.Sprintf("scan %s ended", scanID),
	}, nil
}

func (s *Service) doEnd(_ taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.obsModel.PerformAction(statemodel.ObsActionEndStarted); err != nil {
		return outcome, fmt.Errorf("doEnd: %w", err)
	}

	s.clearConfiguration()

	if err = s.obsModel.PerformAction(statemodel.ObsActionEndSucceeded); err != nil {
		return outcome, fmt.Errorf("doEnd: %w", err)
	}

	return taskqueue.Outcome{Code: entities.ResultOK, Message: "configuration released"}, nil
}

func (s *Service) doObsReset(runCtx taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.obsModel.PerformAction(statemodel.ObsActionObsResetStarted); err != nil {
		return outcome, fmt.Errorf("doObsReset: %w", err)
	}

	runCtx.ReportProgress("resetting observation")
	s.clearConfiguration()

	if err = s.obsModel.PerformAction(statemodel.ObsActionObsResetSucceeded); err != nil {
		return outcome, fmt.Errorf("doObsReset: %w", err)
	}

	return taskqueue.Outcome{Code: entities.ResultOK, Message: "observation reset, resources kept"}, nil
}

// doRestart additionally empties the resource pool, landing back on EMPTY.
func (s *Service) doRestart(runCtx taskqueue.RunContext, _ string) (outcome taskqueue.Outcome, err error) {
	if err = s.obsModel.PerformAction(statemodel.ObsActionRestartStarted); err != nil {
		return outcome, fmt.Errorf("doRestart: %w", err)
	}

	runCtx.ReportProgress("restarting observation")
	s.clearConfiguration()

	s.mu.Lock()
	s.resources = make(map[string]struct{})
	s.mu.Unlock()

	if err = s.obsModel.PerformAction(statemodel.ObsActionRestartSucceeded); err != nil {
		return outcome, fmt.Errorf("doRestart: %w", err)
	}

	return taskqueue.Outcome{Code: entities.ResultOK, Message: "observation restarted"}, nil
}

func (s *Service) clearConfiguration() {
	s.mu.Lock()
	for capabilityType := range s.configured {
		s.configured[capabilityType] = 0
	}
	s.configurationID = ""
	s.scanID = ""
	s.mu.Unlock()

	s.publisher.PublishChange(constants.AttrConfiguredCapabilities, s.ConfiguredCapabilities())
}

func (s *Service) parseRequest(argument string, req any) (err error) {
	if err = json.Unmarshal([]byte(argument), req); err != nil {
		return fmt.Errorf("parseRequest: unmarshal request error: %w", err)
	}

	if err = s.validate.Struct(req); err != nil {
		return fmt.Errorf("parseRequest: validate request error: %w", err)
	}

	return nil
}
