package component

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/statemodel"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

const (
	taskNameAssignResources     = "AssignResources"
	taskNameReleaseResources    = "ReleaseResources"
	taskNameReleaseAllResources = "ReleaseAllResources"
	taskNameConfigure           = "Configure"
	taskNameScan                = "Scan"
	taskNameEndScan             = "EndScan"
	taskNameEnd                 = "End"
	taskNameAbort               = "Abort"
	taskNameObsReset            = "ObsReset"
	taskNameRestart             = "Restart"
)

// Service is the subarray component manager: it owns the resource pool, the
// configured capabilities and the three state models, and exposes every device
// operation as a pre-flight-checked task submission.
type Service struct {
	*opCore

	capabilityTypes []string
	obsModel        *statemodel.ObsStateModel
	validate        *validator.Validate

	mu              sync.Mutex
	resources       map[string]struct{}
	configured      map[string]int
	configurationID string
	scanID          string
}

func NewService(deviceName string, capabilityTypes []string, initialAdminMode entities.AdminMode,
	queue IQueueService, publisher IAttributePublisher) (s *Service, err error) {
	core, err := newOpCore(deviceName, initialAdminMode, queue, publisher)
	if err != nil {
		return nil, fmt.Errorf("NewService: %w", err)
	}

	s = &Service{
		opCore:          core,
		capabilityTypes: slices.Clone(capabilityTypes),
		validate:        validator.New(),
		resources:       make(map[string]struct{}),
		configured:      make(map[string]int),
	}

	for _, capabilityType := range capabilityTypes {
		s.configured[capabilityType] = 0
	}

	if s.obsModel, err = statemodel.NewObsStateModel(func(value entities.ObsState) {
		publisher.PublishChange(constants.AttrObsState, value.String())
	}); err != nil {
		return nil, fmt.Errorf("NewService: %w", err)
	}

	return s, nil
}

// AssignResources submits a resource assignment. The pre-flight check rejects
// synchronously when the observation state does not admit resourcing, so a
// disallowed command never enters the queue.
func (s *Service) AssignResources(argument string) (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameAssignResources, statemodel.ObsActionAssignStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameAssignResources,
		isAllowed: s.obsGuard(statemodel.ObsActionAssignStarted),
		do:        s.doAssignResources,
	}, argument)

	return uniqueID, code, nil
}

func (s *Service) ReleaseResources(argument string) (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameReleaseResources, statemodel.ObsActionReleaseStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameReleaseResources,
		isAllowed: s.obsGuard(statemodel.ObsActionReleaseStarted),
		do:        s.doReleaseResources,
	}, argument)

	return uniqueID, code, nil
}

func (s *Service) ReleaseAllResources() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameReleaseAllResources, statemodel.ObsActionReleaseStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameReleaseAllResources,
		isAllowed: s.obsGuard(statemodel.ObsActionReleaseStarted),
		do:        s.doReleaseAllResources,
	}, "")

	return uniqueID, code, nil
}

func (s *Service) Configure(argument string) (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameConfigure, statemodel.ObsActionConfigureStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameConfigure,
		isAllowed: s.obsGuard(statemodel.ObsActionConfigureStarted),
		do:        s.doConfigure,
	}, argument)

	return uniqueID, code, nil
}

func (s *Service) Scan(argument string) (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameScan, statemodel.ObsActionScanStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameScan,
		isAllowed: s.obsGuard(statemodel.ObsActionScanStarted),
		do:        s.doScan,
	}, argument)

	return uniqueID, code, nil
}

func (s *Service) EndScan() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameEndScan, statemodel.ObsActionEndScanStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameEndScan,
		isAllowed: s.obsGuard(statemodel.ObsActionEndScanStarted),
		do:        s.doEndScan,
	}, "")

	return uniqueID, code, nil
}

// End deconfigures a ready subarray back to idle.
func (s *Service) End() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameEnd, statemodel.ObsActionEndStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameEnd,
		isAllowed: s.obsGuard(statemodel.ObsActionEndStarted),
		do:        s.doEnd,
	}, "")

	return uniqueID, code, nil
}

// Abort runs synchronously: it must not queue behind the very work it exists
// to cancel. Queued submissions are drained as ABORTED; a task already running
// is left to finish and report its real result.
func (s *Service) Abort() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameAbort, statemodel.ObsActionAbortStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID = entities.NewUniqueID(taskNameAbort)

	if err = s.obsModel.PerformAction(statemodel.ObsActionAbortStarted); err != nil {
		return "", entities.ResultFailed, fmt.Errorf("Abort: %w", err)
	}

	s.queue.AbortTasks()

	s.mu.Lock()
	s.scanID = ""
	s.mu.Unlock()

	if err = s.obsModel.PerformAction(statemodel.ObsActionAbortSucceeded); err != nil {
		return "", entities.ResultFailed, fmt.Errorf("Abort: %w", err)
	}

	log.Info().
		Str("device", s.deviceName).
		Str("unique id", uniqueID).
		Msg("Abort: observation aborted")

	return uniqueID, entities.ResultOK, nil
}

func (s *Service) ObsReset() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameObsReset, statemodel.ObsActionObsResetStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameObsReset,
		isAllowed: s.obsGuard(statemodel.ObsActionObsResetStarted),
		do:        s.doObsReset,
	}, "")

	return uniqueID, code, nil
}

func (s *Service) Restart() (uniqueID string, code entities.ResultCode, err error) {
	if err = s.preflight(taskNameRestart, statemodel.ObsActionRestartStarted); err != nil {
		return "", entities.ResultRejected, err
	}

	uniqueID, code = s.queue.Enqueue(&task{
		name:      taskNameRestart,
		isAllowed: s.obsGuard(statemodel.ObsActionRestartStarted),
		do:        s.doRestart,
	}, "")

	return uniqueID, code, nil
}

// ScanComplete is the component's report that a running scan finished on its
// own, without an EndScan command.
func (s *Service) ScanComplete() (err error) {
	if err = s.obsModel.PerformAction(statemodel.ObsActionScanSucceeded); err != nil {
		return fmt.Errorf("ScanComplete: %w", err)
	}

	s.mu.Lock()
	s.scanID = ""
	s.mu.Unlock()

	return nil
}

// ComponentObsFault drives the observation model to FAULT from any state.
func (s *Service) ComponentObsFault() (err error) {
	if err = s.obsModel.PerformAction(statemodel.ObsActionComponentObsFault); err != nil {
		return fmt.Errorf("ComponentObsFault: %w", err)
	}

	return nil
}

func (s *Service) ObsState() entities.ObsState {
	return s.obsModel.Public()
}

func (s *Service) Resources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	resources := lo.Keys(s.resources)
	slices.Sort(resources)

	return resources
}

func (s *Service) ConfiguredCapabilities() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.Assign(map[string]int{}, s.configured)
}

func (s *Service) ConfigurationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.configurationID
}

func (s *Service) ScanID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scanID
}

// ObsModel exposes the observation model for test harnesses.
func (s *Service) ObsModel() *statemodel.ObsStateModel {
	return s.obsModel
}

func (s *Service) preflight(name, action string) (err error) {
	if !s.obsModel.IsActionAllowed(action) {
		return fmt.Errorf("%s: %w: obs state %s", name, errs.ErrCommandNotAllowed, s.obsModel.Public())
	}

	return nil
}

func (s *Service) obsGuard(action string) func() (err error) {
	return func() (err error) {
		if !s.obsModel.IsActionAllowed(action) {
			return fmt.Errorf("%w: action %s rejected in obs state %s",
				errs.ErrCommandNotAllowed, action, s.obsModel.Public())
		}

		return nil
	}
}
