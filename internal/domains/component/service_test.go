package component_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/component"
	"github.com/skyarray/device-agent/internal/domains/taskqueue"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

// publisherRecorder captures every attribute change, standing in for the
// broker/event-stream/store fan-out.
type publisherRecorder struct {
	mu      sync.Mutex
	changes map[string][]any
}

func newPublisherRecorder() *publisherRecorder {
	return &publisherRecorder{
		changes: make(map[string][]any),
	}
}

func (p *publisherRecorder) PublishChange(attribute string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.changes[attribute] = append(p.changes[attribute], value)
}

func (p *publisherRecorder) last(attribute string) any {
	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.changes[attribute]
	if len(values) == 0 {
		return nil
	}

	return values[len(values)-1]
}

// newSubarray builds a manager on a synchronous queue so every submission
// completes inline and the returned code is the terminal one.
func newSubarray(t *testing.T) (*component.Service, *publisherRecorder) {
	t.Helper()

	recorder := newPublisherRecorder()

	queue, err := taskqueue.NewService(0, 0, 0, recorder.PublishChange)
	require.NoError(t, err)

	service, err := component.NewService("test-subarray", []string{"blocks", "channels"},
		entities.AdminModeOnline, queue, recorder)
	require.NoError(t, err)

	require.NoError(t, service.Start(entities.PowerStateOff))

	return service, recorder
}

func Test_Subarray_ResourcingCycle(t *testing.T) {
	service, recorder := newSubarray(t)
	require.Equal(t, entities.ObsStateEmpty, service.ObsState())

	uniqueID, code, err := service.AssignResources(`{"resources":["r1","r2"]}`)
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.NotEmpty(t, uniqueID)

	require.Equal(t, entities.ObsStateIdle, service.ObsState())
	require.Equal(t, []string{"r1", "r2"}, service.Resources())
	require.Equal(t, "IDLE", recorder.last(constants.AttrObsState))

	_, code, err = service.ReleaseResources(`{"resources":["r1"]}`)
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)

	// pool still holds r2, so the device stays idle
	require.Equal(t, entities.ObsStateIdle, service.ObsState())
	require.Equal(t, []string{"r2"}, service.Resources())

	_, code, err = service.ReleaseAllResources()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)

	require.Equal(t, entities.ObsStateEmpty, service.ObsState())
	require.Empty(t, service.Resources())
}

func Test_Subarray_AssignMalformedPayload(t *testing.T) {
	service, _ := newSubarray(t)

	testTable := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "not json at all"},
		{name: "empty resources", payload: `{"resources":[]}`},
		{name: "missing resources", payload: `{}`},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			_, code, err := service.AssignResources(testCase.payload)
			require.NoError(t, err)
			require.Equal(t, entities.ResultFailed, code)

			// validation failed before the resourcing bracket opened
			require.Equal(t, entities.ObsStateEmpty, service.ObsState())
			require.Empty(t, service.Resources())
		})
	}
}

func Test_Subarray_PreflightRejection(t *testing.T) {
	service, _ := newSubarray(t)

	// configure is not allowed on an empty subarray
	_, code, err := service.Configure(`{"id":"cfg-1"}`)
	require.ErrorIs(t, err, errs.ErrCommandNotAllowed)
	require.Equal(t, entities.ResultRejected, code)

	// release on an empty pool is equally rejected
	_, _, err = service.ReleaseAllResources()
	require.ErrorIs(t, err, errs.ErrCommandNotAllowed)

	// scan requires a configuration
	_, _, err = service.Scan(`{"id":"scan-1"}`)
	require.ErrorIs(t, err, errs.ErrCommandNotAllowed)
}

func Test_Subarray_ConfigureAndCapabilities(t *testing.T) {
	service, recorder := newSubarray(t)

	_, _, err := service.AssignResources(`{"resources":["r1"]}`)
	require.NoError(t, err)

	_, code, err := service.Configure(`{"id":"cfg-1","capabilities":{"blocks":2,"channels":4}}`)
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)

	require.Equal(t, entities.ObsStateReady, service.ObsState())
	require.Equal(t, "cfg-1", service.ConfigurationID())
	require.Equal(t, map[string]int{"blocks": 2, "channels": 4}, service.ConfiguredCapabilities())
	require.Equal(t, map[string]int{"blocks": 2, "channels": 4}, recorder.last(constants.AttrConfiguredCapabilities))
}

func Test_Subarray_ConfigureValidation(t *testing.T) {
	service, _ := newSubarray(t)

	_, _, err := service.AssignResources(`{"resources":["r1"]}`)
	require.NoError(t, err)

	testTable := []struct {
		name    string
		payload string
	}{
		{name: "missing id", payload: `{"capabilities":{"blocks":1}}`},
		{name: "unknown capability type", payload: `{"id":"cfg-2","capabilities":{"bogus":1}}`},
		{name: "negative count", payload: `{"id":"cfg-3","capabilities":{"blocks":-1}}`},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			_, code, err := service.Configure(testCase.payload)
			require.NoError(t, err)
			require.Equal(t, entities.ResultFailed, code)

			// nothing was applied and the state never left IDLE
			require.Equal(t, entities.ObsStateIdle, service.ObsState())
			require.Empty(t, service.ConfigurationID())
			require.Equal(t, map[string]int{"blocks": 0, "channels": 0}, service.ConfiguredCapabilities())
		})
	}
}

func Test_Subarray_ScanLifecycle(t *testing.T) {
	service, _ := newSubarray(t)

	_, _, err := service.AssignResources(`{"resources":["r1"]}`)
	require.NoError(t, err)
	_, _, err = service.Configure(`{"id":"cfg-1","capabilities":{"blocks":1}}`)
	require.NoError(t, err)

	_, code, err := service.Scan(`{"id":"scan-1"}`)
	require.NoError(t, err)
	require.Equal(t, entities.ResultStarted, code)
	require.Equal(t, entities.ObsStateScanning, service.ObsState())
	require.Equal(t, "scan-1", service.ScanID())

	_, code, err = service.EndScan()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.Equal(t, entities.ObsStateReady, service.ObsState())
	require.Empty(t, service.ScanID())

	// a scan may also finish on its own report
	_, _, err = service.Scan(`{"id":"scan-2"}`)
	require.NoError(t, err)
	require.NoError(t, service.ScanComplete())
	require.Equal(t, entities.ObsStateReady, service.ObsState())

	// end releases the configuration back to idle
	_, code, err = service.End()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.Equal(t, entities.ObsStateIdle, service.ObsState())
	require.Empty(t, service.ConfigurationID())
}

func Test_Subarray_AbortAndObsReset(t *testing.T) {
	service, _ := newSubarray(t)

	_, _, err := service.AssignResources(`{"resources":["r1","r2"]}`)
	require.NoError(t, err)
	_, _, err = service.Configure(`{"id":"cfg-1","capabilities":{"blocks":1}}`)
	require.NoError(t, err)
	_, _, err = service.Scan(`{"id":"scan-1"}`)
	require.NoError(t, err)

	uniqueID, code, err := service.Abort()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.NotEmpty(t, uniqueID)
	require.Equal(t, entities.ObsStateAborted, service.ObsState())

	// nothing further is accepted while aborted, except reset and restart
	_, _, err = service.Scan(`{"id":"scan-2"}`)
	require.ErrorIs(t, err, errs.ErrCommandNotAllowed)

	_, code, err = service.ObsReset()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.Equal(t, entities.ObsStateIdle, service.ObsState())

	// reset cleared the configuration but kept the resource pool
	require.Empty(t, service.ConfigurationID())
	require.Equal(t, []string{"r1", "r2"}, service.Resources())
}

func Test_Subarray_RestartClearsEverything(t *testing.T) {
	service, _ := newSubarray(t)

	_, _, err := service.AssignResources(`{"resources":["r1"]}`)
	require.NoError(t, err)
	_, _, err = service.Configure(`{"id":"cfg-1","capabilities":{"blocks":1}}`)
	require.NoError(t, err)

	require.NoError(t, service.ComponentObsFault())
	require.Equal(t, entities.ObsStateFault, service.ObsState())

	_, code, err := service.Restart()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)

	require.Equal(t, entities.ObsStateEmpty, service.ObsState())
	require.Empty(t, service.Resources())
	require.Empty(t, service.ConfigurationID())
	require.Equal(t, map[string]int{"blocks": 0, "channels": 0}, service.ConfiguredCapabilities())
}

func Test_Subarray_LifecycleVerbs(t *testing.T) {
	service, recorder := newSubarray(t)
	require.Equal(t, entities.OpStateOff, service.OpState())

	_, code, err := service.On()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.Equal(t, entities.OpStateOn, service.OpState())
	require.Equal(t, "ON", recorder.last(constants.AttrOpState))

	_, code, err = service.Standby()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.Equal(t, entities.OpStateStandby, service.OpState())

	_, code, err = service.Off()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.Equal(t, entities.OpStateOff, service.OpState())

	// reset only applies to a faulted device
	_, code, err = service.Reset()
	require.ErrorIs(t, err, errs.ErrCommandNotAllowed)
	require.Equal(t, entities.ResultRejected, code)

	require.NoError(t, service.ComponentFault())
	require.Equal(t, entities.OpStateFault, service.OpState())

	_, code, err = service.Reset()
	require.NoError(t, err)
	require.Equal(t, entities.ResultOK, code)
	require.Equal(t, entities.OpStateOff, service.OpState())
}

func Test_Subarray_AdminMode(t *testing.T) {
	service, recorder := newSubarray(t)
	require.Equal(t, entities.AdminModeOnline, service.AdminMode())

	require.NoError(t, service.SetAdminMode(entities.AdminModeMaintenance))
	require.Equal(t, entities.AdminModeMaintenance, service.AdminMode())
	require.Equal(t, "MAINTENANCE", recorder.last(constants.AttrAdminMode))

	// reserved is only reachable from offline
	err := service.SetAdminMode(entities.AdminModeReserved)
	require.ErrorIs(t, err, errs.ErrActionNotAllowed)

	require.NoError(t, service.SetAdminMode(entities.AdminModeOffline))
	require.NoError(t, service.SetAdminMode(entities.AdminModeReserved))
	require.Equal(t, entities.AdminModeReserved, service.AdminMode())
}
