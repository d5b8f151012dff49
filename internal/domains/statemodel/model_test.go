package statemodel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyarray/device-agent/internal/domains/statemachine"
	"github.com/skyarray/device-agent/internal/domains/statemodel"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

func Test_OpStateModel_InitSequence(t *testing.T) {
	var published []entities.OpState
	model, err := statemodel.NewOpStateModel(func(value entities.OpState) {
		published = append(published, value)
	})
	require.NoError(t, err)

	// initial publish happens once at construction
	require.Equal(t, []entities.OpState{entities.OpStateInit}, published)
	require.Equal(t, entities.OpStateInit, model.Public())

	require.NoError(t, model.PerformAction(statemodel.OpActionInitInvoked))
	require.NoError(t, model.ComponentPowerChanged(entities.PowerStateOff))

	// every machine state so far collapses to INIT, so nothing re-fired
	require.Equal(t, []entities.OpState{entities.OpStateInit}, published)

	require.NoError(t, model.PerformAction(statemodel.OpActionInitCompleted))
	require.Equal(t, entities.OpStateOff, model.Public())
	require.Equal(t, []entities.OpState{entities.OpStateInit, entities.OpStateOff}, published)
}

func Test_OpStateModel_PowerEventsAndFault(t *testing.T) {
	model, err := statemodel.NewOpStateModel(nil)
	require.NoError(t, err)

	require.NoError(t, model.PerformAction(statemodel.OpActionInitInvoked))
	require.NoError(t, model.ComponentPowerChanged(entities.PowerStateOn))
	require.NoError(t, model.PerformAction(statemodel.OpActionInitCompleted))
	require.Equal(t, entities.OpStateOn, model.Public())

	require.NoError(t, model.PerformAction(statemodel.OpActionComponentFault))
	require.Equal(t, entities.OpStateFault, model.Public())

	// reset gate only opens in FAULT
	require.True(t, model.IsActionAllowed(statemodel.OpActionResetInvoked))
	require.NoError(t, model.PerformAction(statemodel.OpActionResetInvoked))

	require.NoError(t, model.ComponentPowerChanged(entities.PowerStateOff))
	require.Equal(t, entities.OpStateOff, model.Public())
	require.False(t, model.IsActionAllowed(statemodel.OpActionResetInvoked))
}

func Test_OpStateModel_CommandGates(t *testing.T) {
	model, err := statemodel.NewOpStateModel(nil)
	require.NoError(t, err)

	// lifecycle commands are not allowed before initialization completes
	require.False(t, model.IsActionAllowed(statemodel.OpActionOnInvoked))

	err = model.PerformAction(statemodel.OpActionOnInvoked)
	require.ErrorIs(t, err, errs.ErrActionNotAllowed)

	require.NoError(t, model.PerformAction(statemodel.OpActionInitInvoked))
	require.NoError(t, model.ComponentPowerChanged(entities.PowerStateStandby))
	require.NoError(t, model.PerformAction(statemodel.OpActionInitCompleted))

	require.True(t, model.IsActionAllowed(statemodel.OpActionOnInvoked))
	require.NoError(t, model.PerformAction(statemodel.OpActionOnInvoked))

	// the gate itself does not move the state
	require.Equal(t, entities.OpStateStandby, model.Public())
}

func Test_AdminModeModel_Policy(t *testing.T) {
	testTable := []struct {
		name    string
		from    entities.AdminMode
		to      entities.AdminMode
		allowed bool
	}{
		{name: "online to offline", from: entities.AdminModeOnline, to: entities.AdminModeOffline, allowed: true},
		{name: "online to maintenance", from: entities.AdminModeOnline, to: entities.AdminModeMaintenance, allowed: true},
		{name: "maintenance to online", from: entities.AdminModeMaintenance, to: entities.AdminModeOnline, allowed: true},
		{name: "offline to not fitted", from: entities.AdminModeOffline, to: entities.AdminModeNotFitted, allowed: true},
		{name: "offline to reserved", from: entities.AdminModeOffline, to: entities.AdminModeReserved, allowed: true},
		{name: "online to not fitted", from: entities.AdminModeOnline, to: entities.AdminModeNotFitted, allowed: false},
		{name: "online to reserved", from: entities.AdminModeOnline, to: entities.AdminModeReserved, allowed: false},
		{name: "not fitted to offline", from: entities.AdminModeNotFitted, to: entities.AdminModeOffline, allowed: true},
		{name: "not fitted to online", from: entities.AdminModeNotFitted, to: entities.AdminModeOnline, allowed: false},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			model, err := statemodel.NewAdminModeModel(testCase.from, nil)
			require.NoError(t, err)

			err = model.SetAdminMode(testCase.to)
			if testCase.allowed {
				require.NoError(t, err)
				require.Equal(t, testCase.to, model.Public())
				return
			}

			require.ErrorIs(t, err, errs.ErrActionNotAllowed)
			require.Equal(t, testCase.from, model.Public())
		})
	}
}

func Test_ObsStateModel_ResourcingCycle(t *testing.T) {
	model, err := statemodel.NewObsStateModel(nil)
	require.NoError(t, err)
	require.Equal(t, entities.ObsStateEmpty, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionAssignStarted))
	require.Equal(t, entities.ObsStateResourcing, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionResourcingSucceededSomeResources))
	require.Equal(t, entities.ObsStateIdle, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionReleaseStarted))
	require.NoError(t, model.PerformAction(statemodel.ObsActionResourcingSucceededNoResources))
	require.Equal(t, entities.ObsStateEmpty, model.Public())
}

func Test_ObsStateModel_ReleaseNotAllowedFromEmpty(t *testing.T) {
	model, err := statemodel.NewObsStateModel(nil)
	require.NoError(t, err)

	require.False(t, model.IsActionAllowed(statemodel.ObsActionReleaseStarted))
	require.ErrorIs(t, model.PerformAction(statemodel.ObsActionReleaseStarted), errs.ErrActionNotAllowed)
}

func Test_ObsStateModel_ConfigureScanAbortReset(t *testing.T) {
	model, err := statemodel.NewObsStateModel(nil)
	require.NoError(t, err)

	harness := statemachine.NewTestHarness(model.Machine())
	require.NoError(t, harness.ForceState("IDLE"))

	require.NoError(t, model.PerformAction(statemodel.ObsActionConfigureStarted))
	require.Equal(t, entities.ObsStateConfiguring, model.Public())
	require.NoError(t, model.PerformAction(statemodel.ObsActionConfigureSucceeded))
	require.Equal(t, entities.ObsStateReady, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionScanStarted))
	require.Equal(t, entities.ObsStateScanning, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionAbortStarted))
	require.Equal(t, entities.ObsStateAborting, model.Public())
	require.NoError(t, model.PerformAction(statemodel.ObsActionAbortSucceeded))
	require.Equal(t, entities.ObsStateAborted, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionObsResetStarted))
	require.NoError(t, model.PerformAction(statemodel.ObsActionObsResetSucceeded))
	require.Equal(t, entities.ObsStateIdle, model.Public())
}

func Test_ObsStateModel_ConfigureFromReadyFallsBackToReadyShape(t *testing.T) {
	model, err := statemodel.NewObsStateModel(nil)
	require.NoError(t, err)

	harness := statemachine.NewTestHarness(model.Machine())
	require.NoError(t, harness.ForceState("READY"))

	require.NoError(t, model.PerformAction(statemodel.ObsActionConfigureStarted))
	require.Equal(t, "CONFIGURING_READY", model.MachineState())
	require.Equal(t, entities.ObsStateConfiguring, model.Public())
}

func Test_ObsStateModel_FailureArcsRouteToFault(t *testing.T) {
	model, err := statemodel.NewObsStateModel(nil)
	require.NoError(t, err)

	harness := statemachine.NewTestHarness(model.Machine())
	require.NoError(t, harness.ForceState("IDLE"))

	// a failure reported inside an open bracket lands in FAULT
	require.NoError(t, model.PerformAction(statemodel.ObsActionConfigureStarted))
	require.NoError(t, model.PerformAction(statemodel.ObsActionConfigureFailed))
	require.Equal(t, entities.ObsStateFault, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionObsResetStarted))
	require.NoError(t, model.PerformAction(statemodel.ObsActionObsResetSucceeded))
	require.Equal(t, entities.ObsStateIdle, model.Public())

	require.NoError(t, harness.ForceState("SCANNING"))
	require.NoError(t, model.PerformAction(statemodel.ObsActionScanFailed))
	require.Equal(t, entities.ObsStateFault, model.Public())
}

func Test_ObsStateModel_ObsFaultFromAnywhere(t *testing.T) {
	model, err := statemodel.NewObsStateModel(nil)
	require.NoError(t, err)

	require.NoError(t, model.PerformAction(statemodel.ObsActionComponentObsFault))
	require.Equal(t, entities.ObsStateFault, model.Public())

	require.NoError(t, model.PerformAction(statemodel.ObsActionRestartStarted))
	require.NoError(t, model.PerformAction(statemodel.ObsActionRestartSucceeded))
	require.Equal(t, entities.ObsStateEmpty, model.Public())
}

func Test_CSPObsStateModel_FullScenario(t *testing.T) {
	var published []entities.ObsState
	model, err := statemodel.NewCSPObsStateModel(func(value entities.ObsState) {
		published = append(published, value)
	})
	require.NoError(t, err)
	require.Equal(t, entities.ObsStateIdle, model.Public())

	// configure from idle: invoked, component reports configured, completed
	require.NoError(t, model.PerformAction(statemodel.CSPActionConfigureInvoked))
	require.Equal(t, entities.ObsStateConfiguring, model.Public())
	require.NoError(t, model.PerformAction(statemodel.CSPActionComponentConfigured))
	require.Equal(t, "CONFIGURING_READY", model.MachineState())
	require.NoError(t, model.PerformAction(statemodel.CSPActionConfigureCompleted))
	require.Equal(t, entities.ObsStateReady, model.Public())

	// scan bracket driven by component events
	require.NoError(t, model.PerformAction(statemodel.CSPActionScanInvoked))
	require.NoError(t, model.PerformAction(statemodel.CSPActionComponentScanning))
	require.Equal(t, entities.ObsStateScanning, model.Public())
	require.NoError(t, model.PerformAction(statemodel.CSPActionEndScanInvoked))
	require.NoError(t, model.PerformAction(statemodel.CSPActionComponentNotScanning))
	require.Equal(t, entities.ObsStateReady, model.Public())

	// abort and reset
	require.NoError(t, model.PerformAction(statemodel.CSPActionAbortInvoked))
	require.NoError(t, model.PerformAction(statemodel.CSPActionAbortCompleted))
	require.Equal(t, entities.ObsStateAborted, model.Public())
	require.NoError(t, model.PerformAction(statemodel.CSPActionObsResetInvoked))
	require.NoError(t, model.PerformAction(statemodel.CSPActionObsResetCompleted))
	require.Equal(t, entities.ObsStateIdle, model.Public())

	require.Equal(t, []entities.ObsState{
		entities.ObsStateIdle,
		entities.ObsStateConfiguring,
		entities.ObsStateReady,
		entities.ObsStateScanning,
		entities.ObsStateReady,
		entities.ObsStateAborting,
		entities.ObsStateAborted,
		entities.ObsStateResetting,
		entities.ObsStateIdle,
	}, published)
}

func Test_CSPObsStateModel_ReconfigureFromReady(t *testing.T) {
	model, err := statemodel.NewCSPObsStateModel(nil)
	require.NoError(t, err)

	harness := statemachine.NewTestHarness(model.Machine())
	require.NoError(t, harness.ForceState("READY"))

	require.NoError(t, model.PerformAction(statemodel.CSPActionConfigureInvoked))
	require.Equal(t, "CONFIGURING_READY", model.MachineState())

	// already configured: the component event has no transition here
	require.False(t, model.IsActionAllowed(statemodel.CSPActionComponentConfigured))

	require.NoError(t, model.PerformAction(statemodel.CSPActionConfigureCompleted))
	require.Equal(t, entities.ObsStateReady, model.Public())
}

func Test_CSPObsStateModel_ShortcutEvents(t *testing.T) {
	model, err := statemodel.NewCSPObsStateModel(nil)
	require.NoError(t, err)

	// a component that configures itself moves idle straight to ready
	require.NoError(t, model.PerformAction(statemodel.CSPActionComponentConfigured))
	require.Equal(t, entities.ObsStateReady, model.Public())

	require.NoError(t, model.PerformAction(statemodel.CSPActionComponentUnconfigured))
	require.Equal(t, entities.ObsStateIdle, model.Public())
}
