package statemodel

import (
	"github.com/skyarray/device-agent/internal/domains/statemachine"
	"github.com/skyarray/device-agent/internal/entities"
)

// Machine state names. The machines distinguish more states than the public
// enums so that failure paths know where to fall back to; the adapters collapse
// them before anything is published.

// op state machine.
const (
	opStateUninitialised = "UNINITIALISED"
	opStateInitDisable   = "INIT_DISABLE"
	opStateInitUnknown   = "INIT_UNKNOWN"
	opStateInitOff       = "INIT_OFF"
	opStateInitStandby   = "INIT_STANDBY"
	opStateInitOn        = "INIT_ON"
	opStateInitFault     = "INIT_FAULT"
	opStateDisable       = "DISABLE"
	opStateUnknown       = "UNKNOWN"
	opStateOff           = "OFF"
	opStateStandby       = "STANDBY"
	opStateOn            = "ON"
	opStateFault         = "FAULT"
)

const (
	OpActionInitInvoked           = "init_invoked"
	OpActionInitCompleted         = "init_completed"
	OpActionComponentDisconnected = "component_disconnected"
	OpActionComponentUnknown      = "component_unknown"
	OpActionComponentOff          = "component_off"
	OpActionComponentStandby      = "component_standby"
	OpActionComponentOn           = "component_on"
	OpActionComponentFault        = "component_fault"
	OpActionResetInvoked          = "reset_invoked"
	OpActionOffInvoked            = "off_invoked"
	OpActionStandbyInvoked        = "standby_invoked"
	OpActionOnInvoked             = "on_invoked"
)

func opStates() []string {
	return []string{
		opStateUninitialised,
		opStateInitDisable, opStateInitUnknown, opStateInitOff,
		opStateInitStandby, opStateInitOn, opStateInitFault,
		opStateDisable, opStateUnknown, opStateOff,
		opStateStandby, opStateOn, opStateFault,
	}
}

func opTransitions() []statemachine.Transition {
	initStates := []string{
		opStateInitDisable, opStateInitUnknown, opStateInitOff,
		opStateInitStandby, opStateInitOn, opStateInitFault,
	}
	steadyStates := []string{
		opStateDisable, opStateUnknown, opStateOff,
		opStateStandby, opStateOn, opStateFault,
	}

	transitions := []statemachine.Transition{
		{Trigger: OpActionInitInvoked, Sources: []string{opStateUninitialised}, Dest: opStateInitUnknown},

		// component power events while initializing
		{Trigger: OpActionComponentDisconnected, Sources: initStates, Dest: opStateInitDisable},
		{Trigger: OpActionComponentUnknown, Sources: initStates, Dest: opStateInitUnknown},
		{Trigger: OpActionComponentOff, Sources: initStates, Dest: opStateInitOff},
		{Trigger: OpActionComponentStandby, Sources: initStates, Dest: opStateInitStandby},
		{Trigger: OpActionComponentOn, Sources: initStates, Dest: opStateInitOn},
		{Trigger: OpActionComponentFault, Sources: initStates, Dest: opStateInitFault},

		// init completion lands on the steady state matching the last
		// observed component state
		{Trigger: OpActionInitCompleted, Sources: []string{opStateInitDisable}, Dest: opStateDisable},
		{Trigger: OpActionInitCompleted, Sources: []string{opStateInitUnknown}, Dest: opStateUnknown},
		{Trigger: OpActionInitCompleted, Sources: []string{opStateInitOff}, Dest: opStateOff},
		{Trigger: OpActionInitCompleted, Sources: []string{opStateInitStandby}, Dest: opStateStandby},
		{Trigger: OpActionInitCompleted, Sources: []string{opStateInitOn}, Dest: opStateOn},
		{Trigger: OpActionInitCompleted, Sources: []string{opStateInitFault}, Dest: opStateFault},

		// component power events in steady operation
		{Trigger: OpActionComponentDisconnected, Sources: steadyStates, Dest: opStateDisable},
		{Trigger: OpActionComponentUnknown, Sources: steadyStates, Dest: opStateUnknown},
		{Trigger: OpActionComponentOff, Sources: steadyStates, Dest: opStateOff},
		{Trigger: OpActionComponentStandby, Sources: steadyStates, Dest: opStateStandby},
		{Trigger: OpActionComponentOn, Sources: steadyStates, Dest: opStateOn},
		{Trigger: OpActionComponentFault, Sources: steadyStates, Dest: opStateFault},

		// command gates, reflexive on purpose
		{Trigger: OpActionResetInvoked, Sources: []string{opStateFault}, Dest: opStateFault},
	}

	for _, state := range []string{opStateOff, opStateStandby, opStateOn} {
		transitions = append(transitions,
			statemachine.Transition{Trigger: OpActionOffInvoked, Sources: []string{state}, Dest: state},
			statemachine.Transition{Trigger: OpActionStandbyInvoked, Sources: []string{state}, Dest: state},
			statemachine.Transition{Trigger: OpActionOnInvoked, Sources: []string{state}, Dest: state},
		)
	}

	return transitions
}

func opMapping() map[string]entities.OpState {
	return map[string]entities.OpState{
		opStateUninitialised: entities.OpStateInit,
		opStateInitDisable:   entities.OpStateInit,
		opStateInitUnknown:   entities.OpStateInit,
		opStateInitOff:       entities.OpStateInit,
		opStateInitStandby:   entities.OpStateInit,
		opStateInitOn:        entities.OpStateInit,
		opStateInitFault:     entities.OpStateInit,
		opStateDisable:       entities.OpStateDisable,
		opStateUnknown:       entities.OpStateUnknown,
		opStateOff:           entities.OpStateOff,
		opStateStandby:       entities.OpStateStandby,
		opStateOn:            entities.OpStateOn,
		opStateFault:         entities.OpStateFault,
	}
}

// admin mode machine.
const (
	AdminActionToOnline      = "to_online"
	AdminActionToOffline     = "to_offline"
	AdminActionToMaintenance = "to_maintenance"
	AdminActionToNotFitted   = "to_notfitted"
	AdminActionToReserved    = "to_reserved"
)

func adminStates() []string {
	return []string{
		entities.AdminModeOnline.String(),
		entities.AdminModeOffline.String(),
		entities.AdminModeMaintenance.String(),
		entities.AdminModeNotFitted.String(),
		entities.AdminModeReserved.String(),
	}
}

// adminTransitions encodes the device administrative policy: online,
// offline and maintenance interchange freely; not-fitted and reserved are
// reachable only from offline.
func adminTransitions() []statemachine.Transition {
	var (
		online      = entities.AdminModeOnline.String()
		offline     = entities.AdminModeOffline.String()
		maintenance = entities.AdminModeMaintenance.String()
		notFitted   = entities.AdminModeNotFitted.String()
		reserved    = entities.AdminModeReserved.String()
	)

	return []statemachine.Transition{
		{Trigger: AdminActionToOnline, Sources: []string{offline, maintenance}, Dest: online},
		{Trigger: AdminActionToOffline, Sources: []string{online, maintenance, notFitted, reserved}, Dest: offline},
		{Trigger: AdminActionToMaintenance, Sources: []string{online, offline}, Dest: maintenance},
		{Trigger: AdminActionToNotFitted, Sources: []string{offline}, Dest: notFitted},
		{Trigger: AdminActionToReserved, Sources: []string{offline}, Dest: reserved},
	}
}

func adminMapping() map[string]entities.AdminMode {
	mapping := make(map[string]entities.AdminMode)
	for _, state := range adminStates() {
		mapping[state] = entities.AdminMode(state)
	}

	return mapping
}

// subarray observation machine.
const (
	obsStateEmpty            = "EMPTY"
	obsStateResourcingEmpty  = "RESOURCING_EMPTY"
	obsStateResourcingIdle   = "RESOURCING_IDLE"
	obsStateIdle             = "IDLE"
	obsStateConfiguringIdle  = "CONFIGURING_IDLE"
	obsStateConfiguringReady = "CONFIGURING_READY"
	obsStateReady            = "READY"
	obsStateScanning         = "SCANNING"
	obsStateAborting         = "ABORTING"
	obsStateAborted          = "ABORTED"
	obsStateResetting        = "RESETTING"
	obsStateRestarting       = "RESTARTING"
	obsStateFault            = "FAULT"
)

// Observation bracket actions. The *_failed variants route an open bracket to
// FAULT; command bodies validate before opening a bracket, so only a
// failure reported mid-bracket by the component fires them.
const (
	ObsActionAssignStarted                    = "assign_started"
	ObsActionReleaseStarted                   = "release_started"
	ObsActionResourcingSucceededSomeResources = "resourcing_succeeded_some_resources"
	ObsActionResourcingSucceededNoResources   = "resourcing_succeeded_no_resources"
	ObsActionResourcingFailed                 = "resourcing_failed"
	ObsActionConfigureStarted                 = "configure_started"
	ObsActionConfigureSucceeded               = "configure_succeeded"
	ObsActionConfigureFailed                  = "configure_failed"
	ObsActionEndStarted                       = "end_started"
	ObsActionEndSucceeded                     = "end_succeeded"
	ObsActionEndFailed                        = "end_failed"
	ObsActionScanStarted                      = "scan_started"
	ObsActionScanSucceeded                    = "scan_succeeded"
	ObsActionScanFailed                       = "scan_failed"
	ObsActionEndScanStarted                   = "end_scan_started"
	ObsActionEndScanSucceeded                 = "end_scan_succeeded"
	ObsActionEndScanFailed                    = "end_scan_failed"
	ObsActionAbortStarted                     = "abort_started"
	ObsActionAbortSucceeded                   = "abort_succeeded"
	ObsActionAbortFailed                      = "abort_failed"
	ObsActionObsResetStarted                  = "obsreset_started"
	ObsActionObsResetSucceeded                = "obsreset_succeeded"
	ObsActionObsResetFailed                   = "obsreset_failed"
	ObsActionRestartStarted                   = "restart_started"
	ObsActionRestartSucceeded                 = "restart_succeeded"
	ObsActionRestartFailed                    = "restart_failed"
	ObsActionComponentObsFault                = "component_obsfault"
)

func obsStates() []string {
	return []string{
		obsStateEmpty, obsStateResourcingEmpty, obsStateResourcingIdle,
		obsStateIdle, obsStateConfiguringIdle, obsStateConfiguringReady,
		obsStateReady, obsStateScanning, obsStateAborting, obsStateAborted,
		obsStateResetting, obsStateRestarting, obsStateFault,
	}
}

func obsTransitions() []statemachine.Transition {
	resourcing := []string{obsStateResourcingEmpty, obsStateResourcingIdle}
	configuring := []string{obsStateConfiguringIdle, obsStateConfiguringReady}

	return []statemachine.Transition{
		// resourcing: assign and release share the transient state; the
		// terminal state depends only on resulting pool cardinality
		{Trigger: ObsActionAssignStarted, Sources: []string{obsStateEmpty}, Dest: obsStateResourcingEmpty},
		{Trigger: ObsActionAssignStarted, Sources: []string{obsStateIdle}, Dest: obsStateResourcingIdle},
		{Trigger: ObsActionReleaseStarted, Sources: []string{obsStateIdle}, Dest: obsStateResourcingIdle},
		{Trigger: ObsActionResourcingSucceededSomeResources, Sources: resourcing, Dest: obsStateIdle},
		{Trigger: ObsActionResourcingSucceededNoResources, Sources: resourcing, Dest: obsStateEmpty},
		{Trigger: ObsActionResourcingFailed, Sources: resourcing, Dest: obsStateFault},

		{Trigger: ObsActionConfigureStarted, Sources: []string{obsStateIdle}, Dest: obsStateConfiguringIdle},
		{Trigger: ObsActionConfigureStarted, Sources: []string{obsStateReady}, Dest: obsStateConfiguringReady},
		{Trigger: ObsActionConfigureSucceeded, Sources: configuring, Dest: obsStateReady},
		{Trigger: ObsActionConfigureFailed, Sources: configuring, Dest: obsStateFault},

		{Trigger: ObsActionEndStarted, Sources: []string{obsStateReady}, Dest: obsStateReady},
		{Trigger: ObsActionEndSucceeded, Sources: []string{obsStateReady}, Dest: obsStateIdle},
		{Trigger: ObsActionEndFailed, Sources: []string{obsStateReady}, Dest: obsStateFault},

		{Trigger: ObsActionScanStarted, Sources: []string{obsStateReady}, Dest: obsStateScanning},
		{Trigger: ObsActionScanSucceeded, Sources: []string{obsStateScanning}, Dest: obsStateReady},
		{Trigger: ObsActionScanFailed, Sources: []string{obsStateScanning}, Dest: obsStateFault},
		{Trigger: ObsActionEndScanStarted, Sources: []string{obsStateScanning}, Dest: obsStateScanning},
		{Trigger: ObsActionEndScanSucceeded, Sources: []string{obsStateScanning}, Dest: obsStateReady},
		{Trigger: ObsActionEndScanFailed, Sources: []string{obsStateScanning}, Dest: obsStateFault},

		{Trigger: ObsActionAbortStarted, Sources: []string{
			obsStateIdle, obsStateConfiguringIdle, obsStateConfiguringReady,
			obsStateReady, obsStateScanning, obsStateResetting,
		}, Dest: obsStateAborting},
		{Trigger: ObsActionAbortSucceeded, Sources: []string{obsStateAborting}, Dest: obsStateAborted},
		{Trigger: ObsActionAbortFailed, Sources: []string{obsStateAborting}, Dest: obsStateFault},

		{Trigger: ObsActionObsResetStarted, Sources: []string{obsStateAborted, obsStateFault}, Dest: obsStateResetting},
		{Trigger: ObsActionObsResetSucceeded, Sources: []string{obsStateResetting}, Dest: obsStateIdle},
		{Trigger: ObsActionObsResetFailed, Sources: []string{obsStateResetting}, Dest: obsStateFault},

		{Trigger: ObsActionRestartStarted, Sources: []string{obsStateAborted, obsStateFault}, Dest: obsStateRestarting},
		{Trigger: ObsActionRestartSucceeded, Sources: []string{obsStateRestarting}, Dest: obsStateEmpty},
		{Trigger: ObsActionRestartFailed, Sources: []string{obsStateRestarting}, Dest: obsStateFault},

		{Trigger: ObsActionComponentObsFault, Sources: []string{statemachine.WildcardSource}, Dest: obsStateFault},
	}
}

func obsMapping() map[string]entities.ObsState {
	return map[string]entities.ObsState{
		obsStateEmpty:            entities.ObsStateEmpty,
		obsStateResourcingEmpty:  entities.ObsStateResourcing,
		obsStateResourcingIdle:   entities.ObsStateResourcing,
		obsStateIdle:             entities.ObsStateIdle,
		obsStateConfiguringIdle:  entities.ObsStateConfiguring,
		obsStateConfiguringReady: entities.ObsStateConfiguring,
		obsStateReady:            entities.ObsStateReady,
		obsStateScanning:         entities.ObsStateScanning,
		obsStateAborting:         entities.ObsStateAborting,
		obsStateAborted:          entities.ObsStateAborted,
		obsStateResetting:        entities.ObsStateResetting,
		obsStateRestarting:       entities.ObsStateRestarting,
		obsStateFault:            entities.ObsStateFault,
	}
}

// CSP sub-element observation machine: a reduced variant with no resourcing.
// Triggers split into command brackets (invoked/completed pairs) and
// component-observed events.
const (
	CSPActionConfigureInvoked       = "configure_invoked"
	CSPActionConfigureCompleted     = "configure_completed"
	CSPActionAbortInvoked           = "abort_invoked"
	CSPActionAbortCompleted         = "abort_completed"
	CSPActionObsResetInvoked        = "obsreset_invoked"
	CSPActionObsResetCompleted      = "obsreset_completed"
	CSPActionEndInvoked             = "end_invoked"
	CSPActionScanInvoked            = "scan_invoked"
	CSPActionEndScanInvoked         = "end_scan_invoked"
	CSPActionComponentConfigured    = "component_configured"
	CSPActionComponentUnconfigured  = "component_unconfigured"
	CSPActionComponentScanning      = "component_scanning"
	CSPActionComponentNotScanning   = "component_not_scanning"
	CSPActionComponentObsFault      = "component_obsfault"
)

func cspObsStates() []string {
	return []string{
		obsStateIdle, obsStateConfiguringIdle, obsStateConfiguringReady,
		obsStateReady, obsStateScanning, obsStateAborting, obsStateAborted,
		obsStateResetting, obsStateFault,
	}
}

func cspObsTransitions() []statemachine.Transition {
	return []statemachine.Transition{
		{Trigger: CSPActionConfigureInvoked, Sources: []string{obsStateIdle}, Dest: obsStateConfiguringIdle},
		{Trigger: CSPActionConfigureInvoked, Sources: []string{obsStateReady}, Dest: obsStateConfiguringReady},
		{Trigger: CSPActionConfigureCompleted, Sources: []string{obsStateConfiguringIdle}, Dest: obsStateIdle},
		{Trigger: CSPActionConfigureCompleted, Sources: []string{obsStateConfiguringReady}, Dest: obsStateReady},

		{Trigger: CSPActionComponentConfigured, Sources: []string{obsStateConfiguringIdle}, Dest: obsStateConfiguringReady},
		{Trigger: CSPActionComponentConfigured, Sources: []string{obsStateIdle}, Dest: obsStateReady},
		{Trigger: CSPActionComponentUnconfigured, Sources: []string{obsStateConfiguringReady}, Dest: obsStateConfiguringIdle},
		{Trigger: CSPActionComponentUnconfigured, Sources: []string{obsStateReady}, Dest: obsStateIdle},

		{Trigger: CSPActionComponentScanning, Sources: []string{obsStateReady}, Dest: obsStateScanning},
		{Trigger: CSPActionComponentNotScanning, Sources: []string{obsStateScanning}, Dest: obsStateReady},

		// command gates, reflexive on purpose
		{Trigger: CSPActionEndInvoked, Sources: []string{obsStateReady}, Dest: obsStateReady},
		{Trigger: CSPActionScanInvoked, Sources: []string{obsStateReady}, Dest: obsStateReady},
		{Trigger: CSPActionEndScanInvoked, Sources: []string{obsStateScanning}, Dest: obsStateScanning},

		{Trigger: CSPActionAbortInvoked, Sources: []string{
			obsStateIdle, obsStateConfiguringIdle, obsStateConfiguringReady,
			obsStateReady, obsStateScanning,
		}, Dest: obsStateAborting},
		{Trigger: CSPActionAbortCompleted, Sources: []string{obsStateAborting}, Dest: obsStateAborted},

		{Trigger: CSPActionObsResetInvoked, Sources: []string{obsStateAborted, obsStateFault}, Dest: obsStateResetting},
		{Trigger: CSPActionObsResetCompleted, Sources: []string{obsStateResetting}, Dest: obsStateIdle},

		{Trigger: CSPActionComponentObsFault, Sources: []string{statemachine.WildcardSource}, Dest: obsStateFault},
	}
}

func cspObsMapping() map[string]entities.ObsState {
	return map[string]entities.ObsState{
		obsStateIdle:             entities.ObsStateIdle,
		obsStateConfiguringIdle:  entities.ObsStateConfiguring,
		obsStateConfiguringReady: entities.ObsStateConfiguring,
		obsStateReady:            entities.ObsStateReady,
		obsStateScanning:         entities.ObsStateScanning,
		obsStateAborting:         entities.ObsStateAborting,
		obsStateAborted:          entities.ObsStateAborted,
		obsStateResetting:        entities.ObsStateResetting,
		obsStateFault:            entities.ObsStateFault,
	}
}
