package entities

type OpState string

const (
	OpStateInit    OpState = "INIT"
	OpStateDisable OpState = "DISABLE"
	OpStateUnknown OpState = "UNKNOWN"
	OpStateOff     OpState = "OFF"
	OpStateStandby OpState = "STANDBY"
	OpStateOn      OpState = "ON"
	OpStateFault   OpState = "FAULT"
)

func (s OpState) String() string {
	return string(s)
}

// PowerState is what the monitored component itself reports, before the
// op-state model folds it together with the init lifecycle.
type PowerState string

const (
	PowerStateUnknown PowerState = "UNKNOWN"
	PowerStateOff     PowerState = "OFF"
	PowerStateStandby PowerState = "STANDBY"
	PowerStateOn      PowerState = "ON"
)
