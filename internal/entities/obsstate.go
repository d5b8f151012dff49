package entities

// ObsState is the public observation state. Several machine states collapse to
// one public value (e.g. both CONFIGURING_IDLE and CONFIGURING_READY publish as
// CONFIGURING).
type ObsState string

const (
	ObsStateEmpty       ObsState = "EMPTY"
	ObsStateResourcing  ObsState = "RESOURCING"
	ObsStateIdle        ObsState = "IDLE"
	ObsStateConfiguring ObsState = "CONFIGURING"
	ObsStateReady       ObsState = "READY"
	ObsStateScanning    ObsState = "SCANNING"
	ObsStateAborting    ObsState = "ABORTING"
	ObsStateAborted     ObsState = "ABORTED"
	ObsStateResetting   ObsState = "RESETTING"
	ObsStateFault       ObsState = "FAULT"
	ObsStateRestarting  ObsState = "RESTARTING"
)

func (s ObsState) String() string {
	return string(s)
}
