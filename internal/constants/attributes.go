package constants

const (
	AttrLongRunningCommandResult     = "longRunningCommandResult"
	AttrLongRunningCommandStatus     = "longRunningCommandStatus"
	AttrLongRunningCommandProgress   = "longRunningCommandProgress"
	AttrLongRunningCommandsInQueue   = "longRunningCommandsInQueue"
	AttrLongRunningCommandIDsInQueue = "longRunningCommandIDsInQueue"

	AttrOpState                = "opState"
	AttrObsState               = "obsState"
	AttrAdminMode              = "adminMode"
	AttrConfiguredCapabilities = "configuredCapabilities"
)
