package constants

const (
	// observation commands.
	MQDeviceAssignResources  = "device.assign_resources"
	MQDeviceReleaseResources = "device.release_resources"
	MQDeviceReleaseAll       = "device.release_all"
	MQDeviceConfigure        = "device.configure"
	MQDeviceScan             = "device.scan"
	MQDeviceEndScan          = "device.end_scan"
	MQDeviceEnd              = "device.end"
	MQDeviceAbort            = "device.abort"
	MQDeviceObsReset         = "device.obsreset"
	MQDeviceRestart          = "device.restart"

	// device lifecycle commands.
	MQDeviceOn      = "device.on"
	MQDeviceOff     = "device.off"
	MQDeviceStandby = "device.standby"
	MQDeviceReset   = "device.reset"

	// administrative / introspection.
	MQDeviceSetAdminMode = "device.admin_mode"
	MQDeviceGetState     = "device.state"
	MQDeviceTaskStatus   = "device.task_status"
	MQDebugDumpHeap      = "debug.dump_heap"
	MQDebugDumpQueue     = "debug.dump_queue"
)

const (
	// AttributeSubjectPrefix is completed as
	// "device.<name>.attribute.<attribute>".
	AttributeSubjectPrefix = "device.%s.attribute.%s"
)
