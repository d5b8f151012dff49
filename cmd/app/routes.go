package main

import (
	"github.com/skyarray/device-agent/infrastructure"
	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/mq"
)

func getMQRoutes(kernel *infrastructure.Kernel) map[string]mq.Handler {
	debugMQHandler := kernel.InjectDebugMQHandler()

	routes := map[string]mq.Handler{
		constants.MQDebugDumpHeap:  debugMQHandler.DumpHeap,
		constants.MQDebugDumpQueue: debugMQHandler.DumpQueue,
	}

	if kernel.IsSubarray() {
		commandMQHandler := kernel.InjectSubarrayMQHandler()

		routes[constants.MQDeviceAssignResources] = commandMQHandler.AssignResources
		routes[constants.MQDeviceReleaseResources] = commandMQHandler.ReleaseResources
		routes[constants.MQDeviceReleaseAll] = commandMQHandler.ReleaseAllResources
		routes[constants.MQDeviceConfigure] = commandMQHandler.Configure
		routes[constants.MQDeviceScan] = commandMQHandler.Scan
		routes[constants.MQDeviceEndScan] = commandMQHandler.EndScan
		routes[constants.MQDeviceEnd] = commandMQHandler.End
		routes[constants.MQDeviceAbort] = commandMQHandler.Abort
		routes[constants.MQDeviceObsReset] = commandMQHandler.ObsReset
		routes[constants.MQDeviceRestart] = commandMQHandler.Restart
		routes[constants.MQDeviceOn] = commandMQHandler.On
		routes[constants.MQDeviceOff] = commandMQHandler.Off
		routes[constants.MQDeviceStandby] = commandMQHandler.Standby
		routes[constants.MQDeviceReset] = commandMQHandler.Reset
		routes[constants.MQDeviceSetAdminMode] = commandMQHandler.SetAdminMode
		routes[constants.MQDeviceGetState] = commandMQHandler.GetState
		routes[constants.MQDeviceTaskStatus] = commandMQHandler.TaskStatus

		return routes
	}

	cspMQHandler := kernel.InjectCSPMQHandler()

	routes[constants.MQDeviceConfigure] = cspMQHandler.Configure
	routes[constants.MQDeviceScan] = cspMQHandler.Scan
	routes[constants.MQDeviceEndScan] = cspMQHandler.EndScan
	routes[constants.MQDeviceEnd] = cspMQHandler.GoToIdle
	routes[constants.MQDeviceAbort] = cspMQHandler.Abort
	routes[constants.MQDeviceObsReset] = cspMQHandler.ObsReset
	routes[constants.MQDeviceOn] = cspMQHandler.On
	routes[constants.MQDeviceOff] = cspMQHandler.Off
	routes[constants.MQDeviceStandby] = cspMQHandler.Standby
	routes[constants.MQDeviceReset] = cspMQHandler.Reset
	routes[constants.MQDeviceSetAdminMode] = cspMQHandler.SetAdminMode
	routes[constants.MQDeviceGetState] = cspMQHandler.GetState
	routes[constants.MQDeviceTaskStatus] = cspMQHandler.TaskStatus

	return routes
}
