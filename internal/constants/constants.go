package constants

import (
	"time"
)

const (
	// hard caps validated at queue manager construction.
	MaxWorkerCount = 50
	MaxQueueSize   = 100

	DefaultQueueFetchTimeout = 100 * time.Millisecond
	AbortDrainPollInterval   = 100 * time.Millisecond
)

const (
	DeviceKindSubarray      = "subarray"
	DeviceKindCSPSubelement = "csp-subelement"
)

const (
	FilePerm    = 0755
	LogFilePerm = 0644
)

const (
	TelemetryReportPeriod  = 10 * time.Second
	EventStreamPingPeriod  = 4 * time.Second
	EventStreamWriteWait   = 6 * time.Second
)
