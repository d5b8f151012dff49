package constants

const (
	DefaultLogfilePath = "/var/log/skyarray/device_agent.log"
	DeviceStatePath    = "/var/lib/skyarray/device-state"
)
