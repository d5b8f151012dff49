package environment

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/skyarray/device-agent/internal/constants"
)

type Environment struct {
	Device
}

type Device struct {
	DeviceName        string
	DeviceKind        string
	CapabilityTypes   []string
	MaxQueueSize      int
	NumWorkers        int
	NATSUrl           string
	TelemetryEndpoint string
	EventStreamAddr   string
	StatePath         string
	LogfilePath       string
	LogLevel          string
}

func New() (e Environment, err error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("DEVICE")

	e.Device.DeviceName = v.GetString("NAME")
	if lo.IsEmpty(e.Device.DeviceName) {
		return e, fmt.Errorf("New: device name env is empty")
	}

	e.Device.DeviceKind = v.GetString("KIND")
	if lo.IsEmpty(e.Device.DeviceKind) {
		e.Device.DeviceKind = constants.DeviceKindSubarray
	}
	if e.Device.DeviceKind != constants.DeviceKindSubarray &&
		e.Device.DeviceKind != constants.DeviceKindCSPSubelement {
		return e, fmt.Errorf("New: unknown device kind %s", e.Device.DeviceKind)
	}

	e.Device.CapabilityTypes = v.GetStringSlice("CAPABILITY_TYPES")

	e.Device.MaxQueueSize = v.GetInt("MAX_QUEUE_SIZE")
	e.Device.NumWorkers = v.GetInt("NUM_WORKERS")
	if e.Device.MaxQueueSize > 0 && e.Device.NumWorkers == 0 {
		e.Device.NumWorkers = 1
	}

	e.Device.NATSUrl = v.GetString("NATS_URL")
	e.Device.TelemetryEndpoint = v.GetString("TELEMETRY_ENDPOINT")
	e.Device.EventStreamAddr = v.GetString("EVENT_STREAM_ADDR")

	e.Device.StatePath = v.GetString("STATE_PATH")
	if lo.IsEmpty(e.Device.StatePath) {
		e.Device.StatePath = constants.DeviceStatePath
	}

	e.Device.LogfilePath = v.GetString("LOG_FILE")
	if lo.IsEmpty(e.Device.LogfilePath) {
		e.Device.LogfilePath = constants.DefaultLogfilePath
	}

	e.Device.LogLevel = v.GetString("LOG_LEVEL")
	if lo.IsEmpty(e.Device.LogLevel) {
		e.Device.LogLevel = "info"
	}

	return e, nil
}

func (d Device) IsDebug() bool {
	return d.LogLevel == "debug"
}
