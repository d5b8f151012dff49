package infrastructure

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/command"
	"github.com/skyarray/device-agent/internal/domains/component"
	"github.com/skyarray/device-agent/internal/domains/debug"
	"github.com/skyarray/device-agent/internal/domains/eventstream"
	"github.com/skyarray/device-agent/internal/domains/mq"
	"github.com/skyarray/device-agent/internal/domains/store"
	"github.com/skyarray/device-agent/internal/domains/telemetry"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/environment"
)

type IInjector interface {
	InjectSubarrayMQHandler() *command.MQHandler
	InjectCSPMQHandler() *command.CSPMQHandler
	InjectDebugMQHandler() *debug.MQHandler

	InjectMQService() *mq.Service
	InjectEventStreamService() *eventstream.Service
	InjectTelemetryService() *telemetry.Service
}

type Kernel struct {
	env environment.Environment

	DB *badger.DB

	subarrayService *component.Service
	cspService      *component.CSPService
}

// Inject opens the durable store and builds the device-kind-specific component
// manager eagerly, so a broken state model table fails startup instead of the
// first command.
func Inject(env environment.Environment) (k *Kernel, err error) {
	k = &Kernel{
		env: env,
	}

	options := badger.DefaultOptions(env.StatePath).
		WithLogger(store.NewLogger()).
		WithMemTableSize(64 << 17) // ~8MB

	if k.DB, err = badger.Open(options); err != nil {
		return k, fmt.Errorf("Inject: %w", err)
	}

	initialAdminMode, err := store.NewService(k.DB).LoadAdminMode()
	if err != nil {
		return k, fmt.Errorf("Inject: %w", err)
	}

	switch env.DeviceKind {
	case constants.DeviceKindSubarray:
		if k.subarrayService, err = component.NewService(
			env.DeviceName,
			env.CapabilityTypes,
			initialAdminMode,
			k.InjectQueueService(),
			k.InjectAttributeService(),
		); err != nil {
			return k, fmt.Errorf("Inject: %w", err)
		}

	case constants.DeviceKindCSPSubelement:
		if k.cspService, err = component.NewCSPService(
			env.DeviceName,
			initialAdminMode,
			k.InjectQueueService(),
			k.InjectAttributeService(),
		); err != nil {
			return k, fmt.Errorf("Inject: %w", err)
		}

	default:
		return k, fmt.Errorf("Inject: unknown device kind %s", env.DeviceKind)
	}

	if err = k.restoreLastResult(); err != nil {
		return k, fmt.Errorf("Inject: %w", err)
	}

	return k, nil
}

// restoreLastResult republishes the persisted outcome of the last command, so
// a restarted device reports it the same way the original completion did.
func (k *Kernel) restoreLastResult() (err error) {
	pair, exists, err := k.InjectStoreService().LoadLastResult()
	if err != nil {
		return fmt.Errorf("restoreLastResult: %w", err)
	}
	if !exists {
		return nil
	}

	result, err := entities.TaskResultFromWire(pair)
	if err != nil {
		// a corrupt record must not block startup
		log.Warn().
			Err(err).
			Msg("restoreLastResult: persisted result is unreadable, skipping")
		return nil
	}

	k.InjectQueueService().RestoreResult(result)

	return nil
}

func (k *Kernel) IsSubarray() bool {
	return k.subarrayService != nil
}

func (k *Kernel) InjectSubarrayService() *component.Service {
	return k.subarrayService
}

func (k *Kernel) InjectCSPService() *component.CSPService {
	return k.cspService
}

// StartDevice runs device initialization on whichever manager was built. The
// component starts powered off; lifecycle commands move it from there.
func (k *Kernel) StartDevice() (err error) {
	if k.IsSubarray() {
		return k.subarrayService.Start(entities.PowerStateOff)
	}

	return k.cspService.Start(entities.PowerStateOff)
}

func (k *Kernel) InjectSubarrayMQHandler() *command.MQHandler {
	return command.NewMQHandler(
		k.env.DeviceName,
		k.InjectSubarrayService(),
		k.InjectQueueService(),
	)
}

func (k *Kernel) InjectCSPMQHandler() *command.CSPMQHandler {
	return command.NewCSPMQHandler(
		k.env.DeviceName,
		k.InjectCSPService(),
		k.InjectQueueService(),
	)
}

func (k *Kernel) InjectDebugMQHandler() *debug.MQHandler {
	return debug.NewMQHandler(
		k.InjectQueueService(),
	)
}
