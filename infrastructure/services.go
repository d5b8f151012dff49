package infrastructure

import (
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/domains/attribute"
	"github.com/skyarray/device-agent/internal/domains/eventstream"
	"github.com/skyarray/device-agent/internal/domains/mq"
	"github.com/skyarray/device-agent/internal/domains/store"
	"github.com/skyarray/device-agent/internal/domains/taskqueue"
	"github.com/skyarray/device-agent/internal/domains/telemetry"
)

var (
	mqService     *mq.Service
	mqServiceOnce sync.Once
)

func (k *Kernel) InjectMQService() *mq.Service {
	mqServiceOnce.Do(func() {
		url := k.env.NATSUrl
		if url == "" {
			url = nats.DefaultURL
		}

		mqService = mq.NewService(url)
	})

	return mqService
}

var (
	storeService     *store.Service
	storeServiceOnce sync.Once
)

func (k *Kernel) InjectStoreService() *store.Service {
	storeServiceOnce.Do(func() {
		storeService = store.NewService(k.DB)
	})

	return storeService
}

var (
	eventStreamService     *eventstream.Service
	eventStreamServiceOnce sync.Once
)

func (k *Kernel) InjectEventStreamService() *eventstream.Service {
	eventStreamServiceOnce.Do(func() {
		eventStreamService = eventstream.NewService(k.env.EventStreamAddr)
	})

	return eventStreamService
}

var (
	attributeService     *attribute.Service
	attributeServiceOnce sync.Once
)

func (k *Kernel) InjectAttributeService() *attribute.Service {
	attributeServiceOnce.Do(func() {
		attributeService = attribute.NewService(
			k.env.DeviceName,
			k.InjectMQService(),
			k.InjectEventStreamService(),
			k.InjectStoreService(),
		)
	})

	return attributeService
}

var (
	queueService     *taskqueue.Service
	queueServiceOnce sync.Once
)

func (k *Kernel) InjectQueueService() *taskqueue.Service {
	queueServiceOnce.Do(func() {
		var err error
		if queueService, err = taskqueue.NewService(
			k.env.MaxQueueSize,
			k.env.NumWorkers,
			0,
			k.InjectAttributeService().PublishChange,
		); err != nil {
			log.Fatal().Err(err).Msg("InjectQueueService: queue construction failed")
		}
	})

	return queueService
}

var (
	telemetryService     *telemetry.Service
	telemetryServiceOnce sync.Once
)

func (k *Kernel) InjectTelemetryService() *telemetry.Service {
	telemetryServiceOnce.Do(func() {
		telemetryService = telemetry.NewService(
			k.env.DeviceName,
			k.env.TelemetryEndpoint,
			k.injectStateReader(),
			k.InjectQueueService(),
		)
	})

	return telemetryService
}

func (k *Kernel) injectStateReader() telemetry.IDeviceStateReader {
	if k.IsSubarray() {
		return k.subarrayService
	}

	return k.cspService
}
