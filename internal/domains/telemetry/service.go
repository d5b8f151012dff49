package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/entities"
)

const (
	requestTimeout = 5 * time.Second
	retryCount     = 2
)

type (
	IDeviceStateReader interface {
		OpState() entities.OpState
		ObsState() entities.ObsState
		AdminMode() entities.AdminMode
	}

	IQueueReader interface {
		TaskIDsInQueue() []string
		IsAborting() bool
	}
)

type report struct {
	Device      string `json:"device"`
	OpState     string `json:"opState"`
	ObsState    string `json:"obsState"`
	AdminMode   string `json:"adminMode"`
	QueuedTasks int    `json:"queuedTasks"`
	Aborting    bool   `json:"aborting"`
	Timestamp   int64  `json:"timestamp"`
}

// Service pushes a periodic heartbeat with the externally visible device model
// to the monitoring endpoint. Purely observational: a failed report is logged
// and retried next period.
type Service struct {
	deviceName string
	endpoint   string

	stateReader IDeviceStateReader
	queueReader IQueueReader

	client *resty.Client
}

func NewService(deviceName, endpoint string, stateReader IDeviceStateReader, queueReader IQueueReader) *Service {
	return &Service{
		deviceName: deviceName,
		endpoint:   endpoint,

		stateReader: stateReader,
		queueReader: queueReader,

		client: resty.New().
			SetTimeout(requestTimeout).
			SetRetryCount(retryCount),
	}
}

// Start reports until the context is cancelled. Blocking; run on its own
// goroutine.
func (s *Service) Start(ctx context.Context) {
	if s.endpoint == "" {
		log.Info().Msg("Start: telemetry disabled, no endpoint")
		return
	}

	ticker := time.NewTicker(constants.TelemetryReportPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := s.reportOnce(ctx); err != nil {
				log.Warn().Err(err).Msg("Start: telemetry report error")
			}
		}
	}
}

func (s *Service) reportOnce(ctx context.Context) (err error) {
	payload := report{
		Device:      s.deviceName,
		OpState:     s.stateReader.OpState().String(),
		ObsState:    s.stateReader.ObsState().String(),
		AdminMode:   s.stateReader.AdminMode().String(),
		QueuedTasks: len(s.queueReader.TaskIDsInQueue()),
		Aborting:    s.queueReader.IsAborting(),
		Timestamp:   time.Now().Unix(),
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(s.endpoint)
	if err != nil {
		return fmt.Errorf("reportOnce: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("reportOnce: endpoint returned %s", resp.Status())
	}

	return nil
}
