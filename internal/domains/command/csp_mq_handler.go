package command

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/skyarray/device-agent/internal/domains/mq"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

// CSPMQHandler is the command surface for CSP sub-element devices: no
// resourcing subjects, End maps to GoToIdle and Restart is absent.
type CSPMQHandler struct {
	service    ICSPService
	queueInfo  IQueueInfoService
	deviceName string

	validate *validator.Validate
}

func NewCSPMQHandler(deviceName string, service ICSPService, queueInfo IQueueInfoService) *CSPMQHandler {
	return &CSPMQHandler{
		service:    service,
		queueInfo:  queueInfo,
		deviceName: deviceName,

		validate: validator.New(),
	}
}

func (h *CSPMQHandler) Configure(message *nats.Msg) (resp any) {
	var request entities.ConfigureRequest
	if err := h.decode(message.Data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}

	return submit(func() (string, entities.ResultCode, error) {
		return h.service.Configure(string(message.Data))
	})
}

// GoToIdle handles the end-of-configuration subject.
func (h *CSPMQHandler) GoToIdle(_ *nats.Msg) (resp any) {
	return submit(h.service.GoToIdle)
}

func (h *CSPMQHandler) Scan(message *nats.Msg) (resp any) {
	var request entities.ScanRequest
	if err := h.decode(message.Data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}

	return submit(func() (string, entities.ResultCode, error) {
		return h.service.Scan(string(message.Data))
	})
}

func (h *CSPMQHandler) EndScan(_ *nats.Msg) (resp any) {
	return submit(h.service.EndScan)
}

func (h *CSPMQHandler) Abort(_ *nats.Msg) (resp any) {
	return submit(h.service.Abort)
}

func (h *CSPMQHandler) ObsReset(_ *nats.Msg) (resp any) {
	return submit(h.service.ObsReset)
}

func (h *CSPMQHandler) On(_ *nats.Msg) (resp any) {
	return submit(h.service.On)
}

func (h *CSPMQHandler) Off(_ *nats.Msg) (resp any) {
	return submit(h.service.Off)
}

func (h *CSPMQHandler) Standby(_ *nats.Msg) (resp any) {
	return submit(h.service.Standby)
}

func (h *CSPMQHandler) Reset(_ *nats.Msg) (resp any) {
	return submit(h.service.Reset)
}

func (h *CSPMQHandler) SetAdminMode(message *nats.Msg) (resp any) {
	var request entities.SetAdminModeRequest
	if err := h.decode(message.Data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}

	mode, ok := entities.ParseAdminMode(request.AdminMode)
	if !ok {
		return mq.NewBadRequestResponse("unknown admin mode " + request.AdminMode)
	}

	if err := h.service.SetAdminMode(mode); err != nil {
		if errors.Is(err, errs.ErrActionNotAllowed) {
			return mq.NewNotAllowedResponse(err.Error())
		}

		return mq.NewInternalErrorResponse(err.Error())
	}

	return mq.NewOkResponse()
}

func (h *CSPMQHandler) GetState(_ *nats.Msg) (resp any) {
	response := struct {
		mq.Response

		Device          string `json:"device"`
		OpState         string `json:"opState"`
		ObsState        string `json:"obsState"`
		AdminMode       string `json:"adminMode"`
		ConfigurationID string `json:"configurationId,omitempty"`
	}{
		Response:        mq.NewOkResponse(),
		Device:          h.deviceName,
		OpState:         h.service.OpState().String(),
		ObsState:        h.service.ObsState().String(),
		AdminMode:       h.service.AdminMode().String(),
		ConfigurationID: h.service.ConfigurationID(),
	}

	return response
}

func (h *CSPMQHandler) TaskStatus(message *nats.Msg) (resp any) {
	return taskStatus(h.queueInfo, message.Data)
}

func (h *CSPMQHandler) decode(data []byte, request any) (err error) {
	if err = json.Unmarshal(data, request); err != nil {
		return err
	}

	return h.validate.Struct(request)
}
