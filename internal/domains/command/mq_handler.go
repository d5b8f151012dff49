package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/skyarray/device-agent/internal/domains/mq"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

// MQHandler exposes the subarray command surface over the broker. Payload
// validation happens twice on purpose: the handler rejects malformed JSON
// before submission, and the task body re-validates before touching any state.
type MQHandler struct {
	service    ISubarrayService
	queueInfo  IQueueInfoService
	deviceName string

	validate *validator.Validate
}

func NewMQHandler(deviceName string, service ISubarrayService, queueInfo IQueueInfoService) *MQHandler {
	return &MQHandler{
		service:    service,
		queueInfo:  queueInfo,
		deviceName: deviceName,

		validate: validator.New(),
	}
}

// AssignResources submits a resource assignment.
func (h *MQHandler) AssignResources(message *nats.Msg) (resp any) {
	var request entities.AssignResourcesRequest
	if err := h.decode(message.Data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}

	return submit(func() (string, entities.ResultCode, error) {
		return h.service.AssignResources(string(message.Data))
	})
}

// ReleaseResources submits a partial release.
func (h *MQHandler) ReleaseResources(message *nats.Msg) (resp any) {
	var request entities.ReleaseResourcesRequest
	if err := h.decode(message.Data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}

	return submit(func() (string, entities.ResultCode, error) {
		return h.service.ReleaseResources(string(message.Data))
	})
}

func (h *MQHandler) ReleaseAllResources(_ *nats.Msg) (resp any) {
	return submit(h.service.ReleaseAllResources)
}

// Configure submits a configuration. The id key is contractually required.
func (h *MQHandler) Configure(message *nats.Msg) (resp any) {
	var request entities.ConfigureRequest
	if err := h.decode(message.Data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}

	return submit(func() (string, entities.ResultCode, error) {
		return h.service.Configure(string(message.Data))
	})
}

func (h *MQHandler) Scan(message *nats.Msg) (resp any) {
	var request entities.ScanRequest
	if err := h.decode(message.Data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}

	return submit(func() (string, entities.ResultCode, error) {
		return h.service.Scan(string(message.Data))
	})
}

func (h *MQHandler) EndScan(_ *nats.Msg) (resp any) {
	return submit(h.service.EndScan)
}

func (h *MQHandler) End(_ *nats.Msg) (resp any) {
	return submit(h.service.End)
}

func (h *MQHandler) Abort(_ *nats.Msg) (resp any) {
	return submit(h.service.Abort)
}

func (h *MQHandler) ObsReset(_ *nats.Msg) (resp any) {
	return submit(h.service.ObsReset)
}

func (h *MQHandler) Restart(_ *nats.Msg) (resp any) {
	return submit(h.service.Restart)
}

func (h *MQHandler) On(_ *nats.Msg) (resp any) {
	return submit(h.service.On)
}

func (h *MQHandler) Off(_ *nats.Msg) (resp any) {
	return submit(h.service.Off)
}

func (h *MQHandler) Standby(_ *nats.Msg) (resp any) {
	return submit(h.service.Standby)
}

func (h *MQHandler) Reset(_ *nats.Msg) (resp any) {
	return submit(h.service.Reset)
}

// SetAdminMode changes the administrative mode synchronously.
func (h *MQHandler) SetAdminMode(message *nats.Msg) (resp any) {
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

// GetState reports the full externally visible device model.
func (h *MQHandler) GetState(_ *nats.Msg) (resp any) {
	response := struct {
		mq.Response

		Device                 string         `json:"device"`
		OpState                string         `json:"opState"`
		ObsState               string         `json:"obsState"`
		AdminMode              string         `json:"adminMode"`
		Resources              []string       `json:"resources"`
		ConfiguredCapabilities map[string]int `json:"configuredCapabilities"`
		ConfigurationID        string         `json:"configurationId,omitempty"`
	}{
		Response:               mq.NewOkResponse(),
		Device:                 h.deviceName,
		OpState:                h.service.OpState().String(),
		ObsState:               h.service.ObsState().String(),
		AdminMode:              h.service.AdminMode().String(),
		Resources:              h.service.Resources(),
		ConfiguredCapabilities: h.service.ConfiguredCapabilities(),
		ConfigurationID:        h.service.ConfigurationID(),
	}

	return response
}

// TaskStatus polls the lifecycle state of one submission by unique id.
func (h *MQHandler) TaskStatus(message *nats.Msg) (resp any) {
	return taskStatus(h.queueInfo, message.Data)
}

func (h *MQHandler) decode(data []byte, request any) (err error) {
	if err = json.Unmarshal(data, request); err != nil {
		return err
	}

	return h.validate.Struct(request)
}

// submit runs a pre-flight-checked command submission and shapes the reply. A
// state-gate rejection is a client error, not a server fault.
func submit(command func() (uniqueID string, code entities.ResultCode, err error)) (resp any) {
	uniqueID, code, err := command()
	if err != nil {
		if errors.Is(err, errs.ErrCommandNotAllowed) {
			return mq.NewNotAllowedResponse(err.Error())
		}

		return mq.NewInternalErrorResponse(err.Error())
	}

	return newCommandReply(uniqueID, code)
}

func taskStatus(queueInfo IQueueInfoService, data []byte) (resp any) {
	var request struct {
		UniqueID string `json:"uniqueId" validate:"required"`
	}
	if err := json.Unmarshal(data, &request); err != nil {
		return mq.NewBadRequestResponse(err.Error())
	}
	if request.UniqueID == "" {
		return mq.NewBadRequestResponse("uniqueId is required")
	}

	state := queueInfo.GetTaskState(request.UniqueID)
	if state == entities.TaskStateNotFound {
		return mq.NewBadRequestResponse(fmt.Sprintf("%s: %s", errs.ErrTaskNotFound, request.UniqueID))
	}

	response := struct {
		mq.Response

		UniqueID string `json:"uniqueId"`
		State    string `json:"state"`
	}{
		Response: mq.NewOkResponse(),
		UniqueID: request.UniqueID,
		State:    state.String(),
	}

	return response
}
