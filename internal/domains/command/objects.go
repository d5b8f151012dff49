package command

import (
	"github.com/skyarray/device-agent/internal/domains/mq"
	"github.com/skyarray/device-agent/internal/entities"
)

type (
	// ILifecycleService is the command surface shared by every device kind.
	ILifecycleService interface {
		On() (uniqueID string, code entities.ResultCode, err error)
		Off() (uniqueID string, code entities.ResultCode, err error)
		Standby() (uniqueID string, code entities.ResultCode, err error)
		Reset() (uniqueID string, code entities.ResultCode, err error)
		SetAdminMode(mode entities.AdminMode) (err error)
		OpState() entities.OpState
		AdminMode() entities.AdminMode
	}

	ISubarrayService interface {
		ILifecycleService

		AssignResources(argument string) (uniqueID string, code entities.ResultCode, err error)
		ReleaseResources(argument string) (uniqueID string, code entities.ResultCode, err error)
		ReleaseAllResources() (uniqueID string, code entities.ResultCode, err error)
		Configure(argument string) (uniqueID string, code entities.ResultCode, err error)
		Scan(argument string) (uniqueID string, code entities.ResultCode, err error)
		EndScan() (uniqueID string, code entities.ResultCode, err error)
		End() (uniqueID string, code entities.ResultCode, err error)
		Abort() (uniqueID string, code entities.ResultCode, err error)
		ObsReset() (uniqueID string, code entities.ResultCode, err error)
		Restart() (uniqueID string, code entities.ResultCode, err error)
		ObsState() entities.ObsState
		Resources() []string
		ConfiguredCapabilities() map[string]int
		ConfigurationID() string
	}

	ICSPService interface {
		ILifecycleService

		Configure(argument string) (uniqueID string, code entities.ResultCode, err error)
		GoToIdle() (uniqueID string, code entities.ResultCode, err error)
		Scan(argument string) (uniqueID string, code entities.ResultCode, err error)
		EndScan() (uniqueID string, code entities.ResultCode, err error)
		Abort() (uniqueID string, code entities.ResultCode, err error)
		ObsReset() (uniqueID string, code entities.ResultCode, err error)
		ObsState() entities.ObsState
		ConfigurationID() string
	}

	IQueueInfoService interface {
		GetTaskState(uniqueID string) entities.TaskState
	}
)

// commandReply is the synchronous envelope for a submitted command. The
// terminal outcome arrives later on the result attribute subject; this reply
// only acknowledges acceptance.
type commandReply struct {
	mq.Response

	UniqueID   string `json:"uniqueId"`
	ResultCode int    `json:"resultCode"`
	Result     string `json:"result"`
}

func newCommandReply(uniqueID string, code entities.ResultCode) commandReply {
	return commandReply{
		Response:   mq.NewOkResponse(),
		UniqueID:   uniqueID,
		ResultCode: int(code),
		Result:     code.String(),
	}
}
