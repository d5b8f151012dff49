package mq

const (
	statusOK            = "ok"
	statusBadRequest    = "badRequest"
	statusInternalError = "internalError"
	statusNotAllowed    = "notAllowed"
)

// Response is the envelope every broker reply embeds.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewOkResponse() Response {
	return Response{Status: statusOK}
}

func NewBadRequestResponse(message string) Response {
	return Response{Status: statusBadRequest, Error: message}
}

func NewInternalErrorResponse(message string) Response {
	return Response{Status: statusInternalError, Error: message}
}

// NewNotAllowedResponse reports a command rejected by a state gate before it
// was ever queued.
func NewNotAllowedResponse(message string) Response {
	return Response{Status: statusNotAllowed, Error: message}
}
