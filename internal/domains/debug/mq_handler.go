package debug

import (
	"bytes"
	"runtime/pprof"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/domains/mq"
	"github.com/skyarray/device-agent/internal/entities"
)

type (
	IQueueReader interface {
		TaskIDsInQueue() []string
		TasksInQueue() []string
		TaskStatuses() []string
		TaskProgress() []string
		IsAborting() bool
		QueueFull() bool
		LastResult() (result entities.TaskResult, ok bool)
	}

	MQHandler struct {
		queueReader IQueueReader
	}
)

func NewMQHandler(queueReader IQueueReader) *MQHandler {
	return &MQHandler{
		queueReader: queueReader,
	}
}

// DumpHeap dumps heap memory using pprof.
func (h *MQHandler) DumpHeap(_ *nats.Msg) (resp any) {
	var buf bytes.Buffer
	if err := pprof.WriteHeapProfile(&buf); err != nil {
		return mq.NewInternalErrorResponse(err.Error())
	}

	response := struct {
		mq.Response

		Data []byte `json:"data"`
	}{
		Response: mq.NewOkResponse(),
		Data:     buf.Bytes(),
	}

	return response
}

// DumpQueue renders the queue bookkeeping as a table, logs it and returns the
// raw views alongside.
func (h *MQHandler) DumpQueue(_ *nats.Msg) (resp any) {
	ids := h.queueReader.TaskIDsInQueue()
	names := h.queueReader.TasksInQueue()
	statuses := h.queueReader.TaskStatuses()
	progress := h.queueReader.TaskProgress()

	queueTable := table.NewWriter()
	queueTable.SetTitle("task queue")
	queueTable.AppendHeader(table.Row{"#", "unique id", "task"})
	for i, id := range ids {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		queueTable.AppendRow(table.Row{i + 1, id, name})
	}

	statusTable := table.NewWriter()
	statusTable.SetTitle("submissions")
	statusTable.AppendHeader(table.Row{"unique id", "status"})
	for i := 0; i+1 < len(statuses); i += 2 {
		statusTable.AppendRow(table.Row{statuses[i], statuses[i+1]})
	}

	rendered := queueTable.Render() + "\n" + statusTable.Render()

	log.Info().
		Bool("aborting", h.queueReader.IsAborting()).
		Bool("queue full", h.queueReader.QueueFull()).
		Msg("DumpQueue:\n" + rendered)

	response := struct {
		mq.Response

		Dump       string   `json:"dump"`
		IDsInQueue []string `json:"idsInQueue"`
		Statuses   []string `json:"statuses"`
		Progress   []string `json:"progress"`
		Aborting   bool     `json:"aborting"`
		QueueFull  bool     `json:"queueFull"`
		LastResult []string `json:"lastResult,omitempty"`
	}{
		Response:   mq.NewOkResponse(),
		Dump:       rendered,
		IDsInQueue: ids,
		Statuses:   statuses,
		Progress:   progress,
		Aborting:   h.queueReader.IsAborting(),
		QueueFull:  h.queueReader.QueueFull(),
	}

	if result, ok := h.queueReader.LastResult(); ok {
		tuple := result.ToTuple()
		response.LastResult = tuple[:]
	}

	return response
}
