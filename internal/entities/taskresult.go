package entities

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skyarray/device-agent/internal/errs"
)

type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultStarted
	ResultQueued
	ResultFailed
	ResultUnknown
	ResultRejected
	ResultNotAllowed
	ResultAborted
)

func (c ResultCode) String() string {
	switch c {
	case ResultOK:
		return "OK"
	case ResultStarted:
		return "STARTED"
	case ResultQueued:
		return "QUEUED"
	case ResultFailed:
		return "FAILED"
	case ResultRejected:
		return "REJECTED"
	case ResultNotAllowed:
		return "NOT_ALLOWED"
	case ResultAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// TaskState is the polled lifecycle state of one submission. Status attributes
// carry these string literals, not the numeric result codes.
type TaskState string

const (
	TaskStateQueued     TaskState = "QUEUED"
	TaskStateInProgress TaskState = "IN_PROGRESS"
	TaskStateCompleted  TaskState = "COMPLETED"
	TaskStateAborted    TaskState = "ABORTED"
	TaskStateNotFound   TaskState = "NOT_FOUND"
)

func (s TaskState) String() string {
	return string(s)
}

// TaskResult is the terminal outcome of one task submission.
type TaskResult struct {
	UniqueID string
	Code     ResultCode
	Message  string
}

// ToTuple encodes the result to its wire form: (unique id, code as decimal
// string, message). This is the contract observed by callers polling the last
// command result.
func (r TaskResult) ToTuple() [3]string {
	return [3]string{r.UniqueID, strconv.Itoa(int(r.Code)), r.Message}
}

func TaskResultFromTuple(tuple [3]string) (result TaskResult, err error) {
	code, err := strconv.Atoi(tuple[1])
	if err != nil {
		return result, fmt.Errorf("TaskResultFromTuple: %w: %s", errs.ErrInvalidTaskResult, tuple[1])
	}

	return TaskResult{
		UniqueID: tuple[0],
		Code:     ResultCode(code),
		Message:  tuple[2],
	}, nil
}

// ToWire encodes the result to its published attribute form: the unique id
// paired with a JSON [code, message] payload. This pair is also what the store
// persists across restarts.
func (r TaskResult) ToWire() (pair [2]string, err error) {
	payload, err := json.Marshal([]any{int(r.Code), r.Message})
	if err != nil {
		return pair, fmt.Errorf("ToWire: %w", err)
	}

	return [2]string{r.UniqueID, string(payload)}, nil
}

func TaskResultFromWire(pair [2]string) (result TaskResult, err error) {
	var payload []json.RawMessage
	if err = json.Unmarshal([]byte(pair[1]), &payload); err != nil || len(payload) != 2 {
		return result, fmt.Errorf("TaskResultFromWire: %w: %s", errs.ErrInvalidTaskResult, pair[1])
	}

	var code int
	if err = json.Unmarshal(payload[0], &code); err != nil {
		return result, fmt.Errorf("TaskResultFromWire: %w: %s", errs.ErrInvalidTaskResult, pair[1])
	}

	var message string
	if err = json.Unmarshal(payload[1], &message); err != nil {
		return result, fmt.Errorf("TaskResultFromWire: %w: %s", errs.ErrInvalidTaskResult, pair[1])
	}

	return TaskResult{
		UniqueID: pair[0],
		Code:     ResultCode(code),
		Message:  message,
	}, nil
}

const uniqueIDDelimiter = "_"

// NewUniqueID builds a sortable-by-time task identifier: a monotonic timestamp
// component, a random component and the human-readable task name, joined with
// underscores. Callers match running commands by name suffix.
func NewUniqueID(taskName string) string {
	return strings.Join([]string{
		strconv.FormatInt(time.Now().UnixNano(), 10),
		uuid.NewString(),
		taskName,
	}, uniqueIDDelimiter)
}

// ParseUniqueID splits a unique id back into its three components. The task
// name may itself contain underscores, so only the first two delimiters split.
func ParseUniqueID(uniqueID string) (timestamp int64, random, taskName string, err error) {
	parts := strings.SplitN(uniqueID, uniqueIDDelimiter, 3)
	if len(parts) != 3 {
		return 0, "", "", fmt.Errorf("ParseUniqueID: %w: %s", errs.ErrInvalidUniqueID, uniqueID)
	}

	if timestamp, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, "", "", fmt.Errorf("ParseUniqueID: %w: %s", errs.ErrInvalidUniqueID, uniqueID)
	}

	return timestamp, parts[1], parts[2], nil
}
