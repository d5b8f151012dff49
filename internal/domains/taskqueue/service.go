package taskqueue

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

// Service is the queue manager: a bounded FIFO of pending submissions serviced
// by a pool of workers, with abort/resume/stop control and per-task
// progress/status/result bookkeeping published through the notify callback.
//
// Only the single most recent result is retained. A submission from two
// completions ago is indistinguishable from one that never existed; callers
// needing history must capture result notifications as they arrive.
type Service struct {
	maxQueueSize int
	numWorkers   int
	fetchTimeout time.Duration
	notify       NotifyFunc

	queue    chan workItem
	aborting *signal
	stopping *signal

	mu          sync.Mutex
	queuedIDs   []string
	queuedNames map[string]string
	statusIDs   []string
	statuses    map[string]entities.TaskState
	lastResult  entities.TaskResult
	hasResult   bool

	workers []*worker
	wg      conc.WaitGroup
}

func NewService(maxQueueSize, numWorkers int, fetchTimeout time.Duration, notify NotifyFunc) (s *Service, err error) {
	if maxQueueSize < 0 || numWorkers < 0 {
		return nil, fmt.Errorf("NewService: queue size and worker count must not be negative")
	}

	if maxQueueSize > constants.MaxQueueSize {
		return nil, fmt.Errorf("NewService: queue size %d exceeds maximum %d", maxQueueSize, constants.MaxQueueSize)
	}

	if numWorkers > constants.MaxWorkerCount {
		return nil, fmt.Errorf("NewService: worker count %d exceeds maximum %d", numWorkers, constants.MaxWorkerCount)
	}

	if maxQueueSize > 0 && numWorkers == 0 {
		log.Warn().
			Int("max queue size", maxQueueSize).
			Msg("NewService: queueing enabled without workers, submissions will never be consumed")
	}

	if fetchTimeout <= 0 {
		fetchTimeout = constants.DefaultQueueFetchTimeout
	}

	if notify == nil {
		notify = func(string, any) {}
	}

	s = &Service{
		maxQueueSize: maxQueueSize,
		numWorkers:   numWorkers,
		fetchTimeout: fetchTimeout,
		notify:       notify,

		aborting:    newSignal(),
		stopping:    newSignal(),
		queuedNames: make(map[string]string),
		statuses:    make(map[string]entities.TaskState),
	}

	if maxQueueSize > 0 {
		s.queue = make(chan workItem, maxQueueSize)
	}

	for i := 0; i < numWorkers; i++ {
		w := newWorker(i)
		s.workers = append(s.workers, w)
		s.wg.Go(func() {
			s.workerLoop(w)
		})
	}

	return s, nil
}

// Enqueue submits a task. With queueing disabled (size 0) the task executes
// inline on the caller's goroutine and the actual terminal code is returned;
// otherwise the task is queued (QUEUED) or, if the queue is at capacity,
// rejected immediately without ever running (REJECTED).
func (s *Service) Enqueue(task ITask, argument string) (uniqueID string, code entities.ResultCode) {
	uniqueID = entities.NewUniqueID(task.Name())

	if s.maxQueueSize == 0 {
		result := s.executeTask(task, argument, uniqueID, nil)
		s.reportResult(result)
		return uniqueID, result.Code
	}

	s.mu.Lock()
	if len(s.queue) >= s.maxQueueSize {
		s.mu.Unlock()

		result := entities.TaskResult{
			UniqueID: uniqueID,
			Code:     entities.ResultRejected,
			Message:  errs.ErrQueueFull.Error(),
		}
		log.Warn().
			Str("unique id", uniqueID).
			Msg("Enqueue: queue is full, task rejected")
		s.reportResult(result)

		return uniqueID, entities.ResultRejected
	}

	s.queuedIDs = append(s.queuedIDs, uniqueID)
	s.queuedNames[uniqueID] = task.Name()
	s.statusIDs = append(s.statusIDs, uniqueID)
	s.statuses[uniqueID] = entities.TaskStateQueued
	s.queue <- workItem{uniqueID: uniqueID, task: task, argument: argument}
	s.mu.Unlock()

	s.notifyQueueChanged()
	s.notifyStatusChanged()

	return uniqueID, entities.ResultQueued
}

func (s *Service) workerLoop(w *worker) {
	for {
		if s.stopping.IsSet() {
			return
		}

		if s.aborting.IsSet() {
			s.drainQueue()
			time.Sleep(constants.AbortDrainPollInterval)
			continue
		}

		select {
		case item := <-s.queue:
			s.markInProgress(item.uniqueID)
			w.setCurrent(item.uniqueID)

			result := s.executeTask(item.task, item.argument, item.uniqueID, w)

			w.clearCurrent()
			s.reportResult(result)

		case <-time.After(s.fetchTimeout):
		case <-s.stopping.Chan():
			return
		}
	}
}

// executeTask runs the shared execution logic: guard check, invocation, panic
// containment. A worker goroutine must never die from a task failure.
func (s *Service) executeTask(task ITask, argument, uniqueID string, w *worker) (result entities.TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("unique id", uniqueID).
				Any("panic", r).
				Msg("executeTask: task panicked")

			result = entities.TaskResult{
				UniqueID: uniqueID,
				Code:     entities.ResultFailed,
				Message:  fmt.Sprintf("%v %s", r, debug.Stack()),
			}
		}
	}()

	if err := task.IsAllowed(); err != nil {
		return entities.TaskResult{
			UniqueID: uniqueID,
			Code:     entities.ResultNotAllowed,
			Message:  err.Error(),
		}
	}

	runCtx := RunContext{
		UniqueID:       uniqueID,
		Aborting:       s.aborting.Chan(),
		Stopping:       s.stopping.Chan(),
		ReportProgress: func(string) {},
	}
	if w != nil {
		runCtx.ReportProgress = func(progress string) {
			w.setProgress(progress)
			s.notifyProgressChanged()
		}
	}

	outcome, err := task.Do(runCtx, argument)
	if err != nil {
		return entities.TaskResult{
			UniqueID: uniqueID,
			Code:     entities.ResultFailed,
			Message:  err.Error(),
		}
	}

	message := outcome.Message
	if message == "" {
		message = outcome.Code.String()
	}

	return entities.TaskResult{
		UniqueID: uniqueID,
		Code:     outcome.Code,
		Message:  message,
	}
}

// drainQueue rejects every queued item without executing it. Runs only while
// the aborting signal is set; an item a worker already started is not
// interrupted and reports its real result.
func (s *Service) drainQueue() {
	for {
		select {
		case item := <-s.queue:
			s.reportResult(entities.TaskResult{
				UniqueID: item.uniqueID,
				Code:     entities.ResultAborted,
				Message:  fmt.Sprintf("%s Aborted", item.uniqueID),
			})

		default:
			return
		}
	}
}

func (s *Service) markInProgress(uniqueID string) {
	s.mu.Lock()
	s.queuedIDs = slices.DeleteFunc(s.queuedIDs, func(id string) bool { return id == uniqueID })
	delete(s.queuedNames, uniqueID)
	s.statuses[uniqueID] = entities.TaskStateInProgress
	s.mu.Unlock()

	s.notifyQueueChanged()
	s.notifyStatusChanged()
}

// reportResult records the terminal result (last write wins), drops the id
// from the status bookkeeping, publishes the change and, when an abort has
// fully drained, auto-resumes.
func (s *Service) reportResult(result entities.TaskResult) {
	s.mu.Lock()
	s.queuedIDs = slices.DeleteFunc(s.queuedIDs, func(id string) bool { return id == result.UniqueID })
	delete(s.queuedNames, result.UniqueID)
	s.statusIDs = slices.DeleteFunc(s.statusIDs, func(id string) bool { return id == result.UniqueID })
	delete(s.statuses, result.UniqueID)

	s.lastResult = result
	s.hasResult = true

	drained := len(s.queuedIDs) == 0 && len(s.statusIDs) == 0
	s.mu.Unlock()

	s.notifyStatusChanged()
	s.notifyResult(result)

	if drained && s.aborting.IsSet() {
		s.ResumeTasks()
	}
}

// AbortTasks stops queued work from ever running: workers drain and reject
// every queued item as ABORTED until the signal clears. Idempotent.
func (s *Service) AbortTasks() {
	s.aborting.Set()
}

// ResumeTasks clears the aborting signal. Called automatically once an abort
// has drained everything. Idempotent.
func (s *Service) ResumeTasks() {
	s.aborting.Clear()
}

// StopTasks sets the one-way stopping signal and waits for the workers to
// exit. For device teardown; the signal is never cleared.
func (s *Service) StopTasks() {
	s.stopping.Set()
	s.wg.Wait()
}

// RestoreResult seeds the retained result with one recovered from durable
// storage and republishes it, so a restarted device still reports the outcome
// of its last command.
func (s *Service) RestoreResult(result entities.TaskResult) {
	s.mu.Lock()
	s.lastResult = result
	s.hasResult = true
	s.mu.Unlock()

	s.notifyResult(result)
}

func (s *Service) IsAborting() bool {
	return s.aborting.IsSet()
}

// GetTaskState reports the lifecycle state of one submission. Only the most
// recent result is retained, so older completions report NOT_FOUND.
func (s *Service) GetTaskState(uniqueID string) entities.TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasResult && s.lastResult.UniqueID == uniqueID {
		return entities.TaskStateCompleted
	}

	if _, exists := s.queuedNames[uniqueID]; exists {
		return entities.TaskStateQueued
	}

	if _, exists := s.statuses[uniqueID]; exists {
		return entities.TaskStateInProgress
	}

	return entities.TaskStateNotFound
}

func (s *Service) TaskIDsInQueue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.queuedIDs)
}

func (s *Service) TasksInQueue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.queuedIDs))
	for _, id := range s.queuedIDs {
		names = append(names, s.queuedNames[id])
	}

	return names
}

// TaskStatuses returns the flattened id/status pairs for every submission
// currently queued or in progress, insertion order.
func (s *Service) TaskStatuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flattenStatusesLocked()
}

func (s *Service) flattenStatusesLocked() []string {
	flat := make([]string, 0, len(s.statusIDs)*2)
	for _, id := range s.statusIDs {
		flat = append(flat, id, s.statuses[id].String())
	}

	return flat
}

// TaskProgress returns flattened id/progress pairs, one per worker currently
// executing a task. Progress lives on the workers, not in the manager.
func (s *Service) TaskProgress() []string {
	var flat []string
	for _, w := range s.workers {
		if uniqueID, progress, active := w.snapshot(); active {
			flat = append(flat, uniqueID, progress)
		}
	}

	return flat
}

func (s *Service) QueueFull() bool {
	if s.maxQueueSize == 0 {
		return false
	}

	return len(s.queue) >= s.maxQueueSize
}

func (s *Service) LastResult() (result entities.TaskResult, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastResult, s.hasResult
}

func (s *Service) notifyQueueChanged() {
	s.mu.Lock()
	ids := slices.Clone(s.queuedIDs)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, s.queuedNames[id])
	}
	s.mu.Unlock()

	s.notify(constants.AttrLongRunningCommandIDsInQueue, ids)
	s.notify(constants.AttrLongRunningCommandsInQueue, names)
}

func (s *Service) notifyStatusChanged() {
	s.mu.Lock()
	flat := s.flattenStatusesLocked()
	s.mu.Unlock()

	s.notify(constants.AttrLongRunningCommandStatus, flat)
}

func (s *Service) notifyProgressChanged() {
	s.notify(constants.AttrLongRunningCommandProgress, s.TaskProgress())
}

// notifyResult publishes the wire form of a result: the unique id paired with
// a JSON-encoded [code, message] payload.
func (s *Service) notifyResult(result entities.TaskResult) {
	pair, err := result.ToWire()
	if err != nil {
		log.Error().
			Err(err).
			Str("unique id", result.UniqueID).
			Msg("notifyResult: marshal result payload error")
		return
	}

	s.notify(constants.AttrLongRunningCommandResult, pair)
}
