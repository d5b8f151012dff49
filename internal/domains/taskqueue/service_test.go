package taskqueue_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/domains/taskqueue"
	"github.com/skyarray/device-agent/internal/entities"
)

type fakeTask struct {
	name       string
	allowedErr error
	do         func(runCtx taskqueue.RunContext, argument string) (taskqueue.Outcome, error)
}

func (t *fakeTask) Name() string {
	return t.name
}

func (t *fakeTask) IsAllowed() (err error) {
	return t.allowedErr
}

func (t *fakeTask) Do(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	if t.do == nil {
		return taskqueue.Outcome{Code: entities.ResultOK}, nil
	}

	return t.do(runCtx, argument)
}

// notifySink captures attribute notifications; results additionally land on a
// channel so tests can wait for async completions.
type notifySink struct {
	mu      sync.Mutex
	values  map[string][]any
	results chan [2]string
}

func newNotifySink() *notifySink {
	return &notifySink{
		values:  make(map[string][]any),
		results: make(chan [2]string, 32),
	}
}

func (n *notifySink) notify(attribute string, value any) {
	n.mu.Lock()
	n.values[attribute] = append(n.values[attribute], value)
	n.mu.Unlock()

	if attribute == constants.AttrLongRunningCommandResult {
		if pair, ok := value.([2]string); ok {
			n.results <- pair
		}
	}
}

func (n *notifySink) waitResult(t *testing.T) [2]string {
	t.Helper()

	select {
	case pair := <-n.results:
		return pair
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a result notification")
		return [2]string{}
	}
}

func Test_NewService_Validation(t *testing.T) {
	testTable := []struct {
		name         string
		maxQueueSize int
		numWorkers   int
		wantErr      bool
	}{
		{name: "sync mode", maxQueueSize: 0, numWorkers: 0, wantErr: false},
		{name: "queueing", maxQueueSize: 10, numWorkers: 2, wantErr: false},
		{name: "negative queue", maxQueueSize: -1, numWorkers: 0, wantErr: true},
		{name: "negative workers", maxQueueSize: 0, numWorkers: -1, wantErr: true},
		{name: "queue above cap", maxQueueSize: constants.MaxQueueSize + 1, numWorkers: 1, wantErr: true},
		{name: "workers above cap", maxQueueSize: 10, numWorkers: constants.MaxWorkerCount + 1, wantErr: true},
		{name: "caps exactly", maxQueueSize: constants.MaxQueueSize, numWorkers: constants.MaxWorkerCount, wantErr: false},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			service, err := taskqueue.NewService(testCase.maxQueueSize, testCase.numWorkers, 0, nil)
			if testCase.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			service.StopTasks()
		})
	}
}

func Test_Enqueue_SyncModeReturnsRealCode(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(0, 0, 0, sink.notify)
	require.NoError(t, err)

	uniqueID, code := service.Enqueue(&fakeTask{
		name: "Configure",
		do: func(_ taskqueue.RunContext, argument string) (taskqueue.Outcome, error) {
			require.Equal(t, `{"id":"cfg-1"}`, argument)
			return taskqueue.Outcome{Code: entities.ResultOK, Message: "configuration cfg-1 applied"}, nil
		},
	}, `{"id":"cfg-1"}`)

	require.Equal(t, entities.ResultOK, code)

	_, _, taskName, err := entities.ParseUniqueID(uniqueID)
	require.NoError(t, err)
	require.Equal(t, "Configure", taskName)

	pair := sink.waitResult(t)
	require.Equal(t, uniqueID, pair[0])
	require.JSONEq(t, `[0,"configuration cfg-1 applied"]`, pair[1])
}

func Test_Enqueue_SyncModeFailure(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(0, 0, 0, sink.notify)
	require.NoError(t, err)

	_, code := service.Enqueue(&fakeTask{
		name: "Scan",
		do: func(taskqueue.RunContext, string) (taskqueue.Outcome, error) {
			return taskqueue.Outcome{}, errors.New("device unreachable")
		},
	}, "")

	require.Equal(t, entities.ResultFailed, code)

	pair := sink.waitResult(t)
	require.JSONEq(t, `[3,"device unreachable"]`, pair[1])
}

func Test_Enqueue_QueuedAndExecuted(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(5, 1, 10*time.Millisecond, sink.notify)
	require.NoError(t, err)
	defer service.StopTasks()

	uniqueID, code := service.Enqueue(&fakeTask{name: "On"}, "")
	require.Equal(t, entities.ResultQueued, code)

	pair := sink.waitResult(t)
	require.Equal(t, uniqueID, pair[0])
	require.JSONEq(t, `[0,"OK"]`, pair[1])

	require.Equal(t, entities.TaskStateCompleted, service.GetTaskState(uniqueID))
	require.Empty(t, service.TaskIDsInQueue())
}

func Test_Enqueue_RejectedWhenFull(t *testing.T) {
	sink := newNotifySink()
	// no workers: nothing drains the queue
	service, err := taskqueue.NewService(2, 0, 0, sink.notify)
	require.NoError(t, err)

	_, code := service.Enqueue(&fakeTask{name: "A"}, "")
	require.Equal(t, entities.ResultQueued, code)
	_, code = service.Enqueue(&fakeTask{name: "B"}, "")
	require.Equal(t, entities.ResultQueued, code)

	executed := false
	rejectedID, code := service.Enqueue(&fakeTask{
		name: "C",
		do: func(taskqueue.RunContext, string) (taskqueue.Outcome, error) {
			executed = true
			return taskqueue.Outcome{}, nil
		},
	}, "")

	require.Equal(t, entities.ResultRejected, code)
	require.False(t, executed)
	require.True(t, service.QueueFull())

	// the rejection is still reported as a result
	pair := sink.waitResult(t)
	require.Equal(t, rejectedID, pair[0])
	require.JSONEq(t, `[5,"queue is full"]`, pair[1])
}

func Test_Enqueue_NotAllowedTask(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(0, 0, 0, sink.notify)
	require.NoError(t, err)

	_, code := service.Enqueue(&fakeTask{
		name:       "Scan",
		allowedErr: errors.New("action scan_started rejected in obs state EMPTY"),
	}, "")

	require.Equal(t, entities.ResultNotAllowed, code)

	pair := sink.waitResult(t)
	require.JSONEq(t, `[6,"action scan_started rejected in obs state EMPTY"]`, pair[1])
}

func Test_Enqueue_PanicContained(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(5, 1, 10*time.Millisecond, sink.notify)
	require.NoError(t, err)
	defer service.StopTasks()

	_, code := service.Enqueue(&fakeTask{
		name: "Explode",
		do: func(taskqueue.RunContext, string) (taskqueue.Outcome, error) {
			panic("boom")
		},
	}, "")
	require.Equal(t, entities.ResultQueued, code)

	pair := sink.waitResult(t)
	require.Contains(t, pair[1], `[3,"boom`)

	// the worker survived the panic
	_, code = service.Enqueue(&fakeTask{name: "On"}, "")
	require.Equal(t, entities.ResultQueued, code)
	sink.waitResult(t)
}

func Test_AbortTasks_DrainsQueueAndAutoResumes(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(10, 1, 10*time.Millisecond, sink.notify)
	require.NoError(t, err)
	defer service.StopTasks()

	release := make(chan struct{})
	started := make(chan struct{})

	blockerID, code := service.Enqueue(&fakeTask{
		name: "Blocker",
		do: func(taskqueue.RunContext, string) (taskqueue.Outcome, error) {
			close(started)
			<-release
			return taskqueue.Outcome{Code: entities.ResultOK, Message: "finished"}, nil
		},
	}, "")
	require.Equal(t, entities.ResultQueued, code)

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("blocker task never started")
	}

	queuedID, code := service.Enqueue(&fakeTask{name: "Queued"}, "")
	require.Equal(t, entities.ResultQueued, code)

	service.AbortTasks()
	require.True(t, service.IsAborting())

	// the in-flight task is not interrupted and reports its real result
	close(release)
	pair := sink.waitResult(t)
	require.Equal(t, blockerID, pair[0])
	require.JSONEq(t, `[0,"finished"]`, pair[1])

	// the queued task is drained without running once the worker frees up
	pair = sink.waitResult(t)
	require.Equal(t, queuedID, pair[0])
	require.JSONEq(t, `[7,"`+queuedID+` Aborted"]`, pair[1])

	// once everything drained the aborting flag clears on its own
	require.Eventually(t, func() bool {
		return !service.IsAborting()
	}, 3*time.Second, 10*time.Millisecond)
}

func Test_GetTaskState(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(5, 1, 10*time.Millisecond, sink.notify)
	require.NoError(t, err)
	defer service.StopTasks()

	require.Equal(t, entities.TaskStateNotFound, service.GetTaskState("never_submitted_Task"))

	release := make(chan struct{})
	started := make(chan struct{})
	runningID, _ := service.Enqueue(&fakeTask{
		name: "Running",
		do: func(taskqueue.RunContext, string) (taskqueue.Outcome, error) {
			close(started)
			<-release
			return taskqueue.Outcome{}, nil
		},
	}, "")

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("task never started")
	}

	queuedID, _ := service.Enqueue(&fakeTask{name: "Waiting"}, "")

	require.Equal(t, entities.TaskStateInProgress, service.GetTaskState(runningID))
	require.Equal(t, entities.TaskStateQueued, service.GetTaskState(queuedID))

	close(release)
	sink.waitResult(t)
	sink.waitResult(t)

	// only the most recent result is retained
	require.Equal(t, entities.TaskStateCompleted, service.GetTaskState(queuedID))
	require.Equal(t, entities.TaskStateNotFound, service.GetTaskState(runningID))
}

func Test_ConcurrentWorkers(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(20, 4, 10*time.Millisecond, sink.notify)
	require.NoError(t, err)
	defer service.StopTasks()

	const taskCount = 12
	for i := 0; i < taskCount; i++ {
		_, code := service.Enqueue(&fakeTask{
			name: "Work",
			do: func(runCtx taskqueue.RunContext, _ string) (taskqueue.Outcome, error) {
				runCtx.ReportProgress("50 percent")
				time.Sleep(5 * time.Millisecond)
				return taskqueue.Outcome{Code: entities.ResultOK}, nil
			},
		}, "")
		require.Equal(t, entities.ResultQueued, code)
	}

	for i := 0; i < taskCount; i++ {
		sink.waitResult(t)
	}

	require.Empty(t, service.TaskIDsInQueue())
	require.Empty(t, service.TaskStatuses())
}

func Test_QueueViews(t *testing.T) {
	sink := newNotifySink()
	// no workers so the queue stays put
	service, err := taskqueue.NewService(5, 0, 0, sink.notify)
	require.NoError(t, err)

	firstID, _ := service.Enqueue(&fakeTask{name: "AssignResources"}, "")
	secondID, _ := service.Enqueue(&fakeTask{name: "Configure"}, "")

	require.Equal(t, []string{firstID, secondID}, service.TaskIDsInQueue())
	require.Equal(t, []string{"AssignResources", "Configure"}, service.TasksInQueue())
	require.Equal(t, []string{
		firstID, "QUEUED",
		secondID, "QUEUED",
	}, service.TaskStatuses())
}

func Test_LastResult(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(0, 0, 0, sink.notify)
	require.NoError(t, err)

	_, exists := service.LastResult()
	require.False(t, exists)

	uniqueID, _ := service.Enqueue(&fakeTask{
		name: "On",
		do: func(taskqueue.RunContext, string) (taskqueue.Outcome, error) {
			return taskqueue.Outcome{Code: entities.ResultOK, Message: "device is ON"}, nil
		},
	}, "")

	result, exists := service.LastResult()
	require.True(t, exists)
	require.Equal(t, uniqueID, result.UniqueID)
	require.Equal(t, entities.ResultOK, result.Code)
	require.Equal(t, "device is ON", result.Message)
}

func Test_RestoreResult(t *testing.T) {
	sink := newNotifySink()
	service, err := taskqueue.NewService(0, 0, 0, sink.notify)
	require.NoError(t, err)

	restored := entities.TaskResult{
		UniqueID: "1700000000_abc_Configure",
		Code:     entities.ResultOK,
		Message:  "configuration cfg-1 applied",
	}
	service.RestoreResult(restored)

	// the recovered outcome is visible exactly like a fresh completion
	result, exists := service.LastResult()
	require.True(t, exists)
	require.Equal(t, restored, result)
	require.Equal(t, entities.TaskStateCompleted, service.GetTaskState(restored.UniqueID))

	pair := sink.waitResult(t)
	require.Equal(t, restored.UniqueID, pair[0])
	require.JSONEq(t, `[0,"configuration cfg-1 applied"]`, pair[1])
}
