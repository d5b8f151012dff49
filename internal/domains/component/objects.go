package component

import (
	"github.com/skyarray/device-agent/internal/domains/taskqueue"
	"github.com/skyarray/device-agent/internal/entities"
)

type (
	IAttributePublisher interface {
		PublishChange(attribute string, value any)
	}

	IQueueService interface {
		Enqueue(task taskqueue.ITask, argument string) (uniqueID string, code entities.ResultCode)
		AbortTasks()
		ResumeTasks()
		StopTasks()
		GetTaskState(uniqueID string) entities.TaskState
	}
)

// task is the reusable unit-of-work envelope: a stateless body plus a guard
// consulting the owning manager's state model. The executor injects the run
// context at invocation time.
type task struct {
	name      string
	isAllowed func() (err error)
	do        func(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error)
}

func (t *task) Name() string {
	return t.name
}

func (t *task) IsAllowed() (err error) {
	return t.isAllowed()
}

func (t *task) Do(runCtx taskqueue.RunContext, argument string) (outcome taskqueue.Outcome, err error) {
	return t.do(runCtx, argument)
}
