package taskqueue

import (
	"sync"

	"github.com/skyarray/device-agent/internal/entities"
)

type (
	// ITask is one unit of work. IsAllowed is consulted by the executor
	// before Do is ever invoked; a non-nil error means the task is rejected
	// as NOT_ALLOWED with the error text as the message.
	ITask interface {
		Name() string
		IsAllowed() (err error)
		Do(runCtx RunContext, argument string) (outcome Outcome, err error)
	}

	// RunContext carries everything the executor injects into a task
	// invocation: the submission id, the shared abort/stop signals and a
	// progress sink. Handles are passed here instead of being set on the
	// task object, so a task value never changes after construction.
	RunContext struct {
		UniqueID       string
		Aborting       <-chan struct{}
		Stopping       <-chan struct{}
		ReportProgress func(progress string)
	}

	// Outcome is a task's own classification of its result. A zero Code is
	// ResultOK.
	Outcome struct {
		Code    entities.ResultCode
		Message string
	}

	NotifyFunc func(attribute string, value any)

	workItem struct {
		uniqueID string
		task     ITask
		argument string
	}
)

// signal is a resettable broadcast event: Set closes the current channel so
// every selector wakes, Clear swaps in a fresh one. The stopping signal is
// never cleared; the aborting signal is cleared on resume.
type signal struct {
	mu  sync.Mutex
	set bool
	ch  chan struct{}
}

func newSignal() *signal {
	return &signal{
		ch: make(chan struct{}),
	}
}

func (s *signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set {
		return
	}

	s.set = true
	close(s.ch)
}

func (s *signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		return
	}

	s.set = false
	s.ch = make(chan struct{})
}

func (s *signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.set
}

func (s *signal) Chan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ch
}
