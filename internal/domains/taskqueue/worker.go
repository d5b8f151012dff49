package taskqueue

import (
	"sync"
)

// worker tracks which submission a pool goroutine is currently executing and
// that task's last reported progress. The manager reads these when assembling
// the progress view; each worker owns its own lock so the view never blocks
// the queue lock.
type worker struct {
	id int

	mu        sync.Mutex
	currentID string
	progress  string
}

func newWorker(id int) *worker {
	return &worker{
		id: id,
	}
}

func (w *worker) setCurrent(uniqueID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.currentID = uniqueID
	w.progress = ""
}

func (w *worker) clearCurrent() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.currentID = ""
	w.progress = ""
}

func (w *worker) setProgress(progress string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.progress = progress
}

func (w *worker) snapshot() (uniqueID, progress string, active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.currentID, w.progress, w.currentID != ""
}
