package engine

import (
	"sync"

	"github.com/ejcamacho11/CharLib/internal/model"
)

// trial is one simulation unit of work: a single (arc, corner) pair.
type trial struct {
	Arc    model.TimingArc
	Corner model.Corner
}

// trialQueue is a thread-safe FIFO queue feeding the worker pool.
//
// The queue is unbounded so the full sweep can be enqueued before any
// worker starts, keeping dispatch order deterministic. Workers drain
// it with TryDequeue until empty; nothing is enqueued once they run.
type trialQueue struct {
	mu     sync.Mutex
	trials []trial
	closed bool
}

func newTrialQueue() *trialQueue {
	return &trialQueue{trials: make([]trial, 0, 64)}
}

// Enqueue adds a trial to the back of the queue.
// Returns false if the queue is closed.
func (q *trialQueue) Enqueue(t trial) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.trials = append(q.trials, t)
	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (trial{}, false) if the queue is empty.
func (q *trialQueue) TryDequeue() (trial, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.trials) == 0 {
		return trial{}, false
	}
	t := q.trials[0]
	q.trials[0] = trial{}
	if len(q.trials) == 1 {
		q.trials = q.trials[:0]
	} else {
		q.trials = q.trials[1:]
	}
	return t, true
}

// Len returns the current queue length.
func (q *trialQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.trials)
}

// Close rejects further enqueues.
func (q *trialQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
