package engine

import (
	"sync"

	"github.com/roach88/rtfm/internal/ir"
)

// Activation is one occurrence of a task becoming eligible to run.
type Activation struct {
	Task     ir.TaskID
	Priority ir.Priority
	Seq      int64
}

// pendingQueue holds pending activations in arrival order.
//
// Safe for concurrent use: interrupt sources post from any goroutine while
// the engine takes activations on its own. The buffered signal channel
// (size 1) lets the idle loop wait with a select on context cancellation.
type pendingQueue struct {
	mu      sync.Mutex
	pending []Activation
	closed  bool
	signal  chan struct{}
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{
		pending: make([]Activation, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Post appends an activation. Returns false if the queue is closed.
func (q *pendingQueue) Post(a Activation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.pending = append(q.pending, a)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// takeAbove removes and returns the earliest activation of the highest
// priority strictly above level. The caller holds q.mu.
func (q *pendingQueue) takeAbove(level ir.Priority) (Activation, bool) {
	best := -1
	for i, a := range q.pending {
		if a.Priority <= level {
			continue
		}
		if best < 0 || a.Priority > q.pending[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return Activation{}, false
	}
	a := q.pending[best]
	copy(q.pending[best:], q.pending[best+1:])
	q.pending[len(q.pending)-1] = Activation{}
	q.pending = q.pending[:len(q.pending)-1]
	return a, true
}

// Wait returns a channel that signals when activations may be available.
func (q *pendingQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending activations.
func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// count returns the pending activations of one task.
func (q *pendingQueue) count(task ir.TaskID) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, a := range q.pending {
		if a.Task == task {
			n++
		}
	}
	return n
}

// Close rejects further posts and wakes waiters.
func (q *pendingQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// closedAndEmpty reports whether the queue was closed with nothing left.
func (q *pendingQueue) closedAndEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.pending) == 0
}
