package rhi

import (
	"fmt"
	"sync"
)

// QueueKind names one of the four device queues.
type QueueKind uint8

const (
	QueueDirect QueueKind = iota
	QueueCompute
	QueueCopy
	QueueBackgroundCopy
	queueKindCount
)

func (k QueueKind) String() string {
	switch k {
	case QueueDirect:
		return "direct"
	case QueueCompute:
		return "compute"
	case QueueCopy:
		return "copy"
	case QueueBackgroundCopy:
		return "background_copy"
	default:
		return fmt.Sprintf("QueueKind(%d)", uint8(k))
	}
}

// accepts reports whether lists of type t may run on queues of kind k.
func (k QueueKind) accepts(t listType) bool {
	switch t {
	case listGraphics:
		return k == QueueDirect
	case listCompute:
		return k == QueueDirect || k == QueueCompute
	default:
		return true
	}
}

// CommandQueue submits closed command lists and tracks its fence. Lists
// execute in submission order; ordering against other queues needs
// SyncWith.
type CommandQueue struct {
	dev  *Device
	kind QueueKind
	bq   BackendQueue

	mu           sync.Mutex
	lastSignaled uint64
}

// Kind returns which queue this is.
func (q *CommandQueue) Kind() QueueKind { return q.kind }

// ExecuteCommandLists submits closed lists in order and returns the fence
// value signaled once they all complete. Nothing is submitted if any list
// is unclosed, failed while recording or is of a type the queue does not
// accept.
func (q *CommandQueue) ExecuteCommandLists(lists ...CommandList) (uint64, error) {
	streams := make([][]Command, 0, len(lists))
	for _, l := range lists {
		cl := l.base()
		if cl.state != ListClosed {
			return 0, wrapErr("ExecuteCommandLists", ErrListNotClosed)
		}
		if cl.err != nil {
			return 0, wrapErr("ExecuteCommandLists", cl.err)
		}
		if !q.kind.accepts(cl.typ) {
			q.dev.log.Debug("queue mismatch", "queue", q.kind, "list", cl.typ)
			return 0, wrapErr("ExecuteCommandLists", fmt.Errorf("%s list on %s queue: %w", cl.typ, q.kind, ErrQueueMismatch))
		}
		streams = append(streams, cl.cmds)
	}

	value, err := q.submit(streams)
	if err != nil {
		return 0, wrapErr("ExecuteCommandLists", err)
	}
	for _, l := range lists {
		cl := l.base()
		cl.state = ListSubmitted
		cl.queue = q.kind
		cl.fence = value
		cl.cmds = nil
	}
	return value, nil
}

func (q *CommandQueue) submit(streams [][]Command) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	value := q.lastSignaled + 1
	if err := q.bq.Submit(streams, value); err != nil {
		return 0, err
	}
	q.lastSignaled = value
	return value, nil
}

// Signal queues a fence signal behind submitted work and returns its value.
func (q *CommandQueue) Signal() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastSignaled++
	q.bq.Signal(q.lastSignaled)
	return q.lastSignaled
}

// LastSignaled returns the most recent fence value queued for signaling.
func (q *CommandQueue) LastSignaled() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSignaled
}

// CompletedValue returns the fence value the queue has reached.
func (q *CommandQueue) CompletedValue() uint64 {
	return q.bq.Completed()
}

// IsComplete reports whether the queue has reached value.
func (q *CommandQueue) IsComplete(value uint64) bool {
	return q.bq.Completed() >= value
}

// WaitForValue blocks until the queue reaches value.
func (q *CommandQueue) WaitForValue(value uint64) {
	q.bq.WaitCompleted(value)
}

// SyncWith makes work submitted to q after this call wait on the GPU until
// other has finished everything submitted to it so far.
func (q *CommandQueue) SyncWith(other *CommandQueue) {
	if other == q {
		return
	}
	value := other.LastSignaled()
	if value == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bq.Wait(other.bq, value)
}

// WaitIdle blocks until all work submitted so far has completed.
func (q *CommandQueue) WaitIdle() {
	q.WaitForValue(q.Signal())
}
