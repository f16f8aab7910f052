package soft

import (
	"sync"
	"sync/atomic"

	"github.com/taigrr/culler/pkg/rhi"
)

// op is one unit of queue work, run in submission order.
type op struct {
	lists     [][]rhi.Command
	signal    uint64
	wait      *Queue
	waitValue uint64
}

// Queue is a software queue. A goroutine drains its pending ops in order.
type Queue struct {
	b    *Backend
	kind rhi.QueueKind

	mu      sync.Mutex
	cond    *sync.Cond
	pending []op
	paused  bool
	closed  bool

	completed atomic.Uint64
}

var _ rhi.BackendQueue = (*Queue)(nil)

func newQueue(b *Backend, kind rhi.QueueKind) *Queue {
	q := &Queue{b: b, kind: kind}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) push(o op) {
	q.mu.Lock()
	q.pending = append(q.pending, o)
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *Queue) Submit(lists [][]rhi.Command, signal uint64) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return rhi.CodeDeviceRemoved
	}
	q.b.stats.submits.Add(1)
	q.push(op{lists: lists, signal: signal})
	return nil
}

func (q *Queue) Signal(value uint64) {
	q.push(op{signal: value})
}

func (q *Queue) Wait(other rhi.BackendQueue, value uint64) {
	o, ok := other.(*Queue)
	if !ok {
		q.b.log.Error("wait on foreign queue ignored", "queue", q.kind)
		return
	}
	q.push(op{wait: o, waitValue: value})
}

func (q *Queue) Completed() uint64 {
	return q.completed.Load()
}

// WaitCompleted blocks until the fence reaches value, or the queue has
// shut down with nothing left to run.
func (q *Queue) WaitCompleted(value uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.completed.Load() < value && !(q.closed && len(q.pending) == 0) {
		q.cond.Wait()
	}
}

func (q *Queue) setPaused(p bool) {
	q.mu.Lock()
	q.paused = p
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *Queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *Queue) next() (op, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 || (q.paused && !q.closed) {
		if q.closed && len(q.pending) == 0 {
			return op{}, false
		}
		q.cond.Wait()
	}
	o := q.pending[0]
	q.pending[0] = op{}
	q.pending = q.pending[1:]
	return o, true
}

func (q *Queue) run(wg *sync.WaitGroup) {
	defer wg.Done()
	defer q.cond.Broadcast()
	log := q.b.log.With("queue", q.kind)
	for {
		o, ok := q.next()
		if !ok {
			return
		}
		if o.wait != nil {
			o.wait.WaitCompleted(o.waitValue)
		}
		for _, cmds := range o.lists {
			q.b.execute(q.kind, cmds)
		}
		if o.signal != 0 {
			log.Debug("fence signaled", "value", o.signal)
			q.mu.Lock()
			q.completed.Store(o.signal)
			q.mu.Unlock()
			q.cond.Broadcast()
		}
	}
}
