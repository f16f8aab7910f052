package rhi

import "sync"

// retirement is one object waiting for the GPU to let go of it.
type retirement struct {
	fences [queueKindCount]uint64
	what   string
	free   func() error
}

// deferredQueue is a FIFO of retirements. Fence snapshots only grow, so
// once the head is not ready nothing behind it is either.
type deferredQueue struct {
	mu      sync.Mutex
	pending []retirement
}

// deferDestroy schedules free to run once every queue has completed the
// work it had been given at the time of the call.
func (d *Device) deferDestroy(what string, free func() error) {
	var r retirement
	for i, q := range d.queues {
		r.fences[i] = q.LastSignaled()
	}
	r.what = what
	r.free = free

	d.deferred.mu.Lock()
	d.deferred.pending = append(d.deferred.pending, r)
	d.deferred.mu.Unlock()
	d.log.Debug("destruction deferred", "what", what, "direct_fence", r.fences[QueueDirect])
}

// collectGarbage frees every retirement whose work has completed and
// returns how many it freed.
func (d *Device) collectGarbage() int {
	d.deferred.mu.Lock()
	defer d.deferred.mu.Unlock()

	n := 0
	for ; n < len(d.deferred.pending); n++ {
		r := &d.deferred.pending[n]
		if !d.retired(r) {
			break
		}
		if err := r.free(); err != nil {
			d.log.Error("deferred destruction failed", "what", r.what, "err", err)
		}
	}
	if n > 0 {
		clear(d.deferred.pending[:n])
		d.deferred.pending = d.deferred.pending[n:]
		d.log.Debug("retired objects", "count", n, "pending", len(d.deferred.pending))
	}
	return n
}

func (d *Device) retired(r *retirement) bool {
	for i, q := range d.queues {
		if !q.IsComplete(r.fences[i]) {
			return false
		}
	}
	return true
}

// PendingDestructions returns how many objects await deferred destruction.
func (d *Device) PendingDestructions() int {
	d.deferred.mu.Lock()
	defer d.deferred.mu.Unlock()
	return len(d.deferred.pending)
}

// CollectGarbage frees objects whose pending GPU work has retired. Frame
// methods call it; tools that do not pace frames may call it directly.
func (d *Device) CollectGarbage() int {
	return d.collectGarbage()
}
