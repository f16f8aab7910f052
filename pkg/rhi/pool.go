package rhi

import "sync"

type pooledList struct {
	cl    *CopyCommandList
	queue QueueKind
	fence uint64
}

// copyListPool recycles copy command lists used for uploads.
type copyListPool struct {
	mu   sync.RWMutex
	free []pooledList
}

// AcquireCopyCommandList returns a recording copy list, reusing one
// released for the given queue whose submission has completed.
func (d *Device) AcquireCopyCommandList(kind QueueKind) *CopyCommandList {
	completed := d.queues[kind].CompletedValue()

	d.copies.mu.RLock()
	found := d.copies.reusable(kind, completed) >= 0
	d.copies.mu.RUnlock()

	if found {
		d.copies.mu.Lock()
		i := d.copies.reusable(kind, completed)
		if i >= 0 {
			cl := d.copies.free[i].cl
			last := len(d.copies.free) - 1
			d.copies.free[i] = d.copies.free[last]
			d.copies.free[last] = pooledList{}
			d.copies.free = d.copies.free[:last]
			d.copies.mu.Unlock()
			cl.Reset()
			return cl
		}
		d.copies.mu.Unlock()
	}
	return d.CreateCopyCommandList()
}

// ReleaseCopyCommandList returns cl to the pool. It is handed out again
// once the queue it was last submitted to reaches fence.
func (d *Device) ReleaseCopyCommandList(cl *CopyCommandList, fence uint64) {
	d.copies.mu.Lock()
	d.copies.free = append(d.copies.free, pooledList{cl: cl, queue: cl.queue, fence: fence})
	d.copies.mu.Unlock()
}

// PooledCopyLists returns how many lists sit in the pool.
func (d *Device) PooledCopyLists() int {
	d.copies.mu.RLock()
	defer d.copies.mu.RUnlock()
	return len(d.copies.free)
}

func (p *copyListPool) reusable(kind QueueKind, completed uint64) int {
	for i, e := range p.free {
		if e.queue == kind && e.fence <= completed {
			return i
		}
	}
	return -1
}
