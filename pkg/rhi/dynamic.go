package rhi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DynamicAllocation is a transient range of an upload buffer, valid until
// the frame slot it was allocated in comes around again.
type DynamicAllocation struct {
	Resource Resource
	Offset   uint64
	Data     []byte
}

type dynamicPage struct {
	res  Resource
	data []byte
	used atomic.Uint64
}

// bump reserves size bytes aligned to align, or reports the page full.
func (p *dynamicPage) bump(size, align uint64) (uint64, bool) {
	for {
		old := p.used.Load()
		start := (old + align - 1) &^ (align - 1)
		end := start + size
		if end > uint64(len(p.data)) {
			return 0, false
		}
		if p.used.CompareAndSwap(old, end) {
			return start, true
		}
	}
}

// dynamicAllocator hands out upload memory per frame slot. Allocation from
// the current page is a lock-free bump under the read lock; switching pages
// takes the write lock.
type dynamicAllocator struct {
	dev      *Device
	pageSize uint64

	mu        sync.RWMutex
	current   [FramePipelineLength]*dynamicPage
	used      [FramePipelineLength][]*dynamicPage
	dedicated [FramePipelineLength][]*dynamicPage
	free      []*dynamicPage
}

func newDynamicAllocator(d *Device, pageSize uint64) *dynamicAllocator {
	return &dynamicAllocator{dev: d, pageSize: pageSize}
}

// AllocateDynamic returns size bytes of CPU-writable GPU memory for the
// current frame. align must be a power of two; zero means 1. It is safe
// for concurrent use.
func (d *Device) AllocateDynamic(size, align uint64) (DynamicAllocation, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return DynamicAllocation{}, wrapErr("AllocateDynamic", fmt.Errorf("alignment %d: %w", align, CodeInvalidArg))
	}
	if err := d.alive("AllocateDynamic"); err != nil {
		return DynamicAllocation{}, err
	}
	a, err := d.dynamic.allocate(d.FrameIndex(), size, align)
	return a, wrapErr("AllocateDynamic", err)
}

func (a *dynamicAllocator) allocate(slot int, size, align uint64) (DynamicAllocation, error) {
	if size+align > a.pageSize {
		return a.allocateDedicated(slot, size)
	}
	for {
		a.mu.RLock()
		p := a.current[slot]
		if p != nil {
			if off, ok := p.bump(size, align); ok {
				a.mu.RUnlock()
				return p.slice(off, size), nil
			}
		}
		a.mu.RUnlock()

		a.mu.Lock()
		if a.current[slot] == p {
			np, err := a.page()
			if err != nil {
				a.mu.Unlock()
				return DynamicAllocation{}, err
			}
			a.current[slot] = np
			a.used[slot] = append(a.used[slot], np)
		}
		a.mu.Unlock()
	}
}

func (a *dynamicAllocator) allocateDedicated(slot int, size uint64) (DynamicAllocation, error) {
	p, err := a.newPage(size)
	if err != nil {
		return DynamicAllocation{}, err
	}
	p.used.Store(size)
	a.mu.Lock()
	a.dedicated[slot] = append(a.dedicated[slot], p)
	a.mu.Unlock()
	return p.slice(0, size), nil
}

func (p *dynamicPage) slice(off, size uint64) DynamicAllocation {
	return DynamicAllocation{Resource: p.res, Offset: off, Data: p.data[off : off+size : off+size]}
}

// page returns a free page or creates one. Callers hold the write lock.
func (a *dynamicAllocator) page() (*dynamicPage, error) {
	if n := len(a.free); n > 0 {
		p := a.free[n-1]
		a.free[n-1] = nil
		a.free = a.free[:n-1]
		return p, nil
	}
	return a.newPage(a.pageSize)
}

func (a *dynamicAllocator) newPage(size uint64) (*dynamicPage, error) {
	res, err := a.dev.backend.CreateBuffer(BufferDesc{
		Size:         size,
		Heap:         HeapUpload,
		InitialState: StateGenericRead,
		Name:         "dynamic page",
	})
	if err != nil {
		return nil, err
	}
	data, err := a.dev.backend.Map(res)
	if err != nil {
		return nil, errors.Join(err, a.dev.backend.ReleaseResource(res))
	}
	a.dev.log.Debug("dynamic page created", "handle", res, "size", size)
	return &dynamicPage{res: res, data: data}, nil
}

// recycle makes the pages of slot available again. The caller guarantees
// the GPU is done with the slot.
func (a *dynamicAllocator) recycle(slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.used[slot] {
		p.used.Store(0)
		a.free = append(a.free, p)
	}
	clear(a.used[slot])
	a.used[slot] = a.used[slot][:0]
	a.current[slot] = nil
	for _, p := range a.dedicated[slot] {
		if err := a.dev.backend.ReleaseResource(p.res); err != nil {
			a.dev.log.Error("release dedicated page", "handle", p.res, "err", err)
		}
	}
	clear(a.dedicated[slot])
	a.dedicated[slot] = a.dedicated[slot][:0]
}

// release frees every page. The device must be idle.
func (a *dynamicAllocator) release() error {
	for slot := range FramePipelineLength {
		a.recycle(slot)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for _, p := range a.free {
		errs = append(errs, a.dev.backend.ReleaseResource(p.res))
	}
	a.free = nil
	return errors.Join(errs...)
}
