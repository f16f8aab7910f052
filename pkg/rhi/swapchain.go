package rhi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

type swapChainState struct {
	desc    SwapChainDesc
	buffers []Resource
	current atomic.Uint32

	// latency limits frames queued for presentation when the chain is
	// frame-latency waitable. held counts acquired, unreleased slots.
	latency *semaphore.Weighted
	held    atomic.Int64
	pending sync.WaitGroup
}

func (st *swapChainState) presented() {
	if st.latency == nil {
		return
	}
	if st.held.Add(-1) < 0 {
		st.held.Add(1)
		return
	}
	st.latency.Release(1)
}

func (st *swapChainState) close() {
	st.pending.Wait()
}

// CreateSwapChain creates a chain of back buffers. A zero BufferCount
// means FramePipelineLength, a zero MaximumFrameLatency means 1 and an
// unknown Format means FormatR8G8B8A8Unorm.
func (d *Device) CreateSwapChain(desc SwapChainDesc) (SwapChain, error) {
	if desc.BufferCount == 0 {
		desc.BufferCount = FramePipelineLength
	}
	if desc.MaximumFrameLatency == 0 {
		desc.MaximumFrameLatency = 1
	}
	if desc.Format == FormatUnknown {
		desc.Format = FormatR8G8B8A8Unorm
	}
	if desc.FormatRTV == FormatUnknown {
		desc.FormatRTV = desc.Format
	}
	var buffers []Resource
	sc, err := create(d, "CreateSwapChain", func() (SwapChain, error) {
		sc, bufs, err := d.backend.CreateSwapChain(desc)
		buffers = bufs
		return sc, err
	}, "width", desc.Width, "height", desc.Height, "buffers", desc.BufferCount)
	if err != nil {
		return NullSwapChain, err
	}

	st := &swapChainState{desc: desc, buffers: buffers}
	if desc.FrameLatencyWaitable {
		st.latency = semaphore.NewWeighted(int64(desc.MaximumFrameLatency))
	}
	d.swapMu.Lock()
	d.swapChains[sc] = st
	d.swapMu.Unlock()
	return sc, nil
}

func (d *Device) swapChain(op string, sc SwapChain) (*swapChainState, error) {
	d.swapMu.Lock()
	defer d.swapMu.Unlock()
	st, ok := d.swapChains[sc]
	if !ok {
		return nil, wrapErr(op, ErrInvalidHandle)
	}
	return st, nil
}

func (d *Device) buffersOf(st *swapChainState) []Resource {
	d.swapMu.Lock()
	defer d.swapMu.Unlock()
	return st.buffers
}

// SwapChainDesc returns the effective descriptor of sc.
func (d *Device) SwapChainDesc(sc SwapChain) (SwapChainDesc, error) {
	st, err := d.swapChain("SwapChainDesc", sc)
	if err != nil {
		return SwapChainDesc{}, err
	}
	d.swapMu.Lock()
	defer d.swapMu.Unlock()
	return st.desc, nil
}

// SwapChainBuffer returns back buffer i of sc.
func (d *Device) SwapChainBuffer(sc SwapChain, i uint32) (Resource, error) {
	st, err := d.swapChain("SwapChainBuffer", sc)
	if err != nil {
		return NullResource, err
	}
	buffers := d.buffersOf(st)
	if int(i) >= len(buffers) {
		return NullResource, wrapErr("SwapChainBuffer", fmt.Errorf("buffer %d of %d: %w", i, len(buffers), CodeInvalidArg))
	}
	return buffers[i], nil
}

// CurrentBackBufferIndex returns the buffer the next frame renders into.
func (d *Device) CurrentBackBufferIndex(sc SwapChain) (uint32, error) {
	st, err := d.swapChain("CurrentBackBufferIndex", sc)
	if err != nil {
		return 0, err
	}
	return st.current.Load(), nil
}

// Present queues presentation of the current back buffer on the direct
// queue and advances to the next buffer. It returns the fence value that
// marks the present.
func (d *Device) Present(sc SwapChain) (uint64, error) {
	st, err := d.swapChain("Present", sc)
	if err != nil {
		return 0, err
	}
	buf := st.current.Load()
	q := d.queues[QueueDirect]
	value, err := q.submit([][]Command{{CmdPresent{SwapChain: sc, Buffer: buf}}})
	if err != nil {
		return 0, wrapErr("Present", err)
	}
	st.current.Store((buf + 1) % uint32(len(d.buffersOf(st))))

	if st.latency != nil {
		st.pending.Add(1)
		go func() {
			defer st.pending.Done()
			q.WaitForValue(value)
			st.presented()
		}()
	}
	return value, nil
}

// WaitForFrameLatency blocks until fewer than MaximumFrameLatency frames
// are queued for presentation. It returns at once for chains that are not
// frame-latency waitable.
func (d *Device) WaitForFrameLatency(ctx context.Context, sc SwapChain) error {
	st, err := d.swapChain("WaitForFrameLatency", sc)
	if err != nil {
		return err
	}
	if st.latency == nil {
		return nil
	}
	if err := st.latency.Acquire(ctx, 1); err != nil {
		return err
	}
	st.held.Add(1)
	return nil
}

// ResizeSwapChain recreates the back buffers. The device must be idle, so
// callers normally WaitIdle first.
func (d *Device) ResizeSwapChain(sc SwapChain, width, height uint32) error {
	st, err := d.swapChain("ResizeSwapChain", sc)
	if err != nil {
		return err
	}
	if !d.idle() {
		return wrapErr("ResizeSwapChain", ErrDeviceNotIdle)
	}
	buffers, err := d.backend.ResizeSwapChain(sc, width, height)
	if err != nil {
		return wrapErr("ResizeSwapChain", err)
	}
	d.swapMu.Lock()
	st.buffers = buffers
	st.desc.Width, st.desc.Height = width, height
	d.swapMu.Unlock()
	st.current.Store(0)
	d.log.Debug("swap chain resized", "handle", sc, "width", width, "height", height)
	return nil
}

// ReleaseSwapChain frees sc. The device must be idle.
func (d *Device) ReleaseSwapChain(sc SwapChain) error {
	st, err := d.swapChain("ReleaseSwapChain", sc)
	if err != nil {
		return err
	}
	if !d.idle() {
		return wrapErr("ReleaseSwapChain", ErrDeviceNotIdle)
	}
	st.close()
	d.swapMu.Lock()
	delete(d.swapChains, sc)
	d.swapMu.Unlock()
	return release(d, "ReleaseSwapChain", sc, d.backend.ReleaseSwapChain)
}
