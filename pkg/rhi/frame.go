package rhi

import "sync/atomic"

// FramePipelineLength is how many frames the CPU may record ahead of the
// GPU. Per-frame resources are kept in a ring of this many slots.
const FramePipelineLength = 2

type frameRing struct {
	number atomic.Uint64
	fences [FramePipelineLength]uint64
}

// FrameIndex returns the ring slot of the frame being recorded.
func (d *Device) FrameIndex() int {
	return int(d.frames.number.Load() % FramePipelineLength)
}

// FrameNumber returns how many frames have ended.
func (d *Device) FrameNumber() uint64 {
	return d.frames.number.Load()
}

// NewFrame starts recording into the current slot. It blocks until the GPU
// has finished the frame that last used the slot, then frees retired
// objects and recycles the slot's dynamic memory.
func (d *Device) NewFrame() {
	slot := d.FrameIndex()
	fence := d.frames.fences[slot]
	direct := d.queues[QueueDirect]
	if !direct.IsComplete(fence) {
		d.log.Debug("waiting for frame slot", "slot", slot, "fence", fence)
		direct.WaitForValue(fence)
	}
	d.collectGarbage()
	d.dynamic.recycle(slot)
}

// EndFrame signals the direct queue behind the frame's work, records the
// value for the slot and advances the ring. It returns the signaled value.
func (d *Device) EndFrame() uint64 {
	slot := d.FrameIndex()
	value := d.queues[QueueDirect].Signal()
	d.frames.fences[slot] = value
	d.frames.number.Add(1)
	d.collectGarbage()
	return value
}
