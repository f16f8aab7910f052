package rhi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/culler/pkg/rhi"
)

func barrierBatches(cmds []rhi.Command) []int {
	var sizes []int
	for _, c := range cmds {
		if b, ok := c.(rhi.CmdBarrier); ok {
			sizes = append(sizes, len(b.Barriers))
		}
	}
	return sizes
}

func TestDeferredBarriersBatch(t *testing.T) {
	d, _ := newDevice(t, rhi.DeviceDesc{})
	a := buffer(t, d, 16, rhi.HeapDefault)
	b := buffer(t, d, 16, rhi.HeapDefault)
	_, rtv := renderTarget(t, d)

	cl := d.CreateGraphicsCommandList()
	cl.DeferredBarrier(rhi.Transition(a, rhi.StateCopyDest, rhi.StateCopySource))
	cl.DeferredBarrier(
		rhi.Transition(b, rhi.StateCopyDest, rhi.StateCopySource),
		rhi.UAVBarrier{Resource: rhi.NullResource},
	)
	cl.SetPrimitiveTopology(rhi.TopologyLineList)
	assert.Equal(t, 3, cl.PendingBarriers(), "state setters do not flush")

	cl.ClearRenderTarget(rtv, [4]float32{})
	assert.Zero(t, cl.PendingBarriers())

	cl.DeferredBarrier(rhi.Transition(a, rhi.StateCopySource, rhi.StateCopyDest))
	require.NoError(t, cl.Close())

	cmds := cl.Commands()
	require.Len(t, cmds, 4)
	assert.IsType(t, rhi.CmdSetPrimitiveTopology{}, cmds[0])
	assert.IsType(t, rhi.CmdBarrier{}, cmds[1])
	assert.IsType(t, rhi.CmdClearRenderTarget{}, cmds[2])
	assert.Equal(t, []int{3, 1}, barrierBatches(cmds))
}

func TestFlushBarriersWithoutPendingIsNoop(t *testing.T) {
	d, _ := newDevice(t, rhi.DeviceDesc{})
	cl := d.CreateCopyCommandList()
	cl.FlushBarriers()
	cl.FlushBarriers()
	require.NoError(t, cl.Close())
	assert.Empty(t, cl.Commands())
}

func TestEnhancedBarriers(t *testing.T) {
	enhanced := []rhi.Barrier{
		rhi.GlobalBarrier{SyncBefore: rhi.SyncAll, SyncAfter: rhi.SyncAll},
		rhi.BufferBarrier{Resource: 0, AccessBefore: rhi.AccessCopyDest, AccessAfter: rhi.AccessShaderResource},
		rhi.TextureBarrier{Resource: 0, LayoutBefore: rhi.LayoutCommon, LayoutAfter: rhi.LayoutRenderTarget},
	}
	for _, b := range enhanced {
		t.Run("legacy", func(t *testing.T) {
			d, _ := newDevice(t, rhi.DeviceDesc{ForceLegacyBarriers: true})
			assert.False(t, d.Capabilities().EnhancedBarriers)

			cl := d.CreateCopyCommandList()
			cl.DeferredBarrier(b)
			assert.ErrorIs(t, cl.Err(), rhi.ErrEnhancedBarriersUnsupported)
			assert.ErrorIs(t, cl.Err(), rhi.CodeNotSupported)
			assert.Zero(t, cl.PendingBarriers())
			assert.Error(t, cl.Close())

			_, err := d.Queue(rhi.QueueCopy).ExecuteCommandLists(cl)
			assert.ErrorIs(t, err, rhi.ErrEnhancedBarriersUnsupported)
		})
		t.Run("enhanced", func(t *testing.T) {
			d, _ := newDevice(t, rhi.DeviceDesc{})
			require.True(t, d.Capabilities().EnhancedBarriers)

			cl := d.CreateCopyCommandList()
			cl.DeferredBarrier(b)
			require.NoError(t, cl.Close())
			assert.Equal(t, []int{1}, barrierBatches(cl.Commands()))
		})
	}
}

func TestRecordingErrorIsSticky(t *testing.T) {
	d, _ := newDevice(t, rhi.DeviceDesc{})
	src := buffer(t, d, 16, rhi.HeapDefault)
	dst := buffer(t, d, 16, rhi.HeapDefault)

	cl := d.CreateCopyCommandList()
	cl.CopyBufferRegion(dst, 0, src, 0, 16)
	cl.CopyResource(rhi.NullResource, src)
	cl.CopyBufferRegion(dst, 0, src, 0, 8)

	assert.ErrorIs(t, cl.Err(), rhi.ErrInvalidHandle)
	assert.Len(t, cl.Commands(), 1, "nothing is recorded after a failure")

	err := cl.Close()
	assert.ErrorIs(t, err, rhi.ErrInvalidHandle)
	var rerr *rhi.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "CopyResource", rerr.Op)
	assert.Equal(t, rhi.CodeInvalidArg, rerr.Code)

	cl.Reset()
	assert.NoError(t, cl.Err())
	assert.Equal(t, rhi.ListRecording, cl.State())
	assert.Empty(t, cl.Commands())
}

func TestRecordingAfterClose(t *testing.T) {
	d, _ := newDevice(t, rhi.DeviceDesc{})
	cl := closed(t, d.CreateComputeCommandList())
	assert.Equal(t, rhi.ListClosed, cl.State())

	cl.Dispatch(1, 1, 1)
	assert.ErrorIs(t, cl.Err(), rhi.ErrListClosed)
	assert.ErrorIs(t, cl.Close(), rhi.ErrListClosed)
}

func TestExecuteUnclosedList(t *testing.T) {
	d, _ := newDevice(t, rhi.DeviceDesc{})
	cl := d.CreateCopyCommandList()
	_, err := d.Queue(rhi.QueueCopy).ExecuteCommandLists(cl)
	assert.ErrorIs(t, err, rhi.ErrListNotClosed)
	assert.Equal(t, rhi.ListRecording, cl.State())
}

func TestQueueAcceptsListTypes(t *testing.T) {
	tests := []struct {
		name   string
		list   func(*rhi.Device) rhi.CommandList
		queues map[rhi.QueueKind]bool
	}{
		{
			name: "graphics",
			list: func(d *rhi.Device) rhi.CommandList { return d.CreateGraphicsCommandList() },
			queues: map[rhi.QueueKind]bool{
				rhi.QueueDirect: true, rhi.QueueCompute: false, rhi.QueueCopy: false, rhi.QueueBackgroundCopy: false,
			},
		},
		{
			name: "compute",
			list: func(d *rhi.Device) rhi.CommandList { return d.CreateComputeCommandList() },
			queues: map[rhi.QueueKind]bool{
				rhi.QueueDirect: true, rhi.QueueCompute: true, rhi.QueueCopy: false, rhi.QueueBackgroundCopy: false,
			},
		},
		{
			name: "copy",
			list: func(d *rhi.Device) rhi.CommandList { return d.CreateCopyCommandList() },
			queues: map[rhi.QueueKind]bool{
				rhi.QueueDirect: true, rhi.QueueCompute: true, rhi.QueueCopy: true, rhi.QueueBackgroundCopy: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDevice(t, rhi.DeviceDesc{})
			for kind, ok := range tt.queues {
				l := tt.list(d)
				closed(t, l)
				q := d.Queue(kind)
				fence, err := q.ExecuteCommandLists(l)
				if !ok {
					assert.ErrorIs(t, err, rhi.ErrQueueMismatch, "%s queue", kind)
					assert.ErrorIs(t, err, rhi.CodeInvalidArg)
					continue
				}
				require.NoError(t, err, "%s queue", kind)
				q.WaitForValue(fence)
				assert.True(t, q.IsComplete(fence))
			}
		})
	}
}

func TestExecuteMarksListsSubmitted(t *testing.T) {
	d, _ := newDevice(t, rhi.DeviceDesc{})
	a := closed(t, d.CreateCopyCommandList())
	b := closed(t, d.CreateCopyCommandList())

	q := d.Queue(rhi.QueueBackgroundCopy)
	fence, err := q.ExecuteCommandLists(a, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fence)
	assert.Equal(t, fence, q.LastSignaled())

	for _, cl := range []*rhi.CopyCommandList{a, b} {
		assert.Equal(t, rhi.ListSubmitted, cl.State())
		kind, f := cl.SubmittedFence()
		assert.Equal(t, rhi.QueueBackgroundCopy, kind)
		assert.Equal(t, fence, f)
	}
	q.WaitIdle()
	assert.Equal(t, uint64(2), q.CompletedValue())
}
