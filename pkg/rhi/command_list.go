package rhi

import (
	"fmt"
	"slices"
)

type listType uint8

const (
	listCopy listType = iota
	listCompute
	listGraphics
)

func (t listType) String() string {
	switch t {
	case listCompute:
		return "compute"
	case listGraphics:
		return "graphics"
	default:
		return "copy"
	}
}

// ListState is the lifecycle state of a command list.
type ListState uint8

const (
	ListRecording ListState = iota
	ListClosed
	ListSubmitted
)

func (s ListState) String() string {
	switch s {
	case ListRecording:
		return "recording"
	case ListClosed:
		return "closed"
	case ListSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("ListState(%d)", uint8(s))
	}
}

// CommandList is any of the three command list types.
type CommandList interface {
	State() ListState
	Err() error
	Close() error
	base() *CopyCommandList
}

// CopyCommandList records copies and barriers. It is not safe for
// concurrent use; record each list from one goroutine.
//
// Recording methods do not return errors. The first failure is kept and
// returned by Close, and later calls are ignored.
type CopyCommandList struct {
	dev      *Device
	typ      listType
	state    ListState
	cmds     []Command
	barriers []Barrier
	err      error
	fence    uint64
	queue    QueueKind
}

// ComputeCommandList adds dispatch, root bindings and queries.
type ComputeCommandList struct {
	CopyCommandList
}

// GraphicsCommandList adds input assembly, output merger and draws.
type GraphicsCommandList struct {
	ComputeCommandList
}

func (cl *CopyCommandList) base() *CopyCommandList { return cl }

// State returns the lifecycle state.
func (cl *CopyCommandList) State() ListState { return cl.state }

// Err returns the sticky recording error, if any.
func (cl *CopyCommandList) Err() error { return cl.err }

// Commands returns the commands recorded since the last Reset. The slice
// must not be modified.
func (cl *CopyCommandList) Commands() []Command { return cl.cmds }

// SubmittedFence returns the fence value of the last submission and the
// queue it went to.
func (cl *CopyCommandList) SubmittedFence() (QueueKind, uint64) { return cl.queue, cl.fence }

// Close flushes pending barriers and ends recording. It returns the first
// error recorded since the last Reset.
func (cl *CopyCommandList) Close() error {
	if cl.state != ListRecording {
		return wrapErr("Close", ErrListClosed)
	}
	cl.FlushBarriers()
	cl.state = ListClosed
	return cl.err
}

// Reset starts a new recording, dropping commands and pending barriers.
func (cl *CopyCommandList) Reset() {
	cl.cmds = nil
	cl.barriers = cl.barriers[:0]
	cl.err = nil
	cl.state = ListRecording
}

func (cl *CopyCommandList) fail(op string, err error) {
	if cl.err == nil {
		cl.err = wrapErr(op, err)
		cl.dev.log.Error("command list recording failed", "op", op, "err", err)
	}
}

// recording reports whether commands may be appended, recording a failure
// if not.
func (cl *CopyCommandList) recording(op string) bool {
	if cl.err != nil {
		return false
	}
	if cl.state != ListRecording {
		cl.fail(op, ErrListClosed)
		return false
	}
	return true
}

// record appends cmd after flushing pending barriers.
func (cl *CopyCommandList) record(cmd Command) {
	cl.FlushBarriers()
	cl.cmds = append(cl.cmds, cmd)
}

// setState appends a state-setting cmd; pending barriers stay deferred.
func (cl *CopyCommandList) setState(cmd Command) {
	cl.cmds = append(cl.cmds, cmd)
}

// DeferredBarrier queues barriers without emitting them. Enhanced barriers
// fail on devices without enhanced barrier support.
func (cl *CopyCommandList) DeferredBarrier(barriers ...Barrier) {
	if !cl.recording("DeferredBarrier") {
		return
	}
	for _, b := range barriers {
		if b.Enhanced() && !cl.dev.caps.EnhancedBarriers {
			cl.fail("DeferredBarrier", ErrEnhancedBarriersUnsupported)
			return
		}
	}
	cl.barriers = append(cl.barriers, barriers...)
}

// FlushBarriers emits all queued barriers as one batch.
func (cl *CopyCommandList) FlushBarriers() {
	if len(cl.barriers) == 0 || cl.err != nil {
		return
	}
	cl.cmds = append(cl.cmds, CmdBarrier{Barriers: slices.Clone(cl.barriers)})
	cl.barriers = cl.barriers[:0]
}

// PendingBarriers returns the number of queued, unflushed barriers.
func (cl *CopyCommandList) PendingBarriers() int { return len(cl.barriers) }

// CopyBufferRegion copies size bytes between buffers.
func (cl *CopyCommandList) CopyBufferRegion(dst Resource, dstOffset uint64, src Resource, srcOffset, size uint64) {
	if !cl.recording("CopyBufferRegion") {
		return
	}
	if dst.IsNull() || src.IsNull() {
		cl.fail("CopyBufferRegion", ErrInvalidHandle)
		return
	}
	cl.record(CmdCopyBufferRegion{Dst: dst, DstOffset: dstOffset, Src: src, SrcOffset: srcOffset, Size: size})
}

// CopyResource copies a whole resource of identical layout.
func (cl *CopyCommandList) CopyResource(dst, src Resource) {
	if !cl.recording("CopyResource") {
		return
	}
	if dst.IsNull() || src.IsNull() {
		cl.fail("CopyResource", ErrInvalidHandle)
		return
	}
	cl.record(CmdCopyResource{Dst: dst, Src: src})
}

// CopyTextureRegion copies a texel box from src to (dstX, dstY) in dst. A
// nil box copies the whole source.
func (cl *CopyCommandList) CopyTextureRegion(dst TextureCopyLocation, dstX, dstY uint32, src TextureCopyLocation, srcBox *TextureBox) {
	if !cl.recording("CopyTextureRegion") {
		return
	}
	if dst.Resource.IsNull() || src.Resource.IsNull() {
		cl.fail("CopyTextureRegion", ErrInvalidHandle)
		return
	}
	if srcBox != nil {
		box := *srcBox
		srcBox = &box
	}
	cl.record(CmdCopyTextureRegion{Dst: dst, DstX: dstX, DstY: dstY, Src: src, SrcBox: srcBox})
}

// SetComputeRootSignature binds the compute root signature.
func (cl *ComputeCommandList) SetComputeRootSignature(rs RootSignature) {
	if !cl.recording("SetComputeRootSignature") {
		return
	}
	cl.setState(CmdSetRootSignature{RootSignature: rs})
}

// SetPipeline binds a compute or graphics pipeline.
func (cl *ComputeCommandList) SetPipeline(p Pipeline) {
	if !cl.recording("SetPipeline") {
		return
	}
	if p.IsNull() {
		cl.fail("SetPipeline", ErrInvalidHandle)
		return
	}
	cl.setState(CmdSetPipeline{Pipeline: p})
}

func (cl *ComputeCommandList) SetComputeRoot32BitConstants(param uint32, values []uint32, destOffset uint32) {
	if !cl.recording("SetComputeRoot32BitConstants") {
		return
	}
	cl.setState(CmdSetRoot32BitConstants{Parameter: param, Values: slices.Clone(values), DestOffset: destOffset})
}

func (cl *ComputeCommandList) SetComputeRootShaderView(param uint32, v ShaderView) {
	if !cl.recording("SetComputeRootShaderView") {
		return
	}
	cl.setState(CmdSetRootShaderView{Parameter: param, View: v})
}

// Dispatch runs x*y*z thread groups.
func (cl *ComputeCommandList) Dispatch(x, y, z uint32) {
	if !cl.recording("Dispatch") {
		return
	}
	cl.record(CmdDispatch{X: x, Y: y, Z: z})
}

// EndQuery writes query index of heap.
func (cl *ComputeCommandList) EndQuery(heap QueryHeap, typ QueryType, index uint32) {
	if !cl.recording("EndQuery") {
		return
	}
	if heap.IsNull() {
		cl.fail("EndQuery", ErrInvalidHandle)
		return
	}
	cl.record(CmdEndQuery{Heap: heap, Type: typ, Index: index})
}

// ResolveQueryData copies count query results as uint64 into dst.
func (cl *ComputeCommandList) ResolveQueryData(heap QueryHeap, typ QueryType, start, count uint32, dst Resource, dstOffset uint64) {
	if !cl.recording("ResolveQueryData") {
		return
	}
	if heap.IsNull() || dst.IsNull() {
		cl.fail("ResolveQueryData", ErrInvalidHandle)
		return
	}
	cl.record(CmdResolveQueryData{Heap: heap, Type: typ, Start: start, Count: count, Dst: dst, DstOffset: dstOffset})
}

func (cl *GraphicsCommandList) SetGraphicsRootSignature(rs RootSignature) {
	if !cl.recording("SetGraphicsRootSignature") {
		return
	}
	cl.setState(CmdSetRootSignature{Graphics: true, RootSignature: rs})
}

func (cl *GraphicsCommandList) SetGraphicsRoot32BitConstants(param uint32, values []uint32, destOffset uint32) {
	if !cl.recording("SetGraphicsRoot32BitConstants") {
		return
	}
	cl.setState(CmdSetRoot32BitConstants{Graphics: true, Parameter: param, Values: slices.Clone(values), DestOffset: destOffset})
}

func (cl *GraphicsCommandList) SetGraphicsRootShaderView(param uint32, v ShaderView) {
	if !cl.recording("SetGraphicsRootShaderView") {
		return
	}
	cl.setState(CmdSetRootShaderView{Graphics: true, Parameter: param, View: v})
}

func (cl *GraphicsCommandList) SetPrimitiveTopology(t PrimitiveTopology) {
	if !cl.recording("SetPrimitiveTopology") {
		return
	}
	cl.setState(CmdSetPrimitiveTopology{Topology: t})
}

func (cl *GraphicsCommandList) SetVertexBuffers(startSlot uint32, views ...VertexBufferView) {
	if !cl.recording("SetVertexBuffers") {
		return
	}
	cl.setState(CmdSetVertexBuffers{StartSlot: startSlot, Views: slices.Clone(views)})
}

func (cl *GraphicsCommandList) SetIndexBuffer(view IndexBufferView) {
	if !cl.recording("SetIndexBuffer") {
		return
	}
	cl.setState(CmdSetIndexBuffer{View: view})
}

// SetRenderTargets binds color targets and an optional depth target
// (NullDepthStencilView for none).
func (cl *GraphicsCommandList) SetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView) {
	if !cl.recording("SetRenderTargets") {
		return
	}
	cl.setState(CmdSetRenderTargets{RTVs: slices.Clone(rtvs), DSV: dsv})
}

func (cl *GraphicsCommandList) ClearRenderTarget(rtv RenderTargetView, color [4]float32) {
	if !cl.recording("ClearRenderTarget") {
		return
	}
	if rtv.IsNull() {
		cl.fail("ClearRenderTarget", ErrInvalidHandle)
		return
	}
	cl.record(CmdClearRenderTarget{RTV: rtv, Color: color})
}

func (cl *GraphicsCommandList) ClearDepthStencil(dsv DepthStencilView, depth float32, stencil uint8) {
	if !cl.recording("ClearDepthStencil") {
		return
	}
	if dsv.IsNull() {
		cl.fail("ClearDepthStencil", ErrInvalidHandle)
		return
	}
	cl.record(CmdClearDepthStencil{DSV: dsv, Depth: depth, Stencil: stencil})
}

func (cl *GraphicsCommandList) SetViewports(viewports ...Viewport) {
	if !cl.recording("SetViewports") {
		return
	}
	cl.setState(CmdSetViewports{Viewports: slices.Clone(viewports)})
}

func (cl *GraphicsCommandList) SetScissors(rects ...Rect) {
	if !cl.recording("SetScissors") {
		return
	}
	cl.setState(CmdSetScissors{Rects: slices.Clone(rects)})
}

// Draw draws non-indexed, instanced primitives.
func (cl *GraphicsCommandList) Draw(vertexCount, instanceCount, startVertex, startInstance uint32) {
	if !cl.recording("Draw") {
		return
	}
	cl.record(CmdDraw{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		StartVertex:   startVertex,
		StartInstance: startInstance,
	})
}

// DrawIndexed draws indexed, instanced primitives.
func (cl *GraphicsCommandList) DrawIndexed(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if !cl.recording("DrawIndexed") {
		return
	}
	cl.record(CmdDrawIndexed{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		StartIndex:    startIndex,
		BaseVertex:    baseVertex,
		StartInstance: startInstance,
	})
}
