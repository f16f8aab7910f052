package rhi

// Command is one recorded operation. Backends type-switch over the
// concrete Cmd types below when executing a submitted list.
type Command interface {
	command()
}

// CmdBarrier is one flushed batch of deferred barriers.
type CmdBarrier struct {
	Barriers []Barrier
}

type CmdCopyBufferRegion struct {
	Dst       Resource
	DstOffset uint64
	Src       Resource
	SrcOffset uint64
	Size      uint64
}

type CmdCopyResource struct {
	Dst, Src Resource
}

type CmdCopyTextureRegion struct {
	Dst        TextureCopyLocation
	DstX, DstY uint32
	Src        TextureCopyLocation
	SrcBox     *TextureBox
}

// CmdSetRootSignature binds a root signature for compute or graphics.
type CmdSetRootSignature struct {
	Graphics      bool
	RootSignature RootSignature
}

type CmdSetPipeline struct {
	Pipeline Pipeline
}

type CmdSetRoot32BitConstants struct {
	Graphics   bool
	Parameter  uint32
	Values     []uint32
	DestOffset uint32
}

type CmdSetRootShaderView struct {
	Graphics  bool
	Parameter uint32
	View      ShaderView
}

type CmdDispatch struct {
	X, Y, Z uint32
}

type CmdEndQuery struct {
	Heap  QueryHeap
	Type  QueryType
	Index uint32
}

type CmdResolveQueryData struct {
	Heap      QueryHeap
	Type      QueryType
	Start     uint32
	Count     uint32
	Dst       Resource
	DstOffset uint64
}

type CmdSetPrimitiveTopology struct {
	Topology PrimitiveTopology
}

type CmdSetVertexBuffers struct {
	StartSlot uint32
	Views     []VertexBufferView
}

type CmdSetIndexBuffer struct {
	View IndexBufferView
}

type CmdSetRenderTargets struct {
	RTVs []RenderTargetView
	DSV  DepthStencilView
}

type CmdClearRenderTarget struct {
	RTV   RenderTargetView
	Color [4]float32
}

type CmdClearDepthStencil struct {
	DSV     DepthStencilView
	Depth   float32
	Stencil uint8
}

type CmdSetViewports struct {
	Viewports []Viewport
}

type CmdSetScissors struct {
	Rects []Rect
}

type CmdDraw struct {
	VertexCount, InstanceCount uint32
	StartVertex, StartInstance uint32
}

type CmdDrawIndexed struct {
	IndexCount, InstanceCount uint32
	StartIndex                uint32
	BaseVertex                int32
	StartInstance             uint32
}

// CmdPresent is queued by Device.Present behind the frame's work.
type CmdPresent struct {
	SwapChain SwapChain
	Buffer    uint32
}

func (CmdBarrier) command()               {}
func (CmdCopyBufferRegion) command()      {}
func (CmdCopyResource) command()          {}
func (CmdCopyTextureRegion) command()     {}
func (CmdSetRootSignature) command()      {}
func (CmdSetPipeline) command()           {}
func (CmdSetRoot32BitConstants) command() {}
func (CmdSetRootShaderView) command()     {}
func (CmdDispatch) command()              {}
func (CmdEndQuery) command()              {}
func (CmdResolveQueryData) command()      {}
func (CmdSetPrimitiveTopology) command()  {}
func (CmdSetVertexBuffers) command()      {}
func (CmdSetIndexBuffer) command()        {}
func (CmdSetRenderTargets) command()      {}
func (CmdClearRenderTarget) command()     {}
func (CmdClearDepthStencil) command()     {}
func (CmdSetViewports) command()          {}
func (CmdSetScissors) command()           {}
func (CmdDraw) command()                  {}
func (CmdDrawIndexed) command()           {}
func (CmdPresent) command()               {}
