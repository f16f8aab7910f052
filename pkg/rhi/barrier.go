package rhi

// Barrier is a resource barrier queued with DeferredBarrier. Legacy
// barriers are TransitionBarrier, UAVBarrier and AliasingBarrier; enhanced
// barriers are BufferBarrier, TextureBarrier and GlobalBarrier.
type Barrier interface {
	// Enhanced reports whether the barrier needs enhanced barrier support.
	Enhanced() bool
}

// AllSubresources targets every subresource of a resource.
const AllSubresources = ^uint32(0)

// TransitionBarrier moves a resource between legacy states.
type TransitionBarrier struct {
	Resource    Resource
	Subresource uint32
	Before      ResourceState
	After       ResourceState
}

// Transition is shorthand for a whole-resource TransitionBarrier.
func Transition(r Resource, before, after ResourceState) TransitionBarrier {
	return TransitionBarrier{Resource: r, Subresource: AllSubresources, Before: before, After: after}
}

// UAVBarrier orders unordered access to a resource. NullResource orders
// all UAV access.
type UAVBarrier struct {
	Resource Resource
}

// AliasingBarrier switches which of two placed resources owns memory.
type AliasingBarrier struct {
	Before Resource
	After  Resource
}

func (TransitionBarrier) Enhanced() bool { return false }
func (UAVBarrier) Enhanced() bool        { return false }
func (AliasingBarrier) Enhanced() bool   { return false }

// BarrierSync is a pipeline synchronization scope.
type BarrierSync uint32

const (
	SyncNone           BarrierSync = 0
	SyncAll            BarrierSync = 1 << 0
	SyncDraw           BarrierSync = 1 << 1
	SyncIndexInput     BarrierSync = 1 << 2
	SyncVertexShading  BarrierSync = 1 << 3
	SyncPixelShading   BarrierSync = 1 << 4
	SyncDepthStencil   BarrierSync = 1 << 5
	SyncRenderTarget   BarrierSync = 1 << 6
	SyncComputeShading BarrierSync = 1 << 7
	SyncCopy           BarrierSync = 1 << 8
)

// BarrierAccess is a memory access type.
type BarrierAccess uint32

const (
	AccessCommon            BarrierAccess = 0
	AccessVertexBuffer      BarrierAccess = 1 << 0
	AccessConstantBuffer    BarrierAccess = 1 << 1
	AccessIndexBuffer       BarrierAccess = 1 << 2
	AccessRenderTarget      BarrierAccess = 1 << 3
	AccessUnorderedAccess   BarrierAccess = 1 << 4
	AccessDepthStencilWrite BarrierAccess = 1 << 5
	AccessDepthStencilRead  BarrierAccess = 1 << 6
	AccessShaderResource    BarrierAccess = 1 << 7
	AccessCopyDest          BarrierAccess = 1 << 10
	AccessCopySource        BarrierAccess = 1 << 11
	AccessNoAccess          BarrierAccess = 1 << 31
)

// BarrierLayout is a texture layout.
type BarrierLayout uint32

const (
	LayoutUndefined BarrierLayout = iota
	LayoutCommon
	LayoutPresent
	LayoutRenderTarget
	LayoutUnorderedAccess
	LayoutDepthStencilWrite
	LayoutDepthStencilRead
	LayoutShaderResource
	LayoutCopySource
	LayoutCopyDest
)

// BufferBarrier is an enhanced barrier on a buffer.
type BufferBarrier struct {
	Resource     Resource
	SyncBefore   BarrierSync
	SyncAfter    BarrierSync
	AccessBefore BarrierAccess
	AccessAfter  BarrierAccess
}

// TextureBarrier is an enhanced barrier on a texture, optionally changing
// its layout.
type TextureBarrier struct {
	Resource     Resource
	Subresource  uint32
	SyncBefore   BarrierSync
	SyncAfter    BarrierSync
	AccessBefore BarrierAccess
	AccessAfter  BarrierAccess
	LayoutBefore BarrierLayout
	LayoutAfter  BarrierLayout
	Discard      bool
}

// GlobalBarrier is an enhanced barrier on all memory.
type GlobalBarrier struct {
	SyncBefore   BarrierSync
	SyncAfter    BarrierSync
	AccessBefore BarrierAccess
	AccessAfter  BarrierAccess
}

func (BufferBarrier) Enhanced() bool  { return true }
func (TextureBarrier) Enhanced() bool { return true }
func (GlobalBarrier) Enhanced() bool  { return true }
