package rhi

// Format is a texel or index format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8UnormSRGB
	FormatB8G8R8A8Unorm
	FormatR16Uint
	FormatR32Uint
	FormatR32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
	FormatD32Float
)

// Size returns the bytes per element, or 0 for FormatUnknown.
func (f Format) Size() uint32 {
	switch f {
	case FormatR16Uint:
		return 2
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8UnormSRGB, FormatB8G8R8A8Unorm,
		FormatR32Uint, FormatR32Float, FormatD32Float:
		return 4
	case FormatR32G32B32Float:
		return 12
	case FormatR32G32B32A32Float:
		return 16
	default:
		return 0
	}
}

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatD32Float
}

// ResourceState is the legacy per-resource usage state.
type ResourceState uint32

const (
	StateCommon                  ResourceState = 0
	StateVertexAndConstantBuffer ResourceState = 1 << 0
	StateIndexBuffer             ResourceState = 1 << 1
	StateRenderTarget            ResourceState = 1 << 2
	StateUnorderedAccess         ResourceState = 1 << 3
	StateDepthWrite              ResourceState = 1 << 4
	StateDepthRead               ResourceState = 1 << 5
	StateNonPixelShaderResource  ResourceState = 1 << 6
	StatePixelShaderResource     ResourceState = 1 << 7
	StateIndirectArgument        ResourceState = 1 << 9
	StateCopyDest                ResourceState = 1 << 10
	StateCopySource              ResourceState = 1 << 11
	StateResolveDest             ResourceState = 1 << 12
	StateResolveSource           ResourceState = 1 << 13
	StatePresent                 ResourceState = 0
	StateAllShaderResource       ResourceState = StateNonPixelShaderResource | StatePixelShaderResource
	StateGenericRead             ResourceState = StateVertexAndConstantBuffer | StateIndexBuffer | StateAllShaderResource | StateIndirectArgument | StateCopySource
)

// HeapType selects where a resource lives.
type HeapType uint8

const (
	HeapDefault HeapType = iota
	// HeapUpload is CPU-writable and GPU-readable. Buffers on it are mapped.
	HeapUpload
	// HeapReadback is GPU-writable and CPU-readable. Buffers on it are mapped.
	HeapReadback
)

// Dimension distinguishes buffers from textures.
type Dimension uint8

const (
	DimensionBuffer Dimension = iota
	DimensionTexture2D
)

// BufferDesc describes a linear buffer.
type BufferDesc struct {
	Size                 uint64
	Heap                 HeapType
	AllowUnorderedAccess bool
	InitialState         ResourceState
	Name                 string
}

// ClearValue is the optimized clear value of a render target or depth
// buffer.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint8
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Width, Height        uint32
	ArraySize            uint16
	MipLevels            uint16
	Format               Format
	AllowRenderTarget    bool
	AllowDepthStencil    bool
	AllowUnorderedAccess bool
	InitialState         ResourceState
	ClearValue           *ClearValue
	Name                 string
}

// ResourceInfo is what a backend reports about a live resource.
type ResourceInfo struct {
	Dimension Dimension
	Heap      HeapType
	Size      uint64
	Width     uint32
	Height    uint32
	Format    Format
	// RowPitch is the byte stride between texture rows.
	RowPitch uint32
}

// ViewKind tells which shader view a ShaderView slot holds.
type ViewKind uint8

const (
	ViewShaderResource ViewKind = iota
	ViewUnorderedAccess
	ViewConstantBuffer
)

// ShaderViewDesc describes a buffer or texture view for shaders. Buffer
// views use FirstElement, NumElements and StructureByteStride; constant
// buffer views use SizeInBytes.
type ShaderViewDesc struct {
	Format              Format
	FirstElement        uint64
	NumElements         uint32
	StructureByteStride uint32
	SizeInBytes         uint32
	MipSlice            uint32
}

// RenderTargetViewDesc describes a render target view.
type RenderTargetViewDesc struct {
	Format   Format
	MipSlice uint32
}

// DepthStencilViewDesc describes a depth stencil view.
type DepthStencilViewDesc struct {
	Format   Format
	MipSlice uint32
	ReadOnly bool
}

// Filter selects sampler filtering.
type Filter uint8

const (
	FilterPoint Filter = iota
	FilterLinear
	FilterAnisotropic
)

// AddressMode selects out-of-range texture coordinate handling.
type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressClamp
	AddressMirror
	AddressBorder
)

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	Filter                       Filter
	AddressU, AddressV, AddressW AddressMode
	MaxAnisotropy                uint32
	MinLOD, MaxLOD               float32
}

// RootParameterKind is the kind of one root signature slot.
type RootParameterKind uint8

const (
	RootConstants RootParameterKind = iota
	RootConstantBufferView
	RootShaderResourceView
	RootUnorderedAccessView
	RootDescriptorTable
)

// RootParameter is one slot of a root signature.
type RootParameter struct {
	Kind           RootParameterKind
	ShaderRegister uint32
	Num32BitValues uint32
}

// RootSignatureDesc describes a root signature.
type RootSignatureDesc struct {
	Parameters []RootParameter
	Name       string
}

// PrimitiveTopology is the input assembler topology.
type PrimitiveTopology uint8

const (
	TopologyUndefined PrimitiveTopology = iota
	TopologyPointList
	TopologyLineList
	TopologyTriangleList
	TopologyTriangleStrip
)

// InputElement is one vertex attribute.
type InputElement struct {
	Semantic string
	Format   Format
	Slot     uint32
	Offset   uint32
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	RootSignature RootSignature
	CS            []byte
	Name          string
}

// GraphicsPipelineDesc describes a graphics pipeline.
type GraphicsPipelineDesc struct {
	RootSignature RootSignature
	VS, PS        []byte
	InputLayout   []InputElement
	Topology      PrimitiveTopology
	RTVFormats    []Format
	DSVFormat     Format
	DepthEnable   bool
	CullBackFaces bool
	Name          string
}

// QueryType selects what a query heap records.
type QueryType uint8

const (
	QueryTimestamp QueryType = iota
	QueryOcclusion
	QueryPipelineStatistics
)

// QueryHeapDesc describes a query heap.
type QueryHeapDesc struct {
	Type  QueryType
	Count uint32
}

// Viewport maps NDC to render target pixels.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle in pixels, right and bottom exclusive.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// VertexBufferView binds a range of a buffer as vertex data.
type VertexBufferView struct {
	Resource Resource
	Offset   uint64
	Size     uint32
	Stride   uint32
}

// IndexBufferView binds a range of a buffer as index data.
type IndexBufferView struct {
	Resource Resource
	Offset   uint64
	Size     uint32
	Format   Format
}

// TextureBox is a texel region, right/bottom/back exclusive.
type TextureBox struct {
	Left, Top, Front    uint32
	Right, Bottom, Back uint32
}

// TextureCopyLocation addresses one subresource of a texture, or a placed
// footprint inside a buffer when Resource is a buffer.
type TextureCopyLocation struct {
	Resource    Resource
	Subresource uint32
	// Footprint is used when Resource is a buffer.
	Footprint Footprint
}

// Footprint describes a texture image laid out in a buffer.
type Footprint struct {
	Offset   uint64
	Format   Format
	Width    uint32
	Height   uint32
	RowPitch uint32
}

// GPUPreference picks an adapter.
type GPUPreference uint8

const (
	GPUUnspecified GPUPreference = iota
	GPUMinimumPower
	GPUHighPerformance
)

// DeviceDesc configures a Device.
type DeviceDesc struct {
	GPUPreference            GPUPreference `toml:"gpu_preference"`
	EnableDebugLayer         bool          `toml:"enable_debug_layer"`
	EnableGPUBasedValidation bool          `toml:"enable_gpu_based_validation"`
	ForceLegacyBarriers      bool          `toml:"force_legacy_barriers"`
	ForceNoShaderModel66     bool          `toml:"force_no_shader_model_6_6"`
	ForceNoOpenExistingHeap  bool          `toml:"force_no_open_existing_heap"`
}

// Capabilities are the optional features a device exposes.
type Capabilities struct {
	EnhancedBarriers bool
	ShaderModel66    bool
	OpenExistingHeap bool
}

// SwapChainDesc configures a swap chain.
type SwapChainDesc struct {
	// Window is the native window handle; the software backend ignores it.
	Window               uintptr `toml:"-"`
	Width                uint32  `toml:"width"`
	Height               uint32  `toml:"height"`
	Format               Format  `toml:"-"`
	FormatRTV            Format  `toml:"-"`
	BufferCount          uint32  `toml:"buffer_count"`
	MaximumFrameLatency  uint32  `toml:"maximum_frame_latency"`
	FrameLatencyWaitable bool    `toml:"frame_latency_waitable"`
	AllowTearing         bool    `toml:"allow_tearing"`
}
