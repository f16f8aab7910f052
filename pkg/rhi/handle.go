package rhi

// Handles are opaque 32-bit identifiers issued by a Device. Each category
// is its own type so a view cannot be passed where a resource is expected,
// and each has a null sentinel that no live object ever uses. The null
// handle is the zero value, so a zero Unique owns nothing.

// Handle is implemented by every handle type. It lets Unique recognise the
// null value of its category.
type Handle[H any] interface {
	comparable
	Null() H
}

const nullHandle uint32 = 0

// Resource is a buffer or texture.
type Resource uint32

// NullResource is the null resource handle.
const NullResource Resource = Resource(nullHandle)

func (Resource) Null() Resource { return NullResource }
func (h Resource) IsNull() bool { return h == NullResource }

// ShaderView is a CBV, SRV or UAV descriptor heap slot.
type ShaderView uint32

// NullShaderView is the null shader view handle.
const NullShaderView ShaderView = ShaderView(nullHandle)

func (ShaderView) Null() ShaderView { return NullShaderView }
func (h ShaderView) IsNull() bool   { return h == NullShaderView }

// RenderTargetView is an RTV descriptor heap slot.
type RenderTargetView uint32

// NullRenderTargetView is the null render target view handle.
const NullRenderTargetView RenderTargetView = RenderTargetView(nullHandle)

func (RenderTargetView) Null() RenderTargetView { return NullRenderTargetView }
func (h RenderTargetView) IsNull() bool         { return h == NullRenderTargetView }

// DepthStencilView is a DSV descriptor heap slot.
type DepthStencilView uint32

// NullDepthStencilView is the null depth stencil view handle.
const NullDepthStencilView DepthStencilView = DepthStencilView(nullHandle)

func (DepthStencilView) Null() DepthStencilView { return NullDepthStencilView }
func (h DepthStencilView) IsNull() bool         { return h == NullDepthStencilView }

// Sampler is a sampler heap slot.
type Sampler uint32

// NullSampler is the null sampler handle.
const NullSampler Sampler = Sampler(nullHandle)

func (Sampler) Null() Sampler  { return NullSampler }
func (h Sampler) IsNull() bool { return h == NullSampler }

// RootSignature describes the binding layout of a pipeline.
type RootSignature uint32

// NullRootSignature is the null root signature handle.
const NullRootSignature RootSignature = RootSignature(nullHandle)

func (RootSignature) Null() RootSignature { return NullRootSignature }
func (h RootSignature) IsNull() bool      { return h == NullRootSignature }

// Pipeline is a compute or graphics pipeline state object.
type Pipeline uint32

// NullPipeline is the null pipeline handle.
const NullPipeline Pipeline = Pipeline(nullHandle)

func (Pipeline) Null() Pipeline { return NullPipeline }
func (h Pipeline) IsNull() bool { return h == NullPipeline }

// QueryHeap holds timestamp or occlusion queries.
type QueryHeap uint32

// NullQueryHeap is the null query heap handle.
const NullQueryHeap QueryHeap = QueryHeap(nullHandle)

func (QueryHeap) Null() QueryHeap { return NullQueryHeap }
func (h QueryHeap) IsNull() bool  { return h == NullQueryHeap }

// SwapChain is a presentable chain of back buffers.
type SwapChain uint32

// NullSwapChain is the null swap chain handle.
const NullSwapChain SwapChain = SwapChain(nullHandle)

func (SwapChain) Null() SwapChain { return NullSwapChain }
func (h SwapChain) IsNull() bool  { return h == NullSwapChain }
