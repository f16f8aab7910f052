package rhi

import "github.com/charmbracelet/log"

// Backend is the driver a Device forwards to. Handle values are issued by
// the backend; the Device owns their lifetime rules.
type Backend interface {
	Name() string
	// Open initializes the adapter. It is called once by NewDevice.
	Open(desc DeviceDesc, logger *log.Logger) (Capabilities, error)
	Close() error

	CreateBuffer(desc BufferDesc) (Resource, error)
	CreateTexture(desc TextureDesc) (Resource, error)
	ReleaseResource(r Resource) error
	ResourceInfo(r Resource) (ResourceInfo, error)
	// Map returns the CPU view of an upload or readback buffer.
	Map(r Resource) ([]byte, error)

	CreateShaderView(kind ViewKind, r Resource, desc ShaderViewDesc) (ShaderView, error)
	ReleaseShaderView(v ShaderView) error
	CreateRenderTargetView(r Resource, desc RenderTargetViewDesc) (RenderTargetView, error)
	ReleaseRenderTargetView(v RenderTargetView) error
	CreateDepthStencilView(r Resource, desc DepthStencilViewDesc) (DepthStencilView, error)
	ReleaseDepthStencilView(v DepthStencilView) error
	CreateSampler(desc SamplerDesc) (Sampler, error)
	ReleaseSampler(s Sampler) error
	CreateRootSignature(desc RootSignatureDesc) (RootSignature, error)
	ReleaseRootSignature(rs RootSignature) error
	CreateComputePipeline(desc ComputePipelineDesc) (Pipeline, error)
	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Pipeline, error)
	ReleasePipeline(p Pipeline) error
	CreateQueryHeap(desc QueryHeapDesc) (QueryHeap, error)
	ReleaseQueryHeap(h QueryHeap) error

	// CreateSwapChain returns the chain and its back buffers.
	CreateSwapChain(desc SwapChainDesc) (SwapChain, []Resource, error)
	ResizeSwapChain(sc SwapChain, width, height uint32) ([]Resource, error)
	ReleaseSwapChain(sc SwapChain) error

	Queue(kind QueueKind) (BackendQueue, error)
}

// BackendQueue executes submitted command streams in order and signals a
// monotonically increasing fence.
type BackendQueue interface {
	// Submit queues lists for execution followed by a fence signal.
	Submit(lists [][]Command, signal uint64) error
	// Signal queues a fence signal behind all submitted work.
	Signal(value uint64)
	// Wait makes the queue stall until other has completed value.
	Wait(other BackendQueue, value uint64)
	// Completed returns the last fence value the queue reached.
	Completed() uint64
	// WaitCompleted blocks the caller until the fence reaches value.
	WaitCompleted(value uint64)
}
