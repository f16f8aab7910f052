// Package soft is a CPU implementation of rhi.Backend. Every queue runs on
// its own goroutine, resources live in ordinary byte slices and draws go
// through a small fixed-function rasterizer:
//
//   - vertex buffer slot 0 holds float32 x, y, z positions;
//   - graphics root parameter 0 holds a column-major clip-space matrix as
//     16 float32 bit patterns, optionally followed by an RGBA color;
//   - triangle lists are filled and line lists are drawn as lines into
//     R8G8B8A8 or B8G8R8A8 targets with an optional D32 depth test.
//
// Shader bytecode is stored but never executed. Dispatch only counts.
package soft

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/taigrr/culler/pkg/logging"
	"github.com/taigrr/culler/pkg/rhi"
)

type resource struct {
	info rhi.ResourceInfo
	data []byte
	name string
	// state is the legacy state the debug layer tracks, guarded by
	// Backend.stateMu.
	state     rhi.ResourceState
	untracked bool
}

type view struct {
	handle rhi.Resource
	res    *resource
	kind   rhi.ViewKind
	format rhi.Format
}

type rootSignature struct {
	desc rhi.RootSignatureDesc
}

type pipeline struct {
	graphics bool
	compute  rhi.ComputePipelineDesc
	gfx      rhi.GraphicsPipelineDesc
}

type queryHeap struct {
	desc    rhi.QueryHeapDesc
	results []uint64
}

type swapChain struct {
	desc    rhi.SwapChainDesc
	buffers []rhi.Resource
}

// Option configures a Backend.
type Option func(*Backend)

// WithCapabilities overrides the features the backend reports.
func WithCapabilities(c rhi.Capabilities) Option {
	return func(b *Backend) {
		b.caps = c
	}
}

// Backend implements rhi.Backend in system memory.
type Backend struct {
	caps rhi.Capabilities
	log  *log.Logger
	desc rhi.DeviceDesc

	mu          sync.RWMutex
	resources   table[*resource]
	shaderViews table[*view]
	rtvs        table[*view]
	dsvs        table[*view]
	samplers    table[rhi.SamplerDesc]
	rootSigs    table[*rootSignature]
	pipelines   table[*pipeline]
	queryHeaps  table[*queryHeap]
	swapChains  table[*swapChain]

	stateMu sync.Mutex
	queues  [4]*Queue
	wg      sync.WaitGroup

	debug debugLayer
	stats counters
}

// New returns an unopened backend. rhi.NewDevice opens it.
func New(opts ...Option) *Backend {
	b := &Backend{
		caps: rhi.Capabilities{
			EnhancedBarriers: true,
			ShaderModel66:    true,
			OpenExistingHeap: true,
		},
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ rhi.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "soft" }

func (b *Backend) Open(desc rhi.DeviceDesc, logger *log.Logger) (rhi.Capabilities, error) {
	if b.queues[0] != nil {
		return rhi.Capabilities{}, fmt.Errorf("backend already open: %w", rhi.CodeInvalidArg)
	}
	b.desc = desc
	if logger != nil {
		b.log = logger.WithPrefix("soft")
	}
	b.debug.enabled = desc.EnableDebugLayer
	b.debug.log = b.log
	for i := range b.queues {
		b.queues[i] = newQueue(b, rhi.QueueKind(i))
		b.wg.Add(1)
		go b.queues[i].run(&b.wg)
	}
	return b.caps, nil
}

// Close stops the queue goroutines after they drain.
func (b *Backend) Close() error {
	for _, q := range b.queues {
		if q != nil {
			q.close()
		}
	}
	b.wg.Wait()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if n := b.resources.len(); n > 0 {
		b.log.Warn("resources leaked at close", "count", n)
	}
	return nil
}

func (b *Backend) Queue(kind rhi.QueueKind) (rhi.BackendQueue, error) {
	if int(kind) >= len(b.queues) || b.queues[kind] == nil {
		return nil, fmt.Errorf("queue %v: %w", kind, rhi.CodeInvalidArg)
	}
	return b.queues[kind], nil
}

// PauseQueue stops kind's goroutine from starting new work until
// ResumeQueue. Tests use it to hold fences back.
func (b *Backend) PauseQueue(kind rhi.QueueKind) {
	b.queues[kind].setPaused(true)
}

// ResumeQueue undoes PauseQueue.
func (b *Backend) ResumeQueue(kind rhi.QueueKind) {
	b.queues[kind].setPaused(false)
}

func invalid(what string, h uint32) error {
	return fmt.Errorf("%s %d: %w", what, h, rhi.ErrInvalidHandle)
}

func (b *Backend) CreateBuffer(desc rhi.BufferDesc) (rhi.Resource, error) {
	if desc.Size == 0 {
		return rhi.NullResource, fmt.Errorf("zero sized buffer: %w", rhi.CodeInvalidArg)
	}
	state := desc.InitialState
	switch desc.Heap {
	case rhi.HeapUpload:
		state = rhi.StateGenericRead
	case rhi.HeapReadback:
		state = rhi.StateCopyDest
	}
	r := &resource{
		info:  rhi.ResourceInfo{Dimension: rhi.DimensionBuffer, Heap: desc.Heap, Size: desc.Size},
		data:  make([]byte, desc.Size),
		name:  desc.Name,
		state: state,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.Resource(b.resources.add(r)), nil
}

func (b *Backend) CreateTexture(desc rhi.TextureDesc) (rhi.Resource, error) {
	size := desc.Format.Size()
	if desc.Width == 0 || desc.Height == 0 || size == 0 {
		return rhi.NullResource, fmt.Errorf("texture %dx%d format %d: %w", desc.Width, desc.Height, desc.Format, rhi.CodeInvalidArg)
	}
	if desc.AllowDepthStencil && !desc.Format.IsDepth() {
		return rhi.NullResource, fmt.Errorf("depth stencil texture needs a depth format: %w", rhi.CodeInvalidArg)
	}
	pitch := desc.Width * size
	r := &resource{
		info: rhi.ResourceInfo{
			Dimension: rhi.DimensionTexture2D,
			Heap:      rhi.HeapDefault,
			Size:      uint64(pitch) * uint64(desc.Height),
			Width:     desc.Width,
			Height:    desc.Height,
			Format:    desc.Format,
			RowPitch:  pitch,
		},
		name:  desc.Name,
		state: desc.InitialState,
	}
	r.data = make([]byte, r.info.Size)
	if cv := desc.ClearValue; cv != nil {
		if desc.Format.IsDepth() {
			fillDepth(r, cv.Depth)
		} else {
			fillColor(r, cv.Color)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.Resource(b.resources.add(r)), nil
}

func (b *Backend) ReleaseResource(h rhi.Resource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.resources.remove(uint32(h)) {
		return invalid("resource", uint32(h))
	}
	return nil
}

func (b *Backend) resource(h rhi.Resource) (*resource, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.resources.get(uint32(h))
	if !ok {
		return nil, invalid("resource", uint32(h))
	}
	return r, nil
}

func (b *Backend) ResourceInfo(h rhi.Resource) (rhi.ResourceInfo, error) {
	r, err := b.resource(h)
	if err != nil {
		return rhi.ResourceInfo{}, err
	}
	return r.info, nil
}

func (b *Backend) Map(h rhi.Resource) ([]byte, error) {
	r, err := b.resource(h)
	if err != nil {
		return nil, err
	}
	if r.info.Dimension != rhi.DimensionBuffer || r.info.Heap == rhi.HeapDefault {
		return nil, fmt.Errorf("map %q: only upload and readback buffers are mappable: %w", r.name, rhi.CodeInvalidArg)
	}
	return r.data, nil
}

func (b *Backend) newView(h rhi.Resource, kind rhi.ViewKind, format rhi.Format) (*view, error) {
	v := &view{handle: h, kind: kind, format: format}
	if h.IsNull() {
		return v, nil
	}
	r, err := b.resource(h)
	if err != nil {
		return nil, err
	}
	v.res = r
	if v.format == rhi.FormatUnknown {
		v.format = r.info.Format
	}
	return v, nil
}

func (b *Backend) CreateShaderView(kind rhi.ViewKind, h rhi.Resource, desc rhi.ShaderViewDesc) (rhi.ShaderView, error) {
	v, err := b.newView(h, kind, desc.Format)
	if err != nil {
		return rhi.NullShaderView, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.ShaderView(b.shaderViews.add(v)), nil
}

func (b *Backend) ReleaseShaderView(h rhi.ShaderView) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.shaderViews.remove(uint32(h)) {
		return invalid("shader view", uint32(h))
	}
	return nil
}

func (b *Backend) CreateRenderTargetView(h rhi.Resource, desc rhi.RenderTargetViewDesc) (rhi.RenderTargetView, error) {
	v, err := b.newView(h, rhi.ViewShaderResource, desc.Format)
	if err != nil {
		return rhi.NullRenderTargetView, err
	}
	if v.res == nil {
		return rhi.NullRenderTargetView, invalid("resource", uint32(h))
	}
	if v.res.info.Dimension != rhi.DimensionTexture2D || v.format.IsDepth() {
		return rhi.NullRenderTargetView, fmt.Errorf("render target view of %q: %w", v.res.name, rhi.CodeInvalidArg)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.RenderTargetView(b.rtvs.add(v)), nil
}

func (b *Backend) ReleaseRenderTargetView(h rhi.RenderTargetView) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rtvs.remove(uint32(h)) {
		return invalid("render target view", uint32(h))
	}
	return nil
}

func (b *Backend) CreateDepthStencilView(h rhi.Resource, desc rhi.DepthStencilViewDesc) (rhi.DepthStencilView, error) {
	v, err := b.newView(h, rhi.ViewShaderResource, desc.Format)
	if err != nil {
		return rhi.NullDepthStencilView, err
	}
	if v.res == nil {
		return rhi.NullDepthStencilView, invalid("resource", uint32(h))
	}
	if !v.format.IsDepth() {
		return rhi.NullDepthStencilView, fmt.Errorf("depth stencil view of %q: %w", v.res.name, rhi.CodeInvalidArg)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.DepthStencilView(b.dsvs.add(v)), nil
}

func (b *Backend) ReleaseDepthStencilView(h rhi.DepthStencilView) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dsvs.remove(uint32(h)) {
		return invalid("depth stencil view", uint32(h))
	}
	return nil
}

func (b *Backend) CreateSampler(desc rhi.SamplerDesc) (rhi.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.Sampler(b.samplers.add(desc)), nil
}

func (b *Backend) ReleaseSampler(h rhi.Sampler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.samplers.remove(uint32(h)) {
		return invalid("sampler", uint32(h))
	}
	return nil
}

func (b *Backend) CreateRootSignature(desc rhi.RootSignatureDesc) (rhi.RootSignature, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.RootSignature(b.rootSigs.add(&rootSignature{desc: desc})), nil
}

func (b *Backend) ReleaseRootSignature(h rhi.RootSignature) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rootSigs.remove(uint32(h)) {
		return invalid("root signature", uint32(h))
	}
	return nil
}

func (b *Backend) CreateComputePipeline(desc rhi.ComputePipelineDesc) (rhi.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rootSigs.get(uint32(desc.RootSignature)); !ok {
		return rhi.NullPipeline, invalid("root signature", uint32(desc.RootSignature))
	}
	return rhi.Pipeline(b.pipelines.add(&pipeline{compute: desc})), nil
}

func (b *Backend) CreateGraphicsPipeline(desc rhi.GraphicsPipelineDesc) (rhi.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rootSigs.get(uint32(desc.RootSignature)); !ok {
		return rhi.NullPipeline, invalid("root signature", uint32(desc.RootSignature))
	}
	if desc.Topology != rhi.TopologyTriangleList && desc.Topology != rhi.TopologyLineList {
		return rhi.NullPipeline, fmt.Errorf("topology %d: %w", desc.Topology, rhi.CodeNotSupported)
	}
	return rhi.Pipeline(b.pipelines.add(&pipeline{graphics: true, gfx: desc})), nil
}

func (b *Backend) ReleasePipeline(h rhi.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pipelines.remove(uint32(h)) {
		return invalid("pipeline", uint32(h))
	}
	return nil
}

func (b *Backend) CreateQueryHeap(desc rhi.QueryHeapDesc) (rhi.QueryHeap, error) {
	if desc.Count == 0 {
		return rhi.NullQueryHeap, fmt.Errorf("empty query heap: %w", rhi.CodeInvalidArg)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return rhi.QueryHeap(b.queryHeaps.add(&queryHeap{desc: desc, results: make([]uint64, desc.Count)})), nil
}

func (b *Backend) ReleaseQueryHeap(h rhi.QueryHeap) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.queryHeaps.remove(uint32(h)) {
		return invalid("query heap", uint32(h))
	}
	return nil
}

func (b *Backend) createBackBuffers(desc rhi.SwapChainDesc) ([]rhi.Resource, error) {
	buffers := make([]rhi.Resource, 0, desc.BufferCount)
	for i := range desc.BufferCount {
		h, err := b.CreateTexture(rhi.TextureDesc{
			Width:             desc.Width,
			Height:            desc.Height,
			Format:            desc.Format,
			AllowRenderTarget: true,
			InitialState:      rhi.StatePresent,
			Name:              fmt.Sprintf("back buffer %d", i),
		})
		if err != nil {
			for _, h := range buffers {
				err = errors.Join(err, b.ReleaseResource(h))
			}
			return nil, err
		}
		buffers = append(buffers, h)
	}
	return buffers, nil
}

func (b *Backend) CreateSwapChain(desc rhi.SwapChainDesc) (rhi.SwapChain, []rhi.Resource, error) {
	if desc.Format == rhi.FormatUnknown {
		desc.Format = rhi.FormatR8G8B8A8Unorm
	}
	buffers, err := b.createBackBuffers(desc)
	if err != nil {
		return rhi.NullSwapChain, nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.swapChains.add(&swapChain{desc: desc, buffers: buffers})
	return rhi.SwapChain(h), buffers, nil
}

func (b *Backend) ResizeSwapChain(h rhi.SwapChain, width, height uint32) ([]rhi.Resource, error) {
	b.mu.RLock()
	sc, ok := b.swapChains.get(uint32(h))
	b.mu.RUnlock()
	if !ok {
		return nil, invalid("swap chain", uint32(h))
	}
	desc := sc.desc
	desc.Width, desc.Height = width, height
	buffers, err := b.createBackBuffers(desc)
	if err != nil {
		return nil, err
	}
	for _, old := range sc.buffers {
		if err := b.ReleaseResource(old); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	sc.desc, sc.buffers = desc, buffers
	b.mu.Unlock()
	return buffers, nil
}

func (b *Backend) ReleaseSwapChain(h rhi.SwapChain) error {
	b.mu.Lock()
	sc, ok := b.swapChains.get(uint32(h))
	if ok {
		b.swapChains.remove(uint32(h))
	}
	b.mu.Unlock()
	if !ok {
		return invalid("swap chain", uint32(h))
	}
	var errs []error
	for _, buf := range sc.buffers {
		errs = append(errs, b.ReleaseResource(buf))
	}
	return errors.Join(errs...)
}
