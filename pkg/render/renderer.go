package render

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/rhi"
	"github.com/taigrr/culler/pkg/scene"
)

// Options configures a Renderer.
type Options struct {
	Width, Height int
	// Present copies every frame into a swap chain and presents it.
	Present   bool
	SwapChain rhi.SwapChainDesc
	// Cascades is the number of shadow cascades whose casters are culled
	// each frame. Zero disables caster culling.
	Cascades    int
	SplitLambda float32
	LightDir    math3d.Vec3
}

// FrameStats describes one rendered frame.
type FrameStats struct {
	Frame   uint64
	Objects int
	Visible int
	// Casters counts the shadow casters of each cascade.
	Casters  []int
	CullTime time.Duration
	// GPUTime is the span between the frame's two timestamp queries. It is
	// known once the frame has been read back.
	GPUTime time.Duration
	Fence   uint64
}

const (
	cornersPerBox  = 8
	indicesPerBox  = 24
	bytesPerVertex = 12
	// Root constants: a column-major view-projection then an RGBA color.
	rootConstants = 20
)

// boxEdges lists the 12 edges of a box as pairs of corner indices, where
// corner i has x from bit 0, y from bit 1 and z from bit 2.
var boxEdges = [indicesPerBox]uint32{
	0, 1, 2, 3, 4, 5, 6, 7,
	0, 2, 1, 3, 4, 6, 5, 7,
	0, 4, 1, 5, 2, 6, 3, 7,
}

type frameSlot struct {
	list     *rhi.GraphicsCommandList
	readback rhi.Unique[rhi.Resource]
	pending  bool
	stats    FrameStats
}

// Renderer culls a packed scene every frame and draws the visible boxes as
// wireframes through an RHI device. Frames are recorded into a ring of
// FramePipelineLength slots; each slot's image is read back into the
// framebuffer once the GPU has finished it.
type Renderer struct {
	dev  *rhi.Device
	log  *log.Logger
	opts Options

	color   rhi.Unique[rhi.Resource]
	rtv     rhi.Unique[rhi.RenderTargetView]
	depth   rhi.Unique[rhi.Resource]
	dsv     rhi.Unique[rhi.DepthStencilView]
	rootSig rhi.Unique[rhi.RootSignature]
	lines   rhi.Unique[rhi.Pipeline]
	queries rhi.Unique[rhi.QueryHeap]

	swapChain rhi.SwapChain

	// edges is a static index buffer holding the edge list of edgeBoxes
	// boxes. It is rebuilt through the copy queue when a frame needs more.
	edges      rhi.Unique[rhi.Resource]
	edgeBoxes  int
	edgesFresh bool

	slots [rhi.FramePipelineLength]frameSlot
	fb    *Framebuffer
	last  FrameStats

	visible  []uint32
	casters  [][]uint32
	cascades []Cascade
}

// NewRenderer creates the render targets, pipeline and per-frame readback
// buffers on dev.
func NewRenderer(dev *rhi.Device, opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("new renderer: invalid size %dx%d", opts.Width, opts.Height)
	}
	r := &Renderer{
		dev:  dev,
		log:  dev.Logger().WithPrefix("render"),
		opts: opts,
	}
	for i := range r.slots {
		r.slots[i].list = dev.CreateGraphicsCommandList()
	}
	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init() error {
	d := r.dev
	rs, err := d.CreateRootSignature(rhi.RootSignatureDesc{
		Parameters: []rhi.RootParameter{{Kind: rhi.RootConstants, Num32BitValues: rootConstants}},
		Name:       "wireframe",
	})
	if err != nil {
		return fmt.Errorf("create root signature: %w", err)
	}
	r.rootSig = d.OwnRootSignature(rs)

	pso, err := d.CreateGraphicsPipeline(rhi.GraphicsPipelineDesc{
		RootSignature: rs,
		InputLayout:   []rhi.InputElement{{Semantic: "POSITION", Format: rhi.FormatR32G32B32Float}},
		Topology:      rhi.TopologyLineList,
		RTVFormats:    []rhi.Format{rhi.FormatR8G8B8A8Unorm},
		DSVFormat:     rhi.FormatD32Float,
		DepthEnable:   true,
		Name:          "wireframe",
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	r.lines = d.OwnPipeline(pso)

	heap, err := d.CreateQueryHeap(rhi.QueryHeapDesc{Type: rhi.QueryTimestamp, Count: 2 * rhi.FramePipelineLength})
	if err != nil {
		return fmt.Errorf("create query heap: %w", err)
	}
	r.queries = d.OwnQueryHeap(heap)

	if err := r.createTargets(); err != nil {
		return err
	}
	if r.opts.Present {
		desc := r.opts.SwapChain
		desc.Width, desc.Height = uint32(r.opts.Width), uint32(r.opts.Height)
		desc.Format = rhi.FormatR8G8B8A8Unorm
		sc, err := d.CreateSwapChain(desc)
		if err != nil {
			return fmt.Errorf("create swap chain: %w", err)
		}
		r.swapChain = sc
	}
	return nil
}

// createTargets builds everything sized by the output: color and depth
// targets, their views, the readback buffers and the framebuffer.
func (r *Renderer) createTargets() error {
	d := r.dev
	w, h := uint32(r.opts.Width), uint32(r.opts.Height)

	color, err := d.CreateTexture(rhi.TextureDesc{
		Width: w, Height: h, Format: rhi.FormatR8G8B8A8Unorm,
		AllowRenderTarget: true, InitialState: rhi.StateRenderTarget, Name: "scene color",
	})
	if err != nil {
		return fmt.Errorf("create color target: %w", err)
	}
	owned := d.OwnResource(color)
	r.color.Assign(&owned)
	rtv, err := d.CreateRenderTargetView(color, rhi.RenderTargetViewDesc{})
	if err != nil {
		return fmt.Errorf("create render target view: %w", err)
	}
	ownedRTV := d.OwnRenderTargetView(rtv)
	r.rtv.Assign(&ownedRTV)

	depth, err := d.CreateTexture(rhi.TextureDesc{
		Width: w, Height: h, Format: rhi.FormatD32Float,
		AllowDepthStencil: true, InitialState: rhi.StateDepthWrite, Name: "scene depth",
		ClearValue: &rhi.ClearValue{Depth: 1},
	})
	if err != nil {
		return fmt.Errorf("create depth target: %w", err)
	}
	owned = d.OwnResource(depth)
	r.depth.Assign(&owned)
	dsv, err := d.CreateDepthStencilView(depth, rhi.DepthStencilViewDesc{})
	if err != nil {
		return fmt.Errorf("create depth stencil view: %w", err)
	}
	ownedDSV := d.OwnDepthStencilView(dsv)
	r.dsv.Assign(&ownedDSV)

	for i := range r.slots {
		rb, err := d.CreateBuffer(rhi.BufferDesc{
			Size: r.readbackSize(),
			Heap: rhi.HeapReadback,
			Name: fmt.Sprintf("readback %d", i),
		})
		if err != nil {
			return fmt.Errorf("create readback buffer: %w", err)
		}
		owned = d.OwnResource(rb)
		r.slots[i].readback.Assign(&owned)
		r.slots[i].pending = false
	}
	r.fb = NewFramebuffer(r.opts.Width, r.opts.Height)
	r.fb.Clear(ColorBackground)
	return nil
}

func (r *Renderer) rowPitch() uint32 {
	return 4 * uint32(r.opts.Width)
}

func (r *Renderer) imageSize() uint64 {
	return uint64(r.rowPitch()) * uint64(r.opts.Height)
}

// readbackSize covers the image followed by the two timestamps.
func (r *Renderer) readbackSize() uint64 {
	return r.imageSize() + 16
}

// Framebuffer returns the newest image read back from the device.
func (r *Renderer) Framebuffer() *Framebuffer {
	return r.fb
}

// LastStats returns the statistics of the newest frame read back.
func (r *Renderer) LastStats() FrameStats {
	return r.last
}

// Visible returns the indices drawn by the last Render call.
func (r *Renderer) Visible() []uint32 {
	return r.visible
}

// Casters returns the caster indices of each cascade from the last Render
// call.
func (r *Renderer) Casters() [][]uint32 {
	return r.casters
}

// Cascades returns the cascades of the last Render call.
func (r *Renderer) Cascades() []Cascade {
	return r.cascades
}

// Render culls p against the camera and the shadow cascades, then records
// and submits the wireframe of every visible box. The framebuffer keeps
// showing older frames until this one is read back; Sync waits for it.
func (r *Renderer) Render(ctx context.Context, cam *Camera, p *scene.Packed, active cull.LayerMask) (FrameStats, error) {
	if r.swapChain != rhi.NullSwapChain {
		if err := r.dev.WaitForFrameLatency(ctx, r.swapChain); err != nil {
			return FrameStats{}, fmt.Errorf("wait for frame latency: %w", err)
		}
	}
	r.dev.NewFrame()
	index := r.dev.FrameIndex()
	slot := &r.slots[index]
	if err := r.resolve(slot); err != nil {
		return FrameStats{}, err
	}

	stats := r.cull(cam, p, active)
	stats.Frame = r.dev.FrameNumber()

	if err := r.ensureEdges(stats.Visible); err != nil {
		return stats, err
	}
	vb, err := r.upload(p)
	if err != nil {
		return stats, err
	}

	cl := slot.list
	cl.Reset()
	r.record(cl, index, vb, stats.Visible, cam.ViewProjectionMatrix())
	if err := cl.Close(); err != nil {
		return stats, fmt.Errorf("record frame %d: %w", stats.Frame, err)
	}

	direct := r.dev.Queue(rhi.QueueDirect)
	if r.edgesFresh {
		direct.SyncWith(r.dev.Queue(rhi.QueueCopy))
		r.edgesFresh = false
	}
	if stats.Fence, err = direct.ExecuteCommandLists(cl); err != nil {
		return stats, fmt.Errorf("submit frame %d: %w", stats.Frame, err)
	}
	if r.swapChain != rhi.NullSwapChain {
		if _, err := r.dev.Present(r.swapChain); err != nil {
			return stats, fmt.Errorf("present frame %d: %w", stats.Frame, err)
		}
	}
	r.dev.EndFrame()

	slot.pending = true
	slot.stats = stats
	return stats, nil
}

// cull fills r.visible and the per-cascade caster lists.
func (r *Renderer) cull(cam *Camera, p *scene.Packed, active cull.LayerMask) FrameStats {
	start := time.Now()
	n := p.Len()
	stats := FrameStats{Objects: n}

	f := cam.Frustum()
	r.visible = resize(r.visible, n)
	count := cull.CullFiltered(r.visible, &f, &p.Boxes, p.Hidden, p.Layers, active)
	r.visible = r.visible[:count]
	stats.Visible = int(count)

	r.cascades = r.cascades[:0]
	if r.opts.Cascades > 0 {
		r.cascades = cam.Cascades(r.opts.Cascades, r.opts.SplitLambda, r.opts.LightDir)
	}
	for len(r.casters) < len(r.cascades) {
		r.casters = append(r.casters, nil)
	}
	r.casters = r.casters[:len(r.cascades)]
	stats.Casters = make([]int, len(r.cascades))
	for i := range r.cascades {
		out := resize(r.casters[i], n)
		count := cull.CullShadowCascadeFiltered(out, &r.cascades[i].Frustum, &p.Boxes, p.Hidden, p.Layers, active)
		r.casters[i] = out[:count]
		stats.Casters[i] = int(count)
	}
	stats.CullTime = time.Since(start)
	return stats
}

func resize(s []uint32, n int) []uint32 {
	if cap(s) < n {
		return make([]uint32, n)
	}
	return s[:n]
}

// ensureEdges grows the edge index buffer to cover n boxes. The indices
// are uploaded on the copy queue; the next direct submission waits for it.
func (r *Renderer) ensureEdges(n int) error {
	if n <= r.edgeBoxes {
		return nil
	}
	boxes := min(max(n, 2*r.edgeBoxes, 256), cull.MaxObjects)
	size := uint64(boxes * indicesPerBox * 4)

	ib, err := r.dev.CreateBuffer(rhi.BufferDesc{Size: size, InitialState: rhi.StateCopyDest, Name: "box edges"})
	if err != nil {
		return fmt.Errorf("create edge buffer: %w", err)
	}
	owned := r.dev.OwnResource(ib)

	staging, err := r.dev.AllocateDynamic(size, 4)
	if err != nil {
		owned.Reset()
		return fmt.Errorf("stage edge buffer: %w", err)
	}
	for b := range boxes {
		for e, corner := range boxEdges {
			binary.LittleEndian.PutUint32(staging.Data[4*(b*indicesPerBox+e):], uint32(b*cornersPerBox)+corner)
		}
	}

	cl := r.dev.AcquireCopyCommandList(rhi.QueueCopy)
	cl.CopyBufferRegion(ib, 0, staging.Resource, staging.Offset, size)
	if err := cl.Close(); err != nil {
		owned.Reset()
		return fmt.Errorf("record edge upload: %w", err)
	}
	fence, err := r.dev.Queue(rhi.QueueCopy).ExecuteCommandLists(cl)
	if err != nil {
		owned.Reset()
		return fmt.Errorf("submit edge upload: %w", err)
	}
	r.dev.ReleaseCopyCommandList(cl, fence)

	r.log.Debug("edge buffer grown", "boxes", boxes, "bytes", size, "fence", fence)
	r.edges.Assign(&owned)
	r.edgeBoxes = boxes
	r.edgesFresh = true
	return nil
}

// upload writes the corners of every visible box to dynamic memory.
func (r *Renderer) upload(p *scene.Packed) (rhi.VertexBufferView, error) {
	if len(r.visible) == 0 {
		return rhi.VertexBufferView{}, nil
	}
	size := uint64(len(r.visible) * cornersPerBox * bytesPerVertex)
	a, err := r.dev.AllocateDynamic(size, 4)
	if err != nil {
		return rhi.VertexBufferView{}, fmt.Errorf("allocate vertices: %w", err)
	}
	off := 0
	for _, idx := range r.visible {
		box := p.Boxes.At(int(idx))
		for c := range cornersPerBox {
			x, y, z := box.Min.X, box.Min.Y, box.Min.Z
			if c&1 != 0 {
				x = box.Max.X
			}
			if c&2 != 0 {
				y = box.Max.Y
			}
			if c&4 != 0 {
				z = box.Max.Z
			}
			binary.LittleEndian.PutUint32(a.Data[off:], math.Float32bits(x))
			binary.LittleEndian.PutUint32(a.Data[off+4:], math.Float32bits(y))
			binary.LittleEndian.PutUint32(a.Data[off+8:], math.Float32bits(z))
			off += bytesPerVertex
		}
	}
	return rhi.VertexBufferView{
		Resource: a.Resource,
		Offset:   a.Offset,
		Size:     uint32(size),
		Stride:   bytesPerVertex,
	}, nil
}

func constants(m math3d.Mat4, c [4]float32) []uint32 {
	out := make([]uint32, 0, rootConstants)
	for _, v := range m {
		out = append(out, math.Float32bits(v))
	}
	for _, v := range c {
		out = append(out, math.Float32bits(v))
	}
	return out
}

func (r *Renderer) record(cl *rhi.GraphicsCommandList, slot int, vb rhi.VertexBufferView, boxes int, viewProj math3d.Mat4) {
	color := r.color.Get()
	rtv := r.rtv.Get()
	dsv := r.dsv.Get()
	readback := r.slots[slot].readback.Get()
	w, h := r.opts.Width, r.opts.Height

	if r.edgesFresh {
		cl.DeferredBarrier(rhi.Transition(r.edges.Get(), rhi.StateCopyDest, rhi.StateIndexBuffer))
	}
	cl.EndQuery(r.queries.Get(), rhi.QueryTimestamp, uint32(2*slot))
	cl.ClearRenderTarget(rtv, normalized(ColorBackground))
	cl.ClearDepthStencil(dsv, 1, 0)
	cl.SetRenderTargets([]rhi.RenderTargetView{rtv}, dsv)
	cl.SetViewports(rhi.Viewport{Width: float32(w), Height: float32(h), MaxDepth: 1})
	cl.SetScissors(rhi.Rect{Right: int32(w), Bottom: int32(h)})
	if boxes > 0 {
		cl.SetGraphicsRootSignature(r.rootSig.Get())
		cl.SetPipeline(r.lines.Get())
		cl.SetPrimitiveTopology(rhi.TopologyLineList)
		cl.SetGraphicsRoot32BitConstants(0, constants(viewProj, normalized(ColorVisible)), 0)
		cl.SetVertexBuffers(0, vb)
		cl.SetIndexBuffer(rhi.IndexBufferView{
			Resource: r.edges.Get(),
			Size:     uint32(boxes * indicesPerBox * 4),
			Format:   rhi.FormatR32Uint,
		})
		cl.DrawIndexed(uint32(boxes*indicesPerBox), 1, 0, 0, 0)
	}
	cl.EndQuery(r.queries.Get(), rhi.QueryTimestamp, uint32(2*slot+1))

	cl.DeferredBarrier(rhi.Transition(color, rhi.StateRenderTarget, rhi.StateCopySource))
	cl.CopyTextureRegion(
		rhi.TextureCopyLocation{Resource: readback, Footprint: rhi.Footprint{
			Format:   rhi.FormatR8G8B8A8Unorm,
			Width:    uint32(w),
			Height:   uint32(h),
			RowPitch: r.rowPitch(),
		}},
		0, 0,
		rhi.TextureCopyLocation{Resource: color},
		nil,
	)
	cl.ResolveQueryData(r.queries.Get(), rhi.QueryTimestamp, uint32(2*slot), 2, readback, r.imageSize())

	if r.swapChain != rhi.NullSwapChain {
		r.recordPresentCopy(cl, color)
	}
	cl.DeferredBarrier(rhi.Transition(color, rhi.StateCopySource, rhi.StateRenderTarget))
}

// recordPresentCopy copies the color target into the current back buffer.
func (r *Renderer) recordPresentCopy(cl *rhi.GraphicsCommandList, color rhi.Resource) {
	i, err := r.dev.CurrentBackBufferIndex(r.swapChain)
	if err == nil {
		var back rhi.Resource
		back, err = r.dev.SwapChainBuffer(r.swapChain, i)
		if err == nil {
			cl.DeferredBarrier(rhi.Transition(back, rhi.StatePresent, rhi.StateCopyDest))
			cl.CopyResource(back, color)
			cl.DeferredBarrier(rhi.Transition(back, rhi.StateCopyDest, rhi.StatePresent))
			return
		}
	}
	r.log.Error("back buffer unavailable", "err", err)
}

// resolve loads a finished slot into the framebuffer.
func (r *Renderer) resolve(slot *frameSlot) error {
	if !slot.pending {
		return nil
	}
	slot.pending = false
	data, err := r.dev.Map(slot.readback.Get())
	if err != nil {
		return fmt.Errorf("map readback: %w", err)
	}
	r.fb.Load(data, int(r.rowPitch()))
	t0 := binary.LittleEndian.Uint64(data[r.imageSize():])
	t1 := binary.LittleEndian.Uint64(data[r.imageSize()+8:])
	slot.stats.GPUTime = time.Duration(t1 - t0)
	r.last = slot.stats
	return nil
}

// Sync waits for all submitted frames and reads back the newest one.
func (r *Renderer) Sync() error {
	r.dev.WaitIdle()
	order := make([]*frameSlot, 0, len(r.slots))
	for i := range r.slots {
		if r.slots[i].pending {
			order = append(order, &r.slots[i])
		}
	}
	if len(order) == 2 && order[0].stats.Frame > order[1].stats.Frame {
		order[0], order[1] = order[1], order[0]
	}
	for _, s := range order {
		if err := r.resolve(s); err != nil {
			return err
		}
	}
	return nil
}

// SetShadows changes the cascade setup used from the next frame on.
func (r *Renderer) SetShadows(cascades int, splitLambda float32, lightDir math3d.Vec3) {
	r.opts.Cascades = max(cascades, 0)
	r.opts.SplitLambda = splitLambda
	r.opts.LightDir = lightDir
}

// Resize recreates the size-dependent resources. Pending frames are
// drained first; their images are dropped.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize renderer: invalid size %dx%d", width, height)
	}
	if width == r.opts.Width && height == r.opts.Height {
		return nil
	}
	r.dev.WaitIdle()
	r.opts.Width, r.opts.Height = width, height
	if err := r.createTargets(); err != nil {
		return err
	}
	if r.swapChain != rhi.NullSwapChain {
		if err := r.dev.ResizeSwapChain(r.swapChain, uint32(width), uint32(height)); err != nil {
			return fmt.Errorf("resize swap chain: %w", err)
		}
	}
	r.log.Debug("resized", "width", width, "height", height)
	return nil
}

// Close waits for the device and hands every resource to deferred
// destruction.
func (r *Renderer) Close() {
	r.dev.WaitIdle()
	r.color.Reset()
	r.rtv.Reset()
	r.depth.Reset()
	r.dsv.Reset()
	r.lines.Reset()
	r.rootSig.Reset()
	r.queries.Reset()
	r.edges.Reset()
	for i := range r.slots {
		r.slots[i].readback.Reset()
	}
	if r.swapChain != rhi.NullSwapChain {
		if err := r.dev.ReleaseSwapChain(r.swapChain); err != nil {
			r.log.Error("release swap chain", "err", err)
		}
		r.swapChain = rhi.NullSwapChain
	}
	r.dev.CollectGarbage()
}
