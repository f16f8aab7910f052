package soft

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"time"

	"github.com/chewxy/math32"

	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/rhi"
)

// executor runs one command list. State does not carry over between lists.
type executor struct {
	b    *Backend
	kind rhi.QueueKind

	pipeline  *pipeline
	graphics  [][]uint32
	compute   [][]uint32
	topology  rhi.PrimitiveTopology
	vertices  []rhi.VertexBufferView
	indices   rhi.IndexBufferView
	rtv       *view
	dsv       *view
	viewports []rhi.Viewport
	scissors  []rhi.Rect
}

func (b *Backend) execute(kind rhi.QueueKind, cmds []rhi.Command) {
	b.stats.lists.Add(1)
	b.stats.commands.Add(uint64(len(cmds)))
	e := executor{b: b, kind: kind}
	for _, cmd := range cmds {
		e.run(cmd)
	}
}

func (e *executor) fail(format string, args ...any) {
	e.b.log.Error("command failed", "queue", e.kind, "err", fmt.Sprintf(format, args...))
	e.b.debug.report(format, args...)
}

func (e *executor) resource(h rhi.Resource) *resource {
	r, err := e.b.resource(h)
	if err != nil {
		e.fail("%v", err)
		return nil
	}
	return r
}

func lookup[T any](e *executor, t *table[T], what string, h uint32) (T, bool) {
	e.b.mu.RLock()
	v, ok := t.get(h)
	e.b.mu.RUnlock()
	if !ok {
		e.fail("%s %d: %v", what, h, rhi.ErrInvalidHandle)
	}
	return v, ok
}

func (e *executor) run(cmd rhi.Command) {
	switch c := cmd.(type) {
	case rhi.CmdBarrier:
		e.barrier(c)
	case rhi.CmdCopyBufferRegion:
		e.copyBuffer(c)
	case rhi.CmdCopyResource:
		e.copyResource(c)
	case rhi.CmdCopyTextureRegion:
		e.copyTexture(c)
	case rhi.CmdSetRootSignature:
		if _, ok := lookup(e, &e.b.rootSigs, "root signature", uint32(c.RootSignature)); !ok {
			return
		}
		if c.Graphics {
			e.graphics = nil
		} else {
			e.compute = nil
		}
	case rhi.CmdSetPipeline:
		p, ok := lookup(e, &e.b.pipelines, "pipeline", uint32(c.Pipeline))
		if ok {
			e.pipeline = p
		}
	case rhi.CmdSetRoot32BitConstants:
		slots := &e.compute
		if c.Graphics {
			slots = &e.graphics
		}
		setConstants(slots, c.Parameter, c.DestOffset, c.Values)
	case rhi.CmdSetRootShaderView:
		lookup(e, &e.b.shaderViews, "shader view", uint32(c.View))
	case rhi.CmdDispatch:
		if e.pipeline == nil || e.pipeline.graphics {
			e.fail("dispatch without a compute pipeline")
			return
		}
		e.b.stats.dispatches.Add(1)
	case rhi.CmdEndQuery:
		e.endQuery(c)
	case rhi.CmdResolveQueryData:
		e.resolveQueries(c)
	case rhi.CmdSetPrimitiveTopology:
		e.topology = c.Topology
	case rhi.CmdSetVertexBuffers:
		need := int(c.StartSlot) + len(c.Views)
		if len(e.vertices) < need {
			e.vertices = append(e.vertices, make([]rhi.VertexBufferView, need-len(e.vertices))...)
		}
		copy(e.vertices[c.StartSlot:], c.Views)
	case rhi.CmdSetIndexBuffer:
		e.indices = c.View
	case rhi.CmdSetRenderTargets:
		e.setRenderTargets(c)
	case rhi.CmdClearRenderTarget:
		v, ok := lookup(e, &e.b.rtvs, "render target view", uint32(c.RTV))
		if !ok {
			return
		}
		e.b.expect(v.res, rhi.StateRenderTarget, "ClearRenderTargetView")
		fillColor(v.res, c.Color)
	case rhi.CmdClearDepthStencil:
		v, ok := lookup(e, &e.b.dsvs, "depth stencil view", uint32(c.DSV))
		if !ok {
			return
		}
		e.b.expect(v.res, rhi.StateDepthWrite, "ClearDepthStencilView")
		fillDepth(v.res, c.Depth)
	case rhi.CmdSetViewports:
		e.viewports = c.Viewports
	case rhi.CmdSetScissors:
		e.scissors = c.Rects
	case rhi.CmdDraw:
		e.b.stats.draws.Add(1)
		for range max(c.InstanceCount, 1) {
			e.draw(c.VertexCount, func(i uint32) (uint32, bool) { return c.StartVertex + i, true })
		}
	case rhi.CmdDrawIndexed:
		e.b.stats.draws.Add(1)
		for range max(c.InstanceCount, 1) {
			e.draw(c.IndexCount, func(i uint32) (uint32, bool) {
				idx, ok := e.index(c.StartIndex + i)
				return uint32(int64(idx) + int64(c.BaseVertex)), ok
			})
		}
	case rhi.CmdPresent:
		e.present(c)
	default:
		e.fail("unknown command %T", cmd)
	}
}

func setConstants(slots *[][]uint32, param, offset uint32, values []uint32) {
	if int(param) >= len(*slots) {
		*slots = append(*slots, make([][]uint32, int(param)+1-len(*slots))...)
	}
	s := (*slots)[param]
	if need := int(offset) + len(values); len(s) < need {
		s = append(s, make([]uint32, need-len(s))...)
	}
	copy(s[offset:], values)
	(*slots)[param] = s
}

func (e *executor) barrier(c rhi.CmdBarrier) {
	e.b.stats.barriers.Add(uint64(len(c.Barriers)))
	for _, br := range c.Barriers {
		switch br := br.(type) {
		case rhi.TransitionBarrier:
			if r := e.resource(br.Resource); r != nil {
				e.b.transition(r, br)
			}
		case rhi.BufferBarrier:
			if r := e.resource(br.Resource); r != nil {
				e.b.untrack(r)
			}
		case rhi.TextureBarrier:
			if r := e.resource(br.Resource); r != nil {
				e.b.untrack(r)
			}
		}
	}
}

// inRange reports whether [off, off+size) fits in n bytes without the sum
// overflowing.
func inRange(off, size, n uint64) bool {
	return off <= n && size <= n-off
}

func (e *executor) copyBuffer(c rhi.CmdCopyBufferRegion) {
	dst, src := e.resource(c.Dst), e.resource(c.Src)
	if dst == nil || src == nil {
		return
	}
	if !inRange(c.DstOffset, c.Size, uint64(len(dst.data))) || !inRange(c.SrcOffset, c.Size, uint64(len(src.data))) {
		e.fail("CopyBufferRegion out of range: %d bytes from %q+%d to %q+%d", c.Size, src.name, c.SrcOffset, dst.name, c.DstOffset)
		return
	}
	e.b.expect(dst, rhi.StateCopyDest, "CopyBufferRegion")
	e.b.expect(src, rhi.StateCopySource, "CopyBufferRegion")
	copy(dst.data[c.DstOffset:c.DstOffset+c.Size], src.data[c.SrcOffset:c.SrcOffset+c.Size])
	e.b.stats.copies.Add(1)
}

func (e *executor) copyResource(c rhi.CmdCopyResource) {
	dst, src := e.resource(c.Dst), e.resource(c.Src)
	if dst == nil || src == nil {
		return
	}
	if len(dst.data) != len(src.data) || dst.info.Dimension != src.info.Dimension {
		e.fail("CopyResource between mismatched resources %q and %q", src.name, dst.name)
		return
	}
	e.b.expect(dst, rhi.StateCopyDest, "CopyResource")
	e.b.expect(src, rhi.StateCopySource, "CopyResource")
	copy(dst.data, src.data)
	e.b.stats.copies.Add(1)
}

// image is a 2D texel array inside a resource.
type image struct {
	res    *resource
	base   uint64
	pitch  uint64
	width  uint32
	height uint32
	bpp    uint32
}

func (e *executor) image(loc rhi.TextureCopyLocation) (image, bool) {
	r := e.resource(loc.Resource)
	if r == nil {
		return image{}, false
	}
	if r.info.Dimension == rhi.DimensionTexture2D {
		return image{
			res:    r,
			pitch:  uint64(r.info.RowPitch),
			width:  r.info.Width,
			height: r.info.Height,
			bpp:    r.info.Format.Size(),
		}, true
	}
	fp := loc.Footprint
	img := image{
		res:    r,
		base:   fp.Offset,
		pitch:  uint64(fp.RowPitch),
		width:  fp.Width,
		height: fp.Height,
		bpp:    fp.Format.Size(),
	}
	row := uint64(img.width) * uint64(img.bpp)
	if img.bpp == 0 || img.pitch < row || img.height > 0 && !footprintFits(img, row, uint64(len(r.data))) {
		e.fail("invalid placed footprint in %q", r.name)
		return image{}, false
	}
	return img, true
}

// footprintFits reports whether img's last row ends inside n bytes.
func footprintFits(img image, row, n uint64) bool {
	hi, span := bits.Mul64(img.pitch, uint64(img.height-1))
	if hi != 0 {
		return false
	}
	span, carry := bits.Add64(span, row, 0)
	return carry == 0 && inRange(img.base, span, n)
}

func (e *executor) copyTexture(c rhi.CmdCopyTextureRegion) {
	dst, ok := e.image(c.Dst)
	if !ok {
		return
	}
	src, ok := e.image(c.Src)
	if !ok {
		return
	}
	box := rhi.TextureBox{Right: src.width, Bottom: src.height, Back: 1}
	if c.SrcBox != nil {
		box = *c.SrcBox
	}
	if src.bpp != dst.bpp || box.Right > src.width || box.Bottom > src.height || box.Left > box.Right || box.Top > box.Bottom ||
		!inRange(uint64(c.DstX), uint64(box.Right-box.Left), uint64(dst.width)) ||
		!inRange(uint64(c.DstY), uint64(box.Bottom-box.Top), uint64(dst.height)) {
		e.fail("CopyTextureRegion out of range from %q to %q", src.res.name, dst.res.name)
		return
	}
	e.b.expect(dst.res, rhi.StateCopyDest, "CopyTextureRegion")
	e.b.expect(src.res, rhi.StateCopySource, "CopyTextureRegion")
	row := uint64(box.Right-box.Left) * uint64(src.bpp)
	for y := box.Top; y < box.Bottom; y++ {
		so := src.base + uint64(y)*src.pitch + uint64(box.Left)*uint64(src.bpp)
		do := dst.base + uint64(c.DstY+y-box.Top)*dst.pitch + uint64(c.DstX)*uint64(dst.bpp)
		copy(dst.res.data[do:do+row], src.res.data[so:so+row])
	}
	e.b.stats.copies.Add(1)
}

func (e *executor) endQuery(c rhi.CmdEndQuery) {
	h, ok := lookup(e, &e.b.queryHeaps, "query heap", uint32(c.Heap))
	if !ok {
		return
	}
	if c.Index >= uint32(len(h.results)) {
		e.fail("query %d outside heap of %d", c.Index, len(h.results))
		return
	}
	var v uint64
	if c.Type == rhi.QueryTimestamp {
		v = uint64(time.Now().UnixNano())
	}
	e.b.mu.Lock()
	h.results[c.Index] = v
	e.b.mu.Unlock()
}

func (e *executor) resolveQueries(c rhi.CmdResolveQueryData) {
	h, ok := lookup(e, &e.b.queryHeaps, "query heap", uint32(c.Heap))
	if !ok {
		return
	}
	dst := e.resource(c.Dst)
	if dst == nil {
		return
	}
	if !inRange(uint64(c.Start), uint64(c.Count), uint64(len(h.results))) ||
		!inRange(c.DstOffset, 8*uint64(c.Count), uint64(len(dst.data))) {
		e.fail("ResolveQueryData out of range")
		return
	}
	e.b.mu.RLock()
	for i := range c.Count {
		binary.LittleEndian.PutUint64(dst.data[c.DstOffset+8*uint64(i):], h.results[c.Start+i])
	}
	e.b.mu.RUnlock()
}

func (e *executor) setRenderTargets(c rhi.CmdSetRenderTargets) {
	e.rtv, e.dsv = nil, nil
	if len(c.RTVs) > 0 {
		if v, ok := lookup(e, &e.b.rtvs, "render target view", uint32(c.RTVs[0])); ok {
			e.rtv = v
		}
	}
	if !c.DSV.IsNull() {
		if v, ok := lookup(e, &e.b.dsvs, "depth stencil view", uint32(c.DSV)); ok {
			e.dsv = v
		}
	}
}

func (e *executor) index(i uint32) (uint32, bool) {
	r := e.resource(e.indices.Resource)
	if r == nil {
		return 0, false
	}
	size := uint64(e.indices.Format.Size())
	o := e.indices.Offset + uint64(i)*size
	if size == 0 || uint64(i+1)*size > uint64(e.indices.Size) || o+size > uint64(len(r.data)) {
		e.fail("index %d outside index buffer", i)
		return 0, false
	}
	if size == 2 {
		return uint32(binary.LittleEndian.Uint16(r.data[o:])), true
	}
	return binary.LittleEndian.Uint32(r.data[o:]), true
}

// position reads vertex i of slot 0.
func position(data []byte, vb rhi.VertexBufferView, i uint32) (math3d.Vec3, bool) {
	stride := uint64(vb.Stride)
	if stride == 0 {
		stride = 12
	}
	rel := uint64(i) * stride
	o := vb.Offset + rel
	if rel+12 > uint64(vb.Size) || o+12 > uint64(len(data)) {
		return math3d.Vec3{}, false
	}
	return math3d.V3(
		math32.Float32frombits(binary.LittleEndian.Uint32(data[o:])),
		math32.Float32frombits(binary.LittleEndian.Uint32(data[o+4:])),
		math32.Float32frombits(binary.LittleEndian.Uint32(data[o+8:])),
	), true
}

// rasterState assembles the fixed-function state from what is bound.
func (e *executor) rasterState() (*raster, bool) {
	if e.pipeline == nil || !e.pipeline.graphics {
		e.fail("draw without a graphics pipeline")
		return nil, false
	}
	if e.rtv == nil {
		e.fail("draw without a render target")
		return nil, false
	}
	if len(e.viewports) == 0 {
		e.fail("draw without a viewport")
		return nil, false
	}
	e.b.expect(e.rtv.res, rhi.StateRenderTarget, "Draw")
	info := e.rtv.res.info
	r := &raster{
		rt:    surface{res: e.rtv.res, format: e.rtv.format},
		vp:    e.viewports[0],
		clip:  rhi.Rect{Right: int32(info.Width), Bottom: int32(info.Height)},
		mvp:   math3d.Identity(),
		color: [4]uint8{255, 255, 255, 255},
	}
	if len(e.scissors) > 0 {
		s := e.scissors[0]
		r.clip = rhi.Rect{
			Left:   max(r.clip.Left, s.Left),
			Top:    max(r.clip.Top, s.Top),
			Right:  min(r.clip.Right, s.Right),
			Bottom: min(r.clip.Bottom, s.Bottom),
		}
	}
	if e.dsv != nil && e.pipeline.gfx.DepthEnable {
		if e.dsv.res.info.Width < info.Width || e.dsv.res.info.Height < info.Height {
			e.fail("depth buffer smaller than render target")
			return nil, false
		}
		e.b.expect(e.dsv.res, rhi.StateDepthWrite, "Draw")
		r.ds = surface{res: e.dsv.res, format: rhi.FormatD32Float}
		r.depth = true
	}
	if len(e.graphics) > 0 {
		consts := e.graphics[0]
		if len(consts) >= 16 {
			for i := range r.mvp {
				r.mvp[i] = math32.Float32frombits(consts[i])
			}
		}
		if len(consts) >= 20 {
			var c [4]float32
			for i := range c {
				c[i] = math32.Float32frombits(consts[16+i])
			}
			r.color = toUnorm(c)
		}
	}
	return r, true
}

func (e *executor) draw(count uint32, vertex func(i uint32) (uint32, bool)) {
	r, ok := e.rasterState()
	if !ok {
		return
	}
	if len(e.vertices) == 0 {
		e.fail("draw without a vertex buffer")
		return
	}
	vb := e.vertices[0]
	res := e.resource(vb.Resource)
	if res == nil {
		return
	}
	fetch := func(i uint32) (math3d.Vec3, bool) {
		idx, ok := vertex(i)
		if !ok {
			return math3d.Vec3{}, false
		}
		p, ok := position(res.data, vb, idx)
		if !ok {
			e.fail("vertex %d outside vertex buffer", idx)
		}
		return p, ok
	}

	var prims uint64
	switch e.topology {
	case rhi.TopologyTriangleList:
		cull := e.pipeline.gfx.CullBackFaces
		for i := uint32(0); i+3 <= count; i += 3 {
			p0, ok0 := fetch(i)
			p1, ok1 := fetch(i + 1)
			p2, ok2 := fetch(i + 2)
			if !ok0 || !ok1 || !ok2 {
				return
			}
			r.triangle(p0, p1, p2, cull)
			prims++
		}
	case rhi.TopologyLineList:
		for i := uint32(0); i+2 <= count; i += 2 {
			p0, ok0 := fetch(i)
			p1, ok1 := fetch(i + 1)
			if !ok0 || !ok1 {
				return
			}
			r.line(p0, p1)
			prims++
		}
	default:
		e.fail("topology %d not supported", e.topology)
		return
	}
	e.b.stats.primitives.Add(prims)
	e.b.stats.pixels.Add(uint64(r.written))
}

func (e *executor) present(c rhi.CmdPresent) {
	sc, ok := lookup(e, &e.b.swapChains, "swap chain", uint32(c.SwapChain))
	if !ok {
		return
	}
	e.b.mu.RLock()
	buf := rhi.NullResource
	if int(c.Buffer) < len(sc.buffers) {
		buf = sc.buffers[c.Buffer]
	}
	e.b.mu.RUnlock()
	if r := e.resource(buf); r != nil && e.b.debug.enabled {
		e.b.stateMu.Lock()
		state, untracked := r.state, r.untracked
		e.b.stateMu.Unlock()
		if !untracked && state != rhi.StatePresent {
			e.b.debug.report("Present: back buffer %d is in state %#x", c.Buffer, state)
		}
	}
	e.b.stats.presents.Add(1)
}
