package soft

import (
	"encoding/binary"

	"github.com/chewxy/math32"

	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/rhi"
)

// nearW is the smallest clip w a line endpoint is clipped to.
const nearW = 1e-5

// surface is a bound render target or depth buffer.
type surface struct {
	res    *resource
	format rhi.Format
}

func (s surface) valid() bool { return s.res != nil }

func (s surface) offset(x, y int) int {
	return y*int(s.res.info.RowPitch) + x*4
}

func (s surface) setColor(x, y int, c [4]uint8) {
	o := s.offset(x, y)
	px := s.res.data[o : o+4 : o+4]
	if s.format == rhi.FormatB8G8R8A8Unorm {
		px[0], px[1], px[2], px[3] = c[2], c[1], c[0], c[3]
		return
	}
	px[0], px[1], px[2], px[3] = c[0], c[1], c[2], c[3]
}

func (s surface) depth(x, y int) float32 {
	o := s.offset(x, y)
	return math32.Float32frombits(binary.LittleEndian.Uint32(s.res.data[o:]))
}

func (s surface) setDepth(x, y int, z float32) {
	binary.LittleEndian.PutUint32(s.res.data[s.offset(x, y):], math32.Float32bits(z))
}

func toUnorm(c [4]float32) [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		out[i] = uint8(math32.Round(min(max(v, 0), 1) * 255))
	}
	return out
}

func fillColor(r *resource, c [4]float32) {
	s := surface{res: r, format: r.info.Format}
	px := toUnorm(c)
	for y := range int(r.info.Height) {
		for x := range int(r.info.Width) {
			s.setColor(x, y, px)
		}
	}
}

func fillDepth(r *resource, z float32) {
	bits := math32.Float32bits(z)
	for o := 0; o+4 <= len(r.data); o += 4 {
		binary.LittleEndian.PutUint32(r.data[o:], bits)
	}
}

// raster is the fixed-function state one draw runs with.
type raster struct {
	rt      surface
	ds      surface
	depth   bool
	vp      rhi.Viewport
	clip    rhi.Rect // already intersected with the target
	mvp     math3d.Mat4
	color   [4]uint8
	written int
}

// vertex is a position after viewport mapping.
type vertex struct {
	x, y, z float32
}

func (r *raster) toScreen(c math3d.Vec4) vertex {
	inv := 1 / c.W
	return vertex{
		x: r.vp.X + (c.X*inv+1)*0.5*r.vp.Width,
		y: r.vp.Y + (1-c.Y*inv)*0.5*r.vp.Height,
		z: r.vp.MinDepth + (c.Z*inv+1)*0.5*(r.vp.MaxDepth-r.vp.MinDepth),
	}
}

func (r *raster) inside(x, y int) bool {
	return x >= int(r.clip.Left) && x < int(r.clip.Right) &&
		y >= int(r.clip.Top) && y < int(r.clip.Bottom)
}

func (r *raster) plot(x, y int, z float32) {
	if !r.inside(x, y) {
		return
	}
	if r.depth {
		if z >= r.ds.depth(x, y) {
			return
		}
		r.ds.setDepth(x, y, z)
	}
	r.rt.setColor(x, y, r.color)
	r.written++
}

// edgeCoeffs returns A, B, C for edge(x, y) = A*x + B*y + C. Positive is
// left of the edge.
func edgeCoeffs(x0, y0, x1, y1 float32) (a, b, c float32) {
	return y0 - y1, x1 - x0, x0*y1 - x1*y0
}

// triangle fills one clip-space triangle with incremental edge functions.
// Triangles with a vertex at or behind the eye are dropped.
func (r *raster) triangle(p0, p1, p2 math3d.Vec3, cullBack bool) {
	var clip [3]math3d.Vec4
	for i, p := range [3]math3d.Vec3{p0, p1, p2} {
		clip[i] = r.mvp.MulVec4(math3d.V4FromV3(p, 1))
		if clip[i].W <= 0 {
			return
		}
	}
	sv := [3]vertex{r.toScreen(clip[0]), r.toScreen(clip[1]), r.toScreen(clip[2])}

	// Screen y points down, so counter-clockwise triangles have negative area.
	area2 := (sv[1].x-sv[0].x)*(sv[2].y-sv[0].y) - (sv[1].y-sv[0].y)*(sv[2].x-sv[0].x)
	if area2 == 0 {
		return
	}
	if area2 > 0 {
		if cullBack {
			return
		}
		sv[1], sv[2] = sv[2], sv[1]
		area2 = -area2
	}

	minX := max(int(r.clip.Left), int(math32.Floor(min(sv[0].x, sv[1].x, sv[2].x))))
	maxX := min(int(r.clip.Right)-1, int(math32.Ceil(max(sv[0].x, sv[1].x, sv[2].x))))
	minY := max(int(r.clip.Top), int(math32.Floor(min(sv[0].y, sv[1].y, sv[2].y))))
	maxY := min(int(r.clip.Bottom)-1, int(math32.Ceil(max(sv[0].y, sv[1].y, sv[2].y))))
	if minX > maxX || minY > maxY {
		return
	}

	// Edge 0: v2 -> v1, edge 1: v0 -> v2, edge 2: v1 -> v0.
	a0, b0, c0 := edgeCoeffs(sv[2].x, sv[2].y, sv[1].x, sv[1].y)
	a1, b1, c1 := edgeCoeffs(sv[0].x, sv[0].y, sv[2].x, sv[2].y)
	a2, b2, c2 := edgeCoeffs(sv[1].x, sv[1].y, sv[0].x, sv[0].y)
	invArea := -1 / area2

	px := float32(minX) + 0.5
	py := float32(minY) + 0.5
	w0Row := a0*px + b0*py + c0
	w1Row := a1*px + b1*py + c1
	w2Row := a2*px + b2*py + c2

	for y := minY; y <= maxY; y++ {
		w0, w1, w2 := w0Row, w1Row, w2Row
		for x := minX; x <= maxX; x++ {
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				z := (w0*sv[0].z + w1*sv[1].z + w2*sv[2].z) * invArea
				r.plot(x, y, z)
			}
			w0 += a0
			w1 += a1
			w2 += a2
		}
		w0Row += b0
		w1Row += b1
		w2Row += b2
	}
}

// line draws one clip-space segment with Bresenham's algorithm, clipping
// it against w = nearW first.
func (r *raster) line(p0, p1 math3d.Vec3) {
	a := r.mvp.MulVec4(math3d.V4FromV3(p0, 1))
	b := r.mvp.MulVec4(math3d.V4FromV3(p1, 1))
	if a.W < nearW && b.W < nearW {
		return
	}
	if a.W < nearW {
		a = lerp4(a, b, (nearW-a.W)/(b.W-a.W))
	} else if b.W < nearW {
		b = lerp4(b, a, (nearW-b.W)/(a.W-b.W))
	}
	va, vb := r.toScreen(a), r.toScreen(b)

	// Keep the integer walk bounded for segments that project far away.
	const limit = 1 << 20
	if math32.Abs(va.x) > limit || math32.Abs(va.y) > limit ||
		math32.Abs(vb.x) > limit || math32.Abs(vb.y) > limit {
		return
	}

	x0, y0 := int(math32.Floor(va.x)), int(math32.Floor(va.y))
	x1, y1 := int(math32.Floor(vb.x)), int(math32.Floor(vb.y))
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	steps := float32(max(dx, -dy))
	err := dx + dy
	for i := 0; ; i++ {
		z := va.z
		if steps > 0 {
			z += (vb.z - va.z) * float32(i) / steps
		}
		r.plot(x0, y0, z)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func lerp4(a, b math3d.Vec4, t float32) math3d.Vec4 {
	return math3d.V4(
		a.X+(b.X-a.X)*t,
		a.Y+(b.Y-a.Y)*t,
		a.Z+(b.Z-a.Z)*t,
		a.W+(b.W-a.W)*t,
	)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
