package render

import (
	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/scene"
)

// Overview plots the scene from above on the XZ plane: every object's
// footprint colored by its cull result, and the view frustum's outline.
type Overview struct {
	bounds cull.AABB
	state  []uint8
}

const (
	stateCulled uint8 = iota
	stateHidden
	stateCaster
	stateVisible
)

// NewOverview frames the given world bounds.
func NewOverview(bounds cull.AABB) *Overview {
	return &Overview{bounds: bounds}
}

// SetBounds changes the framed world region.
func (o *Overview) SetBounds(bounds cull.AABB) {
	o.bounds = bounds
}

// mapping returns the scale and offsets taking world XZ to pixels, keeping
// the aspect ratio and centering the region.
func (o *Overview) mapping(fb *Framebuffer) (scale, ox, oz float32) {
	size := o.bounds.Size()
	w, h := float32(fb.Width-1), float32(fb.Height-1)
	scale = min(w/max(size.X, 1e-6), h/max(size.Z, 1e-6))
	ox = (w - size.X*scale) / 2
	oz = (h - size.Z*scale) / 2
	return scale, ox, oz
}

// Project maps a world position to overview pixel coordinates.
func (o *Overview) Project(fb *Framebuffer, p math3d.Vec3) (x, y int) {
	scale, ox, oz := o.mapping(fb)
	x = int((p.X-o.bounds.Min.X)*scale + ox + 0.5)
	y = int((p.Z-o.bounds.Min.Z)*scale + oz + 0.5)
	return x, y
}

// Draw plots p into fb. visible and casters are the index lists from the
// renderer; f is the camera frustum drawn as an outline.
func (o *Overview) Draw(fb *Framebuffer, p *scene.Packed, visible []uint32, casters [][]uint32, f *cull.Frustum) {
	fb.Clear(ColorBackground)

	n := p.Len()
	if cap(o.state) < n {
		o.state = make([]uint8, n)
	}
	o.state = o.state[:n]
	for i := range o.state {
		o.state[i] = stateCulled
		if p.Hidden[i] {
			o.state[i] = stateHidden
		}
	}
	for _, list := range casters {
		for _, i := range list {
			o.state[i] = stateCaster
		}
	}
	for _, i := range visible {
		o.state[i] = stateVisible
	}

	// Draw in state order so visible objects end up on top.
	for _, want := range [...]uint8{stateCulled, stateHidden, stateCaster, stateVisible} {
		c := stateColor(want)
		for i, s := range o.state {
			if s != want {
				continue
			}
			b := p.Boxes.At(i)
			x0, y0 := o.Project(fb, b.Min)
			x1, y1 := o.Project(fb, b.Max)
			fb.DrawRectOutline(x0, y0, max(x1-x0+1, 1), max(y1-y0+1, 1), c)
		}
	}

	if f != nil {
		o.drawFrustum(fb, f)
	}
}

func stateColor(s uint8) Color {
	switch s {
	case stateHidden:
		return ColorHidden
	case stateCaster:
		return ColorCaster
	case stateVisible:
		return ColorVisible
	default:
		return ColorCulled
	}
}

// frustumEdges pairs corner indices along the 12 frustum edges.
var frustumEdges = [12][2]int{
	{cull.CornerNearBottomLeft, cull.CornerNearBottomRight},
	{cull.CornerNearTopLeft, cull.CornerNearTopRight},
	{cull.CornerFarBottomLeft, cull.CornerFarBottomRight},
	{cull.CornerFarTopLeft, cull.CornerFarTopRight},
	{cull.CornerNearBottomLeft, cull.CornerNearTopLeft},
	{cull.CornerNearBottomRight, cull.CornerNearTopRight},
	{cull.CornerFarBottomLeft, cull.CornerFarTopLeft},
	{cull.CornerFarBottomRight, cull.CornerFarTopRight},
	{cull.CornerNearBottomLeft, cull.CornerFarBottomLeft},
	{cull.CornerNearBottomRight, cull.CornerFarBottomRight},
	{cull.CornerNearTopLeft, cull.CornerFarTopLeft},
	{cull.CornerNearTopRight, cull.CornerFarTopRight},
}

func (o *Overview) drawFrustum(fb *Framebuffer, f *cull.Frustum) {
	for _, e := range frustumEdges {
		x0, y0 := o.Project(fb, f.Corners[e[0]])
		x1, y1 := o.Project(fb, f.Corners[e[1]])
		fb.DrawLine(x0, y0, x1, y1, ColorFrustum)
	}
	x, y := o.Project(fb, apex(f))
	fb.SetPixel(x, y, ColorCamera)
}

// apex extends the side edges of a perspective frustum back to the eye.
// Parallel edges have no apex; the near plane center stands in.
func apex(f *cull.Frustum) math3d.Vec3 {
	c := &f.Corners
	nearCenter := c[cull.CornerNearBottomLeft].Add(c[cull.CornerNearTopRight]).Scale(0.5)
	farCenter := c[cull.CornerFarBottomLeft].Add(c[cull.CornerFarTopRight]).Scale(0.5)
	nearWidth := c[cull.CornerNearBottomLeft].Distance(c[cull.CornerNearTopRight])
	farWidth := c[cull.CornerFarBottomLeft].Distance(c[cull.CornerFarTopRight])
	if farWidth-nearWidth < 1e-6*farWidth {
		return nearCenter
	}
	t := nearWidth / (farWidth - nearWidth)
	return nearCenter.Sub(farCenter.Sub(nearCenter).Scale(t))
}
