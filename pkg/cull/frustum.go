// Package cull implements view-frustum culling of axis-aligned bounding
// boxes: a scalar reference culler, an 8-wide batched culler over
// structure-of-arrays box data, and the relaxed shadow cascade variants.
package cull

import (
	"github.com/taigrr/culler/pkg/math3d"
)

// Plane represents a plane in 3D space using the equation: Ax + By + Cz + D = 0
// where (A, B, C) is the normal and D is the distance from origin.
// Points with a non-negative signed distance are on the inside.
type Plane struct {
	Normal math3d.Vec3
	D      float32
}

// Distance returns the signed distance from the plane to a point.
// Positive = in front (same side as normal), negative = behind.
func (p *Plane) Distance(point math3d.Vec3) float32 {
	return planeDistance(p, point.X, point.Y, point.Z)
}

// planeDistance is the only place a plane is evaluated. Every product is
// rounded to float32 before the sum so no kernel can fuse it differently.
func planeDistance(p *Plane, x, y, z float32) float32 {
	return float32(p.Normal.X*x) + float32(p.Normal.Y*y) + float32(p.Normal.Z*z) + p.D
}

// Frustum is a view volume described by its 8 world-space corners and 6
// inward-facing planes. Both are derived together from one inverse
// view-projection matrix; build it with one of the constructors and treat
// it as a value.
//
// Corners are indexed z*4 + y*2 + x, where x selects left/right, y
// bottom/top and z near/far.
type Frustum struct {
	Corners [8]math3d.Vec3
	Planes  [6]Plane
}

// Plane indices. The shadow cascade tests skip FrustumNear.
const (
	FrustumNear = iota
	FrustumFar
	FrustumTop
	FrustumBottom
	FrustumLeft
	FrustumRight
)

// Corner indices.
const (
	CornerNearBottomLeft = iota
	CornerNearBottomRight
	CornerNearTopLeft
	CornerNearTopRight
	CornerFarBottomLeft
	CornerFarBottomRight
	CornerFarTopLeft
	CornerFarTopRight
)

// NDC depth range used by NewFrustum. The math3d projections map view
// depth to [-1, 1].
const (
	DefaultDepthMin float32 = -1
	DefaultDepthMax float32 = 1
)

// NewFrustum builds the frustum covering the whole NDC cube of the given
// inverse view-projection matrix.
func NewFrustum(invViewProj math3d.Mat4) Frustum {
	return NewFrustumDepth(invViewProj, DefaultDepthMin, DefaultDepthMax)
}

// NewFrustumDepth builds a frustum restricted to the NDC depth range
// [zMin, zMax]. Shadow cascades use it to slice the camera volume.
func NewFrustumDepth(invViewProj math3d.Mat4, zMin, zMax float32) Frustum {
	return NewFrustumNDC(invViewProj, AABB{
		Min: math3d.V3(-1, -1, zMin),
		Max: math3d.V3(1, 1, zMax),
	})
}

// NewFrustumNDC builds the frustum of an explicit NDC box, for
// orthographic sub-volumes. The caller guarantees a non-singular matrix.
func NewFrustumNDC(invViewProj math3d.Mat4, ndc AABB) Frustum {
	var f Frustum
	for i := range f.Corners {
		p := math3d.V3(
			selectComponent(i&1 != 0, ndc.Max.X, ndc.Min.X),
			selectComponent(i&2 != 0, ndc.Max.Y, ndc.Min.Y),
			selectComponent(i&4 != 0, ndc.Max.Z, ndc.Min.Z),
		)
		f.Corners[i] = invViewProj.MulVec3(p)
	}
	f.Planes = planesFromCorners(&f.Corners)
	return f
}

// planeCorners lists, per plane, three corners spanning it.
var planeCorners = [6][3]int{
	FrustumNear:   {CornerNearBottomLeft, CornerNearBottomRight, CornerNearTopLeft},
	FrustumFar:    {CornerFarBottomLeft, CornerFarBottomRight, CornerFarTopLeft},
	FrustumTop:    {CornerNearTopLeft, CornerNearTopRight, CornerFarTopLeft},
	FrustumBottom: {CornerNearBottomLeft, CornerNearBottomRight, CornerFarBottomLeft},
	FrustumLeft:   {CornerNearBottomLeft, CornerNearTopLeft, CornerFarBottomLeft},
	FrustumRight:  {CornerNearBottomRight, CornerNearTopRight, CornerFarBottomRight},
}

// planesFromCorners derives the 6 planes from the corners. Winding depends
// on the handedness of the matrix, so each plane is flipped if needed to
// keep the centroid on its positive side.
func planesFromCorners(corners *[8]math3d.Vec3) [6]Plane {
	var centroid math3d.Vec3
	for _, c := range corners {
		centroid = centroid.Add(c)
	}
	centroid = centroid.Scale(1.0 / 8)

	var planes [6]Plane
	for i, idx := range planeCorners {
		a, b, c := corners[idx[0]], corners[idx[1]], corners[idx[2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		p := Plane{Normal: n, D: -n.Dot(a)}
		if p.Distance(centroid) < 0 {
			p = Plane{Normal: n.Negate(), D: -p.D}
		}
		planes[i] = p
	}
	return planes
}

// ContainsPoint tests if a point is inside the frustum.
func (f *Frustum) ContainsPoint(p math3d.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].Distance(p) < 0 {
			return false
		}
	}
	return true
}

// Bounds returns the axis-aligned box enclosing the frustum corners.
func (f *Frustum) Bounds() AABB {
	b := AABB{Min: f.Corners[0], Max: f.Corners[0]}
	for _, c := range f.Corners[1:] {
		b.Min = b.Min.Min(c)
		b.Max = b.Max.Max(c)
	}
	return b
}

// selectComponent is a branchless conditional selection helper.
func selectComponent(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}
