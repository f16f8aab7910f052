package render

import (
	"github.com/chewxy/math32"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
)

// CascadeSplits divides [near, far] into count slices, blending a
// logarithmic split (lambda = 1) with a uniform one (lambda = 0). It
// returns count+1 view distances from near to far.
func CascadeSplits(near, far float32, count int, lambda float32) []float32 {
	count = max(count, 1)
	lambda = min(max(lambda, 0), 1)
	splits := make([]float32, count+1)
	splits[0] = near
	for i := 1; i < count; i++ {
		p := float32(i) / float32(count)
		log := near * math32.Pow(far/near, p)
		uniform := near + (far-near)*p
		splits[i] = lambda*log + (1-lambda)*uniform
	}
	splits[count] = far
	return splits
}

// Cascade is one shadow slice of the camera volume.
type Cascade struct {
	// Near and Far are the view distances bounding the slice.
	Near, Far float32
	// Slice is the part of the camera frustum the cascade covers.
	Slice cull.Frustum
	// ViewProj is the light's orthographic view-projection fitted around
	// Slice, and Frustum its volume. Casters are culled against Frustum
	// with the shadow cascade test.
	ViewProj math3d.Mat4
	Frustum  cull.Frustum
}

// Cascades slices the view volume for a directional light shining along
// lightDir.
func (c *Camera) Cascades(count int, lambda float32, lightDir math3d.Vec3) []Cascade {
	splits := CascadeSplits(c.Near, c.Far, count, lambda)
	inv := c.InverseViewProjection()
	out := make([]Cascade, len(splits)-1)
	for i := range out {
		slice := cull.NewFrustumDepth(inv, c.NDCDepth(splits[i]), c.NDCDepth(splits[i+1]))
		vp := lightViewProj(&slice, lightDir)
		out[i] = Cascade{
			Near:     splits[i],
			Far:      splits[i+1],
			Slice:    slice,
			ViewProj: vp,
			Frustum:  cull.NewFrustum(vp.Inverse()),
		}
	}
	return out
}

// lightViewProj fits an orthographic light volume around the slice corners.
func lightViewProj(slice *cull.Frustum, lightDir math3d.Vec3) math3d.Mat4 {
	var center math3d.Vec3
	for _, p := range slice.Corners {
		center = center.Add(p)
	}
	center = center.Scale(1.0 / 8)
	var radius float32
	for _, p := range slice.Corners {
		radius = max(radius, p.Distance(center))
	}

	dir := lightDir.Normalize()
	if dir.LenSq() == 0 {
		dir = math3d.V3(0, -1, 0)
	}
	up := math3d.Up()
	if math32.Abs(dir.Y) > 0.99 {
		up = math3d.Forward()
	}
	view := math3d.LookAt(center.Sub(dir.Scale(2*radius)), center, up)

	b := cull.EmptyAABB()
	for _, p := range slice.Corners {
		b = b.Extend(view.MulVec3(p))
	}
	// The view looks down -Z, so the nearest corner has the largest z.
	proj := math3d.Orthographic(b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, -b.Max.Z, -b.Min.Z)
	return proj.Mul(view)
}
