package cull

// Intersects reports whether the box may be visible. It returns false only
// when the box is provably outside: either it lies fully behind one of the
// six planes (tested with the positive vertex), or all eight frustum corners
// lie strictly beyond the box on one world axis. The second test removes
// the false positives the plane test leaves near frustum edges.
func (f *Frustum) Intersects(box AABB) bool {
	for i := range f.Planes {
		if outsidePlane(&f.Planes[i], &box) {
			return false
		}
	}
	return !f.separatedOnAxis(&box)
}

// IntersectsShadowCascade is the relaxed test used for shadow casters: the
// near plane is ignored, since casters behind the cascade still throw
// shadows into it, and the corner test is skipped.
func (f *Frustum) IntersectsShadowCascade(box AABB) bool {
	for i := FrustumFar; i < len(f.Planes); i++ {
		if outsidePlane(&f.Planes[i], &box) {
			return false
		}
	}
	return true
}

// outsidePlane evaluates the plane at the box corner furthest along its
// normal. If even that corner is behind, the whole box is.
func outsidePlane(p *Plane, box *AABB) bool {
	x := selectComponent(p.Normal.X >= 0, box.Max.X, box.Min.X)
	y := selectComponent(p.Normal.Y >= 0, box.Max.Y, box.Min.Y)
	z := selectComponent(p.Normal.Z >= 0, box.Max.Z, box.Min.Z)
	return planeDistance(p, x, y, z) < 0
}

// separatedOnAxis reports whether every corner is strictly below box.Min or
// strictly above box.Max on some axis.
func (f *Frustum) separatedOnAxis(box *AABB) bool {
	for axis := range 3 {
		lo, hi := box.Min.Axis(axis), box.Max.Axis(axis)
		below, above := true, true
		for i := range f.Corners {
			c := f.Corners[i].Axis(axis)
			below = below && c < lo
			above = above && c > hi
		}
		if below || above {
			return true
		}
	}
	return false
}
