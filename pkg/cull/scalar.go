package cull

// MaxObjects is the number of boxes a single cull call accepts. Output
// indices are uint16.
const MaxObjects = 1 << 16

// CullScalar appends the index of every box that Intersects the frustum to
// dst[:0] in increasing order and returns the result. It is the reference
// every batched path must reproduce bit for bit.
func CullScalar(dst []uint16, f *Frustum, boxes []AABB) []uint16 {
	assert(len(boxes) <= MaxObjects, "%d boxes exceed MaxObjects", len(boxes))
	dst = reserve(dst, len(boxes))
	for i := range boxes {
		if f.Intersects(boxes[i]) {
			dst = append(dst, uint16(i))
		}
	}
	return dst
}

// CullScalarShadowCascade is CullScalar with IntersectsShadowCascade.
func CullScalarShadowCascade(dst []uint16, f *Frustum, boxes []AABB) []uint16 {
	assert(len(boxes) <= MaxObjects, "%d boxes exceed MaxObjects", len(boxes))
	dst = reserve(dst, len(boxes))
	for i := range boxes {
		if f.IntersectsShadowCascade(boxes[i]) {
			dst = append(dst, uint16(i))
		}
	}
	return dst
}

// reserve empties dst and makes sure it can hold n indices without growing.
func reserve(dst []uint16, n int) []uint16 {
	if cap(dst) < n {
		return make([]uint16, 0, n)
	}
	return dst[:0]
}
