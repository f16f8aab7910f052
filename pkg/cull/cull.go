package cull

import "math/bits"

// Cull appends the indices of the visible boxes in b to dst[:0], in
// increasing order, and returns the result. Boxes are tested eight at a time
// by the active kernel with the tail handled by the scalar primitive, and
// the result equals CullScalar over the same boxes.
func Cull(dst []uint16, f *Frustum, b *Boxes) []uint16 {
	return cullBoxes(dst, f, b, false)
}

// CullShadowCascade is Cull with the relaxed shadow cascade test.
func CullShadowCascade(dst []uint16, f *Frustum, b *Boxes) []uint16 {
	return cullBoxes(dst, f, b, true)
}

func cullBoxes(dst []uint16, f *Frustum, b *Boxes, cascade bool) []uint16 {
	n := b.Len()
	assert(b.consistent(), "box columns differ in length")
	assert(n <= MaxObjects, "%d boxes exceed MaxObjects", n)

	dst = reserve(dst, n)
	k := newKernelFrustum(f)
	kern := kernelFor(ActiveKernel())
	full := n &^ 7
	for i := 0; i < full; i += 8 {
		batch := b.batch(i)
		var mask uint8
		if cascade {
			mask = kern.cullCascade8(&k, &batch)
		} else {
			mask = kern.cull8(&k, &batch)
		}
		for mask != 0 {
			dst = append(dst, uint16(i+bits.TrailingZeros8(mask)))
			mask &= mask - 1
		}
	}
	for i := full; i < n; i++ {
		if intersects(f, b.At(i), cascade) {
			dst = append(dst, uint16(i))
		}
	}
	return dst
}

// CullFiltered writes into out the indices of boxes that are visible, not
// hidden, and on an active layer, and returns how many it wrote. out must
// hold at least b.Len() entries; hidden and layers are indexed like b.
func CullFiltered(out []uint32, f *Frustum, b *Boxes, hidden []bool, layers []int8, active LayerMask) uint32 {
	return cullFiltered(out, f, b, hidden, layers, active, false)
}

// CullShadowCascadeFiltered is CullFiltered with the shadow cascade test.
func CullShadowCascadeFiltered(out []uint32, f *Frustum, b *Boxes, hidden []bool, layers []int8, active LayerMask) uint32 {
	return cullFiltered(out, f, b, hidden, layers, active, true)
}

func cullFiltered(out []uint32, f *Frustum, b *Boxes, hidden []bool, layers []int8, active LayerMask, cascade bool) uint32 {
	n := b.Len()
	assert(b.consistent(), "box columns differ in length")
	assert(n <= MaxObjects, "%d boxes exceed MaxObjects", n)
	assert(len(out) >= n, "output holds %d of %d entries", len(out), n)
	assert(len(hidden) >= n && len(layers) >= n, "filter arrays shorter than %d boxes", n)

	k := newKernelFrustum(f)
	kern := kernelFor(ActiveKernel())
	var count uint32
	full := n &^ 7
	for i := 0; i < full; i += 8 {
		mask := filterMask(hidden[i:i+8], layers[i:i+8], active)
		if mask == 0 {
			continue
		}
		batch := b.batch(i)
		if cascade {
			mask &= kern.cullCascade8(&k, &batch)
		} else {
			mask &= kern.cull8(&k, &batch)
		}
		for mask != 0 {
			out[count] = uint32(i + bits.TrailingZeros8(mask))
			count++
			mask &= mask - 1
		}
	}
	for i := full; i < n; i++ {
		if hidden[i] || !active.Has(layers[i]) {
			continue
		}
		if intersects(f, b.At(i), cascade) {
			out[count] = uint32(i)
			count++
		}
	}
	return count
}

// filterMask returns the lanes that are shown and on an active layer.
func filterMask(hidden []bool, layers []int8, active LayerMask) uint8 {
	var mask uint8
	for lane := range 8 {
		if !hidden[lane] && active.Has(layers[lane]) {
			mask |= 1 << lane
		}
	}
	return mask
}

func intersects(f *Frustum, box AABB, cascade bool) bool {
	if cascade {
		return f.IntersectsShadowCascade(box)
	}
	return f.Intersects(box)
}
